package navigation

// Observer receives every state snapshot a session produces. OnState is
// called from the controller's loops with delivery serialized; it must not
// call Controller.Stop or Controller.Start synchronously.
type Observer interface {
	OnState(State)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(State)

// OnState calls f(s).
func (f ObserverFunc) OnState(s State) { f(s) }

type fanout []Observer

func (f fanout) OnState(s State) {
	for _, o := range f {
		o.OnState(s.Clone())
	}
}

// Observers combines observers into one. Each receives its own copy of the
// snapshot. Nil entries are skipped.
func Observers(observers ...Observer) Observer {
	out := make(fanout, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}
