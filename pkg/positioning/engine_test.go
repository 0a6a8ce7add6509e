package positioning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-wayfind/internal/log"
)

func triangleVenue() StaticSource {
	return StaticSource{
		"mall": {
			{ID: "b1", Identity: Identity{UUID: "f7826da6", Major: 1, Minor: 1}, Position: Point{X: 20, Y: 20, Z: 1}},
			{ID: "b2", Identity: Identity{UUID: "f7826da6", Major: 1, Minor: 2}, Position: Point{X: 180, Y: 20, Z: 1}},
			{ID: "b3", Identity: Identity{UUID: "f7826da6", Major: 1, Minor: 3}, Position: Point{X: 100, Y: 140, Z: 1}},
			{ID: "b4", Identity: Identity{UUID: "f7826da6", Major: 1, Minor: 4}, Position: Point{X: 100, Y: 60, Z: 1}},
		},
		"empty": {},
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(DefaultConfig(), triangleVenue(), log.Discard())
	_, err := e.Load(context.Background(), "mall")
	require.NoError(t, err)
	return e
}

// inTriangle uses barycentric sign tests.
func inTriangle(p, a, b, c Point) bool {
	sign := func(p1, p2, p3 Point) float64 {
		return (p1.X-p3.X)*(p2.Y-p3.Y) - (p2.X-p3.X)*(p1.Y-p3.Y)
	}
	d1, d2, d3 := sign(p, a, b), sign(p, b, c), sign(p, c, a)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

func TestEngine_LoadUnknownVenue(t *testing.T) {
	e := NewEngine(DefaultConfig(), triangleVenue(), log.Discard())
	_, err := e.Load(context.Background(), "nowhere")
	assert.True(t, errors.Is(err, ErrVenueNotFound))
}

func TestEngine_LoadWithoutSource(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil, log.Discard())
	_, err := e.Load(context.Background(), "mall")
	assert.ErrorIs(t, err, ErrVenueNotFound)
}

func TestEngine_LoadEmptyVenue(t *testing.T) {
	e := NewEngine(DefaultConfig(), triangleVenue(), log.Discard())
	_, err := e.Load(context.Background(), "empty")
	assert.ErrorIs(t, err, ErrNoBeacons)
}

func TestEngine_LoadIsDeterministic(t *testing.T) {
	e := NewEngine(DefaultConfig(), triangleVenue(), log.Discard())
	first, err := e.Load(context.Background(), "mall")
	require.NoError(t, err)
	second, err := e.Load(context.Background(), "mall")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "mall", e.VenueID())
}

func TestEngine_TriangleScenario(t *testing.T) {
	e := newTestEngine(t)
	now := time.Now()

	est := e.EstimatePosition([]Detection{
		{BeaconID: "b1", RSSI: -55, Timestamp: now},
		{BeaconID: "b2", RSSI: -65, Timestamp: now},
		{BeaconID: "b3", RSSI: -60, Timestamp: now},
	})
	require.NotNil(t, est)

	assert.Equal(t, MethodTrilateration, est.Method)
	assert.LessOrEqual(t, est.Accuracy, 3.5)
	assert.Equal(t, []string{"b1", "b3", "b2"}, est.BeaconsUsed)
	assert.Equal(t, 1.0, est.Position.Z)

	a, b, c := Point{X: 20, Y: 20}, Point{X: 180, Y: 20}, Point{X: 100, Y: 140}
	assert.True(t, inTriangle(est.Position, a, b, c), "position %+v outside triangle", est.Position)
}

func TestEngine_KeepsFourStrongest(t *testing.T) {
	e := newTestEngine(t)
	e.SetBeacons("mall", append(triangleVenue()["mall"], Beacon{ID: "b5", Position: Point{X: 0, Y: 0, Z: 1}}))

	est := e.EstimatePosition([]Detection{
		{BeaconID: "b1", RSSI: -50},
		{BeaconID: "b2", RSSI: -52},
		{BeaconID: "b3", RSSI: -54},
		{BeaconID: "b4", RSSI: -56},
		{BeaconID: "b5", RSSI: -80},
	})
	require.NotNil(t, est)
	assert.Equal(t, []string{"b1", "b2", "b3", "b4"}, est.BeaconsUsed)
}

func TestEngine_FiltersWeakUnknownAndInvalid(t *testing.T) {
	e := newTestEngine(t)

	est := e.EstimatePosition([]Detection{
		{BeaconID: "b1", RSSI: -90},    // at threshold
		{BeaconID: "b2", RSSI: -95},    // weaker
		{BeaconID: "ghost", RSSI: -40}, // not in venue
		{BeaconID: "b3", RSSI: 0},      // no reading
	})
	assert.Nil(t, est, "nothing usable and no history")
}

func TestEngine_DuplicateDetectionsKeepStrongest(t *testing.T) {
	e := newTestEngine(t)

	est := e.EstimatePosition([]Detection{
		{BeaconID: "b1", RSSI: -80},
		{BeaconID: "b1", RSSI: -62},
	})
	require.NotNil(t, est)
	assert.Equal(t, []string{"b1"}, est.BeaconsUsed)
	// single beacon centroid sits on the beacon
	assert.InDelta(t, 20.0, est.Position.X, 1e-9)
	assert.InDelta(t, 3.5*2, est.Accuracy, 1e-9)
}

func TestEngine_WeightedCentroidTwoBeacons(t *testing.T) {
	e := newTestEngine(t)

	est := e.EstimatePosition([]Detection{
		{BeaconID: "b1", RSSI: -70},
		{BeaconID: "b2", RSSI: -70},
	})
	require.NotNil(t, est)
	assert.Equal(t, MethodWeightedCentroid, est.Method)
	assert.InDelta(t, 100.0, est.Position.X, 1e-9)
	assert.InDelta(t, 20.0, est.Position.Y, 1e-9)
	// mean -70 is not > -70: base 5.0, doubled
	assert.InDelta(t, 10.0, est.Accuracy, 1e-9)
}

func TestEngine_CollinearFallsBackToCentroid(t *testing.T) {
	e := NewEngine(DefaultConfig(), StaticSource{"hall": {
		{ID: "a", Position: Point{X: 0, Y: 0}},
		{ID: "b", Position: Point{X: 10, Y: 0}},
		{ID: "c", Position: Point{X: 20, Y: 0}},
	}}, log.Discard())
	_, err := e.Load(context.Background(), "hall")
	require.NoError(t, err)

	est := e.EstimatePosition([]Detection{
		{BeaconID: "a", RSSI: -60},
		{BeaconID: "b", RSSI: -60},
		{BeaconID: "c", RSSI: -60},
	})
	require.NotNil(t, est)
	assert.Equal(t, MethodWeightedCentroid, est.Method)
	assert.InDelta(t, 10.0, est.Position.X, 1e-9)
	assert.InDelta(t, 0.0, est.Position.Y, 1e-9)
	assert.InDelta(t, (3.5-0.5)*2, est.Accuracy, 1e-9)
}

func TestEngine_CarryForward(t *testing.T) {
	e := newTestEngine(t)

	fresh := e.EstimatePosition([]Detection{
		{BeaconID: "b1", RSSI: -55},
		{BeaconID: "b2", RSSI: -65},
		{BeaconID: "b3", RSSI: -60},
	})
	require.NotNil(t, fresh)

	for i := 0; i < 3; i++ {
		stale := e.EstimatePosition(nil)
		require.NotNil(t, stale)
		assert.Equal(t, MethodCarriedForward, stale.Method)
		assert.True(t, stale.IsStale())
		assert.Equal(t, fresh.Position, stale.Position)
		assert.GreaterOrEqual(t, stale.Accuracy, fresh.Accuracy)
		assert.InDelta(t, fresh.Accuracy*2, stale.Accuracy, 1e-12)
	}

	// carried-forward estimates are not retained
	assert.Len(t, e.History(), 1)
}

func TestEngine_NoDetectionsNoHistory(t *testing.T) {
	e := newTestEngine(t)
	assert.Nil(t, e.EstimatePosition(nil))
}

func TestEngine_HistoryBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistorySize = 10
	e := NewEngine(cfg, triangleVenue(), log.Discard())
	_, err := e.Load(context.Background(), "mall")
	require.NoError(t, err)

	for i := 0; i < 15; i++ {
		e.EstimatePosition([]Detection{{BeaconID: "b1", RSSI: -50 - i}})
	}
	hist := e.History()
	require.Len(t, hist, 10)
	// oldest retained entry is the sixth push (rssi -55)
	assert.InDelta(t, AccuracyFromRSSI(-55, 1)*2, hist[0].Accuracy, 1e-12)
}

func TestEngine_HistorySizeCapped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistorySize = 50
	e := NewEngine(cfg, triangleVenue(), log.Discard())
	assert.Equal(t, MaxHistorySize, e.Config().HistorySize)
	_, err := e.Load(context.Background(), "mall")
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		e.EstimatePosition([]Detection{{BeaconID: "b1", RSSI: -60}})
	}
	assert.Len(t, e.History(), MaxHistorySize)
}

func TestEngine_AccuracyNeverNegative(t *testing.T) {
	e := newTestEngine(t)
	for rssi := -31; rssi > -90; rssi -= 7 {
		est := e.EstimatePosition([]Detection{
			{BeaconID: "b1", RSSI: rssi},
			{BeaconID: "b2", RSSI: rssi - 1},
			{BeaconID: "b3", RSSI: rssi - 2},
			{BeaconID: "b4", RSSI: rssi - 3},
		})
		require.NotNil(t, est)
		assert.GreaterOrEqual(t, est.Accuracy, 0.5)
	}
}

func TestEngine_LoadResetsHistory(t *testing.T) {
	e := newTestEngine(t)
	e.EstimatePosition([]Detection{{BeaconID: "b1", RSSI: -50}})
	require.Len(t, e.History(), 1)

	_, err := e.Load(context.Background(), "mall")
	require.NoError(t, err)
	assert.Empty(t, e.History())
	assert.Nil(t, e.EstimatePosition(nil))
}
