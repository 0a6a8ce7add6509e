package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/teslashibe/go-wayfind/pkg/positioning"
)

// JSONStore keeps all venues in one JSON file.
type JSONStore struct {
	path   string
	venues map[string]*Venue
	mu     sync.RWMutex
}

// storeData is the on-disk layout.
type storeData struct {
	Version   int      `json:"version"`
	UpdatedAt string   `json:"updated_at,omitempty"`
	Venues    []*Venue `json:"venues"`
}

const currentVersion = 1

// NewJSONStore opens the store at path. A missing file is created on the
// first Save.
func NewJSONStore(path string) (*JSONStore, error) {
	s := &JSONStore{
		path:   path,
		venues: make(map[string]*Venue),
	}

	if _, err := os.Stat(path); err == nil {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("failed to load store: %w", err)
		}
	}
	return s, nil
}

// ReadFile decodes a venue file without opening a store.
func ReadFile(path string) ([]*Venue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var stored storeData
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if stored.Version > currentVersion {
		return nil, fmt.Errorf("unsupported store version %d", stored.Version)
	}
	return stored.Venues, nil
}

func (s *JSONStore) load() error {
	venues, err := ReadFile(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.venues = make(map[string]*Venue, len(venues))
	for _, v := range venues {
		if v == nil {
			continue
		}
		assignIDs(v)
		if err := v.Validate(); err != nil {
			return err
		}
		s.venues[v.ID] = v
	}
	return nil
}

// save writes venues to disk. Caller holds mu.
func (s *JSONStore) save(venues map[string]*Venue) error {
	ids := make([]string, 0, len(venues))
	for id := range venues {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	stored := storeData{
		Version:   currentVersion,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		Venues:    make([]*Venue, 0, len(ids)),
	}
	for _, id := range ids {
		stored.Venues = append(stored.Venues, venues[id])
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write to temp file first, then rename
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Beacons implements positioning.BeaconSource.
func (s *JSONStore) Beacons(_ context.Context, venueID string) ([]positioning.Beacon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.venues[venueID]
	if !ok {
		return nil, notFound(venueID)
	}
	return append([]positioning.Beacon(nil), v.Beacons...), nil
}

// Venue returns a copy of the venue.
func (s *JSONStore) Venue(_ context.Context, id string) (*Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.venues[id]
	if !ok {
		return nil, notFound(id)
	}
	return v.clone(), nil
}

// Venues returns all venue ids, sorted.
func (s *JSONStore) Venues(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.venues))
	for id := range s.venues {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Targets returns the venue's targets sorted by id.
func (s *JSONStore) Targets(_ context.Context, venueID string) ([]Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.venues[venueID]
	if !ok {
		return nil, notFound(venueID)
	}
	out := append([]Target(nil), v.Targets...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Target returns one target.
func (s *JSONStore) Target(_ context.Context, venueID, targetID string) (Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.venues[venueID]
	if !ok {
		return Target{}, notFound(venueID)
	}
	for _, t := range v.Targets {
		if t.ID == targetID {
			return t, nil
		}
	}
	return Target{}, fmt.Errorf("%w: %s/%s", ErrTargetNotFound, venueID, targetID)
}

// Save creates or replaces a venue and writes the file.
func (s *JSONStore) Save(_ context.Context, v *Venue) error {
	assignIDs(v)
	if err := v.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Memory only changes once the file is written.
	next := make(map[string]*Venue, len(s.venues)+1)
	for id, existing := range s.venues {
		next[id] = existing
	}
	next[v.ID] = v.clone()
	if err := s.save(next); err != nil {
		return err
	}
	s.venues = next
	return nil
}

// Close is a no-op; every Save is flushed.
func (s *JSONStore) Close() error { return nil }

var _ Store = (*JSONStore)(nil)
