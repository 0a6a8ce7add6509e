package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-wayfind/pkg/navigation"
	"github.com/teslashibe/go-wayfind/pkg/positioning"
	"github.com/teslashibe/go-wayfind/pkg/sensor"
	"github.com/teslashibe/go-wayfind/pkg/venue"
)

// clearEnv blanks every variable LoadEnvConfig reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"WAYFIND_VENUE", "WAYFIND_PORT", "WAYFIND_STORE", "WAYFIND_TUNING",
		"WAYFIND_SIMULATE", "WAYFIND_MDNS", "REDIS_ADDR", "REDIS_PASSWORD",
		"REDIS_DB", "WAYFIND_REDIS_PREFIX",
	} {
		t.Setenv(name, "")
	}
}

func seedStore(t *testing.T, path string) {
	t.Helper()
	store, err := venue.Open(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(context.Background(), &venue.Venue{
		ID:   "mall",
		Name: "Riverside Mall",
		Beacons: []positioning.Beacon{
			{ID: "b1", Position: positioning.Point{X: 0, Y: 0}},
			{ID: "b2", Position: positioning.Point{X: 20, Y: 0}},
			{ID: "b3", Position: positioning.Point{X: 10, Y: 20}},
		},
		Targets: []venue.Target{
			{ID: "exit", Name: "Exit", Position: positioning.Point{X: 18, Y: 16}},
		},
	}))
}

func testConfig(t *testing.T) Config {
	t.Helper()
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "venues.json")
	seedStore(t, path)

	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = "0"
	cfg.VenueID = "mall"
	cfg.StorePath = path
	cfg.ScanInterval = time.Hour
	cfg.OrientationInterval = time.Hour
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.ScanInterval)
	assert.Equal(t, 100*time.Millisecond, cfg.OrientationInterval)
	assert.Equal(t, 60.0, cfg.FieldOfView)
	assert.Equal(t, -90, cfg.RSSIThreshold)
	assert.Equal(t, 10, cfg.HistorySize)
	assert.False(t, cfg.Redis.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_LoadEnvConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("WAYFIND_VENUE", "airport")
	t.Setenv("WAYFIND_PORT", "9000")
	t.Setenv("WAYFIND_STORE", "venues.db")
	t.Setenv("WAYFIND_MDNS", "true")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")

	cfg := DefaultConfig()
	cfg.LoadEnvConfig()

	assert.Equal(t, "airport", cfg.VenueID)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "venues.db", cfg.StorePath)
	assert.True(t, cfg.MDNS)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"venue", func(c *Config) { c.VenueID = "" }, "VenueID"},
		{"store", func(c *Config) { c.StorePath = "" }, "StorePath"},
		{"port", func(c *Config) { c.Port = "http" }, "Port"},
		{"interval", func(c *Config) { c.ScanInterval = 0 }, "ScanInterval"},
		{"fov", func(c *Config) { c.FieldOfView = 200 }, "FieldOfView"},
		{"rssi", func(c *Config) { c.RSSIThreshold = 10 }, "RSSIThreshold"},
		{"history zero", func(c *Config) { c.HistorySize = 0 }, "HistorySize"},
		{"history too large", func(c *Config) { c.HistorySize = 11 }, "HistorySize"},
		{"redis", func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }, "Redis.Addr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)

			var cerr *ConfigError
			require.True(t, errors.As(cfg.Validate(), &cerr))
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestConfig_ApplyTuning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"scan_interval":"500ms","field_of_view":90,"history_size":4}`), 0o644))

	cfg := DefaultConfig()
	cfg.TuningPath = path
	require.NoError(t, cfg.ApplyTuning())

	assert.Equal(t, 500*time.Millisecond, cfg.ScanInterval)
	assert.Equal(t, 90.0, cfg.FieldOfView)
	assert.Equal(t, 4, cfg.HistorySize)
	assert.Equal(t, 100*time.Millisecond, cfg.OrientationInterval)
	assert.Equal(t, 90.0, cfg.projectionConfig().FieldOfView)
	assert.Equal(t, 4, cfg.positioningConfig().HistorySize)
	assert.Equal(t, 500*time.Millisecond, cfg.navigationConfig().ScanInterval)
}

func TestNew_RejectsBadTuning(t *testing.T) {
	cfg := testConfig(t)
	cfg.TuningPath = filepath.Join(t.TempDir(), "missing.json")
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestApp_InitUnknownVenue(t *testing.T) {
	cfg := testConfig(t)
	cfg.VenueID = "stadium"

	a, err := New(cfg)
	require.NoError(t, err)
	err = a.Init(context.Background())
	assert.ErrorIs(t, err, positioning.ErrVenueNotFound)
	a.Shutdown()
}

func TestApp_RunServesNavigation(t *testing.T) {
	a, err := New(testConfig(t))
	require.NoError(t, err)
	require.NoError(t, a.Init(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
		a.Shutdown()
	})

	select {
	case <-a.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("app never started listening")
	}
	base := "http://" + a.Addr()

	resp, err := http.Get(base + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Readings for a user near (10,5)
	detections := []positioning.Detection{
		{BeaconID: "b1", RSSI: sensor.RSSIForDistance(11.18, positioning.ReferenceRSSI)},
		{BeaconID: "b2", RSSI: sensor.RSSIForDistance(11.18, positioning.ReferenceRSSI)},
		{BeaconID: "b3", RSSI: sensor.RSSIForDistance(15, positioning.ReferenceRSSI)},
	}
	body, _ := json.Marshal(detections)
	resp, err = http.Post(base+"/api/detections", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, err = http.Post(base+"/api/navigation", "application/json", bytes.NewReader([]byte(`{"target_id":"exit"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state navigation.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, navigation.PhaseActive, state.Phase)
	require.NotNil(t, state.Target)
	assert.Equal(t, "exit", state.Target.ID)
	assert.True(t, a.Controller().Active())
}

func TestApp_SimulatedInput(t *testing.T) {
	cfg := testConfig(t)
	cfg.Simulate = true

	a, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, a.Init(context.Background()))
	defer a.Shutdown()

	// The walk starts on b1, so a position is available immediately.
	state, err := a.Controller().Start(context.Background(), navigation.Target{
		ID:       "exit",
		Position: positioning.Point{X: 18, Y: 16},
	})
	require.NoError(t, err)
	require.NotNil(t, state.Estimate)
	assert.Equal(t, navigation.PhaseActive, state.Phase)
}
