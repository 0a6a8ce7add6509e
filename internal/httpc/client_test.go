package httpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`{"id":"mall"}`))
	}))
	defer srv.Close()

	var v struct{ ID string }
	require.NoError(t, GetJSON(context.Background(), srv.URL, &v))
	assert.Equal(t, "mall", v.ID)
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["target_id"] == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"target_id is required"}`))
			return
		}
		w.Write([]byte(`{"phase":"active"}`))
	}))
	defer srv.Close()

	var out struct{ Phase string }
	require.NoError(t, PostJSON(context.Background(), srv.URL, map[string]string{"target_id": "exit"}, &out))
	assert.Equal(t, "active", out.Phase)

	require.NoError(t, PostJSON(context.Background(), srv.URL, map[string]string{"target_id": "exit"}, nil))

	err := PostJSON(context.Background(), srv.URL, map[string]string{}, nil)
	var status *StatusError
	require.True(t, errors.As(err, &status))
	assert.Equal(t, http.StatusBadRequest, status.Code)
	assert.Contains(t, status.Body, "target_id")
}
