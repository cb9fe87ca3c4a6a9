package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/thing", r.URL.Path)
		assert.Equal(t, "default", r.Header.Get("X-Default"))
		assert.Equal(t, "override", r.Header.Get("X-Request"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"ok"}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHeaders(map[string]string{"X-Default": "default"}))
	resp, err := c.Get(context.Background(), "/v1/thing", map[string]string{"X-Request": "override"})
	require.NoError(t, err)

	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, resp.ParseJSON(&out))
	assert.Equal(t, "ok", out.Name)
}

func TestClientGetStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).Get(context.Background(), "/missing")
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}
