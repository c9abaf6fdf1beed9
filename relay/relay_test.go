package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lonestardev/dialcore/core"
)

func TestNewClientValidatesURL(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)

	_, err = NewClient(Config{URL: "not a url"})
	assert.Error(t, err)

	client, err := NewClient(Config{URL: "https://hooks.example.com/intake/"})
	require.NoError(t, err)
	assert.Equal(t, "https://hooks.example.com/intake", client.baseURL)
}

func TestPublishPostsEnvelope(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := MustNew(Config{URL: srv.URL, Token: "secret"})
	err := client.Publish(context.Background(), core.RelayHotLeadAlert, map[string]any{"lead_id": "lead-1"})
	require.NoError(t, err)

	assert.Equal(t, "/hotLeadAlert", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)

	var env struct {
		Event   string         `json:"event"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &env))
	assert.Equal(t, "hotLeadAlert", env.Event)
	assert.Equal(t, "lead-1", env.Payload["lead_id"])
}

func TestPublishRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := MustNew(Config{URL: srv.URL})
	err := client.Publish(context.Background(), core.RelayCallCompleted, nil)
	assert.ErrorContains(t, err, "status 502")
}

func TestNoOp(t *testing.T) {
	assert.NoError(t, NoOp{}.Publish(context.Background(), core.RelayNewLead, nil))
}
