package openaiLLM

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"phi3",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"No sé"}}]}`))
	}))
	defer srv.Close()

	provider := New("test-key", srv.URL+"/", "phi3", 0.1, srv.Client())
	answer, err := provider.Complete(context.Background(), "Contexto: ... Pregunta: ...")
	require.NoError(t, err)
	assert.Equal(t, "No sé", answer)

	assert.Equal(t, "phi3", gotBody["model"])
	assert.InDelta(t, 0.1, gotBody["temperature"], 1e-9)
	messages := gotBody["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].(map[string]any)["role"])
}

func TestCompleteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"down","type":"server_error"}}`))
	}))
	defer srv.Close()

	provider := New("k", srv.URL+"/", "phi3", 0.1, srv.Client())
	_, err := provider.Complete(context.Background(), "hola")
	assert.Error(t, err)
}

func TestCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"phi3","choices":[]}`))
	}))
	defer srv.Close()

	provider := New("k", srv.URL+"/", "phi3", 0.1, srv.Client())
	_, err := provider.Complete(context.Background(), "hola")
	assert.ErrorIs(t, err, errNoChoices)
}
