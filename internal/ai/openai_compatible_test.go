package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *http.Request) {
	t.Helper()
	var captured http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = *r.Clone(context.Background())
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func clientFor(url string) *OpenAICompatibleClient {
	return NewOpenAICompatibleClient(ChatConfig{BaseURL: url + "/", APIKey: "test-key", Model: "gemini-test"})
}

func TestGenerateReturnsText(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"hi there"}}]}`)

	reply, err := clientFor(srv.URL).Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", reply)
	assert.Equal(t, "/chat/completions", captured.URL.Path)
	assert.Equal(t, "Bearer test-key", captured.Header.Get("Authorization"))
}

func TestGenerateEmptyChoices(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"choices":[]}`)
	_, err := clientFor(srv.URL).Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGenerateNullContent(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"choices":[{"message":{"content":null}}]}`)
	_, err := clientFor(srv.URL).Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGenerateNonTextContent(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"choices":[{"message":{"content":[{"type":"image"}]}}]}`)
	_, err := clientFor(srv.URL).Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNonTextResponse)
}

func TestGenerateUpstreamError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusTooManyRequests, `{"error":"quota"}`)
	_, err := clientFor(srv.URL).Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota")
}

func TestGenerateMissingCredential(t *testing.T) {
	client := NewOpenAICompatibleClient(ChatConfig{BaseURL: "http://unused", Model: "m"})
	_, err := client.Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestNewGeneratorSelectsProvider(t *testing.T) {
	g, err := NewGenerator(ChatConfig{Provider: "openai-compatible"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAICompatibleClient{}, g)

	g, err = NewGenerator(ChatConfig{Provider: "openai-sdk", BaseURL: "http://localhost"})
	require.NoError(t, err)
	assert.IsType(t, &SDKClient{}, g)

	_, err = NewGenerator(ChatConfig{Provider: "vertex"})
	assert.Error(t, err)
}
