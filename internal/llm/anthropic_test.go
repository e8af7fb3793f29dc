package llm

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

func TestAnthropicClient_Complete(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"intent\":\"income\"}"}]}`))
	}))
	defer server.Close()

	client, err := newAnthropicClient(Config{APIKey: "secret", BaseURL: server.URL})
	require.NoError(t, err)

	reply, err := client.Complete(context.Background(), Request{System: "sys", User: "my salary", JSONMode: true})
	require.NoError(t, err)
	assert.Equal(t, `{"intent":"income"}`, reply)
	assert.Equal(t, "sys", got["system"])
	assert.Equal(t, "claude-3-5-haiku-latest", got["model"])
}

func TestAnthropicClient_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer server.Close()

	client, err := newAnthropicClient(Config{APIKey: "secret", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), Request{User: "q"})
	require.ErrorIs(t, err, ErrEmptyReply)
}

func TestAnthropicClient_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error"}}`))
	}))
	defer server.Close()

	client, err := newAnthropicClient(Config{APIKey: "secret", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), Request{User: "q"})
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(Config{APIKey: "k"})
	require.NoError(t, err)
	oc, ok := c.(*openAIClient)
	require.True(t, ok)
	assert.Equal(t, ProviderGroq, oc.provider)

	c, err = NewClient(Config{Provider: "Anthropic", APIKey: "k"})
	require.NoError(t, err)
	_, ok = c.(*anthropicClient)
	assert.True(t, ok)

	_, err = NewClient(Config{Provider: "palm", APIKey: "k"})
	require.Error(t, err)
}
