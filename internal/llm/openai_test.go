package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Veraticus/tally/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIClient(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		wantURL   string
		wantModel string
		wantErr   bool
	}{
		{
			name:      "groq defaults",
			config:    Config{Provider: ProviderGroq, APIKey: "k"},
			wantURL:   groqBaseURL,
			wantModel: "llama-3.3-70b-versatile",
		},
		{
			name:      "openai defaults",
			config:    Config{Provider: ProviderOpenAI, APIKey: "k"},
			wantURL:   openAIBaseURL,
			wantModel: "gpt-4o-mini",
		},
		{
			name:      "custom endpoint and model",
			config:    Config{Provider: ProviderGroq, APIKey: "k", BaseURL: "http://proxy/v1/", Model: "m"},
			wantURL:   "http://proxy/v1",
			wantModel: "m",
		},
		{
			name:    "missing API key",
			config:  Config{Provider: ProviderGroq},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := newOpenAIClient(tt.config)
			if tt.wantErr {
				require.ErrorIs(t, err, common.ErrMissingConfig)
				return
			}
			require.NoError(t, err)
			oc, ok := client.(*openAIClient)
			require.True(t, ok)
			assert.Equal(t, tt.wantURL, oc.baseURL)
			assert.Equal(t, tt.wantModel, oc.model)
		})
	}
}

func TestOpenAIClient_Complete(t *testing.T) {
	var got openAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"` +
			"```json\\n{\\\"aggregation\\\":\\\"total\\\"}\\n```" + `"}}]}`))
	}))
	defer server.Close()

	client, err := newOpenAIClient(Config{Provider: ProviderGroq, APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	reply, err := client.Complete(context.Background(), Request{
		System:   "system prompt",
		User:     "how much did I spend",
		JSONMode: true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"aggregation":"total"}`, reply)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "system prompt", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	assert.Equal(t, "llama-3.3-70b-versatile", got.Model)
	assert.Zero(t, got.Temperature)
}

func TestOpenAIClient_StatusErrors(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		status        int
		wantSentinel  error
		unavailable   bool
		wantRetryable bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"invalid api key"}`, wantSentinel: common.ErrUnauthorized, unavailable: true},
		{name: "forbidden", status: http.StatusForbidden, body: `{}`, wantSentinel: common.ErrUnauthorized, unavailable: true},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{}`, wantSentinel: common.ErrRateLimit, unavailable: true},
		{name: "quota", status: http.StatusBadRequest, body: `{"error":{"code":"insufficient_quota"}}`, wantSentinel: common.ErrQuotaExceeded, unavailable: true},
		{name: "server error", status: http.StatusBadGateway, body: `bad gateway`, wantRetryable: true},
		{name: "bad request", status: http.StatusBadRequest, body: `{"error":"bad"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := newOpenAIClient(Config{Provider: ProviderOpenAI, APIKey: "k", BaseURL: server.URL})
			require.NoError(t, err)

			_, err = client.Complete(context.Background(), Request{User: "q"})
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.unavailable, errors.Is(err, ErrUnavailable))
			if tt.wantSentinel != nil {
				require.ErrorIs(t, err, tt.wantSentinel)
			}
			assert.Equal(t, tt.wantRetryable, common.IsRetryable(err))
		})
	}
}

func TestCleanMarkdownWrapper(t *testing.T) {
	tests := map[string]string{
		`{"a":1}`:                  `{"a":1}`,
		"  {\"a\":1}\n":            `{"a":1}`,
		"```json\n{\"a\":1}\n```":  `{"a":1}`,
		"```\n{\"a\":1}\n```":      `{"a":1}`,
		"```{\"a\":1}```":          `{"a":1}`,
		"```JSON\n{\"a\":1}```   ": `{"a":1}`,
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanMarkdownWrapper(in), "input %q", in)
	}
}
