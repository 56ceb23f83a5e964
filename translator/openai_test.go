package translator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatCompletion(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(body)
}

func TestOpenAIModelMakeRequest(t *testing.T) {
	var gotModel, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req map[string]any
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)
		gotModel, _ = req["model"].(string)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatCompletion(`["你好"]`))
	}))
	defer srv.Close()

	m, err := NewOpenAIModel(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", Model: "gpt-test"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "gpt-test", m.Name())

	resp, err := m.MakeRequest(context.Background(), TranslatePrompt(`["Hello"]`, "中文"))
	require.NoError(t, err)
	assert.Equal(t, `["你好"]`, resp)
	assert.Equal(t, "gpt-test", gotModel)
	assert.Equal(t, "Bearer sk-test", gotAuth)
}

func TestOpenAIModelRetriesRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit_exceeded"}}`)
			return
		}
		_, _ = io.WriteString(w, chatCompletion("ok"))
	}))
	defer srv.Close()

	m, err := NewOpenAIModel(OpenAIConfig{
		APIKey:           "sk-test",
		BaseURL:          srv.URL + "/v1/",
		RateLimitRetries: 2,
		RateLimitDelay:   time.Millisecond,
	}, nil)
	require.NoError(t, err)

	resp, err := m.MakeRequest(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestOpenAIModelServerErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer srv.Close()

	m, err := NewOpenAIModel(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", RateLimitRetries: 3}, nil)
	require.NoError(t, err)

	_, err = m.MakeRequest(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNewOpenAIModelRequiresKey(t *testing.T) {
	_, err := NewOpenAIModel(OpenAIConfig{}, nil)
	assert.Error(t, err)
}
