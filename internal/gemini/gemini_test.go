package gemini

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projpool/projpool/internal/apperrors"
)

func TestClient_NotConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty", Config{}},
		{"no model", Config{ProjectID: "p", APIKey: "k"}},
		{"no project", Config{ModelID: "gemini-2.0-flash", APIKey: "k"}},
		{"no key", Config{ProjectID: "p", ModelID: "gemini-2.0-flash"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := New(tc.cfg)

			_, err := c.Describe(t.Context(), "hi")

			require.ErrorIs(t, err, apperrors.ErrAssistNotConfigured)
			assert.False(t, c.Enabled())
			assert.Empty(t, c.Model())
		})
	}
}

func Test_vertexBaseURL(t *testing.T) {
	assert.Equal(t,
		"https://europe-west4-aiplatform.googleapis.com/v1beta1/projects/projpool/locations/europe-west4/endpoints/openapi/",
		vertexBaseURL("projpool", "europe-west4"),
	)
}

func TestClient_Describe(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "google/gemini-2.0-flash",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "A project about bees"}
			}]
		}`))
	}))
	defer srv.Close()

	c := New(Config{
		ProjectID: "projpool",
		ModelID:   "gemini-2.0-flash",
		APIKey:    "access-token",
		BaseURL:   srv.URL + "/v1/",
	})

	text, err := c.Describe(t.Context(), "Describe project 'bees'")

	require.NoError(t, err)
	assert.Equal(t, "A project about bees", text)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer access-token", gotAuth)
	assert.Equal(t, "google/gemini-2.0-flash", gotBody.Model)
	require.Len(t, gotBody.Messages, 1)
	assert.Equal(t, "user", gotBody.Messages[0].Role)
	assert.Equal(t, "Describe project 'bees'", gotBody.Messages[0].Content)
	assert.Equal(t, "google/gemini-2.0-flash", c.Model())
}

func TestClient_DescribeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "bad model", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := New(Config{ProjectID: "p", ModelID: "google/nope", APIKey: "k", BaseURL: srv.URL + "/"})

	_, err := c.Describe(t.Context(), "hi")

	require.Error(t, err)
	assert.Equal(t, "google/nope", c.Model(), "model with publisher kept as is")
}
