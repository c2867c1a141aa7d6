// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package assist_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tosho/internal/assist"
)

/*
TestClient_Answer verifies the wire shape of a completion call and
the extraction of the first text block.
*/
func TestClient_Answer(t *testing.T) {
	var captured struct {
		Model    string `json:"model"`
		System   string `json:"system"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		// 1. Authentication travels in the API key header
		assert.Equal(t, "secret", request.Header.Get("x-api-key"))
		assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(request.Body).Decode(&captured))

		json.NewEncoder(writer).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": "Forty-two."}},
		})
	}))
	defer server.Close()

	client := assist.NewClient(server.URL, "secret", "test-model")

	text, err := client.Answer(context.Background(), "some passage", "what is the answer?")
	require.NoError(t, err)
	assert.Equal(t, "Forty-two.", text)

	// 2. The prompt carries both passage and question
	assert.Equal(t, "test-model", captured.Model)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[0].Content, "some passage")
	assert.Contains(t, captured.Messages[0].Content, "what is the answer?")
}

/*
TestClient_Unconfigured verifies that a client without an endpoint
reports the feature as unavailable instead of dialing.
*/
func TestClient_Unconfigured(t *testing.T) {
	client := assist.NewClient("", "", "")

	assert.False(t, client.Enabled())
	_, err := client.Define(context.Background(), "word", "passage")
	assert.Error(t, err)
}

/*
TestClient_UpstreamError verifies that upstream failures surface as
service-unavailable errors with the upstream message.
*/
func TestClient_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(writer).Encode(map[string]any{
			"error": map[string]string{"message": "rate limited"},
		})
	}))
	defer server.Close()

	client := assist.NewClient(server.URL, "secret", "test-model")

	_, err := client.Translate(context.Background(), "passage", "French")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}
