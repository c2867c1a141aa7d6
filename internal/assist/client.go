// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package assist wraps the external text-completion service the
// reader uses for question answering, word definitions and passage
// translation. The endpoint is opaque to the rest of the system: a
// single blocking JSON call per request, no retries.
package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/taibuivan/tosho/internal/platform/apperr"
)

const requestTimeout = 60 * time.Second

// Client calls the completion endpoint configured at startup. A
// client with an empty endpoint is valid and reports the feature as
// unavailable.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

func NewClient(endpoint, apiKey, model string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		http:     &http.Client{Timeout: requestTimeout},
	}
}

// Enabled reports whether a completion endpoint was configured.
func (client *Client) Enabled() bool {
	return client.endpoint != ""
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type completionResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Answer asks a free-form question against a passage of book text.
func (client *Client) Answer(context context.Context, passage, question string) (string, error) {
	system := "You answer questions about a passage from a book the user is reading. " +
		"Answer from the passage alone and say so when it does not contain the answer."
	prompt := fmt.Sprintf("Passage:\n%s\n\nQuestion: %s", passage, question)
	return client.complete(context, system, prompt)
}

// Define explains a word as used in the surrounding passage.
func (client *Client) Define(context context.Context, word, passage string) (string, error) {
	system := "You define words concisely, using the surrounding passage to pick the right sense."
	prompt := fmt.Sprintf("Define %q as used here:\n%s", word, passage)
	return client.complete(context, system, prompt)
}

// Translate renders a passage into the requested language.
func (client *Client) Translate(context context.Context, passage, language string) (string, error) {
	system := "You translate book passages faithfully, keeping tone and register."
	prompt := fmt.Sprintf("Translate into %s:\n%s", language, passage)
	return client.complete(context, system, prompt)
}

func (client *Client) complete(ctx context.Context, system, prompt string) (string, error) {
	if !client.Enabled() {
		return "", apperr.ServiceUnavailable("reading assistant is not configured")
	}

	payload, err := json.Marshal(completionRequest{
		Model:     client.model,
		MaxTokens: 1024,
		System:    system,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", apperr.Internal(err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, client.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", apperr.Internal(err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("x-api-key", client.apiKey)
	request.Header.Set("anthropic-version", "2023-06-01")

	response, err := client.http.Do(request)
	if err != nil {
		return "", apperr.ServiceUnavailable("reading assistant is unreachable")
	}
	defer response.Body.Close()

	var decoded completionResponse
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		return "", apperr.Internal(fmt.Errorf("assist: decode response: %w", err))
	}
	if response.StatusCode != http.StatusOK {
		if decoded.Error != nil {
			return "", apperr.ServiceUnavailable("reading assistant error: " + decoded.Error.Message)
		}
		return "", apperr.ServiceUnavailable(fmt.Sprintf("reading assistant returned status %d", response.StatusCode))
	}

	for _, block := range decoded.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", apperr.ServiceUnavailable("reading assistant returned no text")
}
