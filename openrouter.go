package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Gateway abstracts the model provider so the council engine can be driven
// by anything that answers role-tagged messages.
type Gateway interface {
	// Call sends messages to a single model and returns its reply.
	Call(ctx context.Context, model string, messages []ChatMessage, timeout time.Duration) (*ModelReply, error)

	// CallMany sends the same messages to every model concurrently and
	// returns one AgentReply per model in completion order. A nil Reply
	// marks a model that errored or timed out; individual failures never
	// abort the batch.
	CallMany(ctx context.Context, models []string, messages []ChatMessage, timeout time.Duration) ([]AgentReply, error)
}

// OpenRouterGateway implements Gateway against the OpenRouter chat
// completions API using the package-level configuration.
type OpenRouterGateway struct{}

// Call implements Gateway
func (OpenRouterGateway) Call(ctx context.Context, model string, messages []ChatMessage, timeout time.Duration) (*ModelReply, error) {
	return QueryModel(ctx, model, messages, timeout)
}

// CallMany implements Gateway
func (OpenRouterGateway) CallMany(ctx context.Context, models []string, messages []ChatMessage, timeout time.Duration) ([]AgentReply, error) {
	return QueryModelsParallel(ctx, models, messages, timeout)
}

// QueryModel queries a single model via OpenRouter API with the given timeout.
// Returns the model's response or an error if the request fails.
func QueryModel(ctx context.Context, model string, messages []ChatMessage, timeout time.Duration) (*ModelReply, error) {
	// Create HTTP client with timeout
	client := &http.Client{
		Timeout: timeout,
	}

	// Build request payload
	payload := OpenRouterRequest{
		Model:    model,
		Messages: messages,
	}

	// Marshal payload to JSON
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Create HTTP request
	req, err := http.NewRequestWithContext(ctx, "POST", OpenRouterAPIURL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	req.Header.Set("Authorization", "Bearer "+OpenRouterAPIKey)
	req.Header.Set("Content-Type", "application/json")

	// Make the request
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	// Check status code
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	// Read response body
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// Parse response
	var apiResponse OpenRouterAPIResponse
	if err := json.Unmarshal(bodyBytes, &apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// Extract message from response
	if len(apiResponse.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	message := apiResponse.Choices[0].Message
	return &ModelReply{
		Content:          message.Content,
		ReasoningDetails: message.ReasoningDetails,
	}, nil
}

// QueryModelsParallel queries multiple models in parallel using goroutines.
// Uses errgroup for parallel execution with graceful degradation - failed
// models get a nil Reply while successful models return their responses.
// Replies are appended as each call settles, so the slice is in completion
// order with exactly one entry per model.
func QueryModelsParallel(ctx context.Context, models []string, messages []ChatMessage, timeout time.Duration) ([]AgentReply, error) {
	// Create errgroup for parallel execution
	g, ctx := errgroup.WithContext(ctx)

	// Replies slice and mutex for thread-safe appends
	replies := make([]AgentReply, 0, len(models))
	var mu sync.Mutex

	// Launch goroutine for each model
	for _, model := range models {
		model := model // Capture loop variable
		g.Go(func() error {
			reply, err := QueryModel(ctx, model, messages, timeout)

			// Graceful degradation: log error but don't fail entire request
			if err != nil {
				log.Printf("Error querying model %s: %v", model, err)
				reply = nil // Record the model as absent, continue with the rest
			}

			mu.Lock()
			replies = append(replies, AgentReply{Model: model, Reply: reply})
			mu.Unlock()
			return nil
		})
	}

	// Wait for all goroutines to complete
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return replies, nil
}
