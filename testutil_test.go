package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// TestHelper provides utilities for tests
type TestHelper struct {
	t       *testing.T
	tempDir string
}

// NewTestHelper creates a new test helper
func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// CreateTempDir creates a temporary directory for testing
func (h *TestHelper) CreateTempDir() string {
	tempDir, err := os.MkdirTemp("", "llm-council-test-*")
	if err != nil {
		h.t.Fatalf("Failed to create temp dir: %v", err)
	}
	h.tempDir = tempDir
	return tempDir
}

// Cleanup removes the temporary directory
func (h *TestHelper) Cleanup() {
	if h.tempDir != "" {
		os.RemoveAll(h.tempDir)
	}
}

// WriteJSONFile writes JSON data to a file in the temp directory
func (h *TestHelper) WriteJSONFile(filename string, data interface{}) string {
	if h.tempDir == "" {
		h.CreateTempDir()
	}

	path := filepath.Join(h.tempDir, filename)
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		h.t.Fatalf("Failed to marshal JSON: %v", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		h.t.Fatalf("Failed to write file: %v", err)
	}

	return path
}

// ReadJSONFile reads and unmarshals JSON from a file
func (h *TestHelper) ReadJSONFile(path string, v interface{}) {
	data, err := os.ReadFile(path)
	if err != nil {
		h.t.Fatalf("Failed to read file: %v", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		h.t.Fatalf("Failed to unmarshal JSON: %v", err)
	}
}

// AssertEqual checks if two values are equal
func (h *TestHelper) AssertEqual(got, want interface{}, message string) {
	if got != want {
		h.t.Errorf("%s: got %v, want %v", message, got, want)
	}
}

// AssertNotNil checks if a value is not nil
func (h *TestHelper) AssertNotNil(v interface{}, message string) {
	if v == nil {
		h.t.Errorf("%s: expected non-nil value", message)
	}
}

// AssertNil checks if a value is nil
func (h *TestHelper) AssertNil(v interface{}, message string) {
	if v != nil && !isNil(v) {
		h.t.Errorf("%s: expected nil, got %v", message, v)
	}
}

// isNil checks if an interface value is nil (handles typed nil pointers)
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	// Use type assertion to check for nil pointer
	switch v := v.(type) {
	case *Conversation:
		return v == nil
	case *ParsedOpinion:
		return v == nil
	case *Assessment:
		return v == nil
	default:
		return false
	}
}

// AssertNoError checks if an error is nil
func (h *TestHelper) AssertNoError(err error, message string) {
	if err != nil {
		h.t.Errorf("%s: unexpected error: %v", message, err)
	}
}

// AssertError checks if an error is not nil
func (h *TestHelper) AssertError(err error, message string) {
	if err == nil {
		h.t.Errorf("%s: expected error, got nil", message)
	}
}

// MockOpenRouterServer creates a mock HTTP server for OpenRouter API
func MockOpenRouterServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	return httptest.NewServer(handler)
}

// CreateMockOpenRouterHandler creates a handler that returns successful responses
func CreateMockOpenRouterHandler(t *testing.T, response string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Verify headers
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected Content-Type application/json, got %s", r.Header.Get("Content-Type"))
		}

		if r.Header.Get("Authorization") == "" {
			t.Errorf("Missing Authorization header")
		}

		// Return mock response
		writeMockOpenRouterResponse(w, response)
	}
}

// CreateMockOpenRouterModelHandler creates a handler that answers per model.
// The request's model field selects the response; unknown models get a 500.
func CreateMockOpenRouterModelHandler(t *testing.T, responses map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var request OpenRouterRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("Failed to decode mock request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		response, ok := responses[request.Model]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error": "unknown model"}`))
			return
		}

		writeMockOpenRouterResponse(w, response)
	}
}

// writeMockOpenRouterResponse writes a well-formed chat completion payload
func writeMockOpenRouterResponse(w http.ResponseWriter, response string) {
	apiResponse := OpenRouterAPIResponse{
		Choices: []struct {
			Message struct {
				Content          string      `json:"content"`
				ReasoningDetails interface{} `json:"reasoning_details,omitempty"`
			} `json:"message"`
		}{
			{
				Message: struct {
					Content          string      `json:"content"`
					ReasoningDetails interface{} `json:"reasoning_details,omitempty"`
				}{
					Content: response,
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(apiResponse)
}

// CreateMockOpenRouterErrorHandler creates a handler that returns errors
func CreateMockOpenRouterErrorHandler(statusCode int, errorMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		w.Write([]byte(errorMsg))
	}
}

// stubCall records one Call made against a stubGateway
type stubCall struct {
	Model    string
	Messages []ChatMessage
}

// stubGateway is an in-process Gateway for driving the council in tests.
// The reply function decides each model's answer; returning an error marks
// that model as failed. CallMany runs sequentially so tests see a
// deterministic opinion order.
type stubGateway struct {
	mu    sync.Mutex
	calls []stubCall
	reply func(model string, messages []ChatMessage) (string, error)
}

func (g *stubGateway) Call(ctx context.Context, model string, messages []ChatMessage, timeout time.Duration) (*ModelReply, error) {
	g.mu.Lock()
	g.calls = append(g.calls, stubCall{Model: model, Messages: messages})
	g.mu.Unlock()

	content, err := g.reply(model, messages)
	if err != nil {
		return nil, err
	}
	return &ModelReply{Content: content}, nil
}

func (g *stubGateway) CallMany(ctx context.Context, models []string, messages []ChatMessage, timeout time.Duration) ([]AgentReply, error) {
	replies := make([]AgentReply, 0, len(models))
	for _, model := range models {
		reply, err := g.Call(ctx, model, messages, timeout)
		if err != nil {
			reply = nil
		}
		replies = append(replies, AgentReply{Model: model, Reply: reply})
	}
	return replies, nil
}

// callsFor returns the prompts sent to a given model, in order
func (g *stubGateway) callsFor(model string) []stubCall {
	g.mu.Lock()
	defer g.mu.Unlock()

	var calls []stubCall
	for _, call := range g.calls {
		if call.Model == model {
			calls = append(calls, call)
		}
	}
	return calls
}

// opinionJSON builds a valid fenced opinion payload for a model stub
func opinionJSON(summary string, viewpoints ...string) string {
	opinion := ParsedOpinion{
		Summary:              summary,
		Viewpoints:           viewpoints,
		Conflicts:            []string{},
		Suggestions:          []string{},
		FinalAnswerCandidate: "",
	}
	data, _ := json.Marshal(opinion)
	return fmt.Sprintf("```json\n%s\n```", string(data))
}

// assessmentJSON builds a valid chairman payload for a model stub
func assessmentJSON(score float64, converged bool, conclusion string, questions ...string) string {
	assessment := Assessment{
		ConvergenceScore:          score,
		IsConverged:               converged,
		ConsensusPoints:           []string{"shared ground"},
		ConflictPoints:            []string{"open dispute"},
		Explanation:               "test assessment",
		QuestionsForNextRound:     questions,
		FinalIntegratedConclusion: conclusion,
	}
	data, _ := json.Marshal(assessment)
	return fmt.Sprintf("```json\n%s\n```", string(data))
}

// SampleConversation creates a sample conversation for testing
func SampleConversation(id string) *Conversation {
	converged := 1
	return &Conversation{
		ID:        id,
		CreatedAt: testTime(),
		Title:     "Test Conversation",
		Messages: []Message{
			{
				Role:    "user",
				Content: "What is Go?",
			},
			{
				Role:    "assistant",
				Content: "Go is a programming language developed by Google.",
				Session: &CouncilSession{
					Query: "What is Go?",
					Rounds: []*RoundResult{
						{
							Round: 1,
							Kind:  RoundDivergent,
							Opinions: []OpinionRecord{
								{Model: "test/model1", Response: "Go is a programming language."},
								{Model: "test/model2", Response: "Go is developed by Google."},
							},
							Assessment: &Assessment{
								ConvergenceScore:          0.9,
								IsConverged:               true,
								ConsensusPoints:           []string{"Go is a language"},
								ConflictPoints:            []string{},
								Explanation:               "agreement reached",
								QuestionsForNextRound:     []string{},
								FinalIntegratedConclusion: "Go is a programming language developed by Google.",
							},
						},
					},
					Outcome: SessionOutcome{
						ConvergedAtRound: &converged,
						FinalConclusion:  "Go is a programming language developed by Google.",
					},
				},
			},
		},
	}
}

// testTime returns a fixed time for testing
func testTime() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}
