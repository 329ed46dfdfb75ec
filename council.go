package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrAllModelsFailed is returned when a round produces zero opinions. It is
// the only session-fatal condition: there is no discussion left to assess.
var ErrAllModelsFailed = errors.New("all council models failed to respond")

// CouncilConfig carries everything a session needs. Sessions with different
// configurations can run concurrently; nothing here is shared mutable state.
type CouncilConfig struct {
	PanelModels          []string
	ChairmanModel        string
	ConvergenceThreshold float64
	MaxRounds            int
	QueryTimeout         time.Duration
}

// DefaultCouncilConfig builds a config from the package-level settings
func DefaultCouncilConfig() CouncilConfig {
	return CouncilConfig{
		PanelModels:          CouncilModels,
		ChairmanModel:        ChairmanModel,
		ConvergenceThreshold: ConvergenceThreshold,
		MaxRounds:            MaxCouncilRounds,
		QueryTimeout:         ModelQueryTimeout,
	}
}

// Council drives a panel of models through repeated rounds of discussion
// until the chairman judges it converged or the round limit is hit.
type Council struct {
	cfg     CouncilConfig
	gateway Gateway
}

// NewCouncil creates a council over the given gateway. Zero values in the
// config fall back to the package-level defaults.
func NewCouncil(cfg CouncilConfig, gateway Gateway) *Council {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = MaxCouncilRounds
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = ModelQueryTimeout
	}
	return &Council{cfg: cfg, gateway: gateway}
}

// Run drives the full multi-round council process for a query: one divergent
// round, then convergent rounds until the chairman judges the discussion
// converged or MaxRounds is reached. Events are delivered to emit in order
// as they happen; emit may be nil. Individual model failures and chairman
// failures are absorbed along the way - the only error is ErrAllModelsFailed,
// raised when a round ends with zero opinions.
func (c *Council) Run(ctx context.Context, query string, emit EmitFunc) (*CouncilSession, error) {
	if emit == nil {
		emit = func(CouncilEvent) {}
	}

	session := &CouncilSession{Query: query, Rounds: []*RoundResult{}}

	emit(CouncilEvent{Type: EventInitializing, Data: InitializingData{
		Message:   "Initializing multi-round council process...",
		UserQuery: query,
	}})

	// Round 1: divergent phase
	emit(CouncilEvent{Type: EventRoundStart, Data: RoundStartData{
		Round:   1,
		Kind:    RoundDivergent,
		Message: "Starting divergent phase - gathering initial perspectives...",
	}})

	round := c.runDivergentRound(ctx, query, emit)
	if len(round.Opinions) == 0 {
		emit(CouncilEvent{Type: EventError, Message: "All models failed to respond. Please try again."})
		return session, ErrAllModelsFailed
	}
	session.Rounds = append(session.Rounds, round)

	assessment := c.evaluateConvergence(ctx, query, round, nil)
	round.Assessment = assessment
	emit(roundCompleteEvent(round))

	if assessment.IsConverged {
		return c.seal(session, round.Round, assessment.FinalIntegratedConclusion, emit), nil
	}

	// Convergent phase loop
	for number := 2; number <= c.cfg.MaxRounds; number++ {
		emit(CouncilEvent{Type: EventRoundStart, Data: RoundStartData{
			Round:   number,
			Kind:    RoundConvergent,
			Message: fmt.Sprintf("Starting convergent phase round %d...", number),
		}})

		round = c.runConvergentRound(ctx, query, number, assessment, emit)
		if len(round.Opinions) == 0 {
			emit(CouncilEvent{Type: EventError, Message: "All models failed to respond. Please try again."})
			return session, ErrAllModelsFailed
		}
		session.Rounds = append(session.Rounds, round)

		next := c.evaluateConvergence(ctx, query, round, assessment)
		round.Assessment = next
		assessment = next
		emit(roundCompleteEvent(round))

		if assessment.IsConverged {
			return c.seal(session, round.Round, assessment.FinalIntegratedConclusion, emit), nil
		}
	}

	// Round limit reached without convergence
	conclusion := assessment.FinalIntegratedConclusion
	if conclusion == "" {
		conclusion = "Maximum rounds reached without convergence"
	}
	return c.seal(session, 0, conclusion, emit), nil
}

// Stream runs the council in its own goroutine and returns the event
// channel. The channel is unbuffered, so a slow consumer applies
// backpressure to the state machine; it is closed after the terminal event.
func (c *Council) Stream(ctx context.Context, query string) <-chan CouncilEvent {
	events := make(chan CouncilEvent)
	go func() {
		defer close(events)
		// Failures are already on the stream as error events
		_, _ = c.Run(ctx, query, func(event CouncilEvent) {
			events <- event
		})
	}()
	return events
}

// seal records the terminal outcome on the session and emits the closing
// complete and final_results events. convergedAt of 0 means the round
// limit was reached without convergence.
func (c *Council) seal(session *CouncilSession, convergedAt int, conclusion string, emit EmitFunc) *CouncilSession {
	var convergedRound *int
	if convergedAt > 0 {
		convergedRound = &convergedAt
	}

	session.Outcome = SessionOutcome{
		ConvergedAtRound: convergedRound,
		FinalConclusion:  conclusion,
	}

	summary := SessionSummary{
		AllRounds:   session.Rounds,
		FinalResult: FinalResult{Model: c.cfg.ChairmanModel, Response: conclusion},
		Metadata:    SessionMetadata{ConvergedRound: convergedRound},
	}
	emit(CouncilEvent{Type: EventComplete, Data: summary})
	emit(CouncilEvent{Type: EventFinalResults, Data: summary})

	return session
}

func roundCompleteEvent(round *RoundResult) CouncilEvent {
	return CouncilEvent{Type: EventRoundComplete, Data: RoundCompleteData{
		Round:            round.Round,
		Kind:             round.Kind,
		Opinions:         round.Opinions,
		Assessment:       round.Assessment,
		IsConverged:      round.Assessment.IsConverged,
		ConvergenceScore: round.Assessment.ConvergenceScore,
	}}
}

// GenerateConversationTitle generates a short title for a conversation.
// Uses a fast model (gemini-2.5-flash) to create a 3-5 word summary of the
// user's query. Returns the generated title or an error if generation fails.
func GenerateConversationTitle(ctx context.Context, gateway Gateway, userQuery string) (string, error) {
	titlePrompt := fmt.Sprintf(`Generate a very short title (3-5 words maximum) that summarizes the following question.
The title should be concise and descriptive. Do not use quotes or punctuation in the title.

Question: %s

Title:`, userQuery)

	messages := []ChatMessage{
		{Role: "user", Content: titlePrompt},
	}

	// Use gemini-2.5-flash for fast title generation
	reply, err := gateway.Call(ctx, "google/gemini-2.5-flash", messages, TitleGenTimeout)
	if err != nil {
		return "", fmt.Errorf("title generation failed: %w", err)
	}

	title := strings.TrimSpace(reply.Content)

	// Clean up the title - remove quotes
	title = strings.Trim(title, "\"'")

	// Truncate if too long
	if len(title) > 50 {
		title = title[:47] + "..."
	}

	return title, nil
}
