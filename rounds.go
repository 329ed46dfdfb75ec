package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// opinionFormatInstructions is the output contract shared by every round
// prompt. It mirrors the ParsedOpinion schema the validator repairs against.
const opinionFormatInstructions = `Your response MUST be a single JSON object in exactly this format, with no text outside it:

` + "```json" + `
{
  "summary": "a short summary of your thinking this round",
  "viewpoints": [
    "your main viewpoint 1",
    "your main viewpoint 2"
  ],
  "conflicts": [
    "where you disagree with the other viewpoints, if anywhere"
  ],
  "suggestions": [
    "what you think the discussion should add or correct"
  ],
  "final_answer_candidate": "if you are ready to propose a final answer, put it here"
}
` + "```" + `

Rules:
1. Output JSON only - no explanatory text before or after
2. Express viewpoints in your own words, do not quote other responses verbatim
3. Keep the structure clear and each entry self-contained`

// buildDivergentPrompt builds the prompt for a panel model in the divergent
// round. Opinions gathered earlier in the same round are included so each
// model can build on (or push back against) what has already been said; the
// parsed JSON is preferred, with the raw response as fallback.
func buildDivergentPrompt(userQuery string, previousOpinions []OpinionRecord) string {
	var prompt strings.Builder

	prompt.WriteString("You are a member of an AI council holding the opening (divergent) round of a discussion about a user's question.\n\n")
	prompt.WriteString(opinionFormatInstructions)
	prompt.WriteString("\n\n")

	if len(previousOpinions) > 0 {
		prompt.WriteString("Discussion so far this round:\n\n")
		for i, prev := range previousOpinions {
			prompt.WriteString(fmt.Sprintf("Opinion from council member %d:\n", i+1))
			if prev.Parsed != nil {
				if data, err := json.MarshalIndent(prev.Parsed, "", "  "); err == nil {
					prompt.WriteString(fmt.Sprintf("```json\n%s\n```\n\n", string(data)))
				} else {
					prompt.WriteString(prev.Response + "\n\n")
				}
			} else {
				prompt.WriteString(prev.Response + "\n\n")
			}
		}
	}

	prompt.WriteString(fmt.Sprintf("User's question:\n%s\n\n", userQuery))

	if len(previousOpinions) > 0 {
		prompt.WriteString("Your task: considering the opinions above, provide your own view. Note where you agree or differ, and add new angles the discussion is missing.\n")
	} else {
		prompt.WriteString("Your task: you are the first speaker. Analyze the question from several angles and lay the groundwork for the discussion.\n")
	}

	prompt.WriteString("\nNow respond, strictly in the JSON format specified above.")

	return prompt.String()
}

// buildConvergentPrompt builds the shared prompt for a convergent round from
// the chairman's previous assessment. Every panel model receives the same
// text, so the round can be dispatched in parallel.
func buildConvergentPrompt(userQuery string, assessment *Assessment) string {
	var prompt strings.Builder

	prompt.WriteString("You are a member of an AI council in a convergence round. The chairman has summarized the discussion so far; your job is to answer this round's questions and help the council settle on an answer.\n\n")
	prompt.WriteString(opinionFormatInstructions)
	prompt.WriteString("\n\nChairman's summary of the discussion:\n\nPoints of consensus:\n")
	for _, point := range assessment.ConsensusPoints {
		prompt.WriteString("- " + point + "\n")
	}

	prompt.WriteString("\nPoints of conflict:\n")
	for _, point := range assessment.ConflictPoints {
		prompt.WriteString("- " + point + "\n")
	}

	prompt.WriteString(fmt.Sprintf("\nUser's original question:\n%s\n\n", userQuery))

	prompt.WriteString("Questions you must address this round:\n")
	for i, question := range assessment.QuestionsForNextRound {
		prompt.WriteString(fmt.Sprintf("%d. %s\n", i+1, question))
	}

	prompt.WriteString("\nNow respond, strictly in the JSON format specified above.")

	return prompt.String()
}

// runDivergentRound gathers the opening round of opinions sequentially, each
// panel model seeing everything said before it in the same round. A model
// that fails is skipped: it does not appear in the accumulated context and
// later models proceed without it. A round with zero opinions is returned
// as-is; deciding that it is fatal belongs to the caller.
func (c *Council) runDivergentRound(ctx context.Context, query string, emit EmitFunc) *RoundResult {
	result := &RoundResult{Round: 1, Kind: RoundDivergent, Opinions: []OpinionRecord{}}

	for _, model := range c.cfg.PanelModels {
		prompt := buildDivergentPrompt(query, result.Opinions)
		messages := []ChatMessage{{Role: "user", Content: prompt}}

		reply, err := c.gateway.Call(ctx, model, messages, c.cfg.QueryTimeout)
		if err != nil {
			log.Printf("Model %s failed in divergent round: %v", model, err)
			continue
		}

		record := OpinionRecord{
			Model:    model,
			Response: reply.Content,
			Parsed:   ParseOpinion(reply.Content),
		}
		result.Opinions = append(result.Opinions, record)

		emit(CouncilEvent{Type: EventModelResponse, Data: ModelResponseData{
			Round:           result.Round,
			Model:           record.Model,
			Response:        record.Response,
			Parsed:          record.Parsed,
			CompletedModels: len(result.Opinions),
			TotalModels:     len(c.cfg.PanelModels),
		}})
	}

	return result
}

// runConvergentRound dispatches one shared prompt to every panel model
// concurrently and collects whatever comes back, in completion order.
// Failed models are simply absent from the result; they never abort the
// round or their sibling calls.
func (c *Council) runConvergentRound(ctx context.Context, query string, round int, prev *Assessment, emit EmitFunc) *RoundResult {
	result := &RoundResult{Round: round, Kind: RoundConvergent, Opinions: []OpinionRecord{}}

	prompt := buildConvergentPrompt(query, prev)
	messages := []ChatMessage{{Role: "user", Content: prompt}}

	replies, err := c.gateway.CallMany(ctx, c.cfg.PanelModels, messages, c.cfg.QueryTimeout)
	if err != nil {
		log.Printf("Convergent round %d fan-out failed: %v", round, err)
		return result
	}

	responded := 0
	for _, r := range replies {
		if r.Reply != nil {
			responded++
		}
	}

	for _, r := range replies {
		if r.Reply == nil {
			continue
		}

		record := OpinionRecord{
			Model:    r.Model,
			Response: r.Reply.Content,
			Parsed:   ParseOpinion(r.Reply.Content),
		}
		result.Opinions = append(result.Opinions, record)

		emit(CouncilEvent{Type: EventModelResponse, Data: ModelResponseData{
			Round:           result.Round,
			Model:           record.Model,
			Response:        record.Response,
			Parsed:          record.Parsed,
			CompletedModels: len(result.Opinions),
			TotalModels:     responded,
		}})
	}

	return result
}
