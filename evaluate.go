package main

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// fallbackAssessment builds the fixed non-convergent assessment substituted
// when the chairman is unavailable or returns unusable output. The session
// continues as if the chairman had asked for another round.
func fallbackAssessment(explanation string) *Assessment {
	return &Assessment{
		ConvergenceScore:          0.0,
		IsConverged:               false,
		ConsensusPoints:           []string{},
		ConflictPoints:            []string{},
		Explanation:               explanation,
		QuestionsForNextRound:     []string{"continue discussion"},
		FinalIntegratedConclusion: "",
	}
}

// buildChairmanPrompt builds the convergence-assessment request for a
// completed round. The previous assessment, when there is one, is included
// so the chairman can judge whether the discussion actually moved.
func buildChairmanPrompt(userQuery string, opinions []OpinionRecord, prev *Assessment) string {
	var responsesText strings.Builder
	for _, opinion := range opinions {
		responsesText.WriteString(fmt.Sprintf("%s:\n%s\n\n", opinion.Model, opinion.Response))
	}

	var prompt strings.Builder

	prompt.WriteString(`You are the chairman of an AI council. Several models have just completed a round of discussion about a user's question. Your job is to analyze their responses and judge whether the discussion has stabilized.

Your tasks:
1. Extract the points of consensus (what the models agree on) and the points of conflict (where they still disagree).
2. Decide whether the round has converged. Convergence does NOT mean unanimous agreement. It means:
   - the models have essentially stopped producing significant new viewpoints
   - the remaining disagreements are stable and clearly delineated, not spreading
   - the discussion has a stable structure of explicit consensus and explicit conflict
   - the material is sufficient to write a high-quality integrated answer
3. If converged, write the final integrated conclusion. If not, write the concrete questions the next round must answer.

Score convergence subjectively from 0.0 to 1.0 based on the overall discussion; no mechanical calculation is expected.

Your response MUST be a single JSON object in exactly this format, with no text outside it:

` + "```json" + `
{
  "convergence_score": 0.0,
  "is_converged": false,
  "consensus_points": ["consensus point 1", "consensus point 2"],
  "conflict_points": ["conflict point 1", "conflict point 2"],
  "explanation": "why you judged the discussion converged or not",
  "questions_for_next_round": [
    "question 1",
    "question 2"
  ],
  "final_integrated_conclusion": "the final integrated answer, if the discussion should stop here"
}
` + "```" + `

Rules:
- if is_converged is true, final_integrated_conclusion must be filled in
- if is_converged is false, questions_for_next_round must be filled in

`)

	if prev != nil {
		prompt.WriteString("Your assessment of the previous round, for comparison:\n")
		prompt.WriteString(fmt.Sprintf("- convergence score: %.2f\n", prev.ConvergenceScore))
		prompt.WriteString(fmt.Sprintf("- consensus points: %s\n", strings.Join(prev.ConsensusPoints, "; ")))
		prompt.WriteString(fmt.Sprintf("- conflict points: %s\n", strings.Join(prev.ConflictPoints, "; ")))
		prompt.WriteString("\n")
	}

	prompt.WriteString(fmt.Sprintf("User's original question:\n%s\n\n", userQuery))
	prompt.WriteString(fmt.Sprintf("This round's responses:\n\n%s", responsesText.String()))
	prompt.WriteString("\nNow produce your analysis, strictly in the JSON format specified above.")

	return prompt.String()
}

// evaluateConvergence obtains the chairman's assessment of a completed
// round. It never fails: chairman transport or contract problems degrade to
// the fixed non-convergent fallback so the session can continue, and the
// threshold invariant is enforced on whatever comes back.
func (c *Council) evaluateConvergence(ctx context.Context, query string, round *RoundResult, prev *Assessment) *Assessment {
	prompt := buildChairmanPrompt(query, round.Opinions, prev)
	messages := []ChatMessage{{Role: "user", Content: prompt}}

	reply, err := c.gateway.Call(ctx, c.cfg.ChairmanModel, messages, c.cfg.QueryTimeout)
	if err != nil {
		log.Printf("Chairman %s failed on round %d: %v", c.cfg.ChairmanModel, round.Round, err)
		return fallbackAssessment("chairman unavailable")
	}

	assessment := ParseAssessment(reply.Content)
	if assessment == nil {
		log.Printf("Chairman %s returned invalid JSON on round %d", c.cfg.ChairmanModel, round.Round)
		return fallbackAssessment("chairman returned invalid output")
	}

	c.enforceThreshold(assessment)
	return assessment
}

// enforceThreshold corrects an assessment that claims convergence below the
// configured score threshold. The chairman's verdict is never trusted past
// its own score: the claim is revoked, the conclusion is cleared, and the
// next round gets at least one question to work with.
func (c *Council) enforceThreshold(assessment *Assessment) {
	if !assessment.IsConverged || assessment.ConvergenceScore >= c.cfg.ConvergenceThreshold {
		return
	}

	log.Printf("Chairman claimed convergence at score %.2f below threshold %.2f; overriding",
		assessment.ConvergenceScore, c.cfg.ConvergenceThreshold)

	assessment.IsConverged = false
	assessment.FinalIntegratedConclusion = ""
	if len(assessment.QuestionsForNextRound) == 0 {
		assessment.QuestionsForNextRound = []string{"Continue the discussion and work through the remaining disagreements"}
	}
}
