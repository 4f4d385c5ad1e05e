package evaluation

import (
	"fmt"
	"strings"
)

// System prompts sent ahead of the user prompt.
const (
	AnswerSystemPrompt     = "You are an educational assistant evaluating quiz answers. Be concise and helpful."
	AssessmentSystemPrompt = "You are an educational assessment coach. Provide constructive, specific feedback to help students improve."
)

const answerPrompt = `Evaluate this answer and respond ONLY with valid JSON.

Question: %s
Correct Answer: %s
User's Answer: %s

Respond with exactly this JSON structure, no markdown and no extra text:
{
    "is_correct": boolean,
    "correctness_score": number between 0.0 and 1.0,
    "corrections": ["correction1", "correction2"],
    "explanation": "explanation of the answer, including a short deep dive on the topic whether or not the answer is correct",
    "suggestions": ["suggestion1", "suggestion2"]
}
Ignore minor typos when judging correctness.
`

// Prompt renders the user prompt for req.
func (r Request) Prompt() string {
	return fmt.Sprintf(answerPrompt, r.Question, r.Reference, r.Answer)
}

const assessmentPrompt = `Analyze this quiz session for %q and provide an overall assessment.

Quiz results:
- Total questions: %d
- Answered: %d
- Correct (score >= %.0f%%): %d

Question-answer pairs:
%s
Respond ONLY with valid JSON, no markdown and no extra text, using this structure:
{
    "grade_percentage": number between 0 and 100,
    "mastery_level": "Beginner" | "Intermediate" | "Advanced" | "Expert",
    "overall_feedback": "two or three sentences on patterns, progress and areas to improve",
    "suggestions": ["three to five specific study recommendations"],
    "strengths": ["two or three areas done well"],
    "weaknesses": ["two or three areas needing work"]
}
Mastery levels: Beginner 0-40%%, Intermediate 41-70%%, Advanced 71-90%%, Expert 91-100%%.
`

// AssessmentPrompt renders the user prompt asking for a review of a
// finished session. Unanswered cards count toward the total only.
func AssessmentPrompt(deck string, cards []CardResult) string {
	var pairs strings.Builder
	answered, correct := 0, 0
	for i, c := range cards {
		if c.Answer == "" {
			continue
		}
		answered++
		fmt.Fprintf(&pairs, "Q%d: %s\nA%d: %s\nUser: %s\n", i+1, c.Question, i+1, c.Reference, c.Answer)
		if c.Judgment != nil {
			if c.Judgment.Passed() {
				correct++
			}
			fmt.Fprintf(&pairs, "Score: %.0f%%, Feedback: %s\n", c.Judgment.CorrectnessScore*100, truncate(c.Judgment.Explanation, 200))
		}
		pairs.WriteByte('\n')
	}
	return fmt.Sprintf(assessmentPrompt, deck, len(cards), answered, PassingScore*100, correct, pairs.String())
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
