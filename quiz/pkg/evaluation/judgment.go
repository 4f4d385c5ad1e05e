package evaluation

import (
	"encoding/json"
	"fmt"
)

// Judgment is the evaluator's verdict on one answer.
type Judgment struct {
	IsCorrect        bool     `json:"is_correct"`
	CorrectnessScore float64  `json:"correctness_score"`
	Corrections      []string `json:"corrections"`
	Explanation      string   `json:"explanation"`
	Suggestions      []string `json:"suggestions"`
}

// PassingScore is the score at which an answer counts as correct in
// session totals.
const PassingScore = 0.7

// Passed reports whether the judgment counts toward the correct total.
func (j Judgment) Passed() bool {
	return j.CorrectnessScore >= PassingScore
}

// JSON encodes the judgment for storage.
func (j Judgment) JSON() (string, error) {
	data, err := json.Marshal(j)
	if err != nil {
		return "", fmt.Errorf("encode judgment: %w", err)
	}
	return string(data), nil
}

// Assessment is the evaluator's overall review of a finished session.
type Assessment struct {
	GradePercentage float64  `json:"grade_percentage"`
	MasteryLevel    string   `json:"mastery_level"`
	OverallFeedback string   `json:"overall_feedback"`
	Suggestions     []string `json:"suggestions"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
}

// CardResult summarizes one answered card for a session assessment.
type CardResult struct {
	Question  string
	Reference string
	Answer    string
	Judgment  *Judgment
}
