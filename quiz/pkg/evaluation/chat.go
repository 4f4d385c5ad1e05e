package evaluation

import "fmt"

// ChatTurn is one message of a follow-up conversation. Role is "user" or
// "assistant".
type ChatTurn struct {
	Role    string
	Content string
}

// ChatTopic is the graded card a follow-up conversation is about.
type ChatTopic struct {
	Question  string
	Reference string
	Answer    string
	Feedback  string
}

const chatSystemPrompt = `You are a patient tutor answering follow-up questions about one quiz flashcard.

Question: %s
Correct Answer: %s
Student's Answer: %s
Earlier feedback: %s

Answer the student's questions about this topic. Be concise, use markdown where it helps and do not grade the answer again.`

// ChatSystemPrompt renders the system prompt that opens a follow-up
// conversation about t.
func ChatSystemPrompt(t ChatTopic) string {
	feedback := t.Feedback
	if feedback == "" {
		feedback = "(none)"
	}
	return fmt.Sprintf(chatSystemPrompt, t.Question, t.Reference, t.Answer, feedback)
}
