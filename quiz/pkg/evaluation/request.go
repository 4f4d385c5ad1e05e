// Package evaluation defines the messages exchanged with the remote answer
// evaluator and the tolerant parsing of its replies.
package evaluation

// Request asks the evaluator to judge one answer. Slot is the index of the
// flashcard the answer belongs to. Requests are never modified after Build.
type Request struct {
	ID        uint64
	Slot      int
	Question  string
	Reference string
	Answer    string
}

// Builder hands out requests with strictly increasing ids. The zero value
// is ready to use; ids start at 1 so 0 can mean "no request".
type Builder struct {
	last uint64
}

// Build returns the next request for the given flashcard slot.
func (b *Builder) Build(slot int, question, reference, answer string) Request {
	b.last++
	return Request{
		ID:        b.last,
		Slot:      slot,
		Question:  question,
		Reference: reference,
		Answer:    answer,
	}
}
