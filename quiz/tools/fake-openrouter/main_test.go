package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bryantinsley/flashcards/quiz/pkg/evaluation"
	"github.com/bryantinsley/flashcards/quiz/pkg/evaluator"
)

func newClient(t *testing.T, mode string) *evaluator.Client {
	t.Helper()
	srv := httptest.NewServer(newHandler(mode, 0, zaptest.NewLogger(t)))
	t.Cleanup(srv.Close)

	c, err := evaluator.New(evaluator.Config{APIKey: "test", BaseURL: srv.URL + "/v1"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return c
}

func request() evaluation.Request {
	var b evaluation.Builder
	return b.Build(0, "Capital of France?", "Paris", "Paris")
}

func TestModes(t *testing.T) {
	tests := []struct {
		mode    string
		correct bool
		score   float64
	}{
		{modeCorrect, true, 0.95},
		{modeIncorrect, false, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			raw, err := newClient(t, tt.mode).Evaluate(context.Background(), request())
			require.NoError(t, err)

			j, err := evaluation.ParseResponse(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.correct, j.IsCorrect)
			assert.InDelta(t, tt.score, j.CorrectnessScore, 1e-9)
		})
	}
}

func TestGarbageReplyDoesNotParse(t *testing.T) {
	raw, err := newClient(t, modeGarbage).Evaluate(context.Background(), request())
	require.NoError(t, err)

	_, err = evaluation.ParseResponse(raw)
	assert.Error(t, err)
}

func TestErrorMode(t *testing.T) {
	_, err := newClient(t, modeError).Evaluate(context.Background(), request())
	assert.ErrorContains(t, err, "upstream provider unavailable")
}

func TestStuckModeHonoursDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := newClient(t, modeStuck).Evaluate(ctx, request())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAssessment(t *testing.T) {
	raw, err := newClient(t, modeCorrect).AssessSession(context.Background(), "capitals", nil)
	require.NoError(t, err)

	a, err := evaluation.ParseAssessment(raw)
	require.NoError(t, err)
	assert.Equal(t, 85.0, a.GradePercentage)
	assert.Equal(t, "Advanced", a.MasteryLevel)
}

func TestChatReply(t *testing.T) {
	c := newClient(t, modeCorrect)
	topic := evaluation.ChatTopic{Question: "Capital of France?", Reference: "Paris", Answer: "Paris"}

	got, err := c.Chat(context.Background(), topic, nil, "Why Paris?")
	require.NoError(t, err)
	assert.Contains(t, got, "*Why Paris?*")
	assert.Contains(t, got, "turn **1**")

	history := []evaluation.ChatTurn{{Role: "user", Content: "Why Paris?"}, {Role: "assistant", Content: got}}
	got, err = c.Chat(context.Background(), topic, history, "And Lyon?")
	require.NoError(t, err)
	assert.Contains(t, got, "turn **2**")
}

func TestRunRejectsBadFlags(t *testing.T) {
	var out bytes.Buffer
	code := run(&out, func(string) string { return "" }, []string{"-delay", "soon"})
	assert.Equal(t, 2, code)
	assert.Contains(t, out.String(), "fake-openrouter:")
}
