// fake-openrouter serves canned chat completions so the quiz can be tried
// without an API key. Point the quiz at it with
// FLASHCARDS_BASE_URL=http://127.0.0.1:8089/v1 and any OPENROUTER_API_KEY.
//
// Supported modes (via FAKE_OPENROUTER_MODE env var):
// - correct:   grades every answer correct (default).
// - incorrect: grades every answer incorrect.
// - garbage:   replies with prose instead of JSON.
// - error:     fails every request with HTTP 500.
// - stuck:     never replies until the client gives up.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/bryantinsley/flashcards/quiz/pkg/evaluation"
)

const (
	modeCorrect   = "correct"
	modeIncorrect = "incorrect"
	modeGarbage   = "garbage"
	modeError     = "error"
	modeStuck     = "stuck"
)

func main() {
	os.Exit(run(os.Stdout, os.Getenv, os.Args[1:]))
}

func run(w io.Writer, getEnv func(string) string, args []string) int {
	fs := flag.NewFlagSet("fake-openrouter", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addr := fs.String("addr", "127.0.0.1:8089", "listen address")
	delay := fs.Duration("delay", 0, "wait before every reply")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(w, "fake-openrouter:", err)
		return 2
	}

	mode := strings.ToLower(getEnv("FAKE_OPENROUTER_MODE"))
	if mode == "" {
		mode = modeCorrect
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(w, "fake-openrouter:", err)
		return 1
	}
	defer logger.Sync()

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		fmt.Fprintln(w, "fake-openrouter:", err)
		return 1
	}
	fmt.Fprintf(w, "listening on http://%s/v1 (mode %s)\n", ln.Addr(), mode)

	srv := &http.Server{Handler: newHandler(mode, *delay, logger), ReadHeaderTimeout: 5 * time.Second}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintln(w, "fake-openrouter:", err)
		return 1
	}
	return 0
}

func newHandler(mode string, delay time.Duration, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Info("chat completion", zap.String("model", req.Model), zap.String("mode", mode))

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		switch mode {
		case modeStuck:
			<-r.Context().Done()
			return
		case modeError:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"message":"upstream provider unavailable","type":"server_error"}}`)
			return
		}

		writeCompletion(w, req.Model, reply(mode, req))
	})
	return mux
}

// Request kinds, told apart by the system prompt.
const (
	kindAnswer     = "answer"
	kindAssessment = "assessment"
	kindChat       = "chat"
)

func kindOf(req openai.ChatCompletionRequest) string {
	for _, m := range req.Messages {
		if m.Role != openai.ChatMessageRoleSystem {
			continue
		}
		switch m.Content {
		case evaluation.AnswerSystemPrompt:
			return kindAnswer
		case evaluation.AssessmentSystemPrompt:
			return kindAssessment
		}
		return kindChat
	}
	return kindAnswer
}

func reply(mode string, req openai.ChatCompletionRequest) string {
	if mode == modeGarbage {
		return "Looks about right to me!"
	}
	switch kindOf(req) {
	case kindChat:
		last := req.Messages[len(req.Messages)-1].Content
		return fmt.Sprintf("You asked: *%s*\n\nThis is turn **%d** of our chat.", last, len(req.Messages)/2)
	case kindAssessment:
		a := evaluation.Assessment{
			GradePercentage: 85,
			MasteryLevel:    "Advanced",
			OverallFeedback: "Solid recall overall.",
			Strengths:       []string{"Key facts"},
			Weaknesses:      []string{"Supporting detail"},
			Suggestions:     []string{"Review the cards you missed"},
		}
		if mode == modeIncorrect {
			a.GradePercentage, a.MasteryLevel = 20, "Beginner"
		}
		b, _ := json.Marshal(a)
		return string(b)
	}

	j := evaluation.Judgment{
		IsCorrect:        true,
		CorrectnessScore: 0.95,
		Corrections:      []string{},
		Explanation:      "Matches the reference answer.",
		Suggestions:      []string{"Add one supporting detail next time"},
	}
	if mode == modeIncorrect {
		j.IsCorrect, j.CorrectnessScore = false, 0.2
		j.Corrections = []string{"Compare with the reference answer"}
		j.Explanation = "Does not match the reference answer."
	}
	// Wrapped in a code fence the way real models often reply.
	b, _ := json.MarshalIndent(j, "", "  ")
	return "```json\n" + string(b) + "\n```"
}

func writeCompletion(w http.ResponseWriter, model, content string) {
	resp := openai.ChatCompletionResponse{
		ID:      "fake-" + fmt.Sprint(time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []openai.ChatCompletionChoice{{
			Index:        0,
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
			FinishReason: openai.FinishReasonStop,
		}},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
