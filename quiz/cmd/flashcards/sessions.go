package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/bryantinsley/flashcards/quiz/pkg/evaluation"
	"github.com/bryantinsley/flashcards/quiz/pkg/store"
	"github.com/bryantinsley/flashcards/quiz/pkg/ui/styles"
)

const timeLayout = "2006-01-02 15:04"

func newSessionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and resume saved quiz sessions",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List saved sessions, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
					sessions, err := st.ListSessions(ctx)
					if err != nil {
						return err
					}
					if len(sessions) == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "No sessions yet.")
						return nil
					}
					fmt.Fprintln(cmd.OutOrStdout(), sessionTable(sessions))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show the answers and feedback of a session",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return a.withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
					cards, err := st.Flashcards(ctx, id)
					if err != nil {
						return err
					}
					if len(cards) == 0 {
						return fmt.Errorf("session %d: %w", id, store.ErrNotFound)
					}
					fmt.Fprintln(cmd.OutOrStdout(), flashcardTable(cards))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "resume <id>",
			Short: "Continue a session from its first unanswered card",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return a.resumeSession(cmd, id)
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a session and its answers",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return a.withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
					if err := st.DeleteSession(ctx, id); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %d.\n", id)
					return nil
				})
			},
		},
	)
	return cmd
}

func (a *app) withStore(ctx context.Context, fn func(context.Context, *store.Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := store.Open(a.cfg.DBPath(), a.logger)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(ctx, st)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("session id must be a positive number")
	}
	return id, nil
}

func sessionTable(sessions []store.Session) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.SubtleStyle).
		Headers("ID", "DECK", "STARTED", "ANSWERED", "STATUS")
	for _, s := range sessions {
		status := "in progress"
		if s.CompletedAt != nil {
			status = "completed " + s.CompletedAt.Local().Format(timeLayout)
		}
		t.Row(
			strconv.FormatInt(s.ID, 10),
			s.DeckName,
			s.StartedAt.Local().Format(timeLayout),
			fmt.Sprintf("%d/%d", s.QuestionsAnswered, s.QuestionsTotal),
			status,
		)
	}
	return t.String()
}

func flashcardTable(cards []store.Flashcard) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.SubtleStyle).
		Headers("#", "QUESTION", "YOUR ANSWER", "RESULT")
	for _, c := range cards {
		answer := "-"
		if c.UserAnswer != nil {
			answer = *c.UserAnswer
		}
		t.Row(strconv.Itoa(c.DisplayOrder+1), c.Question, answer, feedbackSummary(c))
	}
	return t.String()
}

func feedbackSummary(c store.Flashcard) string {
	switch {
	case c.Feedback == nil && c.UserAnswer == nil:
		return "skipped"
	case c.Feedback == nil:
		return "not graded"
	}
	j, err := evaluation.ParseResponse(*c.Feedback)
	if err != nil {
		return "unreadable feedback"
	}
	verdict := "incorrect"
	if j.IsCorrect {
		verdict = "correct"
	}
	return fmt.Sprintf("%s %.0f%%", verdict, j.CorrectnessScore*100)
}
