package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryantinsley/flashcards/quiz/pkg/deck"
	"github.com/bryantinsley/flashcards/quiz/pkg/evaluator"
	"github.com/bryantinsley/flashcards/quiz/pkg/session"
	"github.com/bryantinsley/flashcards/quiz/pkg/store"
	"github.com/bryantinsley/flashcards/quiz/pkg/worker"
)

func (a *app) runQuiz(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		var err error
		if path, err = session.Pick(a.cfg.DeckDir); err != nil {
			return err
		}
		if path == "" {
			fmt.Fprintln(out, "No deck chosen.")
			return nil
		}
	}

	d, err := deck.Load(path)
	if err != nil {
		return err
	}
	if a.cfg.Shuffle {
		seed := uint64(time.Now().UnixNano())
		d.Shuffle(rand.New(rand.NewPCG(seed, seed>>1)))
	}

	cfg := session.Config{Deck: d, Logger: a.logger}

	// A quiz still runs without the database; it just is not saved.
	st, err := store.Open(a.cfg.DBPath(), a.logger)
	if err != nil {
		a.logger.Warn("database unavailable", zap.Error(err))
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: answers will not be saved: %v\n", err)
	} else {
		defer st.Close()
		cfg.Store = st
	}
	return a.play(cmd, cfg)
}

// resumeSession continues stored session id where it was left.
func (a *app) resumeSession(cmd *cobra.Command, id int64) error {
	return a.withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
		saved, err := session.LoadSaved(ctx, st, id)
		if err != nil {
			return err
		}
		return a.play(cmd, session.Config{Resume: saved, Store: st, Logger: a.logger})
	})
}

// play wires the evaluator into cfg and runs the quiz to the end.
func (a *app) play(cmd *cobra.Command, cfg session.Config) error {
	if a.cfg.AIEnabled() && !a.noAI {
		client, err := evaluator.New(evaluator.Config{
			APIKey:      a.cfg.APIKey,
			BaseURL:     a.cfg.BaseURL,
			Model:       a.cfg.Model,
			Temperature: a.cfg.Temperature,
			MaxTokens:   a.cfg.MaxTokens,
		}, a.logger)
		if err != nil {
			return err
		}
		sup := worker.New(client,
			worker.WithTimeout(a.cfg.EvalTimeout),
			worker.WithMaxCrashes(a.cfg.MaxCrashRestarts),
			worker.WithLogger(a.logger))
		defer sup.Close()
		cfg.Supervisor = sup
		cfg.Assessor = client
		cfg.Chatter = client
	}

	m, err := session.New(cfg)
	if err != nil {
		return err
	}
	a.logger.Info("quiz started",
		zap.Bool("resumed", cfg.Resume != nil),
		zap.Bool("ai", cfg.Supervisor != nil))

	final, err := session.Run(m)
	if err != nil {
		return err
	}
	if id := final.SessionID(); id != 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Session %d saved.\n", id)
	}
	return nil
}
