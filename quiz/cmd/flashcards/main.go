// Command flashcards runs interactive flashcard quizzes in the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryantinsley/flashcards/quiz/pkg/config"
	"github.com/bryantinsley/flashcards/quiz/pkg/logging"
)

type app struct {
	cfg    *config.Config
	logger *zap.Logger

	noAI    bool
	shuffle bool
	debug   bool
	deckDir string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "flashcards [deck.csv]",
		Short: "Quiz yourself on a flashcard deck",
		Long: `flashcards asks each question of a CSV deck, lets you type a free-form
answer and, when an OpenRouter API key is configured, grades the answer
with a language model. Without a deck argument a picker lists the decks
in the deck directory.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: a.runQuiz,
	}

	root.Flags().BoolVar(&a.noAI, "no-ai", false, "do not send answers for evaluation")
	root.Flags().BoolVar(&a.shuffle, "shuffle", false, "shuffle the cards")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "write debug-level logs")
	root.PersistentFlags().StringVar(&a.deckDir, "deck-dir", "", "directory the deck picker lists")

	root.AddCommand(newSessionsCmd(a), newConfigCmd(a))
	return root
}

// load reads the config and opens the log. Flags override config values.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(config.GetDataDir())
	if err != nil {
		return err
	}
	if f := cmd.Flags().Lookup("shuffle"); f != nil && f.Changed {
		cfg.Shuffle = a.shuffle
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug = a.debug
	}
	if cmd.Flags().Changed("deck-dir") {
		cfg.DeckDir = a.deckDir
	}

	logger, err := logging.New(cfg.LogDir(), cfg.Debug)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	logger.Debug("config loaded",
		zap.String("data_dir", cfg.DataDir),
		zap.String("deck_dir", cfg.DeckDir),
		zap.Bool("ai", cfg.AIEnabled()),
		zap.String("command", cmd.Name()))
	return nil
}
