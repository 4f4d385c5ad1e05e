// Package deck loads question/answer decks from CSV files.
package deck

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrEmpty is returned for decks without a usable card.
var ErrEmpty = errors.New("deck has no cards")

// Card is one question with its reference answer.
type Card struct {
	Question string
	Answer   string
}

// Deck is a named, ordered list of cards.
type Deck struct {
	Name  string
	Path  string
	Cards []Card
}

// Load reads the deck at path. The deck is named after the file.
func Load(path string) (*Deck, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open deck: %w", err)
	}
	defer f.Close()

	cards, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read deck %s: %w", filepath.Base(path), err)
	}
	return &Deck{Name: Name(path), Path: path, Cards: cards}, nil
}

// Parse reads question,answer records. Fields may be quoted, with doubled
// quotes inside. A leading "question,answer" header, rows with fewer than
// two fields and rows with a blank question or answer are skipped.
func Parse(r io.Reader) ([]Card, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var cards []Card
	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if first {
			first = false
			if isHeader(record) {
				continue
			}
		}
		if len(record) < 2 {
			continue
		}
		q, a := strings.TrimSpace(record[0]), strings.TrimSpace(record[1])
		if q == "" || a == "" {
			continue
		}
		cards = append(cards, Card{Question: q, Answer: a})
	}

	if len(cards) == 0 {
		return nil, ErrEmpty
	}
	return cards, nil
}

func isHeader(record []string) bool {
	return len(record) >= 2 &&
		strings.EqualFold(strings.TrimSpace(record[0]), "question") &&
		strings.EqualFold(strings.TrimSpace(record[1]), "answer")
}

// Name returns the deck name for a file path.
func Name(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// List returns the CSV files in dir, sorted by name. A missing dir yields
// no decks.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Shuffle reorders the cards in place.
func (d *Deck) Shuffle(r *rand.Rand) {
	r.Shuffle(len(d.Cards), func(i, j int) {
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	})
}
