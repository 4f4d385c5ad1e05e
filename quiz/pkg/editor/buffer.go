// Package editor holds the answer text being typed and its cursor.
package editor

import (
	"strings"
	"unicode"

	"github.com/bryantinsley/flashcards/quiz/pkg/cursor"
	"github.com/bryantinsley/flashcards/quiz/pkg/layout"
)

// Buffer is an editable run of text with a cursor measured in runes.
// The cursor always satisfies 0 <= Cursor() <= Len().
//
// Buffer keeps no wrapped form of its text. Callers wrap on demand with
// Lines or View so the result always reflects the current text and width.
type Buffer struct {
	text   []rune
	cursor int
	goal   int // cell column kept across vertical moves, -1 when unset
	width  layout.WidthFunc
}

// New returns a buffer holding text with the cursor at its end.
func New(text string) *Buffer {
	b := &Buffer{}
	b.Reset(text)
	return b
}

// Reset replaces the contents and moves the cursor to the end.
func (b *Buffer) Reset(text string) {
	b.text = []rune(sanitize(text))
	b.cursor = len(b.text)
	b.goal = -1
}

// SetWidthFunc sets how runes are measured when wrapping. The default counts
// one column per rune.
func (b *Buffer) SetWidthFunc(w layout.WidthFunc) {
	b.width = w
	b.goal = -1
}

func (b *Buffer) measure() layout.WidthFunc {
	if b.width == nil {
		return layout.RuneWidth
	}
	return b.width
}

func (b *Buffer) String() string { return string(b.text) }

// Len returns the length of the text in runes.
func (b *Buffer) Len() int { return len(b.text) }

// Cursor returns the cursor offset in runes.
func (b *Buffer) Cursor() int { return b.cursor }

// SetCursor moves the cursor, clamping to the text.
func (b *Buffer) SetCursor(offset int) {
	b.cursor = min(max(offset, 0), len(b.text))
	b.goal = -1
}

// IsBlank reports whether the text holds nothing but whitespace.
func (b *Buffer) IsBlank() bool {
	return strings.TrimSpace(string(b.text)) == ""
}

// Insert types s at the cursor and leaves the cursor after it.
func (b *Buffer) Insert(s string) {
	at := b.cursor
	n := b.InsertAt(at, s)
	b.cursor = at + n
}

// InsertAt inserts s at offset and returns the number of runes inserted.
// A cursor at or after offset shifts so it stays on the same character.
func (b *Buffer) InsertAt(offset int, s string) int {
	r := []rune(sanitize(s))
	if len(r) == 0 {
		return 0
	}
	offset = min(max(offset, 0), len(b.text))

	text := make([]rune, 0, len(b.text)+len(r))
	text = append(text, b.text[:offset]...)
	text = append(text, r...)
	b.text = append(text, b.text[offset:]...)

	if b.cursor >= offset {
		b.cursor += len(r)
	}
	b.goal = -1
	return len(r)
}

// Backspace deletes the rune before the cursor.
func (b *Buffer) Backspace() bool {
	if b.cursor == 0 {
		return false
	}
	b.text = append(b.text[:b.cursor-1], b.text[b.cursor:]...)
	b.cursor--
	b.goal = -1
	return true
}

// Delete deletes the rune under the cursor.
func (b *Buffer) Delete() bool {
	if b.cursor == len(b.text) {
		return false
	}
	b.text = append(b.text[:b.cursor], b.text[b.cursor+1:]...)
	b.goal = -1
	return true
}

// Left moves the cursor one rune back.
func (b *Buffer) Left() {
	b.SetCursor(b.cursor - 1)
}

// Right moves the cursor one rune forward.
func (b *Buffer) Right() {
	b.SetCursor(b.cursor + 1)
}

// Lines wraps the current text at width.
func (b *Buffer) Lines(width int) ([]layout.Line, error) {
	return layout.WrapFunc(string(b.text), width, b.measure())
}

// View wraps the current text at width and locates the cursor in it.
func (b *Buffer) View(width int) ([]layout.Line, cursor.Position, error) {
	lines, err := b.Lines(width)
	if err != nil {
		return nil, cursor.Position{}, err
	}
	return lines, cursor.ToVisual(b.cursor, lines), nil
}

// Up moves the cursor one visual row up at the given width. It reports
// false when the cursor is already on the first row.
func (b *Buffer) Up(width int) (bool, error) {
	return b.vertical(width, -1)
}

// Down moves the cursor one visual row down at the given width.
func (b *Buffer) Down(width int) (bool, error) {
	return b.vertical(width, 1)
}

// Home moves the cursor to the start of its visual row.
func (b *Buffer) Home(width int) error {
	lines, pos, err := b.View(width)
	if err != nil {
		return err
	}
	b.SetCursor(cursor.FromVisual(cursor.Position{Row: pos.Row}, lines))
	return nil
}

// End moves the cursor to the end of its visual row.
func (b *Buffer) End(width int) error {
	lines, pos, err := b.View(width)
	if err != nil {
		return err
	}
	col := cursor.MaxCol(lines, pos.Row)
	if lines[pos.Row].Trimmed != "" && pos.Row < len(lines)-1 {
		col = lines[pos.Row].Width()
	}
	b.SetCursor(cursor.FromVisual(cursor.Position{Row: pos.Row, Col: col}, lines))
	return nil
}

func (b *Buffer) vertical(width, delta int) (bool, error) {
	lines, pos, err := b.View(width)
	if err != nil {
		return false, err
	}
	row := pos.Row + delta
	if row < 0 || row >= len(lines) {
		return false, nil
	}

	goal := b.goal
	if goal < 0 {
		goal = b.cellsBefore(lines[pos.Row], pos.Col)
	}
	col := b.colAtCell(lines[row], goal)
	b.cursor = cursor.FromVisual(cursor.Position{Row: row, Col: col}, lines)
	b.goal = goal
	return true, nil
}

// cellsBefore returns the columns taken by the first col runes of l.
func (b *Buffer) cellsBefore(l layout.Line, col int) int {
	w := b.measure()
	end := min(l.Start+col, len(b.text))
	n := 0
	for _, r := range b.text[l.Start:end] {
		n += w(r)
	}
	return n
}

// colAtCell returns the rune column of l that starts at or before cell.
// A cell past the end of the line keeps its overflow so FromVisual can
// clamp it.
func (b *Buffer) colAtCell(l layout.Line, cell int) int {
	w := b.measure()
	end := min(l.End, len(b.text))
	i, n := l.Start, 0
	for i < end && n+w(b.text[i]) <= cell {
		n += w(b.text[i])
		i++
	}
	col := i - l.Start
	if i == end {
		col += cell - n
	}
	return col
}

// sanitize normalizes line endings and drops control characters other
// than newline and tab.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\r':
			return '\n'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
}
