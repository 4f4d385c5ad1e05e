// Package layout wraps free-form answer text into fixed-width display lines.
package layout

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// ErrInvalidWidth is returned when Wrap is asked for fewer than one column.
var ErrInvalidWidth = errors.New("max width must be at least 1")

// WidthFunc reports how many columns a rune occupies.
type WidthFunc func(r rune) int

// RuneWidth counts every rune as one column.
func RuneWidth(rune) int { return 1 }

// CellWidth measures runes in terminal cells, so East Asian wide characters
// take two columns. Tabs count as one; they are displayed as a single space.
func CellWidth(r rune) int {
	if r == '\t' {
		return 1
	}
	return runewidth.RuneWidth(r)
}

// Line is one visual line of wrapped text.
//
// Start and End are rune offsets into the source text. The ranges of the
// lines returned by a single Wrap call partition the source: a line covers
// its Content, the whitespace it consumed at its wrap point (Trimmed) and,
// when Hard is set, the newline that terminates it.
type Line struct {
	Content string
	Trimmed string
	Start   int
	End     int
	Hard    bool
}

// Width returns the number of runes displayed on the line.
func (l Line) Width() int {
	return utf8.RuneCountInString(l.Content)
}

// Source returns the exact slice of source text the line covers.
func (l Line) Source() string {
	if l.Hard {
		return l.Content + l.Trimmed + "\n"
	}
	return l.Content + l.Trimmed
}

// Wrap splits text on newlines and greedily packs each segment into lines of
// at most maxWidth runes.
//
// Whitespace runs keep their real width. Whitespace that sits at a wrap point
// is dropped from the display but stays in the range of the line that ends
// there, so no line ever starts with wrap-induced whitespace. Words longer
// than maxWidth are cut into maxWidth-rune pieces.
func Wrap(text string, maxWidth int) ([]Line, error) {
	return WrapFunc(text, maxWidth, RuneWidth)
}

// WrapFunc is Wrap with columns measured by w. A word wider than maxWidth is
// cut at the last rune that still fits; a single rune wider than maxWidth
// gets a line of its own.
func WrapFunc(text string, maxWidth int, w WidthFunc) ([]Line, error) {
	if maxWidth < 1 {
		return nil, fmt.Errorf("wrap at width %d: %w", maxWidth, ErrInvalidWidth)
	}

	runes := []rune(text)
	lines := make([]Line, 0, len(runes)/maxWidth+1)

	segStart := 0
	for i := 0; i <= len(runes); i++ {
		if i < len(runes) && runes[i] != '\n' {
			continue
		}
		lines = wrapSegment(lines, runes, segStart, i, i < len(runes), maxWidth, w)
		segStart = i + 1
	}
	return lines, nil
}

// Reassemble concatenates the source covered by lines. For the output of
// Wrap it returns the wrapped text unchanged.
func Reassemble(lines []Line) string {
	var n int
	for _, l := range lines {
		n += len(l.Content) + len(l.Trimmed) + 1
	}
	buf := make([]byte, 0, n)
	for _, l := range lines {
		buf = append(buf, l.Source()...)
	}
	return string(buf)
}

// wrapSegment wraps runes[segStart:segEnd], a stretch of text without
// newlines, and appends the resulting lines. hard marks a segment that is
// followed by a newline; the newline is charged to the segment's last line.
func wrapSegment(lines []Line, runes []rune, segStart, segEnd int, hard bool, maxWidth int, w WidthFunc) []Line {
	lineStart := segStart
	shown := segStart // end of the displayed part of the current line
	width := 0
	pad := 0         // whitespace runes at the end of the displayed part
	spilled := false // a whitespace run did not fit; the line ends before the next word

	for pos := segStart; pos < segEnd; {
		space := isSpace(runes[pos])
		end := pos + 1
		for end < segEnd && isSpace(runes[end]) == space {
			end++
		}
		n := span(runes[pos:end], w)

		if space {
			if !spilled && width+n <= maxWidth {
				width += n
				shown = end
				pad = end - pos
			} else {
				spilled = true
			}
			pos = end
			continue
		}

		if spilled || (width > 0 && width+n > maxWidth) {
			lines = append(lines, newLine(runes, lineStart, shown-pad, pos))
			lineStart, shown, width, pad, spilled = pos, pos, 0, 0, false
		}

		for n > maxWidth {
			cut, cells := fitPrefix(runes[pos:end], maxWidth, w)
			if pos+cut == end {
				break
			}
			lines = append(lines, newLine(runes, pos, pos+cut, pos+cut))
			pos += cut
			n -= cells
			lineStart = pos
		}

		width += n
		shown = end
		pad = 0
		pos = end
	}

	last := newLine(runes, lineStart, shown, segEnd)
	if hard {
		last.End++
		last.Hard = true
	}
	return append(lines, last)
}

func newLine(runes []rune, start, shown, end int) Line {
	return Line{
		Content: string(runes[start:shown]),
		Trimmed: string(runes[shown:end]),
		Start:   start,
		End:     end,
	}
}

func span(runes []rune, w WidthFunc) int {
	n := 0
	for _, r := range runes {
		n += w(r)
	}
	return n
}

// fitPrefix returns how many leading runes fit in maxWidth columns and the
// columns they take. It always takes at least one rune.
func fitPrefix(runes []rune, maxWidth int, w WidthFunc) (int, int) {
	k, cells := 1, w(runes[0])
	for k < len(runes) && cells+w(runes[k]) <= maxWidth {
		cells += w(runes[k])
		k++
	}
	return k, cells
}

func isSpace(r rune) bool {
	return r != '\n' && unicode.IsSpace(r)
}
