// Package cursor maps between a logical rune offset in a text and its
// row/column in the text's wrapped lines.
package cursor

import (
	"sort"

	"github.com/bryantinsley/flashcards/quiz/pkg/layout"
)

// Position is a cursor location in wrapped text. Col counts runes from the
// start of the line's range.
type Position struct {
	Row int
	Col int
}

// ToVisual returns the position of offset within lines.
//
// An offset on a wrap point belongs to the start of the following line,
// except at the end of the text where it stays on the last line. Offsets
// outside the text are clamped to it.
func ToVisual(offset int, lines []layout.Line) Position {
	if len(lines) == 0 || offset <= 0 {
		return Position{}
	}

	last := len(lines) - 1
	if offset >= lines[last].End {
		return Position{Row: last, Col: lines[last].End - lines[last].Start}
	}

	row := sort.Search(len(lines), func(i int) bool {
		return lines[i].End > offset
	})
	return Position{Row: row, Col: offset - lines[row].Start}
}

// FromVisual returns the offset at pos. Rows outside lines are clamped, and
// a column past the end of a line lands on the last offset that line owns.
func FromVisual(pos Position, lines []layout.Line) int {
	if len(lines) == 0 {
		return 0
	}

	row := min(max(pos.Row, 0), len(lines)-1)
	col := min(max(pos.Col, 0), MaxCol(lines, row))
	return lines[row].Start + col
}

// MaxCol returns the largest column a cursor can occupy on row. Every line
// but the last hands its end offset to the next line.
func MaxCol(lines []layout.Line, row int) int {
	l := lines[row]
	n := l.End - l.Start
	if row < len(lines)-1 {
		n--
	}
	return n
}

// DisplayCol converts pos.Col into a rune column within the displayed content of
// its line, clamped to the content width. Runes hidden at a wrap point all
// report the column just past the content.
func DisplayCol(pos Position, lines []layout.Line) int {
	if len(lines) == 0 {
		return 0
	}
	row := min(max(pos.Row, 0), len(lines)-1)
	return min(max(pos.Col, 0), lines[row].Width())
}
