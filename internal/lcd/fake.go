package lcd

import (
	"fmt"
	"strings"
)

// screen is an in-memory DDRAM image with a cursor.
type screen struct {
	cells [Rows][Cols]byte
	col   int
	row   int
}

func newScreen() screen {
	var s screen
	s.clear()
	return s
}

func (s *screen) clear() {
	for r := range s.cells {
		for c := range s.cells[r] {
			s.cells[r][c] = ' '
		}
	}
	s.col, s.row = 0, 0
}

func (s *screen) setCursor(col, row int) error {
	if col < 0 || col >= Cols || row < 0 || row >= Rows {
		return fmt.Errorf("cursor (%d,%d) outside %dx%d display", col, row, Cols, Rows)
	}
	s.col, s.row = col, row
	return nil
}

// print writes at the cursor; characters past the last column are dropped.
func (s *screen) print(text string) {
	for i := 0; i < len(text); i++ {
		if s.col >= Cols {
			return
		}
		s.cells[s.row][s.col] = text[i]
		s.col++
	}
}

func (s *screen) line(row int) string {
	if row < 0 || row >= Rows {
		return ""
	}
	return string(s.cells[row][:])
}

// FakeDisplay is a test double that keeps the screen contents in memory.
type FakeDisplay struct {
	scr screen

	// Glyphs holds uploaded custom characters by CGRAM location.
	Glyphs map[uint8]Glyph

	// Clears counts calls to Clear.
	Clears int

	// Closed tracks if Close was called.
	Closed bool

	// Err, if set, is returned by every method except Close.
	Err error
}

// NewFakeDisplay creates a blank FakeDisplay.
func NewFakeDisplay() *FakeDisplay {
	return &FakeDisplay{
		scr:    newScreen(),
		Glyphs: make(map[uint8]Glyph),
	}
}

// Clear blanks the in-memory screen.
func (f *FakeDisplay) Clear() error {
	if f.Err != nil {
		return f.Err
	}
	f.Clears++
	f.scr.clear()
	return nil
}

// SetCursor moves the in-memory cursor.
func (f *FakeDisplay) SetCursor(col, row int) error {
	if f.Err != nil {
		return f.Err
	}
	return f.scr.setCursor(col, row)
}

// Print writes to the in-memory screen.
func (f *FakeDisplay) Print(s string) error {
	if f.Err != nil {
		return f.Err
	}
	f.scr.print(s)
	return nil
}

// CreateChar records the glyph.
func (f *FakeDisplay) CreateChar(location uint8, g Glyph) error {
	if f.Err != nil {
		return f.Err
	}
	if location > 7 {
		return fmt.Errorf("cgram location %d out of range", location)
	}
	f.Glyphs[location] = g
	return nil
}

// Close marks the display as closed.
func (f *FakeDisplay) Close() error {
	f.Closed = true
	return nil
}

// Line returns the text of row as a Cols-wide string.
func (f *FakeDisplay) Line(row int) string {
	return f.scr.line(row)
}

// Text returns both rows trimmed of trailing spaces and joined by a newline.
func (f *FakeDisplay) Text() string {
	lines := make([]string, Rows)
	for r := 0; r < Rows; r++ {
		lines[r] = strings.TrimRight(f.scr.line(r), " ")
	}
	return strings.Join(lines, "\n")
}
