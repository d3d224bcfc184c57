package lcd

import (
	"fmt"
	"log/slog"
	"strings"
)

// LogDisplay renders the screen to a logger for headless runs.
// Custom glyph codes are shown as their icon names.
type LogDisplay struct {
	scr    screen
	logger *slog.Logger
	last   [Rows]string
}

// NewLogDisplay creates a LogDisplay writing at debug level to logger.
func NewLogDisplay(logger *slog.Logger) *LogDisplay {
	return &LogDisplay{scr: newScreen(), logger: logger}
}

// Clear blanks the screen.
func (l *LogDisplay) Clear() error {
	l.scr.clear()
	l.flush()
	return nil
}

// SetCursor moves the cursor.
func (l *LogDisplay) SetCursor(col, row int) error {
	return l.scr.setCursor(col, row)
}

// Print writes s and logs any row that changed.
func (l *LogDisplay) Print(s string) error {
	l.scr.print(s)
	l.flush()
	return nil
}

// CreateChar is a no-op; glyphs are rendered by name.
func (l *LogDisplay) CreateChar(location uint8, g Glyph) error {
	if location > 7 {
		return fmt.Errorf("cgram location %d out of range", location)
	}
	return nil
}

// Close does nothing.
func (l *LogDisplay) Close() error {
	return nil
}

func (l *LogDisplay) flush() {
	for r := 0; r < Rows; r++ {
		text := readable(l.scr.line(r))
		if text == l.last[r] {
			continue
		}
		l.last[r] = text
		l.logger.Debug("lcd", "row", r, "text", text)
	}
}

func readable(line string) string {
	var b strings.Builder
	for i := 0; i < len(line); i++ {
		switch c := line[i]; c {
		case IconSmiley:
			b.WriteString("{smiley}")
		case IconLocked:
			b.WriteString("{locked}")
		case IconUnlocked:
			b.WriteString("{unlocked}")
		case IconRightArrow:
			b.WriteString("->")
		default:
			b.WriteByte(c)
		}
	}
	return strings.TrimRight(b.String(), " ")
}
