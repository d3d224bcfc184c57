// Package lcd drives a 16x2 HD44780-compatible character display with
// hardware abstraction.
// The real implementation bit-bangs the 4-bit parallel bus over the Linux GPIO
// character device. The fake implementation allows testing without hardware.
package lcd

import "fmt"

// Display geometry of the keypad shield LCD.
const (
	Cols = 16
	Rows = 2
)

// Glyph is a 5x8 custom character, one row per byte, low five bits used.
type Glyph [8]byte

// Display writes text and custom characters to a character LCD.
type Display interface {
	// Clear blanks the screen and homes the cursor.
	Clear() error

	// SetCursor moves the write position. Columns and rows are 0-based.
	SetCursor(col, row int) error

	// Print writes raw character codes at the cursor. Bytes 0-7 select
	// custom glyphs.
	Print(s string) error

	// CreateChar uploads a glyph to CGRAM location 0-7.
	CreateChar(location uint8, g Glyph) error

	// Close releases display resources.
	Close() error
}

// Character codes for the uploaded icons and built-in symbols.
const (
	IconSmiley   byte = 0
	IconLocked   byte = 1
	IconUnlocked byte = 2

	IconRightArrow byte = 126
)

// Smiley is a small smiling face.
var Smiley = Glyph{
	0b00000,
	0b01010,
	0b01010,
	0b00000,
	0b10001,
	0b01110,
	0b00000,
	0b00000,
}

// Locked is a closed padlock.
var Locked = Glyph{
	0b01110,
	0b10001,
	0b10001,
	0b11111,
	0b11011,
	0b11011,
	0b11111,
	0b00000,
}

// Unlocked is an open padlock.
var Unlocked = Glyph{
	0b01110,
	0b10000,
	0b10000,
	0b11111,
	0b11011,
	0b11011,
	0b11111,
	0b00000,
}

// InitIcons uploads the custom icons to their CGRAM slots.
func InitIcons(d Display) error {
	icons := []struct {
		code  byte
		glyph Glyph
		name  string
	}{
		{IconSmiley, Smiley, "smiley"},
		{IconLocked, Locked, "locked"},
		{IconUnlocked, Unlocked, "unlocked"},
	}
	for _, ic := range icons {
		if err := d.CreateChar(ic.code, ic.glyph); err != nil {
			return fmt.Errorf("upload %s icon: %w", ic.name, err)
		}
	}
	return nil
}

// Char returns a one-character string for a raw character code.
func Char(code byte) string {
	return string([]byte{code})
}

// PrintAt moves the cursor and prints s.
func PrintAt(d Display, col, row int, s string) error {
	if err := d.SetCursor(col, row); err != nil {
		return err
	}
	return d.Print(s)
}
