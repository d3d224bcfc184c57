package lcd

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestInitIcons(t *testing.T) {
	d := NewFakeDisplay()
	if err := InitIcons(d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[uint8]Glyph{
		IconSmiley:   Smiley,
		IconLocked:   Locked,
		IconUnlocked: Unlocked,
	}
	if len(d.Glyphs) != len(want) {
		t.Fatalf("expected %d glyphs, got %d", len(want), len(d.Glyphs))
	}
	for loc, g := range want {
		if d.Glyphs[loc] != g {
			t.Errorf("glyph %d: got %v, want %v", loc, d.Glyphs[loc], g)
		}
	}
}

func TestInitIconsError(t *testing.T) {
	d := NewFakeDisplay()
	d.Err = errors.New("bus fault")

	err := InitIcons(d)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, d.Err) {
		t.Errorf("expected wrapped bus fault, got %v", err)
	}
	if !strings.Contains(err.Error(), "smiley") {
		t.Errorf("expected icon name in error, got %v", err)
	}
}

func TestGlyphsUseFiveColumns(t *testing.T) {
	for name, g := range map[string]Glyph{"smiley": Smiley, "locked": Locked, "unlocked": Unlocked} {
		for i, row := range g {
			if row&^0x1F != 0 {
				t.Errorf("%s row %d: %08b uses more than 5 columns", name, i, row)
			}
		}
	}
}

func TestFakeDisplayPrint(t *testing.T) {
	d := NewFakeDisplay()

	if err := PrintAt(d, 2, 0, "Hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := PrintAt(d, 0, 1, Char(IconLocked)+" ready"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := d.Line(0); got != fmt.Sprintf("%-16s", "  Hello") {
		t.Errorf("row 0: got %q", got)
	}
	if got := d.Line(1); got != fmt.Sprintf("%-16s", "\x01 ready") {
		t.Errorf("row 1: got %q", got)
	}
	if got := d.Text(); got != "  Hello\n\x01 ready" {
		t.Errorf("Text: got %q", got)
	}
}

func TestFakeDisplayTruncatesAtLastColumn(t *testing.T) {
	d := NewFakeDisplay()
	PrintAt(d, 12, 0, "overflowing")

	if got := d.Line(0); got != strings.Repeat(" ", 12)+"over" {
		t.Errorf("row 0: got %q", got)
	}
	if got := d.Line(1); strings.TrimSpace(got) != "" {
		t.Errorf("text wrapped into row 1: %q", got)
	}
}

func TestFakeDisplayCursorBounds(t *testing.T) {
	d := NewFakeDisplay()
	for _, pos := range [][2]int{{-1, 0}, {16, 0}, {0, 2}, {0, -1}} {
		if err := d.SetCursor(pos[0], pos[1]); err == nil {
			t.Errorf("SetCursor(%d,%d): expected error", pos[0], pos[1])
		}
	}
	if err := d.CreateChar(8, Smiley); err == nil {
		t.Error("CreateChar(8): expected error")
	}
}

func TestFakeDisplayClearAndClose(t *testing.T) {
	d := NewFakeDisplay()
	d.Print("abc")
	d.Clear()

	if d.Clears != 1 {
		t.Errorf("Clears: got %d, want 1", d.Clears)
	}
	if d.Text() != "\n" {
		t.Errorf("Text after Clear: got %q", d.Text())
	}
	d.Close()
	if !d.Closed {
		t.Error("should be closed after Close()")
	}
}

func TestLogDisplayLogsChangedRows(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	d := NewLogDisplay(logger)

	PrintAt(d, 0, 0, Char(IconSmiley)+" hi "+Char(IconRightArrow))
	out := buf.String()
	if !strings.Contains(out, "{smiley} hi ->") {
		t.Errorf("expected readable row in log, got %q", out)
	}

	buf.Reset()
	PrintAt(d, 0, 0, Char(IconSmiley))
	if buf.Len() != 0 {
		t.Errorf("unchanged row logged again: %q", buf.String())
	}
}
