//go:build linux

package lcd

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// HD44780 instructions.
const (
	cmdClear        = 0x01
	cmdEntryMode    = 0x06 // increment, no shift
	cmdDisplayOn    = 0x0C // display on, cursor off, blink off
	cmdFunction4Bit = 0x28 // 4-bit bus, 2 lines, 5x8 font
	cmdSetCGRAM     = 0x40
	cmdSetDDRAM     = 0x80
)

var rowOffsets = [...]int{0x00, 0x40, 0x14, 0x54}

// GPIODisplay drives an HD44780 in 4-bit mode through GPIO lines.
type GPIODisplay struct {
	chip      *gpiocdev.Chip
	rs        *gpiocdev.Line
	en        *gpiocdev.Line
	data      *gpiocdev.Lines
	backlight *gpiocdev.Line

	col, row int
}

// NewGPIODisplay requests the bus lines on chip and initialises the
// controller. Pin numbers are line offsets (BCM numbering on a Raspberry Pi).
// A negative backlight pin leaves the backlight alone.
func NewGPIODisplay(chipName string, pins Pins) (*GPIODisplay, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	d := &GPIODisplay{chip: chip}

	if d.rs, err = chip.RequestLine(pins.RS, gpiocdev.AsOutput(0)); err != nil {
		d.Close()
		return nil, fmt.Errorf("request RS pin %d: %w", pins.RS, err)
	}
	if d.en, err = chip.RequestLine(pins.E, gpiocdev.AsOutput(0)); err != nil {
		d.Close()
		return nil, fmt.Errorf("request E pin %d: %w", pins.E, err)
	}
	data := []int{pins.D4, pins.D5, pins.D6, pins.D7}
	if d.data, err = chip.RequestLines(data, gpiocdev.AsOutput(0, 0, 0, 0)); err != nil {
		d.Close()
		return nil, fmt.Errorf("request data pins %v: %w", data, err)
	}
	if pins.Backlight >= 0 {
		if d.backlight, err = chip.RequestLine(pins.Backlight, gpiocdev.AsOutput(1)); err != nil {
			d.Close()
			return nil, fmt.Errorf("request backlight pin %d: %w", pins.Backlight, err)
		}
	}

	if err := d.init(); err != nil {
		d.Close()
		return nil, fmt.Errorf("init hd44780: %w", err)
	}
	return d, nil
}

// init runs the datasheet's 4-bit initialisation by instruction sequence.
func (d *GPIODisplay) init() error {
	time.Sleep(50 * time.Millisecond)
	for _, wait := range []time.Duration{4500 * time.Microsecond, 150 * time.Microsecond, 150 * time.Microsecond} {
		if err := d.writeNibble(0x03, false); err != nil {
			return err
		}
		time.Sleep(wait)
	}
	if err := d.writeNibble(0x02, false); err != nil {
		return err
	}
	for _, cmd := range []byte{cmdFunction4Bit, cmdDisplayOn, cmdEntryMode} {
		if err := d.command(cmd); err != nil {
			return err
		}
	}
	return d.Clear()
}

func (d *GPIODisplay) writeNibble(n byte, rs bool) error {
	rsVal := 0
	if rs {
		rsVal = 1
	}
	if err := d.rs.SetValue(rsVal); err != nil {
		return fmt.Errorf("set RS: %w", err)
	}
	bits := []int{int(n & 1), int(n >> 1 & 1), int(n >> 2 & 1), int(n >> 3 & 1)}
	if err := d.data.SetValues(bits); err != nil {
		return fmt.Errorf("set data: %w", err)
	}
	if err := d.en.SetValue(1); err != nil {
		return fmt.Errorf("raise E: %w", err)
	}
	time.Sleep(time.Microsecond)
	if err := d.en.SetValue(0); err != nil {
		return fmt.Errorf("lower E: %w", err)
	}
	// Most instructions take 37us to execute.
	time.Sleep(50 * time.Microsecond)
	return nil
}

func (d *GPIODisplay) write(b byte, rs bool) error {
	if err := d.writeNibble(b>>4, rs); err != nil {
		return err
	}
	return d.writeNibble(b&0x0F, rs)
}

func (d *GPIODisplay) command(cmd byte) error {
	return d.write(cmd, false)
}

// Clear blanks the display and homes the cursor.
func (d *GPIODisplay) Clear() error {
	if err := d.command(cmdClear); err != nil {
		return err
	}
	time.Sleep(2 * time.Millisecond)
	d.col, d.row = 0, 0
	return nil
}

// SetCursor moves the DDRAM address.
func (d *GPIODisplay) SetCursor(col, row int) error {
	if col < 0 || col >= Cols || row < 0 || row >= Rows {
		return fmt.Errorf("cursor (%d,%d) outside %dx%d display", col, row, Cols, Rows)
	}
	d.col, d.row = col, row
	return d.command(cmdSetDDRAM | byte(col+rowOffsets[row]))
}

// Print writes character codes at the cursor, dropping anything past the
// last column.
func (d *GPIODisplay) Print(s string) error {
	for i := 0; i < len(s) && d.col < Cols; i++ {
		if err := d.write(s[i], true); err != nil {
			return err
		}
		d.col++
	}
	return nil
}

// CreateChar uploads g to CGRAM and restores the cursor.
func (d *GPIODisplay) CreateChar(location uint8, g Glyph) error {
	if location > 7 {
		return fmt.Errorf("cgram location %d out of range", location)
	}
	if err := d.command(cmdSetCGRAM | location<<3); err != nil {
		return err
	}
	for _, row := range g {
		if err := d.write(row, true); err != nil {
			return err
		}
	}
	return d.SetCursor(d.col, d.row)
}

// Close releases the GPIO lines.
// Lines are reconfigured as inputs with pull-down before closing so the bus
// is left in the boot default state.
func (d *GPIODisplay) Close() error {
	var errs []error

	for name, l := range map[string]*gpiocdev.Line{"RS": d.rs, "E": d.en, "backlight": d.backlight} {
		if l == nil {
			continue
		}
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", name, err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
		}
	}
	if d.data != nil {
		if err := d.data.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure data pins: %w", err))
		}
		if err := d.data.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close data pins: %w", err))
		}
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
