package lcd

// Pins are the GPIO line offsets of the 4-bit HD44780 bus.
type Pins struct {
	RS        int
	E         int
	D4        int
	D5        int
	D6        int
	D7        int
	Backlight int // negative = not wired
}

// DefaultPins is the common Raspberry Pi wiring (BCM numbering).
var DefaultPins = Pins{
	RS:        25,
	E:         24,
	D4:        23,
	D5:        17,
	D6:        18,
	D7:        22,
	Backlight: -1,
}
