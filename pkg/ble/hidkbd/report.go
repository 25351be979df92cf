package hidkbd

// Modifier bits of the first report byte.
const (
	ModLeftCtrl   byte = 0x01
	ModLeftShift  byte = 0x02
	ModLeftAlt    byte = 0x04
	ModLeftGUI    byte = 0x08
	ModRightCtrl  byte = 0x10
	ModRightShift byte = 0x20
	ModRightAlt   byte = 0x40
	ModRightGUI   byte = 0x80

	modShift = ModLeftShift | ModRightShift
)

// Keycodes from the HID usage table.
const (
	KeyNone       byte = 0x00
	KeyRollOver   byte = 0x01
	KeyA          byte = 0x04
	KeyZ          byte = 0x1d
	Key1          byte = 0x1e
	Key0          byte = 0x27
	KeyEnter      byte = 0x28
	KeyEscape     byte = 0x29
	KeyBackspace  byte = 0x2a
	KeyTab        byte = 0x2b
	KeySpace      byte = 0x2c
	KeyMinus      byte = 0x2d
	KeySlash      byte = 0x38
	maxReportKeys      = 6
)

var (
	digitsShifted = []rune("!@#$%^&*()")
	// from KeyMinus to KeySlash, 0x32 (non-US #) has no rune.
	punct        = []rune("-=[]\\\x00;'`,./")
	punctShifted = []rune("_+{}|\x00:\"~<>?")
)

// KeyRune maps a keycode to its rune, 0 if not printable.
func KeyRune(mod, key byte) rune {
	shift := mod&modShift != 0
	switch {
	case key >= KeyA && key <= KeyZ:
		if shift {
			return rune(key) + 'A' - rune(KeyA)
		}
		return rune(key) + 'a' - rune(KeyA)
	case key >= Key1 && key <= Key0:
		if shift {
			return digitsShifted[key-Key1]
		}
		if key == Key0 {
			return '0'
		}
		return rune(key) + '1' - rune(Key1)
	case key == KeyEnter:
		return '\n'
	case key == KeyEscape:
		return 0x1b
	case key == KeyBackspace:
		return '\b'
	case key == KeyTab:
		return '\t'
	case key == KeySpace:
		return ' '
	case key >= KeyMinus && key <= KeySlash:
		if shift {
			return punctShifted[key-KeyMinus]
		}
		return punct[key-KeyMinus]
	}
	return 0
}

// Report is a decoded keyboard input report.
type Report struct {
	Modifiers byte
	Keys      []byte
	// RollOver is set when too many keys are pressed, Keys is empty then.
	RollOver bool
}

// ParseReport parses a boot keyboard report [mod, reserved, k1..k6].
// The two-byte form [mod, key] sent by some keyboards is accepted too.
// A rollover report has no Keys.
func ParseReport(b []byte) Report {
	var r Report
	switch {
	case len(b) < 2:
		return r
	case len(b) == 2:
		r.Modifiers = b[0]
		if b[1] != KeyNone {
			r.Keys = []byte{b[1]}
		}
		return r
	}
	r.Modifiers = b[0]
	keys := b[2:]
	if len(keys) > maxReportKeys {
		keys = keys[:maxReportKeys]
	}
	for _, k := range keys {
		if k == KeyRollOver {
			r.Keys, r.RollOver = nil, true
			return r
		}
		if k != KeyNone {
			r.Keys = append(r.Keys, k)
		}
	}
	return r
}

// DecodeReport returns the runes of all keys in the report.
func DecodeReport(b []byte) []rune {
	r := ParseReport(b)
	var runes []rune
	for _, k := range r.Keys {
		if ch := KeyRune(r.Modifiers, k); ch != 0 {
			runes = append(runes, ch)
		}
	}
	return runes
}

// Decoder emits runes for newly pressed keys only, as a held key stays in
// consecutive reports.
type Decoder struct {
	pressed []byte
}

// Decode returns the runes of keys not pressed in the previous report.
func (d *Decoder) Decode(b []byte) []rune {
	r := ParseReport(b)
	if r.RollOver {
		return nil
	}
	var runes []rune
	for _, k := range r.Keys {
		if containsKey(d.pressed, k) {
			continue
		}
		if ch := KeyRune(r.Modifiers, k); ch != 0 {
			runes = append(runes, ch)
		}
	}
	d.pressed = append(d.pressed[:0], r.Keys...)
	return runes
}

func containsKey(keys []byte, k byte) bool {
	for _, key := range keys {
		if key == k {
			return true
		}
	}
	return false
}
