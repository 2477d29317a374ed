package config

// Charset maps the Cpm<->Host byte space for console output: plain
// ASCII is the common case, but CP/M programs often assume a particular
// 8-bit code page (Kaypro/Osborne graphics glyphs, WordStar's high-bit
// attribute marking) that a modern UTF-8 terminal doesn't share, so a
// named table translates in both directions plus a separate table for
// the VT52 "G" graphics-mode command.
type Charset struct {
	name     string
	toHost   [256]rune
	fromHost map[rune]uint8
	unprintable rune
	overrides map[uint8]rune
}

// asciiTable is the identity mapping for bytes 0x20-0x7E and 0 (no
// mapping, so ToHost substitutes the unprintable glyph) for everything
// else; it is also the fallback for an unrecognized charset
// name so a typo in a config file degrades gracefully rather than
// crashing the emulator.
func asciiTable() [256]rune {
	var t [256]rune
	for i := 0; i < 256; i++ {
		if i >= 0x20 && i < 0x7F {
			t[i] = rune(i)
		} else {
			t[i] = 0
		}
	}
	return t
}

var namedCharsets = map[string]func() [256]rune{
	"ascii": asciiTable,
}

// NewCharset builds a Charset from a config-declared name plus any
// per-code "char"/"alt char" overrides, falling back to the unprintable
// glyph for codes the table leaves at rune 0.
func NewCharset(name string, unprintable rune, overrides map[uint8]rune) *Charset {
	build, ok := namedCharsets[name]
	if !ok {
		build = asciiTable
	}
	cs := &Charset{name: name, toHost: build(), unprintable: unprintable, overrides: overrides}
	for code, r := range overrides {
		cs.toHost[code] = r
	}
	cs.fromHost = make(map[rune]uint8, 256)
	for code := 0; code < 256; code++ {
		if r := cs.toHost[code]; r != 0 {
			if _, exists := cs.fromHost[r]; !exists {
				cs.fromHost[r] = uint8(code)
			}
		}
	}
	return cs
}

// ToHost translates one CP/M output byte into the rune a host terminal
// should display, substituting the unprintable glyph for codes the
// table has no mapping for.
func (c *Charset) ToHost(code uint8) rune {
	if r := c.toHost[code]; r != 0 {
		return r
	}
	return c.unprintable
}

// FromHost translates a host keystroke rune back into the CP/M byte a
// guest program expects. The console-input path does not call it;
// keystrokes reach the guest untranslated.
func (c *Charset) FromHost(r rune) (uint8, bool) {
	code, ok := c.fromHost[r]
	return code, ok
}

// FromGraph translates code through the alternate charset alt. No
// console back end calls it: the VT52 emulation in package chario has
// no graphics mode.
func FromGraph(alt *Charset, code uint8) rune {
	return alt.ToHost(code)
}
