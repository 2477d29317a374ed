// Package config implements cpmemu's Config struct and the hand-rolled
// parser for its directive-based configuration file grammar (not
// TOML/YAML/JSON — the grammar is this emulator's own, so it gets a
// from-scratch tokenizer/parser rather than an ecosystem library).
package config

// ConsoleMode selects the CharIO backend.
type ConsoleMode int

const (
	// ConsoleLine is the column-tracking plain stdio backend.
	ConsoleLine ConsoleMode = iota
	// ConsoleVT52 is the tcell-driven full-screen terminal emulation.
	ConsoleVT52
)

// AuxDevice is one optional host-file-backed reader/punch/printer device.
type AuxDevice struct {
	Path   string
	Binary bool // mode "binary" vs "text"
}

// DriveConfig binds one drive letter to a host path.
type DriveConfig struct {
	Path     string
	ReadOnly bool
}

// Config is the full set of options the CLI flags and config-file
// directives populate, in the shape a loader/main wiring step consumes
// directly.
type Config struct {
	Drives       [16]DriveConfig // A..P, empty Path means unconfigured
	DefaultDrive int             // 0-based

	Console       ConsoleMode
	Lines, Columns int

	Charset         string // named primary translation table
	AltCharset      string // named alternate (graphics) translation table
	ExtraChar       map[uint8]rune // "char" directive overrides
	ExtraAltChar    map[uint8]rune // "alt char" directive overrides
	Unprintable     rune           // substitute glyph, 0 means drop silently

	LogFile  string
	LogLevel int // 0..4, higher is more verbose

	ScreenDelay      int // ms; parsed and stored, not read by any console back end
	ApplicationCursor bool
	ExchangeDelete    bool // swap BS/DEL meaning in the line editor
	CloseFilesOnExit  bool

	CPUDelayMicros int // microseconds slept once every 128K M1 fetches, 0 disables it

	Reader   *AuxDevice
	Punch    *AuxDevice
	Printer  *AuxDevice

	DumpPath string
	DumpHex  bool // Intel-HEX vs raw binary
}

// Default returns a Config with the documented defaults: 24x80
// line-mode console, drive A bound to the current directory, no
// auxiliary devices, log level 0 (errors only).
func Default() *Config {
	c := &Config{
		Console:      ConsoleLine,
		Lines:        24,
		Columns:      80,
		Charset:      "ascii",
		AltCharset:   "ascii",
		ExtraChar:    map[uint8]rune{},
		ExtraAltChar: map[uint8]rune{},
		Unprintable:  '.',
		LogLevel:     0,
	}
	c.Drives[0] = DriveConfig{Path: "."}
	return c
}
