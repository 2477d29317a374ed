package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// line is a cursor over one directive line, in the style of a hand-rolled
// option-line tokenizer: skipSpace/isEOL/getNext/parseQuoteString/
// getNumber peel tokens off the front one at a time rather than
// splitting the whole line up front, so quoted strings with embedded
// spaces survive intact.
type line struct {
	text string
	pos  int
	num  int
}

func (l *line) skipSpace() {
	for l.pos < len(l.text) && (l.text[l.pos] == ' ' || l.text[l.pos] == '\t') {
		l.pos++
	}
}

func (l *line) isEOL() bool {
	l.skipSpace()
	return l.pos >= len(l.text)
}

// getNext returns the next whitespace-delimited token, or a quoted
// string (without its surrounding quotes, with \" and \\ unescaped) if
// the next non-space character is a double quote.
func (l *line) getNext() (string, error) {
	l.skipSpace()
	if l.pos >= len(l.text) {
		return "", fmt.Errorf("line %d: unexpected end of line", l.num)
	}
	if l.text[l.pos] == '"' {
		return l.parseQuoteString()
	}
	start := l.pos
	for l.pos < len(l.text) && l.text[l.pos] != ' ' && l.text[l.pos] != '\t' {
		l.pos++
	}
	return l.text[start:l.pos], nil
}

func (l *line) parseQuoteString() (string, error) {
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.text) {
		c := l.text[l.pos]
		if c == '"' {
			l.pos++
			return sb.String(), nil
		}
		if c == '\\' && l.pos+1 < len(l.text) {
			l.pos++
			c = l.text[l.pos]
		}
		sb.WriteByte(c)
		l.pos++
	}
	return "", fmt.Errorf("line %d: unterminated quoted string", l.num)
}

// getNumber parses a decimal, 0x-prefixed hex, or 0-prefixed octal
// integer token.
func (l *line) getNumber() (int, error) {
	tok, err := l.getNext()
	if err != nil {
		return 0, err
	}
	base := 10
	switch {
	case strings.HasPrefix(tok, "0x") || strings.HasPrefix(tok, "0X"):
		tok = tok[2:]
		base = 16
	case strings.HasPrefix(tok, "0") && len(tok) > 1:
		tok = tok[1:]
		base = 8
	}
	v, err := strconv.ParseInt(tok, base, 32)
	if err != nil {
		return 0, fmt.Errorf("line %d: invalid number %q", l.num, tok)
	}
	return int(v), nil
}

func (l *line) getBool() (bool, error) {
	tok, err := l.getNext()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(tok) {
	case "on", "yes", "true", "1":
		return true, nil
	case "off", "no", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("line %d: expected on/off, got %q", l.num, tok)
}

// Load reads a config file in cpmemu's directive grammar and applies it
// on top of Default(). Unknown directives are a hard parse error rather
// than a silently ignored typo.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := Default()
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		raw := scanner.Text()
		if idx := strings.IndexAny(raw, "#;"); idx >= 0 {
			raw = raw[:idx]
		}
		l := &line{text: raw, num: lineNum}
		if l.isEOL() {
			continue
		}
		keyword, err := l.getNext()
		if err != nil {
			return nil, err
		}
		if err := applyDirective(c, strings.ToLower(keyword), l); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

func applyDirective(c *Config, keyword string, l *line) error {
	switch keyword {
	case "charset":
		v, err := l.getNext()
		if err != nil {
			return err
		}
		c.Charset = v
	case "alt":
		return applyAltDirective(c, l)
	case "char":
		code, err := l.getNumber()
		if err != nil {
			return err
		}
		r, err := l.getNumber()
		if err != nil {
			return err
		}
		c.ExtraChar[uint8(code)] = rune(r)
	case "unprintable":
		r, err := l.getNumber()
		if err != nil {
			return err
		}
		c.Unprintable = rune(r)
	case "console":
		v, err := l.getNext()
		if err != nil {
			return err
		}
		switch strings.ToLower(v) {
		case "line":
			c.Console = ConsoleLine
		case "vt52":
			c.Console = ConsoleVT52
		default:
			return fmt.Errorf("line %d: unknown console mode %q", l.num, v)
		}
	case "lines":
		n, err := l.getNumber()
		if err != nil {
			return err
		}
		c.Lines = n
	case "columns":
		n, err := l.getNumber()
		if err != nil {
			return err
		}
		c.Columns = n
	case "drive":
		return applyDriveDirective(c, l)
	case "default":
		return applyDefaultDirective(c, l)
	case "logfile":
		v, err := l.getNext()
		if err != nil {
			return err
		}
		c.LogFile = v
	case "loglevel":
		n, err := l.getNumber()
		if err != nil {
			return err
		}
		c.LogLevel = n
	case "screen":
		return applyScreenDirective(c, l)
	case "application":
		return applyApplicationDirective(c, l)
	case "exchange":
		return applyExchangeDirective(c, l)
	case "close":
		return applyCloseDirective(c, l)
	case "cpu":
		return applyCPUDirective(c, l)
	case "reader":
		return applyAuxDirective(&c.Reader, l)
	case "punch":
		return applyAuxDirective(&c.Punch, l)
	case "printer":
		return applyAuxDirective(&c.Printer, l)
	case "dump":
		return applyDumpDirective(c, l)
	default:
		return fmt.Errorf("line %d: unknown directive %q", l.num, keyword)
	}
	return nil
}

func applyAltDirective(c *Config, l *line) error {
	kw, err := l.getNext()
	if err != nil {
		return err
	}
	switch strings.ToLower(kw) {
	case "charset":
		v, err := l.getNext()
		if err != nil {
			return err
		}
		c.AltCharset = v
	case "char":
		code, err := l.getNumber()
		if err != nil {
			return err
		}
		r, err := l.getNumber()
		if err != nil {
			return err
		}
		c.ExtraAltChar[uint8(code)] = rune(r)
	default:
		return fmt.Errorf("line %d: unknown 'alt' directive %q", l.num, kw)
	}
	return nil
}

func applyDriveDirective(c *Config, l *line) error {
	letterTok, err := l.getNext()
	if err != nil {
		return err
	}
	letter := driveLetterIndex(letterTok)
	if letter < 0 {
		return fmt.Errorf("line %d: invalid drive letter %q", l.num, letterTok)
	}
	eq, err := l.getNext()
	if err != nil || eq != "=" {
		return fmt.Errorf("line %d: expected '=' after drive letter", l.num)
	}
	path, err := l.getNext()
	if err != nil {
		return err
	}
	dc := DriveConfig{Path: path}
	if !l.isEOL() {
		flag, err := l.getNext()
		if err != nil {
			return err
		}
		if strings.ToLower(flag) == "readonly" {
			dc.ReadOnly = true
		} else {
			return fmt.Errorf("line %d: unknown drive flag %q", l.num, flag)
		}
	}
	c.Drives[letter] = dc
	return nil
}

func driveLetterIndex(tok string) int {
	tok = strings.TrimSuffix(tok, ":")
	if len(tok) != 1 {
		return -1
	}
	ch := tok[0]
	switch {
	case ch >= 'A' && ch <= 'P':
		return int(ch - 'A')
	case ch >= 'a' && ch <= 'p':
		return int(ch - 'a')
	}
	return -1
}

func applyDefaultDirective(c *Config, l *line) error {
	kw, err := l.getNext()
	if err != nil || strings.ToLower(kw) != "drive" {
		return fmt.Errorf("line %d: expected 'default drive'", l.num)
	}
	tok, err := l.getNext()
	if err != nil {
		return err
	}
	letter := driveLetterIndex(tok)
	if letter < 0 {
		return fmt.Errorf("line %d: invalid drive letter %q", l.num, tok)
	}
	c.DefaultDrive = letter
	return nil
}

func applyScreenDirective(c *Config, l *line) error {
	kw, err := l.getNext()
	if err != nil || strings.ToLower(kw) != "delay" {
		return fmt.Errorf("line %d: expected 'screen delay'", l.num)
	}
	n, err := l.getNumber()
	if err != nil {
		return err
	}
	c.ScreenDelay = n
	return nil
}

func applyApplicationDirective(c *Config, l *line) error {
	kw, err := l.getNext()
	if err != nil || strings.ToLower(kw) != "cursor" {
		return fmt.Errorf("line %d: expected 'application cursor'", l.num)
	}
	b, err := l.getBool()
	if err != nil {
		return err
	}
	c.ApplicationCursor = b
	return nil
}

func applyExchangeDirective(c *Config, l *line) error {
	kw, err := l.getNext()
	if err != nil || strings.ToLower(kw) != "delete" {
		return fmt.Errorf("line %d: expected 'exchange delete'", l.num)
	}
	b, err := l.getBool()
	if err != nil {
		return err
	}
	c.ExchangeDelete = b
	return nil
}

func applyCloseDirective(c *Config, l *line) error {
	kw, err := l.getNext()
	if err != nil || strings.ToLower(kw) != "files" {
		return fmt.Errorf("line %d: expected 'close files'", l.num)
	}
	b, err := l.getBool()
	if err != nil {
		return err
	}
	c.CloseFilesOnExit = b
	return nil
}

func applyCPUDirective(c *Config, l *line) error {
	kw, err := l.getNext()
	if err != nil || strings.ToLower(kw) != "delay" {
		return fmt.Errorf("line %d: expected 'cpu delay'", l.num)
	}
	n, err := l.getNumber()
	if err != nil {
		return err
	}
	c.CPUDelayMicros = n
	return nil
}

func applyAuxDirective(dev **AuxDevice, l *line) error {
	kw, err := l.getNext()
	if err != nil || strings.ToLower(kw) != "file" {
		return fmt.Errorf("line %d: expected '<device> file'", l.num)
	}
	path, err := l.getNext()
	if err != nil {
		return err
	}
	a := &AuxDevice{Path: path}
	if !l.isEOL() {
		mode, err := l.getNext()
		if err != nil {
			return err
		}
		switch strings.ToLower(mode) {
		case "binary":
			a.Binary = true
		case "text":
			a.Binary = false
		default:
			return fmt.Errorf("line %d: unknown device mode %q", l.num, mode)
		}
	}
	*dev = a
	return nil
}

func applyDumpDirective(c *Config, l *line) error {
	path, err := l.getNext()
	if err != nil {
		return err
	}
	c.DumpPath = path
	c.DumpHex = false
	if !l.isEOL() {
		mode, err := l.getNext()
		if err != nil {
			return err
		}
		switch strings.ToLower(mode) {
		case "hex":
			c.DumpHex = true
		case "binary":
			c.DumpHex = false
		default:
			return fmt.Errorf("line %d: unknown dump mode %q", l.num, mode)
		}
	}
	return nil
}
