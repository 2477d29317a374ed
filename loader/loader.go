// Package loader builds the initial memory image a guest .com program
// expects: the zero-page jump vectors, default FCBs, command tail, and
// the binary itself loaded at 0x0100.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cpmulate/cpmemu/fdos"
	"github.com/cpmulate/cpmemu/machine"
)

const (
	tpaBase    = 0x0100
	fcb1Addr   = 0x005C
	fcb2Addr   = 0x006C
	tailAddr   = 0x0080
	biosVector = 0xFC00 // 18 * 3 bytes of JP stubs, well clear of the magic page
	wbootIndex = 1      // slot 1 of the BIOS vector is WBOOT
)

// ResolveHostPath turns a CP/M-style "d:NAME[.ext]" or bare host path
// argument into a concrete file to load, applying the "nice filename"
// rule (case-insensitive match against the resolved directory, default
// extension ".com") the same way FDOS does for an opened file.
func ResolveHostPath(drives *fdos.Drives, arg string) (string, error) {
	dir := "."
	name := arg
	if len(arg) >= 2 && arg[1] == ':' {
		letter := int(strings.ToUpper(arg[:1])[0] - 'A')
		d := drives.Get(letter)
		if d == nil {
			return "", fmt.Errorf("loader: drive %s: not configured", arg[:1])
		}
		dir = d.Path
		name = arg[2:]
	} else {
		dir = filepath.Dir(arg)
		name = filepath.Base(arg)
	}
	if filepath.Ext(name) == "" {
		name += ".com"
	}
	entries, err := os.ReadDir(dir)
	if err == nil {
		for _, e := range entries {
			if strings.EqualFold(e.Name(), name) {
				return filepath.Join(dir, e.Name()), nil
			}
		}
	}
	return filepath.Join(dir, name), nil
}

// Load reads path into guest memory at 0x0100, builds the zero-page
// jump vectors and BIOS vector table, populates the two default FCBs
// from args[0] and args[1] (if present), splices the command tail into
// the buffer at 0x0080, and sets PC/SP/TPATop.
func Load(m *machine.Machine, path string, args []string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) > 0xFC00-tpaBase {
		return fmt.Errorf("loader: %s is too large for the TPA", path)
	}
	m.WriteBlock(tpaBase, data)

	buildBIOSVector(m)
	// JP BIOSVECTOR+wbootIndex*3 (warm boot) at 0x0000
	m.WriteByte(0x0000, 0xC3)
	m.WriteWord(0x0001, biosVector+wbootIndex*3)
	// JP magic-page BDOS entry at 0x0005
	m.WriteByte(0x0005, 0xC3)
	m.WriteWord(0x0006, machine.MagicBase)
	// DRVUSER byte: user 0, drive A, until Select Disk or Get/Set User
	// Number writes a different value over it.
	m.WriteByte(0x0004, 0x00)

	m.TPATop = biosVector

	setFCB(m, fcb1Addr, argAt(args, 0))
	setFCB(m, fcb2Addr, argAt(args, 1))
	writeTail(m, args)

	m.PC = tpaBase
	m.SP = biosVector
	return nil
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// buildBIOSVector writes 18 three-byte JP stubs, each targeting the
// corresponding magic-page offset (1-17 for the BIOS entries, 18 for the
// delay hook), matching the order package trap's offset constants expect.
func buildBIOSVector(m *machine.Machine) {
	for i := 0; i < 18; i++ {
		addr := uint16(biosVector + i*3)
		m.WriteByte(addr, 0xC3)
		m.WriteWord(addr+1, machine.MagicBase+uint16(i+1))
	}
}

// setFCB parses a "d:name.ext" or "name.ext" command-line argument into
// a default FCB, leaving it zeroed (unopened) if arg is empty.
func setFCB(m *machine.Machine, addr uint16, arg string) {
	f := fdos.Wrap(m.Mem[:], addr)
	if arg == "" {
		return
	}
	drive := uint8(0)
	rest := arg
	if len(arg) >= 2 && arg[1] == ':' {
		drive = uint8(strings.ToUpper(arg[:1])[0]-'A') + 1
		rest = arg[2:]
	}
	base, ext, _ := strings.Cut(rest, ".")
	f.SetDrive(drive)
	f.SetNameType(base, ext)
}

// writeTail splices args into the command-tail buffer at 0x0080: byte 0
// is the length, bytes 1.. are the space-joined text a CCP-less guest
// parses for itself (common for utilities that take their own switches).
func writeTail(m *machine.Machine, args []string) {
	tail := strings.Join(args, " ")
	if len(tail) > 127 {
		tail = tail[:127]
	}
	m.WriteByte(tailAddr, uint8(len(tail)))
	m.WriteBlock(tailAddr+1, []byte(tail))
}
