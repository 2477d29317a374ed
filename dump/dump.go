// Package dump implements cpmemu's optional post-run memory save, in
// either raw binary or Intel-HEX, for examining what a guest program
// left behind after an unexpected termination.
package dump

import (
	"bufio"
	"fmt"
	"os"
)

// WriteBinary writes mem[0:end] verbatim to path.
func WriteBinary(path string, mem []byte, end int) error {
	return os.WriteFile(path, mem[:end], 0644)
}

// WriteHex writes mem[0:end] as Intel-HEX records (16 bytes per data
// record plus a trailing EOF record), the same record/checksum shape a
// record-oriented hex dump uses regardless of target architecture.
func WriteHex(path string, mem []byte, end int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	const perLine = 16
	for addr := 0; addr < end; addr += perLine {
		n := perLine
		if addr+n > end {
			n = end - addr
		}
		if err := writeHexRecord(w, uint16(addr), 0x00, mem[addr:addr+n]); err != nil {
			return err
		}
	}
	if err := writeHexRecord(w, 0, 0x01, nil); err != nil {
		return err
	}
	return w.Flush()
}

func writeHexRecord(w *bufio.Writer, addr uint16, recType uint8, data []byte) error {
	sum := uint8(len(data)) + uint8(addr>>8) + uint8(addr) + recType
	for _, b := range data {
		sum += b
	}
	checksum := uint8(0x100 - int(sum))

	if _, err := fmt.Fprintf(w, ":%02X%04X%02X", len(data), addr, recType); err != nil {
		return err
	}
	for _, b := range data {
		if _, err := fmt.Fprintf(w, "%02X", b); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%02X\n", checksum)
	return err
}
