package chario

import "os"

// FileDevice backs an auxiliary reader/punch/printer device with a
// plain host file: input is consumed byte by byte, output appended.
type FileDevice struct {
	f   *os.File
	pos int64
}

// OpenReader opens path for the Reader device (BDOS function 3).
func OpenReader(path string) (*FileDevice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &FileDevice{f: f}, nil
}

// OpenWriter opens (creating/truncating) path for the Punch or Printer
// device (BDOS functions 4/5).
func OpenWriter(path string) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	return &FileDevice{f: f}, nil
}

func (d *FileDevice) WriteByte(b uint8) {
	d.f.Write([]byte{b})
}

func (d *FileDevice) ReadByte() (uint8, bool) {
	var buf [1]byte
	n, err := d.f.ReadAt(buf[:], d.pos)
	if n == 0 || err != nil {
		return 0x1A, false
	}
	d.pos++
	return buf[0], true
}

func (d *FileDevice) StatusByte() bool {
	info, err := d.f.Stat()
	if err != nil {
		return false
	}
	return d.pos < info.Size()
}

func (d *FileDevice) Close() error { return d.f.Close() }
