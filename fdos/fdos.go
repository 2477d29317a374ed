package fdos

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cpmulate/cpmemu/registry"
)

// Result is the BDOS-visible outcome of an FDOS operation: 0x00 normally
// means success, 0xFF means "not found"/"directory full", and a handful
// of small values are reused for read/write record-status codes
// (RecordEOF, RecordUnwritten, RecordDiskFull). These travel back to the
// guest in the A register; they are never Go errors, per the two-tier
// error-handling split (host-level failures use FDOS.Fault instead).
type Result uint8

const (
	OK              Result = 0x00
	NotFound        Result = 0xFF
	RecordEOF       Result = 0x01
	RecordUnwritten Result = 0x01
	RecordDiskFull  Result = 0x02
	BadRecordSize   Result = 0x06
)

const recordSize = 128

// Fault is a host-level failure serious enough to terminate the guest:
// an unexpected I/O error, a write to a read-only drive/file, or an
// FCB-ID tamper/logic violation. A nil Fault paired with a Result is the
// common case: the guest sees Result and keeps running.
type Fault struct {
	Reason string // machine.TermReason name, assigned by the caller
}

func (f *Fault) Error() string { return f.Reason }

// FDOS is the file subsystem: a drive table plus the registry of
// currently open host files.
type FDOS struct {
	Drives *Drives
	Reg    *registry.Registry
	User   int
}

// New returns an FDOS bound to the given drive table and file registry.
func New(drives *Drives, reg *registry.Registry) *FDOS {
	return &FDOS{Drives: drives, Reg: reg}
}

// hostDir returns the host directory an FCB's drive resolves to, or a
// Fault if the drive is unconfigured.
func (fd *FDOS) hostDir(f FCB) (*Drive, *Fault) {
	drive, letter := fd.Drives.Resolve(f.Drive())
	if drive == nil {
		return nil, &Fault{Reason: "ErrSelect"}
	}
	_ = letter
	return drive, nil
}

// resolvePath finds the host file matching f's nice name inside drive's
// directory, case-insensitively (CP/M names are conventionally upper
// case; host directories are frequently not). ok is false if no file by
// that name exists yet, in which case path is the path a create should
// use.
func resolvePath(drive *Drive, nice string) (path string, ok bool) {
	entries, err := os.ReadDir(drive.Path)
	if err == nil {
		for _, e := range entries {
			if strings.EqualFold(e.Name(), nice) {
				return filepath.Join(drive.Path, e.Name()), true
			}
		}
	}
	return filepath.Join(drive.Path, nice), false
}

// Open implements BDOS function 15: bind f to a host file, recording the
// registry ID/XOR tag in f's reserved bytes.
func (fd *FDOS) Open(f FCB) (Result, *Fault) {
	drive, fault := fd.hostDir(f)
	if fault != nil {
		return NotFound, fault
	}
	path, ok := resolvePath(drive, f.NiceName())
	if !ok {
		return NotFound, nil
	}
	flag := os.O_RDWR
	if drive.ReadOnly || f.ReadOnly() {
		flag = os.O_RDONLY
	}
	file, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		if os.IsPermission(err) {
			file, err = os.OpenFile(path, os.O_RDONLY, 0644)
			if err == nil {
				flag = os.O_RDONLY
				f.SetReadOnly(true)
			}
		}
		if err != nil {
			return NotFound, nil
		}
	}
	entry, rerr := fd.Reg.Open(file, path, flag == os.O_RDONLY)
	if rerr != nil {
		file.Close()
		return NotFound, &Fault{Reason: "ErrHost"}
	}
	f.SetID(entry.ID)
	f.SetExtent(0)
	f.SetRC(extentRecordCount(file))
	return OK, nil
}

// Make implements BDOS function 22: create a new (empty) file and open
// it, failing if one already exists by that name.
func (fd *FDOS) Make(f FCB) (Result, *Fault) {
	drive, fault := fd.hostDir(f)
	if fault != nil {
		return NotFound, fault
	}
	if drive.ReadOnly {
		return NotFound, &Fault{Reason: "ErrRODisk"}
	}
	path, exists := resolvePath(drive, f.NiceName())
	if exists {
		return NotFound, nil
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return NotFound, &Fault{Reason: "ErrHost"}
	}
	entry, rerr := fd.Reg.Open(file, path, false)
	if rerr != nil {
		file.Close()
		return NotFound, &Fault{Reason: "ErrHost"}
	}
	f.SetID(entry.ID)
	f.SetExtent(0)
	f.SetRC(0)
	return OK, nil
}

// Close implements BDOS function 16. A guest closing an FCB it never
// validly opened (stale/forged ID/tag) is a protocol violation, reported
// as a Fault rather than silently ignored.
func (fd *FDOS) Close(f FCB) (Result, *Fault) {
	if !f.Valid() {
		return NotFound, &Fault{Reason: "ErrLogic"}
	}
	entry := fd.Reg.Lookup(f.ID())
	if entry == nil {
		return NotFound, &Fault{Reason: "ErrLogic"}
	}
	if err := fd.Reg.Close(f.ID()); err != nil {
		return NotFound, &Fault{Reason: "ErrHost"}
	}
	f.ClearID()
	return OK, nil
}

// Delete implements BDOS function 19, honoring ambiguous (wildcard) FCBs
// by deleting every matching nice-name file in the resolved drive.
func (fd *FDOS) Delete(f FCB) (Result, *Fault) {
	drive, fault := fd.hostDir(f)
	if fault != nil {
		return NotFound, fault
	}
	if drive.ReadOnly {
		return NotFound, &Fault{Reason: "ErrRODisk"}
	}
	entries, err := os.ReadDir(drive.Path)
	if err != nil {
		return NotFound, nil
	}
	deleted := false
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if Match(f.NiceName(), strings.ToLower(e.Name())) {
			if rerr := os.Remove(filepath.Join(drive.Path, e.Name())); rerr == nil {
				deleted = true
			}
		}
	}
	if !deleted {
		return NotFound, nil
	}
	return OK, nil
}

// Rename implements BDOS function 23: src is the FCB at DE and dst is the
// FCB 16 bytes after it, whose name/type fields give the new name.
func (fd *FDOS) Rename(src, dst FCB) (Result, *Fault) {
	drive, fault := fd.hostDir(src)
	if fault != nil {
		return NotFound, fault
	}
	if drive.ReadOnly {
		return NotFound, &Fault{Reason: "ErrRODisk"}
	}
	path, ok := resolvePath(drive, src.NiceName())
	if !ok {
		return NotFound, nil
	}
	newPath := filepath.Join(drive.Path, dst.NiceName())
	if err := os.Rename(path, newPath); err != nil {
		return NotFound, &Fault{Reason: "ErrHost"}
	}
	return OK, nil
}

// SearchState is the guest-invisible cursor behind FindFirst/FindNext:
// CP/M has no concept of a search handle, so it is kept by the caller
// (the BDOS layer owns one SearchState and resets it on F_SFIRST).
type SearchState struct {
	matches []string
	pos     int
}

// FindFirst implements BDOS function 17: populate st with every nice
// name in the resolved drive matching f (ambiguous or not), sorted for
// deterministic iteration, and return the first one.
func (fd *FDOS) FindFirst(f FCB, st *SearchState) (Result, string, *Fault) {
	drive, fault := fd.hostDir(f)
	if fault != nil {
		return NotFound, "", fault
	}
	entries, err := os.ReadDir(drive.Path)
	if err != nil {
		return NotFound, "", nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		if Match(f.NiceName(), name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	st.matches = names
	st.pos = 0
	return fd.FindNext(st)
}

// FindNext implements BDOS function 18.
func (fd *FDOS) FindNext(st *SearchState) (Result, string, *Fault) {
	if st.pos >= len(st.matches) {
		return NotFound, "", nil
	}
	name := st.matches[st.pos]
	st.pos++
	return OK, name, nil
}

// extentRecordCount reports how many 128-byte records the current 16K
// extent (the last one touching EOF) should claim for RC, clamped to
// 0x80 per spec.
func extentRecordCount(file *os.File) uint8 {
	info, err := file.Stat()
	if err != nil {
		return 0
	}
	records := (info.Size() + recordSize - 1) / recordSize
	extentRecords := records % 128
	if records > 0 && extentRecords == 0 {
		extentRecords = 128
	}
	return uint8(extentRecords)
}

// ReadSeq implements BDOS function 20: read the next 128-byte record at
// f's current sequential position into buf (len(buf)==128), advancing CR
// (and EX/S2 on extent rollover).
func (fd *FDOS) ReadSeq(f FCB, buf []byte) (Result, *Fault) {
	entry := fd.Reg.Lookup(f.ID())
	if entry == nil || !f.Valid() {
		return NotFound, &Fault{Reason: "ErrLogic"}
	}
	rec := int64(f.SequentialRecord())
	res, fault := fd.readRecord(entry, rec, buf)
	if fault != nil || res != OK {
		return res, fault
	}
	fd.advanceSequential(f)
	return OK, nil
}

// WriteSeq implements BDOS function 21.
func (fd *FDOS) WriteSeq(f FCB, buf []byte) (Result, *Fault) {
	entry := fd.Reg.Lookup(f.ID())
	if entry == nil || !f.Valid() {
		return NotFound, &Fault{Reason: "ErrLogic"}
	}
	if entry.ReadOnly {
		return NotFound, &Fault{Reason: "ErrROFile"}
	}
	rec := int64(f.SequentialRecord())
	if res, fault := fd.writeRecord(entry, rec, buf); fault != nil || res != OK {
		return res, fault
	}
	fd.advanceSequential(f)
	return OK, nil
}

func (fd *FDOS) advanceSequential(f FCB) {
	cr := f.CR() + 1
	if cr > 127 {
		cr = 0
		ex := f.Extent() + 1
		if ex > extentMask {
			ex = 0
			f.SetS2(f.S2() + 1)
		}
		f.SetExtent(ex)
	}
	f.SetCR(cr)
}

// ReadRand implements BDOS function 33: read the 128-byte record named
// by R0/R1/R2 and update EX/CR to match, keeping the sequential
// position consistent for a following sequential call.
func (fd *FDOS) ReadRand(f FCB, buf []byte) (Result, *Fault) {
	entry := fd.Reg.Lookup(f.ID())
	if entry == nil || !f.Valid() {
		return NotFound, &Fault{Reason: "ErrLogic"}
	}
	rec := int64(f.Random())
	res, fault := fd.readRecord(entry, rec, buf)
	if fault == nil {
		syncPositionFromRandom(f, rec)
	}
	return res, fault
}

// WriteRand implements BDOS function 34.
func (fd *FDOS) WriteRand(f FCB, buf []byte) (Result, *Fault) {
	entry := fd.Reg.Lookup(f.ID())
	if entry == nil || !f.Valid() {
		return NotFound, &Fault{Reason: "ErrLogic"}
	}
	if entry.ReadOnly {
		return NotFound, &Fault{Reason: "ErrROFile"}
	}
	rec := int64(f.Random())
	res, fault := fd.writeRecord(entry, rec, buf)
	if fault == nil {
		syncPositionFromRandom(f, rec)
	}
	return res, fault
}

func syncPositionFromRandom(f FCB, rec int64) {
	f.SetExtent(uint8((rec / 128) & extentMask))
	f.SetS2(uint8(rec / 128 / (extentMask + 1)))
	f.SetCR(uint8(rec % 128))
}

func (fd *FDOS) readRecord(entry *registry.Entry, rec int64, buf []byte) (Result, *Fault) {
	n, err := entry.File.ReadAt(buf, rec*recordSize)
	if n == 0 && (err == nil || err == io.EOF) {
		return RecordEOF, nil
	}
	if err != nil && err != io.EOF {
		return NotFound, &Fault{Reason: "ErrHost"}
	}
	for i := n; i < len(buf); i++ {
		buf[i] = 0x1A // CP/M EOF pad, read-side only
	}
	return OK, nil
}

func (fd *FDOS) writeRecord(entry *registry.Entry, rec int64, buf []byte) (Result, *Fault) {
	if _, err := entry.File.WriteAt(buf, rec*recordSize); err != nil {
		return NotFound, &Fault{Reason: "ErrHost"}
	}
	entry.Written = true
	return OK, nil
}
