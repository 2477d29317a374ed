// Command cpmemu runs a single CP/M-80 2.2 .com program to completion
// (or until a terminating signal), mapping its BDOS/FDOS calls onto the
// host filesystem.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/cpmulate/cpmemu/bdos"
	"github.com/cpmulate/cpmemu/chario"
	"github.com/cpmulate/cpmemu/config"
	"github.com/cpmulate/cpmemu/dump"
	"github.com/cpmulate/cpmemu/fdos"
	"github.com/cpmulate/cpmemu/loader"
	"github.com/cpmulate/cpmemu/logger"
	"github.com/cpmulate/cpmemu/machine"
	"github.com/cpmulate/cpmemu/registry"
	"github.com/cpmulate/cpmemu/trap"
	"github.com/cpmulate/cpmemu/z80"
)

// driveFlags collects repeated -drive LETTER=path[,readonly] options.
type driveFlags []string

func (d *driveFlags) String() string { return "" }

func (d *driveFlags) Set(v string) error {
	*d = append(*d, v)
	return nil
}

// Command-line flags. Config-file directives (-config) are applied
// first; any flag the user actually passed then overrides the
// corresponding config value.
var (
	configPath = flag.String("config", "", "Load drive/console/device settings from this directive file")
	console    = flag.String("console", "", "Console backend: line or vt52")
	lines      = flag.Int("lines", 0, "VT52 screen rows (default 24)")
	columns    = flag.Int("columns", 0, "VT52 screen columns (default 80)")
	logFile    = flag.String("logfile", "", "Write diagnostic log to this file")
	logLevel   = flag.Int("loglevel", -1, "Log verbosity 0-4 (default 0)")
	defDrive   = flag.String("default-drive", "", "Default drive letter (default A)")
	readerPath = flag.String("reader", "", "Host file backing the BIOS reader device")
	punchPath  = flag.String("punch", "", "Host file backing the BIOS punch device")
	printPath  = flag.String("printer", "", "Host file backing the BIOS list device")
	dumpPath   = flag.String("dump", "", "Save guest memory here on exit")
	dumpHex    = flag.Bool("dump-hex", false, "Save the -dump memory image as Intel-HEX instead of raw binary")
	cpuDelay   = flag.Int("cpu-delay", -1, "Microseconds to sleep every 128K instructions, 0 disables it")
	exchDel    = flag.Bool("exchange-delete", false, "Swap the meaning of BS and DEL in the line editor")

	drives driveFlags
)

func main() {
	flag.Var(&drives, "drive", "Bind a drive letter, repeatable: -drive A=./dir -drive B=./lib,readonly")
	flag.Usage = printUsage
	flag.Parse()

	os.Exit(run(flag.Args()))
}

func run(args []string) int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cpmemu:", err)
		return 2
	}
	if len(args) == 0 {
		printUsage()
		return 2
	}

	log, logWriter, err := logger.New(cfg.LogFile, logger.Level(cfg.LogLevel), cfg.LogFile == "")
	if err != nil {
		fmt.Fprintln(os.Stderr, "cpmemu: log:", err)
		return 1
	}
	if logWriter != nil {
		defer logWriter.Close()
	}

	m := machine.New()
	drv := fdos.NewDrives()
	for i, dc := range cfg.Drives {
		if dc.Path != "" {
			if err := drv.Set(i, dc.Path, dc.ReadOnly); err != nil {
				fmt.Fprintln(os.Stderr, "cpmemu: drive:", err)
				return 2
			}
		}
	}
	drv.SetCurrent(cfg.DefaultDrive)

	hostPath, err := loader.ResolveHostPath(drv, args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "cpmemu:", err)
		return 1
	}
	if err := loader.Load(m, hostPath, args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "cpmemu:", err)
		return 1
	}

	reg := registry.New(log)
	fd := fdos.New(drv, reg)

	console, closeConsole := buildConsole(cfg)
	defer closeConsole()

	b := bdos.New(fd, console, buildAux(cfg.Reader, false), buildAux(cfg.Punch, true), buildAux(cfg.Printer, true), log)
	b.ExchangeDelete = cfg.ExchangeDelete
	td := trap.New(b, log)

	installSignalHandler(m)
	runLoop(m, td, cfg)

	if cfg.CloseFilesOnExit {
		reg.CloseAll()
	}
	if cfg.DumpPath != "" {
		if err := writeDump(cfg, m); err != nil {
			fmt.Fprintln(os.Stderr, "cpmemu: dump:", err)
		}
	}

	log.Info("guest terminated", "reason", m.TermReason.String(), "instructions", m.InstrCount)
	return exitCode(m.TermReason)
}

// loadConfig builds the effective Config: -config file directives first
// (or Default() if none given), then command-line flags layered on top
// of whatever the file set.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	} else {
		cfg = config.Default()
	}

	switch strings.ToLower(*console) {
	case "line":
		cfg.Console = config.ConsoleLine
	case "vt52":
		cfg.Console = config.ConsoleVT52
	case "":
	default:
		return nil, fmt.Errorf("-console: unknown mode %q", *console)
	}
	if *lines > 0 {
		cfg.Lines = *lines
	}
	if *columns > 0 {
		cfg.Columns = *columns
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}
	if *logLevel >= 0 {
		cfg.LogLevel = *logLevel
	}
	if *defDrive != "" {
		idx := int(strings.ToUpper(*defDrive)[0] - 'A')
		if idx < 0 || idx >= len(cfg.Drives) {
			return nil, fmt.Errorf("-default-drive: invalid letter %q", *defDrive)
		}
		cfg.DefaultDrive = idx
	}
	if *readerPath != "" {
		cfg.Reader = &config.AuxDevice{Path: *readerPath}
	}
	if *punchPath != "" {
		cfg.Punch = &config.AuxDevice{Path: *punchPath}
	}
	if *printPath != "" {
		cfg.Printer = &config.AuxDevice{Path: *printPath}
	}
	if *dumpPath != "" {
		cfg.DumpPath = *dumpPath
		cfg.DumpHex = *dumpHex
	}
	if *cpuDelay >= 0 {
		cfg.CPUDelayMicros = *cpuDelay
	}
	if *exchDel {
		cfg.ExchangeDelete = true
	}
	for _, spec := range drives {
		if err := applyDriveFlag(cfg, spec); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func applyDriveFlag(cfg *config.Config, spec string) error {
	letter, rest, ok := strings.Cut(spec, "=")
	if !ok || len(letter) != 1 {
		return fmt.Errorf("-drive expects LETTER=path[,readonly], got %q", spec)
	}
	ch := strings.ToUpper(letter)[0]
	if ch < 'A' || ch > 'P' {
		return fmt.Errorf("-drive letter %q out of range A-P", letter)
	}
	path, flagWord, hasFlag := strings.Cut(rest, ",")
	readOnly := hasFlag && strings.ToLower(flagWord) == "readonly"
	cfg.Drives[ch-'A'] = config.DriveConfig{Path: path, ReadOnly: readOnly}
	return nil
}

func buildConsole(cfg *config.Config) (chario.CharIO, func()) {
	if cfg.Console == config.ConsoleVT52 {
		v, err := chario.NewVT52(cfg.Lines, cfg.Columns)
		if err == nil {
			return v, func() { v.Close() }
		}
		// Fall back to line mode rather than abort: a headless run with
		// no controlling terminal should still execute the guest.
	}
	l := chario.NewLine()
	return l, func() { l.Close() }
}

func buildAux(dev *config.AuxDevice, writer bool) chario.CharIO {
	if dev == nil {
		return chario.NullDevice{}
	}
	var f *chario.FileDevice
	var err error
	if writer {
		f, err = chario.OpenWriter(dev.Path)
	} else {
		f, err = chario.OpenReader(dev.Path)
	}
	if err != nil {
		return chario.NullDevice{}
	}
	return f
}

// pollInterval is how often the Step loop checks for a requested CPU
// delay, spreading the time.Sleep call across many instructions rather
// than paying a scheduler wakeup on every single one.
const pollInterval = 128 * 1024

func runLoop(m *machine.Machine, td *trap.Dispatcher, cfg *config.Config) {
	delay := time.Duration(cfg.CPUDelayMicros) * time.Microsecond
	for !m.Terminate {
		z80.Step(m, td.Handle)
		if delay > 0 && m.InstrCount%pollInterval == 0 {
			time.Sleep(delay)
		}
	}
}

func installSignalHandler(m *machine.Machine) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	var once sync.Once
	go func() {
		for range sigCh {
			once.Do(func() {
				m.SetTerminate(machine.ErrSignal)
			})
		}
	}()
}

func writeDump(cfg *config.Config, m *machine.Machine) error {
	end := int(m.TPATop)
	if end == 0 || end > len(m.Mem) {
		end = len(m.Mem)
	}
	if cfg.DumpHex {
		return dump.WriteHex(cfg.DumpPath, m.Mem[:], end)
	}
	return dump.WriteBinary(cfg.DumpPath, m.Mem[:], end)
}

// exitCode maps a TermReason onto the process exit status: 0 for a
// normal or ^C termination, 1 for any other, fatal termination reason.
func exitCode(r machine.TermReason) int {
	switch r {
	case machine.Normal, machine.CtrlC:
		return 0
	default:
		return 1
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `cpmemu - CP/M-80 2.2 user-mode emulator

Usage: cpmemu [options] program[.com] [args...]

Options:
`)
	flag.PrintDefaults()
}
