package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fortiblox/intcode/internal/config"
	"github.com/fortiblox/intcode/pkg/intcode"
	"github.com/fortiblox/intcode/pkg/library"
	"github.com/fortiblox/intcode/pkg/program"
	"github.com/fortiblox/intcode/pkg/transcript"
)

var errUsage = errors.New("wrong number of arguments")

// machineFlags registers execution limit flags, defaulting to the
// configuration file values.
func machineFlags(fs *flag.FlagSet, cfg *config.Config) func() intcode.Options {
	memoryLimit := fs.Int64("memory-limit", cfg.Machine.MemoryLimit, "Maximum addressable words (0 = unlimited)")
	stepLimit := fs.Uint64("step-limit", cfg.Machine.StepLimit, "Maximum executed instructions (0 = unlimited)")
	return func() intcode.Options {
		opts := intcode.Options{
			MemoryLimit: *memoryLimit,
			StepLimit:   *stepLimit,
		}
		if cfg.Enabled(config.LevelDebug) {
			opts.Trace = log.New(os.Stderr, "trace ", log.Lmicroseconds)
		}
		return opts
	}
}

func openLibrary(cfg *config.Config) (*library.Store, error) {
	libCfg := library.DefaultConfig(cfg.Library.Path)
	libCfg.NoSync = cfg.Library.NoSync
	return library.Open(libCfg)
}

func openTranscripts(cfg *config.Config) (*transcript.Store, error) {
	tsCfg := transcript.DefaultConfig(cfg.Transcripts.Path)
	tsCfg.SyncWrites = cfg.Transcripts.SyncWrites
	return transcript.Open(tsCfg)
}

// loadProgram reads ref as a program file, falling back to a library name
// or digest.
func loadProgram(cfg *config.Config, ref string) ([]int64, error) {
	if _, err := os.Stat(ref); err == nil {
		return program.Load(ref)
	}

	lib, err := openLibrary(cfg)
	if err != nil {
		return nil, fmt.Errorf("open library: %w", err)
	}
	defer lib.Close()

	entry, err := lib.Resolve(ref)
	if err != nil {
		return nil, fmt.Errorf("%s is neither a file nor a library entry: %w", ref, err)
	}
	return entry.Words, nil
}

// applyPatches overwrites words according to a list of addr=value pairs.
func applyPatches(words []int64, list string) error {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	for _, pair := range strings.Split(list, ",") {
		addrStr, valStr, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return fmt.Errorf("patch %q: want addr=value", pair)
		}
		addr, err := strconv.Atoi(addrStr)
		if err != nil || addr < 0 || addr >= len(words) {
			return fmt.Errorf("patch %q: address out of range", pair)
		}
		v, err := strconv.ParseInt(valStr, 10, 64)
		if err != nil {
			return fmt.Errorf("patch %q: %w", pair, err)
		}
		words[addr] = v
	}
	return nil
}

func cmdRun(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	inputs := fs.String("input", "", "Comma-separated inputs queued before running")
	interactive := fs.Bool("interactive", false, "Read further inputs from stdin when the program asks")
	patch := fs.String("patch", "", "Memory patches applied before running, as addr=value,...")
	peek := fs.Int64("peek", -1, "Print the word at this address after the program halts")
	options := machineFlags(fs, cfg)
	fs.Parse(args)

	if fs.NArg() != 1 {
		return errUsage
	}
	words, err := loadProgram(cfg, fs.Arg(0))
	if err != nil {
		return err
	}
	queued, err := program.ParseInputs(*inputs)
	if err != nil {
		return fmt.Errorf("-input: %w", err)
	}
	if err := applyPatches(words, *patch); err != nil {
		return err
	}

	m := intcode.NewWithOptions(words, options())
	m.PushInput(queued...)

	var stdin io.Reader
	if *interactive {
		stdin = os.Stdin
	}
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	start := time.Now()
	if err := runMachine(m, stdin, out, os.Stderr, *peek); err != nil {
		return err
	}
	if cfg.Enabled(config.LevelDebug) {
		log.Printf("Halted after %d steps in %v", m.Steps(), time.Since(start))
	}
	return nil
}

// runMachine drives m to completion, writing each output on its own line to
// out. When in is nil a starved machine is an error; otherwise each
// NeedInput prompts on prompt and reads one line of comma-separated inputs
// from in. Lines that do not parse are reported and read again. A
// non-negative peek prints that memory word after the program halts.
func runMachine(m *intcode.Machine, in io.Reader, out, prompt io.Writer, peek int64) error {
	var lines *bufio.Scanner
	if in != nil {
		lines = bufio.NewScanner(in)
	}
	flush := func() {
		if f, ok := out.(interface{ Flush() error }); ok {
			f.Flush()
		}
	}

	for {
		res, err := m.Run()
		if err != nil {
			return err
		}

		switch res.Kind {
		case intcode.KindOutput:
			fmt.Fprintln(out, res.Value)

		case intcode.KindNeedInput:
			if lines == nil {
				return fmt.Errorf("%w at ip %d (use -input or -interactive)", intcode.ErrNeedInput, m.IP())
			}
			flush()
			fmt.Fprint(prompt, "input> ")
			if !lines.Scan() {
				if err := lines.Err(); err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				return fmt.Errorf("%w: stdin closed", intcode.ErrNeedInput)
			}
			more, err := program.ParseInputs(lines.Text())
			if err != nil {
				fmt.Fprintf(prompt, "ignored: %v\n", err)
				continue
			}
			m.PushInput(more...)

		case intcode.KindHalted:
			if peek >= 0 {
				fmt.Fprintf(out, "[%d] = %d\n", peek, m.Peek(peek))
			}
			return nil
		}
	}
}

func cmdDisasm(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("disasm", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() != 1 {
		return errUsage
	}
	words, err := loadProgram(cfg, fs.Arg(0))
	if err != nil {
		return err
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	return intcode.FormatListing(out, words)
}

func cmdAdd(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	name := fs.String("name", "", "Name to bind to the program")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return errUsage
	}
	words, err := program.Load(fs.Arg(0))
	if err != nil {
		return err
	}

	lib, err := openLibrary(cfg)
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	defer lib.Close()

	entry, err := lib.Put(*name, words)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s (%d words)\n", entry.Digest, entry.Name, len(entry.Words))
	return nil
}

func cmdList(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	fs.Parse(args)

	lib, err := openLibrary(cfg)
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	defer lib.Close()

	infos, err := lib.List()
	if err != nil {
		return err
	}
	for _, info := range infos {
		name := info.Name
		if name == "" {
			name = "-"
		}
		added := time.Unix(info.AddedAt, 0).Format(time.DateTime)
		fmt.Printf("%-44s %-20s %8d  %s\n", info.Digest, name, info.Size, added)
	}

	stats, err := lib.Stats()
	if err != nil {
		return err
	}
	fmt.Printf("%d programs, %d named, %d bytes\n", stats.ProgramCount, stats.NameCount, stats.DatabaseSize)
	return nil
}

func cmdRecord(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	inputs := fs.String("input", "", "Comma-separated inputs for the run")
	options := machineFlags(fs, cfg)
	fs.Parse(args)

	if fs.NArg() != 1 {
		return errUsage
	}
	words, err := loadProgram(cfg, fs.Arg(0))
	if err != nil {
		return err
	}
	queued, err := program.ParseInputs(*inputs)
	if err != nil {
		return fmt.Errorf("-input: %w", err)
	}

	t, err := transcript.Capture(words, queued, options())
	if err != nil {
		return err
	}

	store, err := openTranscripts(cfg)
	if err != nil {
		return fmt.Errorf("open transcripts: %w", err)
	}
	defer store.Close()

	if err := store.Put(t); err != nil {
		return err
	}
	fmt.Printf("%s inputs [%s]: %d outputs, %d steps\n",
		t.Program.Short(), program.Format(t.Inputs), len(t.Outputs), t.Steps)
	return nil
}

func cmdVerify(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	options := machineFlags(fs, cfg)
	fs.Parse(args)

	if fs.NArg() != 1 {
		return errUsage
	}
	words, err := loadProgram(cfg, fs.Arg(0))
	if err != nil {
		return err
	}

	store, err := openTranscripts(cfg)
	if err != nil {
		return fmt.Errorf("open transcripts: %w", err)
	}
	defer store.Close()

	n, err := transcript.Verify(store, words, options())
	if err != nil {
		return err
	}
	if n == 0 && cfg.Enabled(config.LevelWarn) {
		log.Printf("Warning: no transcripts recorded for %s", fs.Arg(0))
	}
	fmt.Printf("%s: %d transcripts verified\n", fs.Arg(0), n)
	return nil
}

func cmdVersion(cfg *config.Config, args []string) error {
	fmt.Printf("intcode %s (%s)\n", Version, GitCommit)
	return nil
}
