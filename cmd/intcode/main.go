// intcode: Intcode virtual machine and program library
//
// This is the command-line entry point. It runs Intcode programs from files
// or from the local program library, disassembles them, and records and
// verifies golden transcripts.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fortiblox/intcode/internal/config"
)

// Version information
var (
	Version   = "0.1.0"
	GitCommit = "dev"
)

// Global flags
var (
	configPath     = flag.String("config", "", "Configuration file (default ./"+config.DefaultFile+" when present)")
	logLevel       = flag.String("log-level", "", "Log level: debug, info, warn, error")
	libraryPath    = flag.String("library", "", "Program library database file")
	transcriptsDir = flag.String("transcripts", "", "Transcript database directory")
)

// command is a subcommand handler. args excludes the subcommand name.
type command func(cfg *config.Config, args []string) error

var commands = map[string]command{
	"run":     cmdRun,
	"disasm":  cmdDisasm,
	"add":     cmdAdd,
	"list":    cmdList,
	"record":  cmdRecord,
	"verify":  cmdVerify,
	"version": cmdVersion,
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: intcode [global flags] <command> [flags] [args]

Commands:
  run      run a program file or library entry
  disasm   print a disassembly listing
  add      store a program in the library
  list     list library programs
  record   capture a golden transcript
  verify   replay stored transcripts
  version  print version information

Global flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	// Setup logging
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	name := flag.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "intcode: unknown command %q\n\n", name)
		usage()
		os.Exit(2)
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := cmd(cfg, flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "intcode %s: %v\n", name, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration file and applies global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOptional(*configPath)
	if err != nil {
		return nil, err
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *libraryPath != "" {
		cfg.Library.Path = *libraryPath
	}
	if *transcriptsDir != "" {
		cfg.Transcripts.Path = *transcriptsDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
