package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/teslamotors/vehicle-accessory/internal/log"
	"github.com/teslamotors/vehicle-accessory/pkg/cli"
	"github.com/teslamotors/vehicle-accessory/pkg/protocol"
)

func writeErr(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n")
}

const usage = `
 * A refresh token is required: -token-file, -token-name, $TESLA_REFRESH_TOKEN, or the
   token field of the -config file.
 * The first vehicle on the account is used.
 * Without a COMMAND, an interactive shell is started. Type exit to quit.`

func Usage() {
	fmt.Printf("Usage: %s [OPTION...] [COMMAND [ARG...]]\n", os.Args[0])
	fmt.Printf("\nRun %s help COMMAND for more information. Valid COMMANDs are listed below.", os.Args[0])
	fmt.Println("")
	fmt.Println(usage)
	fmt.Println("")

	fmt.Printf("Available OPTIONs:\n")
	flag.PrintDefaults()
	fmt.Println("")
	fmt.Printf("Available COMMANDs:\n")
	maxLength := 0
	labels := commandNames()
	for _, command := range labels {
		if len(command) > maxLength {
			maxLength = len(command)
		}
	}
	for _, command := range labels {
		info := commands[command]
		fmt.Printf("  %s%s %s\n", command, strings.Repeat(" ", maxLength-len(command)), info.help)
	}
}

func help(t *Target, args []string) {
	if len(args) < 2 {
		Usage()
		return
	}
	info, ok := commands[args[1]]
	if !ok {
		writeErr("Unrecognized command: %s", args[1])
		return
	}
	info.Usage(t.out, args[1])
}

func runCommand(t *Target, args []string, timeout time.Duration) int {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := execute(ctx, t, args); err != nil {
		switch {
		case protocol.MayHaveSucceeded(err):
			writeErr("Couldn't verify success: %s", err)
		case errors.Is(err, protocol.ErrAuth):
			writeErr("Couldn't authenticate. Check that your refresh token is still valid: %s", err)
		case protocol.ShouldRetry(err):
			writeErr("Failed to execute command, try again: %s", err)
		default:
			writeErr("Failed to execute command: %s", err)
		}
		return 1
	}
	return 0
}

func runInteractiveShell(t *Target, timeout time.Duration) int {
	scanner := bufio.NewScanner(os.Stdin)
	for fmt.Printf("> "); scanner.Scan(); fmt.Printf("> ") {
		args, err := shlex.Split(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			return 0
		}
		if err != nil {
			writeErr("Invalid command: %s", err)
			continue
		}
		if args[0] == "help" {
			help(t, args)
			continue
		}
		runCommand(t, args, timeout)
	}
	if err := scanner.Err(); err != nil {
		writeErr("Error reading command: %s", err)
		return 1
	}
	return 0
}

func main() {
	status := 1
	defer func() {
		os.Exit(status)
	}()

	var (
		debug          bool
		commandTimeout time.Duration
	)
	config, err := cli.NewConfig(cli.FlagAll)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load credential configuration: %s\n", err)
		os.Exit(1)
	}
	flag.Usage = Usage
	flag.BoolVar(&debug, "debug", false, "Enable verbose debugging messages")
	flag.DurationVar(&commandTimeout, "command-timeout", 45*time.Second, "Set timeout for each COMMAND, including any wake sequence.")

	config.RegisterCommandLineFlags()
	flag.Parse()
	config.ReadFromEnvironment()
	if !debug && config.Verbose {
		debugEnv := os.Getenv(cli.EnvTeslaVerbose)
		debug = debugEnv != "false" && debugEnv != "0"
	}
	if debug {
		log.SetLevel(log.LevelDebug)
	}

	args := flag.Args()
	if len(args) > 0 && args[0] == "help" {
		if len(args) == 1 {
			Usage()
			status = 0
			return
		}
		info, ok := commands[args[1]]
		if !ok {
			writeErr("Unrecognized command: %s", args[1])
			return
		}
		info.Usage(os.Stdout, args[1])
		status = 0
		return
	}

	if err := config.LoadFile(); err != nil {
		writeErr("Error loading accessory configuration: %s", err)
		return
	}
	if err := config.LoadCredentials(); err != nil {
		writeErr("Error loading credentials: %s", err)
		return
	}

	s, err := config.Session()
	if err != nil {
		writeErr("Error: %s", err)
		return
	}
	a, err := config.Accessory()
	if err != nil {
		writeErr("Error: %s", err)
		return
	}
	defer a.Close()

	t := NewTarget(a, s, os.Stdout)
	if len(args) > 0 {
		status = runCommand(t, args, commandTimeout)
	} else {
		status = runInteractiveShell(t, commandTimeout)
	}
}
