package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/framesink/internal/config"
)

const usage = `usage: sinkctl <command> [flags]

commands:
  serve   run the relay (and admin API when admin.addr is set)
  send    send messages to a relay and print the echoes
  config  write a config template, or validate one with -validate
`

var errUsage = errors.New("sinkctl: invalid usage")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "sinkctl: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}
	switch args[0] {
	case "serve":
		return runServe(args[1:], stderr)
	case "send":
		return runSend(args[1:], stdout, stderr)
	case "config":
		return runConfig(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return errUsage
	}
}

// loadConfig reads path, or returns the defaults when path is empty.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
