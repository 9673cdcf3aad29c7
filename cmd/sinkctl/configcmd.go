package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/danmuck/framesink/internal/config"
)

func runConfig(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	output := fs.String("output", "sinkctl.toml", "output path for the config template (.toml or .yaml)")
	force := fs.Bool("force", false, "overwrite an existing config file")
	validate := fs.Bool("validate", false, "validate an existing config file instead of writing one")
	input := fs.String("input", "sinkctl.toml", "config path for -validate")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if *validate {
		cfg, err := config.Load(*input)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "validated config %s (id=%s listen=%s://%s)\n", *input, cfg.ID, cfg.Listen.Transport, cfg.Listen.Addr)
		return nil
	}
	if err := config.WriteTemplate(*output, *force); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote config template %s\n", *output)
	return nil
}
