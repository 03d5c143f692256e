package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	commandy "github.com/Paranoid-AF/commandy"
	"github.com/Paranoid-AF/commandy/engine"
	"github.com/Paranoid-AF/commandy/snapshot"
)

// verifyTimeout bounds the --version probe.
const verifyTimeout = 30 * time.Second

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the configuration and the llama.cpp installation",
		Args:  cobra.NoArgs,
		RunE:  runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	cfg, err := commandy.LoadConfig()
	if err != nil {
		fmt.Fprintf(out, "config:  %s (invalid: %v)\n", commandy.ConfigPath(), err)
		return err
	}
	fmt.Fprintf(out, "config:  %s\n", commandy.ConfigPath())
	fmt.Fprintf(out, "model:   %s\n", commandy.ResolveModel(cfg))
	fmt.Fprintf(out, "shell:   %s\n", snapshot.DetectShell())

	warnings := commandy.ValidateConfig(cfg)
	for _, w := range warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}

	bin, err := engine.Locate(commandy.ResolveBinary(cfg))
	if err != nil {
		fmt.Fprintf(out, "engine:  not found\n")
		return err
	}
	fmt.Fprintf(out, "engine:  %s\n", bin)

	ctx, cancel := context.WithTimeout(commandContext(cmd), verifyTimeout)
	defer cancel()
	version, err := engine.New(bin, 0).Verify(ctx)
	if err != nil {
		fmt.Fprintf(out, "version: unavailable\n")
		return err
	}
	fmt.Fprintf(out, "version: %s\n", version)

	if len(warnings) > 0 {
		return fmt.Errorf("%d configuration warning(s)", len(warnings))
	}
	fmt.Fprintln(out, "ok")
	return nil
}
