package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	commandy "github.com/Paranoid-AF/commandy"
	defaults "github.com/Paranoid-AF/commandy/default"
)

func newConfigCmd() *cobra.Command {
	var (
		showPath     bool
		showDefaults bool
		showPrompt   bool
	)
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the effective configuration as TOML.

The file lives at $COMMANDY_CONFIG_DIR/config.toml, falling back to
$XDG_CONFIG_HOME/commandy and ~/.config/commandy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			switch {
			case showPath:
				fmt.Fprintln(out, commandy.ConfigPath())
				return nil
			case showPrompt:
				fmt.Fprint(out, defaults.DefaultPrompt)
				return nil
			}

			cfg := commandy.DefaultConfig()
			if !showDefaults {
				var err error
				if cfg, err = commandy.LoadConfig(); err != nil {
					return err
				}
			}
			return toml.NewEncoder(out).Encode(cfg)
		},
	}
	cmd.Flags().BoolVar(&showPath, "path", false, "print the config file path")
	cmd.Flags().BoolVar(&showDefaults, "defaults", false, "print the built-in defaults")
	cmd.Flags().BoolVar(&showPrompt, "default-prompt", false, "print the built-in prompt template")
	return cmd
}
