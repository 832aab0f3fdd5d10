package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/0xmhha/filechange/pkg/config"
)

func newConfigCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	var output string
	show := &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader(global.configPath)
			cfg, err := loader.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return showConfig(cmd.OutOrStdout(), cfg, output, configSource(loader))
		},
	}
	show.Flags().StringVarP(&output, "output", "o", "yaml", "output format (yaml, json)")

	path := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showPaths(cmd.OutOrStdout(), config.NewLoader(global.configPath))
		},
	}

	var force bool
	var target string
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Write the default configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" {
				target = config.DefaultConfigPath()
			}
			return resetConfig(cmd.InOrStdin(), cmd.OutOrStdout(), target, force)
		},
	}
	reset.Flags().BoolVar(&force, "force", false, "skip confirmation prompt")
	reset.Flags().StringVar(&target, "path", "", "output path (default: ~/.config/filechange/config.yaml)")

	cmd.AddCommand(show, path, reset)
	return cmd
}

// showConfig writes cfg as YAML or JSON.
func showConfig(w io.Writer, cfg *config.Config, format, source string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml", "":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, err = fmt.Fprintf(w, "# Current Configuration\n# Source: %s\n\n%s", source, data)
		return err
	default:
		return fmt.Errorf("unknown output format %q: must be yaml or json", format)
	}
}

// showPaths lists the search paths and the active file.
func showPaths(w io.Writer, loader config.Loader) error {
	paths := []string{
		"$" + config.EnvConfig,
		"./filechange.yaml",
		config.DefaultConfigPath(),
	}

	fmt.Fprintln(w, "Configuration file search paths (in order of precedence):")
	fmt.Fprintln(w)
	for i, p := range paths {
		state := "not found"
		if i == 0 {
			if v := os.Getenv(config.EnvConfig); v != "" {
				state = v
			} else {
				state = "unset"
			}
		} else if _, err := os.Stat(p); err == nil {
			state = "found"
		}
		fmt.Fprintf(w, "  %d. %s [%s]\n", i+1, p, state)
	}
	fmt.Fprintln(w)

	_, err := fmt.Fprintln(w, "Active configuration:", configSource(loader))
	return err
}

func configSource(loader config.Loader) string {
	if p := loader.ConfigPath(); p != "" {
		return p
	}
	return "defaults (no config file found)"
}

// resetConfig writes the default configuration to path, asking first if a
// file is already there.
func resetConfig(in io.Reader, w io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		fmt.Fprintf(w, "Configuration file already exists at: %s\n", path)
		fmt.Fprint(w, "Overwrite? [y/N]: ")

		response, _ := bufio.NewReader(in).ReadString('\n') // nolint:errcheck
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(w, "Reset cancelled.")
			return nil
		}
	}

	if err := config.Save(config.Default(), path); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "Configuration reset to defaults at: %s\n", path)
	return err
}
