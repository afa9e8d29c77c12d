package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/Stoky555/ownership-graph/internal/cli"
)

var (
	configShowSource bool
	configShowFormat string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show [section]",
	Short: "Print the merged configuration",
	Long: `Print the configuration after defaults, ownership.yaml and OWNERSHIP_*
environment variables are merged. Passwords are masked. Pass a top-level
section name (database, blob, neo4j, ...) to print only that section.`,
	Example: `  # Whole configuration as YAML
  ownership config show

  # Database settings as JSON, with the file and env overrides in effect
  ownership config show database --format json --source`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigShow(cmd.OutOrStdout(), cfg.Redacted(), configShowOptions{
			Section:    argAt(args, 0),
			Format:     configShowFormat,
			Source:     configShowSource,
			ConfigPath: configPath,
			Environ:    os.Environ(),
		})
	},
}

func init() {
	f := configShowCmd.Flags()
	f.BoolVar(&configShowSource, "source", false, "list the config file and environment overrides first")
	f.StringVar(&configShowFormat, "format", "yaml", "output format: yaml or json")
	configCmd.AddCommand(configShowCmd)
}

type configShowOptions struct {
	Section    string
	Format     string
	Source     bool
	ConfigPath string
	Environ    []string
}

func runConfigShow(w io.Writer, c cli.Config, opts configShowOptions) error {
	if opts.Source {
		printConfigSources(w, opts.ConfigPath, opts.Environ)
	}

	raw, err := json.Marshal(c)
	if err != nil {
		return cli.GeneralError("encoding configuration", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return cli.GeneralError("encoding configuration", err)
	}
	var value any = doc
	if opts.Section != "" {
		section, ok := doc[opts.Section]
		if !ok {
			return cli.ConfigError(fmt.Sprintf("unknown config section %q (want one of %s)",
				opts.Section, strings.Join(sortedKeys(doc), ", ")), nil)
		}
		value = section
	}

	switch opts.Format {
	case "", "yaml":
		out, err := yaml.Marshal(value)
		if err != nil {
			return cli.GeneralError("encoding configuration", err)
		}
		_, err = w.Write(out)
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	default:
		return cli.ConfigError(fmt.Sprintf("unknown format %q (want yaml or json)", opts.Format), nil)
	}
}

// printConfigSources names the config file and the OWNERSHIP_ variables that
// override it. Values are not printed.
func printConfigSources(w io.Writer, path string, environ []string) {
	if path != "" {
		fmt.Fprintf(w, "Config file: %s\n", path)
	} else {
		fmt.Fprintln(w, "Config file: (none, using defaults)")
	}
	var names []string
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "OWNERSHIP_") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		fmt.Fprintln(w, "Environment: (no overrides)")
	} else {
		fmt.Fprintf(w, "Environment: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintln(w)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
