package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/astrika/gocosmo/internal/config"
	"github.com/astrika/gocosmo/internal/cosmo"
	"github.com/astrika/gocosmo/internal/model"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gocosmo",
		Short: "Cosmological background, distance, and perturbation calculations",
		Long: `gocosmo computes cosmological observables for configurable background
models: comoving and derived distances as functions of redshift, and the
evolution of adiabatic curvature perturbations through a cosmological bounce,
cross-checked against the WKB semi-analytic approximation.

Numeric output is written to stdout as space-separated columns with
"#"-prefixed comment lines, ready for plotting tools.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON where the command supports it")
	rootCmd.PersistentFlags().String("config", "", "Config file path (default ~/.gocosmo/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log verbosity: info, debug, or trace")

	// Add subcommands
	rootCmd.AddCommand(
		newVersionCmd(),
		newModelsCmd(),
		newDistanceCmd(),
		newPerturbCmd(),
		newCacheCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "gocosmo version %s\n", version)
			}
		},
	}
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List registered background models and their parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			type paramInfo struct {
				Name    string  `json:"name"`
				Default float64 `json:"default"`
			}
			out := make(map[string][]paramInfo)

			for _, name := range model.Names() {
				m, err := model.NewFromName(name)
				if err != nil {
					return fmt.Errorf("constructing %s: %w", name, err)
				}
				p := m.Params()
				var infos []paramInfo
				for _, pn := range p.Names() {
					v, _ := p.GetByName(pn)
					infos = append(infos, paramInfo{Name: pn, Default: v})
				}
				out[name] = infos
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
			}
			for _, name := range model.Names() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", name)
				for _, pi := range out[name] {
					fmt.Fprintf(cmd.OutOrStdout(), "  %-10s default % .8g\n", pi.Name, pi.Default)
				}
			}
			return nil
		},
	}
}

// loadConfig resolves the effective configuration for a command: defaults,
// then the config file (explicit --config path or the default location),
// then environment variables, then the --log-level flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// buildModel constructs a named model, applies config-file overrides for it,
// then applies --set assignments. Vector components use the name[i] form,
// e.g. --set "massnu[0]=0.06".
func buildModel(cfg *config.Config, name string, sets []string, massNuLen int) (model.Model, error) {
	var opts []model.Option
	if massNuLen > 0 {
		opts = append(opts, model.WithVectorLen(cosmo.MassNu, massNuLen))
	}
	m, err := model.NewFromName(name, opts...)
	if err != nil {
		return nil, err
	}

	for pn, v := range cfg.Models[name] {
		if err := setParam(m.Params(), pn, v); err != nil {
			return nil, fmt.Errorf("config override for %s: %w", name, err)
		}
	}

	for _, s := range sets {
		pn, v, err := parseAssignment(s)
		if err != nil {
			return nil, err
		}
		if err := setParam(m.Params(), pn, v); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func parseAssignment(s string) (string, float64, error) {
	name, val, ok := strings.Cut(s, "=")
	if !ok {
		return "", 0, fmt.Errorf("invalid --set %q (want name=value)", s)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid --set %q: %w", s, err)
	}
	return strings.TrimSpace(name), v, nil
}

func setParam(p *model.Params, name string, v float64) error {
	// Vector component form: name[i].
	if open := strings.IndexByte(name, '['); open >= 0 && strings.HasSuffix(name, "]") {
		idx, err := strconv.Atoi(name[open+1 : len(name)-1])
		if err != nil {
			return fmt.Errorf("invalid vector index in %q: %w", name, err)
		}
		return p.SetVectorComp(name[:open], idx, v)
	}
	return p.SetByName(name, v)
}
