// Package commands implements the loom command line.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/loom/cli/internal/config"
	"github.com/satishbabariya/loom/cli/internal/ui"
	"github.com/satishbabariya/loom/internal/debug"
	"github.com/satishbabariya/loom/schema"
)

// app carries global flags and the loaded configuration to subcommands.
type app struct {
	dir    string
	models string
	debug  bool

	cfg *config.Config
}

// NewRootCommand returns the loom command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "loom",
		Short: "Metadata-driven query builder and row mapper",
		Long: `loom renders and runs queries for entities declared in a models file.

Models are read from models.yaml (override with --models, models_path in
.loom.yaml or LOOM_MODELS_PATH). Connection settings come from the
DATABASE_* variables, optionally declared in .env and .env.local.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	cmd.PersistentFlags().StringVarP(&a.dir, "dir", "C", ".", "Project directory")
	cmd.PersistentFlags().StringVarP(&a.models, "models", "m", "", "Path to models file")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(
		newRenderCmd(a),
		newQueryCmd(a),
		newModelsCmd(a),
		newInitCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// Execute is the main entry point for the CLI
func Execute() error {
	if err := NewRootCommand().Execute(); err != nil {
		ui.PrintError("%v", err)
		return err
	}
	return nil
}

func (a *app) load() error {
	cfg, err := config.Load(a.dir)
	if err != nil {
		return err
	}
	if a.models != "" {
		cfg.ModelsPath = a.models
	}
	a.cfg = cfg
	debug.Init(a.debug || cfg.Debug)
	return nil
}

// registry loads the models file into a fresh registry.
func (a *app) registry() (*schema.Registry, error) {
	reg := schema.NewRegistry()
	if _, err := schema.LoadFile(config.AppFs, a.cfg.ModelsPath, reg); err != nil {
		return nil, err
	}
	if len(reg.Names()) == 0 {
		return nil, fmt.Errorf("%s declares no models", a.cfg.ModelsPath)
	}
	return reg, nil
}
