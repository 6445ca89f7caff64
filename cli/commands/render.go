package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/loom/cli/internal/ui"
	"github.com/satishbabariya/loom/cli/internal/watch"
	"github.com/satishbabariya/loom/query/builder"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		opts      queryOptions
		watchFile bool
	)

	cmd := &cobra.Command{
		Use:   "render <model>",
		Short: "Print the SQL and parameters of a query",
		Long: `Render builds a query for a model declared in the models file and prints
the SELECT statement with its ordered parameters. Nothing is executed.`,
		Example: `  loom render Package -a p -j 'PackageType:pt:p.packageType = pt.id' -w pt.name=Library
  loom render Role -a r --left-join Permission:pm --order r.id:desc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			render := func() error {
				return a.render(cmd.Context(), args[0], &opts)
			}
			if !watchFile {
				return render()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w, err := watch.NewWatcher(a.cfg.ModelsPath, 0, func() error {
				if err := render(); err != nil {
					ui.PrintError("%v", err)
				}
				return nil
			})
			if err != nil {
				return err
			}
			ui.PrintInfo("Watching %s (press Ctrl+C to stop)", a.cfg.ModelsPath)
			return w.Run(ctx)
		},
	}

	opts.bind(cmd)
	cmd.Flags().BoolVar(&watchFile, "watch", false, "Render again whenever the models file changes")
	return cmd
}

func (a *app) render(ctx context.Context, model string, opts *queryOptions) error {
	reg, err := a.registry()
	if err != nil {
		return err
	}
	b, err := builder.New(reg, model, opts.rootAlias(model))
	if err != nil {
		return err
	}
	if err := opts.apply(b); err != nil {
		return err
	}

	stmt := b.Render(ctx)
	if stmt.Err != nil {
		return fmt.Errorf("failed to render %s: %w", model, stmt.Err)
	}
	ui.PrintSQL(stmt.SQL, stmt.Args)
	return nil
}
