package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/loom/cli/internal/ui"
	"github.com/satishbabariya/loom/internal/debug"
	"github.com/satishbabariya/loom/runtime/client"
	"github.com/satishbabariya/loom/schema"
	"github.com/satishbabariya/loom/telemetry"
)

func newQueryCmd(a *app) *cobra.Command {
	var (
		opts     queryOptions
		dump     bool
		collapse bool
		stats    bool
	)

	cmd := &cobra.Command{
		Use:   "query <model>",
		Short: "Run a query and print the mapped entities",
		Long: `Query builds a query like render, runs it against the configured database
and maps every row back to entities. Referenced entities are shown by
identifier; use --dump to print the full object graph.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			model := args[0]

			reg, err := a.registry()
			if err != nil {
				return err
			}
			dbConfig, err := a.cfg.Database()
			if err != nil {
				return err
			}

			rec, err := telemetry.New(&a.cfg.Telemetry)
			if err != nil {
				return err
			}
			clientOpts := []client.Option{
				client.WithLogger(debug.Logger()),
				client.WithTelemetry(rec),
			}
			if collapse {
				clientOpts = append(clientOpts, client.WithCollapse())
			}

			c, err := client.Open(ctx, reg, dbConfig, clientOpts...)
			if err != nil {
				return err
			}
			defer c.Close(ctx)

			b, err := c.Query(model, opts.rootAlias(model))
			if err != nil {
				return err
			}
			if err := opts.apply(b); err != nil {
				return err
			}

			entities, err := c.Get(ctx, b)
			if err != nil {
				return err
			}

			if dump {
				spew.Fdump(ui.Output, entities)
			} else if err := printEntities(reg, b.Entity(), entities); err != nil {
				return err
			}

			if stats {
				mem, ok := rec.(*telemetry.Memory)
				if !ok {
					ui.PrintWarning("Statistics need telemetry.type %s", telemetry.TypeMemory)
					return nil
				}
				return printStats(mem)
			}
			return nil
		},
	}

	opts.bind(cmd)
	cmd.Flags().BoolVar(&dump, "dump", false, "Dump entities with go-spew instead of a table")
	cmd.Flags().BoolVar(&collapse, "collapse", false, "Merge consecutive rows of the same root entity")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print execution statistics")
	return cmd
}

func printEntities(reg *schema.Registry, d *schema.Descriptor, entities []schema.Entity) error {
	if len(entities) == 0 {
		ui.PrintWarning("No %s rows", d.Name())
		return nil
	}

	props := d.Properties()
	collections := d.Collections()

	headers := make([]string, 0, len(props)+len(collections))
	for _, p := range props {
		headers = append(headers, p.Name())
	}
	for _, p := range collections {
		headers = append(headers, p.Name())
	}

	rows := make([][]string, 0, len(entities))
	for _, e := range entities {
		row := make([]string, 0, len(headers))
		for _, p := range props {
			row = append(row, formatProperty(reg, p, e))
		}
		for _, p := range collections {
			row = append(row, fmt.Sprintf("[%d]", len(p.Items(e))))
		}
		rows = append(rows, row)
	}
	return ui.PrintTable(headers, rows)
}

func formatProperty(reg *schema.Registry, p *schema.Property, e schema.Entity) string {
	if p.Kind() == schema.KindReference {
		ref := p.Reference(e)
		if ref == nil {
			return "NULL"
		}
		target, err := reg.Lookup(ref)
		if err != nil {
			return fmt.Sprintf("%T", ref)
		}
		id, ok, err := target.IdentifierValue(ref)
		if err != nil || !ok {
			return target.Name() + "#?"
		}
		return fmt.Sprintf("%s#%v", target.Name(), id)
	}

	v, ok := p.Value(e)
	if !ok {
		return ""
	}
	return formatValue(v)
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		if v.IsZero() {
			return "NULL"
		}
		return v.Format(time.DateTime)
	case bool:
		return strconv.FormatBool(v)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func printStats(rec *telemetry.Memory) error {
	rows := make([][]string, 0)
	for _, key := range rec.Keys() {
		s, _ := rec.Query(key)
		rows = append(rows, []string{
			key.Model,
			key.Operation,
			strconv.FormatInt(s.Success, 10),
			strconv.FormatInt(s.Failure, 10),
			strconv.FormatInt(s.Rows, 10),
			(time.Duration(s.Seconds * float64(time.Second))).String(),
		})
	}
	return ui.PrintTable([]string{"Model", "Operation", "Success", "Failure", "Rows", "Time"}, rows)
}
