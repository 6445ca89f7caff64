package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/loom/cli/internal/ui"
	"github.com/satishbabariya/loom/schema"
)

func newModelsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models declared in the models file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}

			rows := make([][]string, 0)
			for _, name := range reg.Names() {
				d, err := reg.Get(name)
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					d.Name(),
					tableName(d),
					identifierColumn(d),
					strconv.Itoa(len(d.Properties())),
					strconv.Itoa(len(d.Collections())),
				})
			}
			return ui.PrintTable([]string{"Model", "Table", "Identifier", "Properties", "Collections"}, rows)
		},
	}

	cmd.AddCommand(newDescribeCmd(a))
	return cmd
}

func newDescribeCmd(a *app) *cobra.Command {
	var markdown bool

	cmd := &cobra.Command{
		Use:   "describe <model>",
		Short: "Show the property to column map of a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			d, err := reg.Get(args[0])
			if err != nil {
				return err
			}

			if markdown {
				return ui.PrintMarkdown(describeMarkdown(d))
			}

			ui.PrintInfo("%s (%s)", d.Name(), tableName(d))
			if err := ui.PrintTable([]string{"Property", "Column", "Kind", "Target"}, propertyRows(d)); err != nil {
				return err
			}
			if rows := collectionRows(d); len(rows) > 0 {
				return ui.PrintTable([]string{"Collection", "Target", "Join table", "Alias", "Local", "Foreign"}, rows)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&markdown, "markdown", false, "Render as markdown")
	return cmd
}

func tableName(d *schema.Descriptor) string {
	if !d.Complete() {
		return "(incomplete)"
	}
	return d.Qualified()
}

func identifierColumn(d *schema.Descriptor) string {
	col, err := d.IdentifierColumn()
	if err != nil {
		return "-"
	}
	return col
}

func propertyRows(d *schema.Descriptor) [][]string {
	props := d.Properties()
	rows := make([][]string, 0, len(props))
	for _, p := range props {
		name := p.Name()
		if p.IsIdentifier() {
			name += " (id)"
		}
		rows = append(rows, []string{name, p.Column(), p.Kind().String(), p.Target()})
	}
	return rows
}

func collectionRows(d *schema.Descriptor) [][]string {
	var rows [][]string
	for _, p := range d.Collections() {
		jt, _ := p.JoinTable()
		rows = append(rows, []string{p.Name(), p.Target(), jt.Qualified(), jt.Alias, jt.LocalColumn, jt.ForeignColumn})
	}
	return rows
}

func describeMarkdown(d *schema.Descriptor) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\nTable `%s`, identifier `%s`.\n\n", d.Name(), tableName(d), identifierColumn(d))

	sb.WriteString("| Property | Column | Kind | Target |\n|---|---|---|---|\n")
	for _, row := range propertyRows(d) {
		fmt.Fprintf(&sb, "| %s |\n", strings.Join(row, " | "))
	}

	if rows := collectionRows(d); len(rows) > 0 {
		sb.WriteString("\n## Collections\n\n| Collection | Target | Join table | Alias | Local | Foreign |\n|---|---|---|---|---|---|\n")
		for _, row := range rows {
			fmt.Fprintf(&sb, "| %s |\n", strings.Join(row, " | "))
		}
	}
	return sb.String()
}
