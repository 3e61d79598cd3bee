package commands

import (
	"fmt"

	"github.com/conduit-lang/graphmap/internal/cli/ui"
	"github.com/conduit-lang/graphmap/internal/logging"
	"github.com/conduit-lang/graphmap/internal/orm/model"
	"github.com/conduit-lang/graphmap/internal/orm/schema"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewQueryCommand creates the query command
func NewQueryCommand(global *globalOptions) *cobra.Command {
	flags := &queryFlags{}

	cmd := &cobra.Command{
		Use:   "query [template]",
		Short: "Run a query against the configured store",
		Long: `Run a query against the store selected by store.kind in graphmap.yaml and
print the matching records. Properties and belongs_to keys are shown; has_many
associations are not expanded.`,
		Example: `  graphmap query --type Person 'age >= 18' --limit 10
  graphmap query --type Person --where company=urn:company:1
  graphmap query --type Person --include company`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(global)
			if err != nil {
				return err
			}
			defer s.logger.Sync() //nolint:errcheck

			et, err := s.lookup(flags.typeName)
			if err != nil {
				return err
			}
			template := ""
			if len(args) == 1 {
				template = args[0]
			}
			opts, err := flags.options(s, et, template)
			if err != nil {
				return err
			}

			adapter, closer, err := s.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closer.Close()

			mapper := model.NewMapper(s.registry, model.WithDefaultAdapter(adapter), model.WithLogger(s.logger))
			c, err := mapper.All(et, opts...)
			if err != nil {
				return err
			}
			return printCollection(cmd, s, et, c)
		},
	}

	flags.register(cmd, global)
	return cmd
}

// columns returns the attributes stored on the record itself
func columns(et *schema.EntityType) []*schema.Attribute {
	cols := make([]*schema.Attribute, 0)
	for _, attr := range et.Attributes() {
		if attr.IsProperty() || attr.IsBelongsTo() {
			cols = append(cols, attr)
		}
	}
	return cols
}

func printCollection(cmd *cobra.Command, s *session, et *schema.EntityType, c *model.Collection) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cols := columns(et)
	headers := []string{schema.IDAttribute}
	for _, attr := range cols {
		headers = append(headers, attr.Name)
	}
	table := ui.NewTable(out, headers, &ui.TableOptions{NoColor: s.noColor})

	err := c.Each(ctx, func(_ int, e *model.Entity) error {
		if err := e.Load(ctx); err != nil {
			return err
		}
		attrs := e.Attributes()
		row := []any{e.ID()}
		for _, attr := range cols {
			row = append(row, attrs[attr.Name])
		}
		table.AddValues(row...)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("query printed",
		zap.String(logging.FieldType, et.Name),
		zap.Int(logging.FieldCount, table.Len()))

	table.Render()
	fmt.Fprintf(out, "\n%d %s\n", table.Len(), plural(table.Len(), "record", "records"))
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
