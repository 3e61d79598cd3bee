package commands

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/graphmap/internal/cli/ui"
	"github.com/conduit-lang/graphmap/internal/orm/model"
	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
	"github.com/conduit-lang/graphmap/internal/orm/query"
	"github.com/conduit-lang/graphmap/internal/orm/store/sparqlstore"
	"github.com/spf13/cobra"
)

// NewExplainCommand creates the explain command
func NewExplainCommand(global *globalOptions) *cobra.Command {
	flags := &queryFlags{}

	cmd := &cobra.Command{
		Use:   "explain [template]",
		Short: "Show how a query is normalized and translated",
		Long: `Parse a query and print its condition tree, the parameterized filter used
by relational stores, the graph pattern, and the SPARQL SELECT it renders to.

No store is contacted.`,
		Example: `  # Template with nested groups
  graphmap explain --type Person 'age > 30 AND (name = "Ann" OR name = "Bob")'

  # Membership binds a comma separated --arg
  graphmap explain --type Person 'name IN (?)' --arg Ann,Bob

  # Structured conditions
  graphmap explain --type Person --where name=Ann --where company=urn:company:1

  # Named scope from graphmap.yaml
  graphmap explain --type Person --scope named --arg Ann,Bob`,
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
			// association keys resolve through the mapper without a fetch
			q, err := model.NewMapper(s.registry, model.WithLogger(s.logger)).Query(et, opts...)
			if err != nil {
				return err
			}
			return explain(cmd, q, s.noColor)
		},
	}

	flags.register(cmd, global)
	return cmd
}

func explain(cmd *cobra.Command, q *query.Query, noColor bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	summary := ui.NewKeyValueTable(out, noColor)
	summary.AddRow("type", fmt.Sprintf("%s <%s>", q.EntityType().Name, q.EntityType().Type()))
	summary.AddRow("combinator", q.Combinator().String())
	if id := q.ID(); id != "" {
		summary.AddRow("id", id)
	}
	if q.Limit() > 0 {
		summary.AddRow("limit", fmt.Sprint(q.Limit()))
	}
	if q.Offset() > 0 {
		summary.AddRow("offset", fmt.Sprint(q.Offset()))
	}
	if len(q.Includes()) > 0 {
		summary.AddRow("include", strings.Join(q.Includes(), ", "))
	}
	summary.Render()
	fmt.Fprintln(out)

	conditions := ui.NewSection(out, "Conditions", noColor)
	if tree := q.String(); tree != "" {
		conditions.AddLine(tree)
	}
	conditions.Render()

	filter, err := q.ToParameterizedFilter(ctx)
	if err != nil {
		return err
	}
	filterSection := ui.NewSection(out, "Parameterized filter", noColor)
	if !filter.Empty() {
		filterSection.AddLine(filter.String())
		filterSection.AddLine("args: " + formatArgs(filter.Args))
	}
	filterSection.Render()

	statements, _, err := q.ToGraphPattern(ctx)
	if err != nil {
		return err
	}
	pattern := ui.NewSection(out, "Graph pattern", noColor)
	for _, st := range statements {
		pattern.AddLine(st.String())
	}
	pattern.Render()

	sparql := ui.NewSection(out, "SPARQL", noColor)
	sel, _, err := sparqlstore.BuildSelect(ctx, q)
	switch {
	case ormerrors.IsUnsupported(err):
		sparql.AddLine("not expressible: " + err.Error())
	case err != nil:
		return err
	default:
		sparql.AddLines(sel)
	}
	sparql.Render()
	return nil
}

func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		if items, ok := arg.([]any); ok {
			inner := make([]string, len(items))
			for j, item := range items {
				inner[j] = ui.Cell(item)
			}
			parts[i] = "[" + strings.Join(inner, " ") + "]"
			continue
		}
		parts[i] = ui.Cell(arg)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
