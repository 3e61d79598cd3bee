package commands

import (
	"fmt"

	"github.com/conduit-lang/graphmap/internal/cli/ui"
	"github.com/spf13/cobra"
)

// NewTypesCommand creates the types command
func NewTypesCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "types [type]",
		Short: "List entity types or show one type's attributes",
		Args:  cobra.MaximumNArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return completeTypes(global)(cmd, args, toComplete)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(global)
			if err != nil {
				return err
			}
			defer s.logger.Sync() //nolint:errcheck

			out := cmd.OutOrStdout()
			opts := &ui.TableOptions{NoColor: s.noColor}

			if len(args) == 0 {
				table := ui.NewTable(out, []string{"name", "type", "attributes"}, opts)
				for _, name := range s.registry.List() {
					et, _ := s.registry.Lookup(name)
					table.AddValues(et.Name, et.Type(), len(et.Attributes()))
				}
				table.Render()
				return nil
			}

			et, err := s.lookup(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s <%s>\n\n", et.Name, et.Type())
			table := ui.NewTable(out, []string{"name", "association", "kind", "predicate", "target"}, opts)
			for _, attr := range et.Attributes() {
				kind, target := any(attr.Kind.String()), any(nil)
				if attr.IsAssociation() {
					kind = nil
					if t, err := attr.Target(); err == nil {
						target = t.Name
					}
				}
				table.AddValues(attr.Name, attr.Class.String(), kind, attr.Predicate(), target)
			}
			table.Render()
			return nil
		},
	}
}
