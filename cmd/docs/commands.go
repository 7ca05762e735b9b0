package docs

import (
	"fmt"
	"github.com/ValentinKolb/dDoc/rpc/lazy"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

var (
	loadCmd = &cobra.Command{
		Use:   "load [id...]",
		Short: "Loads documents by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			includes, _ := cmd.Flags().GetStringSlice("include")
			set, err := newScheduler().Load(args, includes...).Value(cmd.Context())
			if err != nil {
				return err
			}
			return printDocuments(set)
		},
	}
	startsWithCmd = &cobra.Command{
		Use:   "starts-with [prefix]",
		Short: "Lists the documents whose id starts with a prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			opts := &lazy.StartsWithOptions{
				Matches:    viper.GetString("matches"),
				Exclude:    viper.GetString("exclude"),
				Start:      viper.GetInt("start"),
				PageSize:   viper.GetInt("page-size"),
				StartAfter: viper.GetString("start-after"),
			}
			set, err := newScheduler().LoadStartingWith(args[0], opts).Value(cmd.Context())
			if err != nil {
				return err
			}
			return printDocuments(set)
		},
	}
	queryCmd = &cobra.Command{
		Use:   "query [query]",
		Short: "Executes a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := newScheduler().Query(&lazy.IndexQuery{Query: args[0]}).Value(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	lazyCmd = &cobra.Command{
		Use:   "lazy",
		Short: "Executes loads, prefix scans and queries in one round trip",
		RunE: func(cmd *cobra.Command, args []string) error {
			loads, _ := cmd.Flags().GetStringSlice("load")
			prefixes, _ := cmd.Flags().GetStringSlice("prefix")
			queries, _ := cmd.Flags().GetStringArray("query")
			if len(loads)+len(prefixes)+len(queries) == 0 {
				return fmt.Errorf("nothing to do, use --load, --prefix or --query")
			}

			s := newScheduler()
			results := make(map[string]any)
			record := func(name string, value any, err error) {
				if err != nil {
					results[name] = map[string]string{"error": err.Error()}
					return
				}
				results[name] = value
			}

			// every future reports its outcome into results
			if len(loads) > 0 {
				f := s.Load(loads)
				f.OnResolved(func(set *lazy.DocumentSet, err error) { record("load", set, err) })
			}
			for _, prefix := range prefixes {
				f := s.LoadStartingWith(prefix, nil)
				name := "starts-with " + prefix
				f.OnResolved(func(set *lazy.DocumentSet, err error) { record(name, set, err) })
			}
			for _, query := range queries {
				f := s.Query(&lazy.IndexQuery{Query: query})
				name := "query " + query
				f.OnResolved(func(result *lazy.QueryResult, err error) { record(name, result, err) })
			}

			pending := s.Pending()
			if err := s.Flush(cmd.Context()); err != nil {
				return err
			}

			fmt.Printf("executed %d lazy operations in one flush (session %s)\n", pending, s.ID())
			return printJSON(map[string]any{
				"results": results,
				"stats":   s.Stats(),
			})
		},
	}
)

func init() {
	loadCmd.Flags().StringSlice("include", nil, "Paths of documents to include (comma separated)")

	startsWithCmd.Flags().String("matches", "", "Wildcards the rest of the id has to match ('|' separated)")
	startsWithCmd.Flags().String("exclude", "", "Wildcards of ids to exclude ('|' separated)")
	startsWithCmd.Flags().Int("start", 0, "Number of documents to skip")
	startsWithCmd.Flags().Int("page-size", lazy.DefaultPageSize, "Maximum number of documents")
	startsWithCmd.Flags().String("start-after", "", "Skip all ids up to and including this one")

	lazyCmd.Flags().StringSlice("load", nil, "Ids to load (comma separated)")
	lazyCmd.Flags().StringSlice("prefix", nil, "Id prefixes to scan (comma separated)")
	lazyCmd.Flags().StringArray("query", nil, "Query to execute (repeatable)")
}

// printDocuments prints a document set as id -> document
func printDocuments(set *lazy.DocumentSet) error {
	out := make(map[string]any, len(set.IDs))
	for i, id := range set.IDs {
		out[id] = set.Documents[i]
	}
	if len(set.Includes) > 0 {
		included := make([]string, 0, len(set.Includes))
		for id := range set.Includes {
			included = append(included, id)
		}
		fmt.Printf("included: %s\n", strings.Join(included, ", "))
	}
	return printJSON(out)
}
