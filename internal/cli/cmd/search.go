package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kiwix/kiwix-reader/internal/application/port"
	"github.com/kiwix/kiwix-reader/internal/cli/styles"
	"github.com/kiwix/kiwix-reader/internal/infrastructure/zim"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <zim> <query>...",
	Short: "Suggest articles by title",
	Long:  `List the articles of an archive whose title starts with the query.`,
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", zim.DefaultSearchLimit, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	app := GetApp()
	if app == nil {
		return fmt.Errorf("app not initialized")
	}

	archive, err := zim.Open(app.Ctx(), args[0], app.Config.Reader.ClusterCacheMB<<20)
	if err != nil {
		return err
	}
	defer func() { _ = archive.Close() }()

	query := strings.Join(args[1:], " ")
	results, err := archive.Search(app.Ctx(), query, searchLimit)
	if err != nil {
		return err
	}
	if searchJSON {
		if results == nil {
			results = []port.SearchResult{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	printSearchResults(cmd.OutOrStdout(), app.Theme, query, results)
	return nil
}

func printSearchResults(w io.Writer, theme *styles.Theme, query string, results []port.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, theme.Subtle.Render(fmt.Sprintf("No article title starts with %q.", query)))
		return
	}
	for i, r := range results {
		fmt.Fprintf(w, "%s %s\n    %s\n",
			theme.Subtle.Render(fmt.Sprintf("%2d.", i+1)),
			theme.Title.Render(r.Title),
			theme.Subtle.Render(r.URL))
	}
}
