package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"postershelf/shelf"
	"postershelf/utils"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	catalogFormat    string
	catalogNoPosters bool
)

type catalogRow struct {
	Title     string `json:"title" yaml:"title"`
	IssueDate string `json:"issue_date" yaml:"issue_date"`
	Poster    string `json:"poster" yaml:"poster"`
	Cached    bool   `json:"cached" yaml:"cached"`
	Width     int    `json:"width,omitempty" yaml:"width,omitempty"`
	Height    int    `json:"height,omitempty" yaml:"height,omitempty"`
}

var catalogCmd = &cobra.Command{
	Use:   "catalog [category|url]",
	Short: "Load a catalog and its posters",
	Long: `Load a catalog by configured category name or URL, wait for every
poster fetch to finish and print the entries with their poster status.

Examples:
  postershelf catalog action
  postershelf catalog comedy --format json
  postershelf catalog http://127.0.0.1:3000/movies/adventure --no-posters`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		switch catalogFormat {
		case "table", "json", "yaml":
		default:
			logrus.Fatalf("unknown format: %s", catalogFormat)
		}

		cfg := loadConfig()
		s := shelf.New(cfg, nil)

		n, err := s.SelectSync(cmd.Context(), args[0], !catalogNoPosters)
		if err != nil {
			logrus.Fatalf("Failed to load catalog: %v", err)
		}
		logrus.Debugf("Loaded %d entries, %d posters cached", n, s.Cache.Len())

		if err := writeCatalog(os.Stdout, catalogRows(s), catalogFormat, isTerminal(os.Stdout)); err != nil {
			logrus.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)

	catalogCmd.Flags().StringVar(&catalogFormat, "format", "table", "Output format: table, json or yaml")
	catalogCmd.Flags().BoolVar(&catalogNoPosters, "no-posters", false, "Do not wait for poster fetches")
}

func catalogRows(s *shelf.Shelf) []catalogRow {
	entries := s.Catalog.Entries()
	rows := make([]catalogRow, 0, len(entries))
	for _, e := range entries {
		row := catalogRow{Title: e.Title, IssueDate: e.IssueDate, Poster: e.Poster}
		if img, ok := s.Poster(e); ok {
			row.Cached = true
			row.Width, row.Height = img.Width, img.Height
		}
		rows = append(rows, row)
	}
	return rows
}

func writeCatalog(w io.Writer, rows []catalogRow, format string, styled bool) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		return yaml.NewEncoder(w).Encode(rows)
	default:
		writeCatalogTable(w, rows, styled)
		return nil
	}
}

func writeCatalogTable(w io.Writer, rows []catalogRow, styled bool) {
	ok := func(s string) string { return s }
	missing := ok
	if styled {
		okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
		missingStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
		ok = func(s string) string { return okStyle.Render(s) }
		missing = func(s string) string { return missingStyle.Render(s) }
	}

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tRELEASED\tPOSTER")
	for _, r := range rows {
		status := missing("missing")
		if r.Cached {
			status = ok(fmt.Sprintf("%dx%d", r.Width, r.Height))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", utils.Truncate(r.Title, 48), r.IssueDate, status)
	}
	tw.Flush()
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
