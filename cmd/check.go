package cmd

import (
	"context"

	"postershelf/config"
	"postershelf/shelf"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var checkCategories []string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Load every category and report catalog and poster health",
	Long: `Load each configured category in turn, wait for its posters and report
how many entries loaded and how many posters decoded.

Examples:
  postershelf check
  postershelf check --category action --category comedy`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		categories := checkCategories
		if len(categories) == 0 {
			categories = cfg.CategoryNames()
		}

		summary := runCheck(cmd.Context(), cfg, categories)
		logrus.Infof("Check complete: categories=%d entries=%d posters=%d missing=%d errors=%d",
			summary.categories, summary.entries, summary.posters, summary.entries-summary.posters, summary.errors)
		if summary.errors > 0 {
			logrus.Fatal("some catalogs failed to load")
		}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringSliceVar(&checkCategories, "category", nil, "Category to check (repeatable, default all)")
}

type checkSummary struct {
	categories int
	entries    int
	posters    int
	errors     int
}

func runCheck(ctx context.Context, cfg *config.Config, categories []string) checkSummary {
	s := shelf.New(cfg, nil)
	var summary checkSummary

	for _, category := range categories {
		summary.categories++
		logrus.Infof("Checking: %s", category)

		n, err := s.SelectSync(ctx, category, true)
		if err != nil {
			logrus.Errorf("Failed to load %s: %v", category, err)
			summary.errors++
			continue
		}

		posters := 0
		for _, e := range s.Catalog.Entries() {
			if _, ok := s.Poster(e); ok {
				posters++
			} else {
				logrus.Warnf("Poster missing for %q (%s)", e.Title, e.Poster)
			}
		}

		logrus.Infof("%s: %d entries, %d posters", category, n, posters)
		summary.entries += n
		summary.posters += posters
	}

	return summary
}
