package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/lima-cli/internal/adapters/export"
	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/internal/core/services"
	"github.com/kamal-hamza/lima-cli/pkg/ui"
)

var (
	statsAssets bool
	statsHTML   string
	statsOpen   bool
	statsQuery  string
)

var projectsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show library statistics",
	Long: `Analyze the project library and display useful statistics.

Includes:
  - Project and tag counts
  - Top tags distribution
  - Monthly activity
  - Asset kinds and sizes (with --assets)

Examples:
  lima projects stats
  lima projects stats --assets
  lima projects stats --html stats.html --open`,
	Args: cobra.NoArgs,
	RunE: runProjectsStats,
}

func init() {
	projectsStatsCmd.Flags().BoolVar(&statsAssets, "assets", false, "Load every project to count assets (slower)")
	projectsStatsCmd.Flags().StringVar(&statsHTML, "html", "", "Also write charts to this HTML file")
	projectsStatsCmd.Flags().BoolVar(&statsOpen, "open", false, "Open the HTML file when done")
	projectsStatsCmd.Flags().StringVarP(&statsQuery, "query", "q", "", "Only include matching projects")
}

func runProjectsStats(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)

	stats, err := statsService.Execute(ctx, services.StatsRequest{
		Query:         statsQuery,
		IncludeAssets: statsAssets,
	})
	if err != nil {
		return fail("collect stats", err)
	}

	if statsHTML != "" {
		if err := writeStatsHTML(statsHTML, stats); err != nil {
			return fail("write charts", err)
		}
	}

	if flagJSON {
		return printJSON(stats)
	}
	renderStats(stats)

	if statsHTML != "" {
		printLine(ui.FormatSuccess("Charts written to " + statsHTML))
		if statsOpen {
			return OpenFile(statsHTML)
		}
	}
	return nil
}

func writeStatsHTML(path string, stats *services.LibraryStats) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return export.WriteStatsPage(f, stats)
}

func renderStats(stats *services.LibraryStats) {
	printLine()
	printLine(ui.FormatTitle("Library Analytics"))
	printLine()

	w := tabwriter.NewWriter(stdout, 0, 0, 4, ' ', 0)
	fmt.Fprintf(w, "%s\t%d\n", ui.StyleBold.Render("Projects:"), stats.Projects)
	fmt.Fprintf(w, "%s\t%d\n", ui.StyleBold.Render("Tags in use:"), len(stats.Tags))
	fmt.Fprintf(w, "%s\t%d\n", ui.StyleBold.Render("Untagged:"), stats.Untagged)
	fmt.Fprintf(w, "%s\t%d\n", ui.StyleBold.Render("With main image:"), stats.WithMainImage)
	if stats.IncludeAssets {
		fmt.Fprintf(w, "%s\t%s\n", ui.StyleBold.Render("Library size:"), domain.FormatBytes(stats.TotalBytes))
	}
	w.Flush()
	printLine()

	renderCounts("Activity (by month)", stats.Activity, 12, false)
	renderCounts("Top Tags", stats.Tags, 10, true)
	if stats.IncludeAssets {
		renderCounts("Assets by kind", stats.AssetsByKind, 0, false)
	}
}

// renderCounts prints a horizontal bar chart. limit 0 shows all rows;
// with head the first rows are kept, otherwise the last ones.
func renderCounts(title string, counts []services.Count, limit int, head bool) {
	if len(counts) == 0 {
		return
	}
	printLine(ui.StyleHeader.Render(title))

	if limit > 0 && len(counts) > limit {
		if head {
			counts = counts[:limit]
		} else {
			counts = counts[len(counts)-limit:]
		}
	}

	var maxValue int64
	labelWidth := 0
	for _, c := range counts {
		maxValue = max(maxValue, c.Value)
		labelWidth = max(labelWidth, len(c.Label))
	}

	const barWidth = 30
	for _, c := range counts {
		n := int(float64(c.Value) / float64(maxValue) * barWidth)
		if n == 0 && c.Value > 0 {
			n = 1
		}
		bar := ui.StyleAccent.Render(strings.Repeat("█", n))
		printLine(fmt.Sprintf("  %-*s %s %d", labelWidth, c.Label, bar, c.Value))
	}
	printLine()
}
