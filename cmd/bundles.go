package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kamal-hamza/lima-cli/internal/adapters/api"
	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/pkg/ui"
)

var (
	bundlesStatus    string
	bundlesOlderThan time.Duration
	bundlesDryRun    bool
)

var bundlesCmd = &cobra.Command{
	Use:     "bundles",
	Aliases: []string{"b", "bundle"},
	Short:   "Inspect and clean up uploaded bundles",
	Long: `Every bundle uploaded from this machine is recorded in a local journal
together with its fate: staged, consumed by an import, or discarded.

Staged bundles that were never imported still occupy space on the server.
Use prune to delete them.`,
}

var bundlesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List journaled bundles",
	Args:    cobra.NoArgs,
	RunE:    runBundlesList,
}

var bundlesPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete staged bundles that were never imported",
	Example: `  lima bundles prune
  lima bundles prune --older-than 1h --dry-run`,
	Args: cobra.NoArgs,
	RunE: runBundlesPrune,
}

var bundlesDiscardCmd = &cobra.Command{
	Use:   "discard <bundle-id>",
	Short: "Delete one staged bundle",
	Args:  cobra.ExactArgs(1),
	RunE:  runBundlesDiscard,
}

func init() {
	bundlesListCmd.Flags().StringVarP(&bundlesStatus, "status", "s", "", "Only show bundles with this status (staged, consumed, discarded)")
	bundlesPruneCmd.Flags().DurationVar(&bundlesOlderThan, "older-than", 24*time.Hour, "Only prune bundles older than this")
	bundlesPruneCmd.Flags().BoolVarP(&bundlesDryRun, "dry-run", "n", false, "Show what would be deleted")

	bundlesCmd.AddCommand(bundlesListCmd)
	bundlesCmd.AddCommand(bundlesPruneCmd)
	bundlesCmd.AddCommand(bundlesDiscardCmd)
}

func requireJournal() error {
	if bundleJournal == nil {
		return domain.NewValidationError("The bundle journal is disabled (journal_enabled in config)")
	}
	return nil
}

func runBundlesList(cmd *cobra.Command, args []string) error {
	if err := requireJournal(); err != nil {
		return fail("list bundles", err)
	}

	records, err := bundleJournal.List(getContext(cmd), domain.BundleStatus(strings.ToLower(bundlesStatus)))
	if err != nil {
		return fail("list bundles", err)
	}
	if flagJSON {
		if records == nil {
			records = []domain.BundleRecord{}
		}
		return printJSON(records)
	}
	if len(records) == 0 {
		printLine(ui.FormatInfo("No bundles recorded"))
		return nil
	}

	table := ui.NewTable([]ui.TableColumn{
		{Header: "BUNDLE"},
		{Header: "STATUS"},
		{Header: "FILES", Align: ui.AlignRight},
		{Header: "PROJECT"},
		{Header: "UPLOADED"},
	})
	for _, r := range records {
		files := fmt.Sprintf("%d", len(r.Files))
		if len(r.FailedFiles) > 0 {
			files += fmt.Sprintf(" (+%d rejected)", len(r.FailedFiles))
		}
		table.AddRow([]string{
			r.ID,
			ui.StatusBadge(string(r.Status)),
			files,
			ui.OrEmpty(r.ProjectID),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	printLine()
	fmt.Fprint(stdout, table.Render())
	printLine()
	return nil
}

func runBundlesPrune(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)
	if err := requireJournal(); err != nil {
		return fail("prune bundles", err)
	}

	stale, err := bundleJournal.Staged(ctx, bundlesOlderThan)
	if err != nil {
		return fail("prune bundles", err)
	}
	if len(stale) == 0 {
		printLine(ui.FormatSuccess("Nothing to prune"))
		return nil
	}

	pruned := 0
	for _, r := range stale {
		if bundlesDryRun {
			printLine(ui.FormatMuted(fmt.Sprintf("  would delete %s (%d files, %s)", r.ID, len(r.Files), r.CreatedAt.Local().Format("2006-01-02 15:04"))))
			continue
		}
		if err := discardBundle(ctx, r.ID); err != nil {
			printLine(ui.FormatWarning(fmt.Sprintf("%s: %s", r.ID, api.ErrorMessage(err))))
			continue
		}
		pruned++
		printLine(ui.FormatMuted("  deleted " + r.ID))
	}

	if !bundlesDryRun {
		printLine(ui.FormatSuccess(fmt.Sprintf("Pruned %d of %d bundles", pruned, len(stale))))
	}
	return nil
}

func runBundlesDiscard(cmd *cobra.Command, args []string) error {
	if err := discardBundle(getContext(cmd), args[0]); err != nil {
		return fail("discard bundle", err)
	}
	printLine(ui.FormatSuccess("Discarded bundle " + args[0]))
	return nil
}

// discardBundle deletes a bundle on the server and journals it. A bundle
// the server no longer knows counts as discarded.
func discardBundle(ctx context.Context, id string) error {
	if err := backend.DeleteBundle(ctx, id); err != nil && !api.IsNotFound(err) {
		return err
	}
	if bundleJournal != nil {
		if err := bundleJournal.MarkDiscarded(ctx, id); err != nil {
			logger.Warn("journal update failed", zap.String("bundle", id), zap.Error(err))
		}
	}
	return nil
}
