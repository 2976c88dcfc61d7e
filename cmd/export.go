package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/lima-cli/internal/adapters/export"
	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/pkg/config"
	"github.com/kamal-hamza/lima-cli/pkg/ui"
)

var (
	exportFormat string
	exportOutput string
	exportQuery  string
)

var projectsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the project listing to JSON, YAML or Parquet",
	Long: `Fetch every page of the project listing and write it to a file.

Without --output the file goes to the exports directory, named after the
current time. Use "-" to write to stdout.

Examples:
  lima projects export
  lima projects export --format parquet -o projects.parquet
  lima projects export --format yaml --query dragon -o -`,
	Args: cobra.NoArgs,
	RunE: runProjectsExport,
}

func init() {
	projectsExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Output format: "+strings.Join(config.ExportFormats, ", "))
	projectsExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file, or - for stdout")
	projectsExportCmd.Flags().StringVarP(&exportQuery, "query", "q", "", "Only export matching projects")
}

func runProjectsExport(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)

	format := exportFormat
	if format == "" {
		format = export.FormatJSON
		if appConfig != nil {
			format = appConfig.DefaultExportFormat
		}
	}
	format = strings.ToLower(format)
	if !slices.Contains(config.ExportFormats, format) {
		return fail("export", domain.NewValidationError(fmt.Sprintf("Unknown format %q (use %s)", format, strings.Join(config.ExportFormats, ", "))))
	}

	items, err := projectListService.FetchAll(ctx, exportQuery)
	if err != nil {
		return fail("list projects", err)
	}

	var buf bytes.Buffer
	if err := export.WriteProjects(&buf, format, items); err != nil {
		return fail("export", err)
	}

	if exportOutput == "-" {
		_, err := stdout.Write(buf.Bytes())
		return err
	}

	path := exportOutput
	if path == "" {
		name := fmt.Sprintf("projects-%s.%s", time.Now().Format("20060102-150405"), export.Extension(format))
		path = appDirs.GetExportPath(name)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fail("export", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fail("export", fmt.Errorf("failed to write %s: %w", path, err))
	}

	printLine(ui.FormatSuccess(fmt.Sprintf("Exported %d projects", len(items))))
	printLine(ui.FormatMuted("  " + path))
	return nil
}
