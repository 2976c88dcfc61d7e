package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/internal/core/services"
	"github.com/kamal-hamza/lima-cli/pkg/ui"
)

var (
	listQuery  string
	listLimit  int
	listCursor string
	listAll    bool
)

// projectsCmd groups the project commands
var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"p", "project"},
	Short:   "List, show and edit projects (alias: p)",
}

var projectsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List projects",
	Long: `List projects one page at a time, newest first as returned by the server.

Examples:
  lima projects list
  lima projects list --query dragon
  lima projects list --all --json
  lima projects list --cursor <next cursor>`,
	Args: cobra.NoArgs,
	RunE: runProjectsList,
}

var projectsShowCmd = &cobra.Command{
	Use:   "show [project-id]",
	Short: "Show a project with its assets and tags",
	Long:  `Show a project's details. Without an id a fuzzy finder lets you pick one.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProjectsShow,
}

func init() {
	projectsListCmd.Flags().StringVarP(&listQuery, "query", "q", "", "Search by name or description")
	projectsListCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Page size (1-200, default from config)")
	projectsListCmd.Flags().StringVar(&listCursor, "cursor", "", "Continue after this cursor")
	projectsListCmd.Flags().BoolVarP(&listAll, "all", "a", false, "Fetch every page")

	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsShowCmd)
	projectsCmd.AddCommand(projectsCreateCmd)
	projectsCmd.AddCommand(projectsEditCmd)
	projectsCmd.AddCommand(projectsDeleteCmd)
	projectsCmd.AddCommand(projectsExportCmd)
	projectsCmd.AddCommand(projectsStatsCmd)
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)

	if listAll {
		items, err := projectListService.FetchAll(ctx, listQuery)
		if err != nil {
			return fail("list projects", err)
		}
		if flagJSON {
			return printJSON(items)
		}
		renderProjectTable(items, nil)
		return nil
	}

	req := services.ListRequest{Limit: listLimit, Query: listQuery}
	if listCursor != "" {
		req.Cursor = &listCursor
	}
	page, err := projectListService.Execute(ctx, req)
	if err != nil {
		return fail("list projects", err)
	}
	if flagJSON {
		return printJSON(page)
	}
	renderProjectTable(page.Items, page.NextCursor)
	return nil
}

func renderProjectTable(items []domain.ProjectSummary, next *string) {
	if len(items) == 0 {
		if listQuery != "" {
			printLine(ui.FormatInfo(fmt.Sprintf("No projects match %q", listQuery)))
		} else {
			printLine(ui.FormatInfo("No projects found"))
			printLine(ui.FormatMuted("  Create one with: lima projects create \"My project\" files..."))
		}
		return
	}

	table := ui.NewTable([]ui.TableColumn{
		{Header: "ID"},
		{Header: "NAME", Width: 20, MaxWidth: 40},
		{Header: "DESCRIPTION", MaxWidth: 40},
		{Header: "TAGS"},
		{Header: "UPDATED"},
	})
	for _, p := range items {
		names := make([]string, len(p.Tags))
		for i, t := range p.Tags {
			names[i] = t.Name
		}
		table.AddRow([]string{
			p.ID,
			p.Name,
			domain.DescriptionOr(p.Description, ui.EmptyValue),
			strings.Join(names, ", "),
			displayTime(p.UpdatedAt),
		})
	}

	printLine()
	fmt.Fprint(stdout, table.Render())
	printLine()
	printLine(ui.FormatMuted(fmt.Sprintf("%d projects", len(items))))
	if next != nil && len(items) > 0 {
		printLine(ui.FormatMuted("More: lima projects list --cursor " + *next))
	}
}

func runProjectsShow(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)

	id, err := resolveProjectID(ctx, args)
	if err != nil {
		return fail("pick project", err)
	}
	p, err := projectService.Get(ctx, id)
	if err != nil {
		return fail("get project", err)
	}
	if flagJSON {
		return printJSON(p)
	}
	printLine(renderProjectDetail(p))
	return nil
}

// resolveProjectID returns the id argument, or asks the user to pick one
func resolveProjectID(ctx context.Context, args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0]), nil
	}
	if !isTerminal() {
		return "", domain.NewValidationError("Missing project id")
	}
	items, err := projectListService.FetchAll(ctx, "")
	if err != nil {
		return "", err
	}
	picked, err := pickProject(items)
	if err != nil {
		return "", err
	}
	return picked.ID, nil
}

// renderProjectDetail formats a project for the terminal
func renderProjectDetail(p *domain.Project) string {
	var s strings.Builder

	s.WriteString(ui.FormatTitle(ui.IconProject + " " + p.Name))
	s.WriteString("\n\n")
	s.WriteString(ui.RenderKeyValue("ID", p.ID) + "\n")
	s.WriteString(ui.RenderKeyValue("Folder", p.FolderPath) + "\n")
	s.WriteString(ui.RenderKeyValue("Description", domain.DescriptionOr(p.Description, ui.EmptyValue)) + "\n")
	s.WriteString(ui.RenderKeyValue("Created", displayTime(p.CreatedAt)) + "\n")
	s.WriteString(ui.RenderKeyValue("Updated", displayTime(p.UpdatedAt)) + "\n")
	if p.LastScannedAt != nil {
		s.WriteString(ui.RenderKeyValue("Scanned", displayTime(*p.LastScannedAt)) + "\n")
	}

	if len(p.Tags) > 0 {
		names := make([]string, len(p.Tags))
		colors := make([]string, len(p.Tags))
		for i, t := range p.Tags {
			names[i], colors[i] = t.Name, t.Color
		}
		s.WriteString(ui.RenderKeyValue("Tags", ui.TagChips(names, colors)) + "\n")
	}

	s.WriteString("\n")
	if len(p.Assets) == 0 {
		s.WriteString(ui.FormatMuted("No assets") + "\n")
		return s.String()
	}

	table := ui.NewTable([]ui.TableColumn{
		{Header: ""},
		{Header: "FILE"},
		{Header: "KIND"},
		{Header: "SIZE", Align: ui.AlignRight},
		{Header: "ID"},
	})
	for _, a := range p.Assets {
		marker := ""
		if p.MainImageID != nil && *p.MainImageID == a.ID {
			marker = ui.IconMain
		}
		table.AddRow([]string{marker, a.FilePath, string(a.Kind), domain.FormatBytes(a.SizeBytes), a.ID})
	}
	s.WriteString(table.Render())
	s.WriteString(ui.FormatMuted(fmt.Sprintf("%d assets, %s", len(p.Assets), domain.FormatBytes(p.TotalSize()))))
	return s.String()
}
