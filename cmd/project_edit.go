package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/internal/core/services"
	"github.com/kamal-hamza/lima-cli/pkg/ui"
)

var (
	editName           string
	editDescription    string
	editMainImage      string
	editPickMainImage  bool
	editClearMainImage bool
	deleteYes          bool
)

var projectsEditCmd = &cobra.Command{
	Use:   "edit [project-id]",
	Short: "Rename a project, change its description or main image",
	Long: `Update a project. Only the fields you pass are changed.

Without any flag the name and description open in your editor as YAML.

Examples:
  lima projects edit p42 --name "Dragon v2"
  lima projects edit p42 --description ""
  lima projects edit p42 --main-image renders/side.png
  lima projects edit p42 --pick-main-image
  lima projects edit p42 --clear-main-image`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProjectsEdit,
}

var projectsDeleteCmd = &cobra.Command{
	Use:     "delete [project-id]",
	Aliases: []string{"rm"},
	Short:   "Delete a project and its files",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runProjectsDelete,
}

func init() {
	projectsEditCmd.Flags().StringVar(&editName, "name", "", "New project name")
	projectsEditCmd.Flags().StringVarP(&editDescription, "description", "d", "", "New description")
	projectsEditCmd.Flags().StringVarP(&editMainImage, "main-image", "m", "", "Asset id or file path of the new main image")
	projectsEditCmd.Flags().BoolVar(&editPickMainImage, "pick-main-image", false, "Choose the main image interactively")
	projectsEditCmd.Flags().BoolVar(&editClearMainImage, "clear-main-image", false, "Remove the main image")
	projectsEditCmd.MarkFlagsMutuallyExclusive("main-image", "pick-main-image", "clear-main-image")

	projectsDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Do not ask for confirmation")
}

func runProjectsEdit(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)

	id, err := resolveProjectID(ctx, args)
	if err != nil {
		return fail("pick project", err)
	}

	flags := cmd.Flags()
	if !flags.Changed("name") && !flags.Changed("description") && !flags.Changed("main-image") &&
		!editPickMainImage && !editClearMainImage {
		return editInEditor(ctx, id)
	}

	var patch domain.ProjectPatch
	if flags.Changed("name") {
		patch.Name = &editName
	}
	if flags.Changed("description") {
		patch.Description = &editDescription
	}

	switch {
	case editClearMainImage:
		patch.MainImageID = domain.Null[string]()
	case editPickMainImage, flags.Changed("main-image"):
		p, err := projectService.Get(ctx, id)
		if err != nil {
			return fail("get project", err)
		}
		var asset domain.Asset
		if editPickMainImage {
			asset, err = pickAsset("main image> ", p.ImageAssets())
		} else {
			asset, err = services.ResolveAsset(p, editMainImage)
		}
		if err != nil {
			return fail("choose main image", err)
		}
		patch.MainImageID = domain.Some(asset.ID)
	}

	if err := projectService.Update(ctx, id, patch); err != nil {
		return fail("update project", err)
	}
	printLine(ui.FormatSuccess("Updated project " + id))
	return nil
}

// editableProject is the document opened in the editor
type editableProject struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

func editInEditor(ctx context.Context, id string) error {
	p, err := projectService.Get(ctx, id)
	if err != nil {
		return fail("get project", err)
	}
	before := editableProject{Name: p.Name, Description: domain.DescriptionOr(p.Description, "")}

	data, err := yaml.Marshal(before)
	if err != nil {
		return fail("edit project", err)
	}
	f, err := os.CreateTemp("", "lima-project-*.yaml")
	if err != nil {
		return fail("edit project", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fail("edit project", err)
	}
	f.Close()

	if err := OpenEditor(f.Name()); err != nil {
		return fail("edit project", err)
	}

	edited, err := os.ReadFile(f.Name())
	if err != nil {
		return fail("edit project", err)
	}
	var after editableProject
	if err := yaml.Unmarshal(edited, &after); err != nil {
		return fail("edit project", fmt.Errorf("invalid YAML: %w", err))
	}

	patch := diffProject(before, after)
	if patch.IsEmpty() {
		printLine(ui.FormatInfo("No changes"))
		return nil
	}
	if err := projectService.Update(ctx, id, patch); err != nil {
		return fail("update project", err)
	}
	printLine(ui.FormatSuccess("Updated project " + id))
	return nil
}

// diffProject returns a patch with the fields that changed
func diffProject(before, after editableProject) domain.ProjectPatch {
	var patch domain.ProjectPatch
	if name := strings.TrimSpace(after.Name); name != before.Name {
		patch.Name = &name
	}
	if desc := strings.TrimRight(after.Description, "\n"); desc != before.Description {
		patch.Description = &desc
	}
	return patch
}

func runProjectsDelete(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)

	id, err := resolveProjectID(ctx, args)
	if err != nil {
		return fail("pick project", err)
	}
	p, err := projectService.Get(ctx, id)
	if err != nil {
		return fail("get project", err)
	}

	if !deleteYes {
		printLine(ui.FormatWarning(fmt.Sprintf("This deletes %q and its %d files (%s) from the library.",
			p.Name, len(p.Assets), domain.FormatBytes(p.TotalSize()))))
		if !confirm("Delete project?") {
			printLine(ui.FormatInfo("Cancelled"))
			return nil
		}
	}

	if err := projectService.DeleteProject(ctx, id); err != nil {
		return fail("delete project", err)
	}
	printLine(ui.FormatSuccess("Deleted project " + p.Name))
	return nil
}
