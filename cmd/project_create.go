package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/lima-cli/internal/core/services"
	"github.com/kamal-hamza/lima-cli/pkg/ui"
)

var (
	createDescription string
	createTags        string
	createMainImage   string
)

var projectsCreateCmd = &cobra.Command{
	Use:     "create <name> [files...]",
	Aliases: []string{"new"},
	Short:   "Create a project, optionally filled from uploaded files",
	Long: `Create a new project. Files given after the name are uploaded as a bundle
first and imported into the project once it exists.

Tags are separated by commas, pipes or newlines and deduplicated ignoring case.

Examples:
  lima projects create "Benchy"
  lima projects create "Dragon" dragon.stl dragon.png --tags "print, PLA"
  lima projects create "Vase" *.png --main-image side.png -d "Spiral mode"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProjectsCreate,
}

func init() {
	projectsCreateCmd.Flags().StringVarP(&createDescription, "description", "d", "", "Project description")
	projectsCreateCmd.Flags().StringVarP(&createTags, "tags", "t", "", "Tags, separated by commas")
	projectsCreateCmd.Flags().StringVarP(&createMainImage, "main-image", "m", "", "File name to use as the main image")
}

func runProjectsCreate(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)
	req := services.CreateProjectRequest{
		Name:        args[0],
		Description: createDescription,
		TagText:     createTags,
	}

	var bundles *services.BundleSync
	if len(args) > 1 {
		b, state, err := stageFiles(ctx, args[1:], createMainImage, cmd.Flags().Changed("main-image"))
		if err != nil {
			return fail("upload bundle", err)
		}
		defer b.Close()
		bundles = b
		req.BundleID = state.BundleID
		req.MainImage = state.MainImage
	}

	res, err := importService.Create(ctx, req)
	if err != nil {
		var step *services.StepError
		if errors.As(err, &step) && step.Step == services.StepImport && res != nil {
			printLine(ui.FormatWarning("Project " + res.ProjectID + " was created but the files were not imported"))
			printLine(ui.FormatMuted("  Retry with: lima import " + res.ProjectID + " --bundle " + req.BundleID))
		}
		return fail("create project", unwrapStep(err))
	}

	if bundles != nil {
		bundles.Consume(res.ProjectID)
	}

	if flagJSON {
		return printJSON(res)
	}
	printLine(ui.FormatSuccess(fmt.Sprintf("Created project %s", res.ProjectID)))
	printLine(ui.FormatMuted("  Folder: " + res.FolderPath))
	if res.Imported {
		printLine(ui.FormatMuted("  Files imported"))
	}
	return nil
}

// unwrapStep drops the StepError wrapper so the server's message is shown
func unwrapStep(err error) error {
	var step *services.StepError
	if errors.As(err, &step) {
		return step.Err
	}
	return err
}
