package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/internal/core/services"
	"github.com/kamal-hamza/lima-cli/pkg/ui"
)

var (
	importMainImage string
	importBundleID  string
	importWatchDir  string
)

var importCmd = &cobra.Command{
	Use:   "import <project-id> [files...]",
	Short: "Upload files and import them into a project",
	Long: `Upload files into a bundle and import the bundle into an existing project.

The first image is proposed as the new main image; pass --main-image to pick
another one, or --main-image "" to leave the project's main image alone.

With --watch the directory is monitored: files that appear are added to the
bundle and files that disappear are removed. The bundle is re-uploaded after
each change. Press Enter to import, Ctrl+C to abort.

Examples:
  lima import p42 cover.png body.stl
  lima import p42 renders/*.png --main-image side.png
  lima import p42 --bundle b17
  lima import p42 --watch ./out`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importMainImage, "main-image", "m", "", "File name to use as the main image")
	importCmd.Flags().StringVar(&importBundleID, "bundle", "", "Import an already uploaded bundle")
	importCmd.Flags().StringVarP(&importWatchDir, "watch", "w", "", "Watch a directory and keep the bundle in sync")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)
	projectID := args[0]
	mainImageSet := cmd.Flags().Changed("main-image")

	switch {
	case importBundleID != "":
		if err := importService.Execute(ctx, services.ImportRequest{
			ProjectID: projectID,
			BundleID:  importBundleID,
			MainImage: importMainImage,
		}); err != nil {
			return fail("import bundle", err)
		}
		printLine(ui.FormatSuccess("Imported bundle " + importBundleID))
		return nil

	case importWatchDir != "":
		return runImportWatch(ctx, projectID, mainImageSet)
	}

	if len(args) < 2 {
		return fail("import", domain.NewValidationError("No files selected"))
	}

	bundles, state, err := stageFiles(ctx, args[1:], importMainImage, mainImageSet)
	if err != nil {
		return fail("upload bundle", err)
	}
	defer bundles.Close()

	return importStaged(ctx, bundles, projectID, state)
}

// newBundleSync creates the upload workflow with the configured debounce
func newBundleSync(ctx context.Context) *services.BundleSync {
	delay := services.DefaultUploadDebounce
	if appConfig != nil {
		delay = appConfig.UploadDebounce()
	}
	return services.NewBundleSync(ctx, backend, bundleJournal, delay, logger)
}

// stageFiles uploads paths as one bundle and waits for the result
func stageFiles(ctx context.Context, paths []string, mainImage string, mainImageSet bool) (*services.BundleSync, services.BundleState, error) {
	files, err := services.InspectFiles(paths)
	if err != nil {
		return nil, services.BundleState{}, err
	}

	bundles := newBundleSync(ctx)
	bundles.Add(files...)
	if mainImageSet {
		if err := bundles.SetMainImage(strings.TrimSpace(mainImage)); err != nil {
			bundles.Clear()
			bundles.Close()
			return nil, services.BundleState{}, err
		}
	}

	printLine(ui.FormatUpload(fmt.Sprintf("Uploading %d files...", len(files))))
	bundles.Flush()
	state, err := bundles.Wait(ctx)
	if err == nil && state.Status == services.UploadFailed {
		err = state.Err
	}
	if err != nil {
		bundles.Close()
		return nil, state, err
	}

	reportBundle(state)
	return bundles, state, nil
}

// reportBundle prints what the server accepted
func reportBundle(state services.BundleState) {
	printLine(ui.FormatSuccess(fmt.Sprintf("Bundle %s ready (%d files)", state.BundleID, len(state.Files))))
	for _, name := range state.FailedFiles {
		printLine(ui.FormatWarning("Rejected by server: " + name))
	}
	if state.MainImage != "" {
		printLine(ui.FormatMuted("  Main image: " + state.MainImage))
	}
}

// importStaged imports a ready bundle and consumes it
func importStaged(ctx context.Context, bundles *services.BundleSync, projectID string, state services.BundleState) error {
	err := importService.Execute(ctx, services.ImportRequest{
		ProjectID: projectID,
		BundleID:  state.BundleID,
		MainImage: state.MainImage,
	})
	if err != nil {
		printLine(ui.FormatMuted("  The bundle is kept. Retry with: lima import " + projectID + " --bundle " + state.BundleID))
		return fail("import bundle", err)
	}
	bundles.Consume(projectID)
	printLine(ui.FormatSuccess(fmt.Sprintf("Imported %d files into %s", len(state.Files), projectID)))
	return nil
}

func runImportWatch(ctx context.Context, projectID string, mainImageSet bool) error {
	dir, err := filepath.Abs(importWatchDir)
	if err != nil {
		return fail("watch", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fail("watch", fmt.Errorf("failed to create watcher: %w", err))
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fail("watch", fmt.Errorf("failed to watch %s: %w", dir, err))
	}

	bundles := newBundleSync(ctx)
	defer bundles.Close()
	bundles.Subscribe(func(s services.BundleState) {
		switch s.Status {
		case services.UploadPending:
			printLine(ui.FormatUpload(fmt.Sprintf("%d files selected, uploading...", len(s.Selected))))
		case services.UploadReady:
			reportBundle(s)
		case services.UploadFailed:
			printLine(ui.FormatError(fail("upload bundle", s.Err).Error()))
		}
	})

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fail("watch", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			addWatchedFile(bundles, filepath.Join(dir, e.Name()))
		}
	}
	if mainImageSet {
		if err := bundles.SetMainImage(strings.TrimSpace(importMainImage)); err != nil {
			printLine(ui.FormatWarning(err.Error()))
		}
	}

	printLine(ui.FormatInfo("Watching " + dir))
	printLine(ui.FormatMuted("  Press Enter to import, Ctrl+C to abort"))

	enter := make(chan struct{})
	go func() {
		_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
		close(enter)
	}()

	for {
		select {
		case <-ctx.Done():
			bundles.Clear()
			bundles.Close()
			printLine(ui.FormatWarning("Aborted, bundle discarded"))
			return nil

		case <-enter:
			bundles.Flush()
			state, err := bundles.Wait(ctx)
			if err != nil {
				return fail("upload bundle", err)
			}
			if !state.Ready() {
				return fail("import", domain.NewValidationError("Nothing to import"))
			}
			return importStaged(ctx, bundles, projectID, state)

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				addWatchedFile(bundles, event.Name)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				if bundles.RemovePath(event.Name) {
					printLine(ui.FormatMuted("  - " + filepath.Base(event.Name)))
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// addWatchedFile adds a file from the watched directory. A rewritten file
// has a new size or modification time, so the old entry is replaced.
func addWatchedFile(bundles *services.BundleSync, path string) {
	f, err := services.InspectFile(path)
	if err != nil {
		// Directories and files that vanished again
		return
	}
	if strings.HasPrefix(f.Name, ".") {
		return
	}
	bundles.RemovePath(path)
	if bundles.Add(f) > 0 {
		printLine(ui.FormatMuted("  + " + f.Name))
	}
}
