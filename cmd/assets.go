package cmd

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/lima-cli/internal/adapters/api"
	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/internal/core/services"
	"github.com/kamal-hamza/lima-cli/pkg/ui"
)

var (
	assetsKind      string
	assetsYes       bool
	assetsClearMain bool
	assetsThumb     bool
	assetsCopy      bool
	assetsOutput    string
	assetsOpen      bool
)

var assetsCmd = &cobra.Command{
	Use:     "assets",
	Aliases: []string{"a", "asset"},
	Short:   "Inspect and manage the files of a project",
	Long: `Work with the files (assets) of a project.

Assets can be referred to by id, by file path inside the project, or by
base name when it is unique. Leave the asset out to pick one interactively.`,
}

var assetsListCmd = &cobra.Command{
	Use:     "list [project-id]",
	Aliases: []string{"ls"},
	Short:   "List a project's assets",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runAssetsList,
}

var assetsDeleteCmd = &cobra.Command{
	Use:     "delete <project-id> [asset]",
	Aliases: []string{"rm"},
	Short:   "Delete an asset from a project",
	Args:    cobra.RangeArgs(1, 2),
	RunE:    runAssetsDelete,
}

var assetsMainCmd = &cobra.Command{
	Use:   "main <project-id> [image]",
	Short: "Set or clear a project's main image",
	Example: `  lima assets main p42 cover.png
  lima assets main p42            # pick from the project's images
  lima assets main p42 --clear`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAssetsMain,
}

var assetsURLCmd = &cobra.Command{
	Use:   "url <project-id> [asset]",
	Short: "Print the media URL of an asset",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runAssetsURL,
}

var assetsFetchCmd = &cobra.Command{
	Use:   "fetch <project-id> [asset]",
	Short: "Download an asset or its thumbnail",
	Example: `  lima assets fetch p42 body.stl -o body.stl
  lima assets fetch p42 cover.png --thumb -o cover-thumb.jpg`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAssetsFetch,
}

var assetsGalleryCmd = &cobra.Command{
	Use:   "gallery [project-id]",
	Short: "Open an HTML gallery of a project's images",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAssetsGallery,
}

func init() {
	assetsListCmd.Flags().StringVarP(&assetsKind, "kind", "k", "", "Only show assets of this kind (image, model, other)")
	assetsDeleteCmd.Flags().BoolVarP(&assetsYes, "yes", "y", false, "Do not ask for confirmation")
	assetsMainCmd.Flags().BoolVar(&assetsClearMain, "clear", false, "Remove the main image")
	assetsURLCmd.Flags().BoolVar(&assetsThumb, "thumb", false, "Thumbnail URL instead of the original file")
	assetsURLCmd.Flags().BoolVarP(&assetsCopy, "copy", "c", false, "Copy the URL to the clipboard")
	assetsFetchCmd.Flags().BoolVar(&assetsThumb, "thumb", false, "Download the thumbnail instead of the original file")
	assetsFetchCmd.Flags().StringVarP(&assetsOutput, "output", "o", "", "Output file (default: the asset's base name)")
	assetsGalleryCmd.Flags().BoolVar(&assetsOpen, "open", true, "Open the gallery in the browser")

	assetsCmd.AddCommand(assetsListCmd)
	assetsCmd.AddCommand(assetsDeleteCmd)
	assetsCmd.AddCommand(assetsMainCmd)
	assetsCmd.AddCommand(assetsURLCmd)
	assetsCmd.AddCommand(assetsFetchCmd)
	assetsCmd.AddCommand(assetsGalleryCmd)
}

// mediaClient returns the HTTP client used for media URLs
func mediaClient() *api.Client {
	if apiClient != nil {
		return apiClient
	}
	base := ""
	if appConfig != nil {
		base = appConfig.APIURL
	}
	return api.NewClient(base, api.WithLogger(logger))
}

// resolveAsset loads a project and finds the referenced asset, or lets the
// user pick one from candidates when ref is empty
func resolveAsset(ctx context.Context, projectID, ref, prompt string, candidates func(*domain.Project) []domain.Asset) (*domain.Project, domain.Asset, error) {
	p, err := projectService.Get(ctx, projectID)
	if err != nil {
		return nil, domain.Asset{}, err
	}
	if strings.TrimSpace(ref) != "" {
		a, err := services.ResolveAsset(p, strings.TrimSpace(ref))
		return p, a, err
	}
	if !isTerminal() {
		return p, domain.Asset{}, domain.NewValidationError("Missing asset")
	}
	a, err := pickAsset(prompt, candidates(p))
	return p, a, err
}

func allAssets(p *domain.Project) []domain.Asset { return p.Assets }

func imageAssets(p *domain.Project) []domain.Asset { return p.ImageAssets() }

func assetArg(args []string) string {
	if len(args) > 1 {
		return args[1]
	}
	return ""
}

func runAssetsList(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)

	id, err := resolveProjectID(ctx, args)
	if err != nil {
		return fail("pick project", err)
	}
	p, err := projectService.Get(ctx, id)
	if err != nil {
		return fail("get project", err)
	}

	assets := p.Assets
	if assetsKind != "" {
		kind := domain.ParseAssetKind(assetsKind)
		assets = nil
		for _, a := range p.Assets {
			if a.Kind == kind {
				assets = append(assets, a)
			}
		}
	}
	if flagJSON {
		if assets == nil {
			assets = []domain.Asset{}
		}
		return printJSON(assets)
	}

	filtered := *p
	filtered.Assets = assets
	printLine(renderProjectDetail(&filtered))
	return nil
}

func runAssetsDelete(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)

	p, asset, err := resolveAsset(ctx, args[0], assetArg(args), "delete> ", allAssets)
	if err != nil {
		return fail("find asset", err)
	}

	if !assetsYes {
		msg := fmt.Sprintf("Delete %s (%s) from %q?", asset.FilePath, domain.FormatBytes(asset.SizeBytes), p.Name)
		if p.MainImageID != nil && *p.MainImageID == asset.ID {
			printLine(ui.FormatWarning("This is the project's main image"))
		}
		if !confirm(msg) {
			printLine(ui.FormatInfo("Cancelled"))
			return nil
		}
	}

	if err := projectService.DeleteAsset(ctx, p.ID, asset.ID); err != nil {
		return fail("delete asset", err)
	}
	printLine(ui.FormatSuccess("Deleted " + asset.FilePath))
	return nil
}

func runAssetsMain(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)
	projectID := args[0]

	if assetsClearMain {
		if err := projectService.ClearMainImage(ctx, projectID); err != nil {
			return fail("clear main image", err)
		}
		printLine(ui.FormatSuccess("Main image cleared"))
		return nil
	}

	_, asset, err := resolveAsset(ctx, projectID, assetArg(args), "main image> ", imageAssets)
	if err != nil {
		return fail("find image", err)
	}
	if err := projectService.SetMainImage(ctx, projectID, asset.ID); err != nil {
		return fail("set main image", err)
	}
	printLine(ui.FormatSuccess("Main image set to " + asset.FilePath))
	return nil
}

func runAssetsURL(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)

	p, asset, err := resolveAsset(ctx, args[0], assetArg(args), "asset> ", allAssets)
	if err != nil {
		return fail("find asset", err)
	}

	url := mediaClient().AssetMediaURL(p, asset, assetsThumb)
	printLine(url)
	if assetsCopy {
		if err := clipboard.WriteAll(url); err != nil {
			printLine(ui.FormatMuted("(Clipboard access failed)"))
		} else {
			printLine(ui.FormatMuted("(Copied)"))
		}
	}
	return nil
}

func runAssetsFetch(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)

	p, asset, err := resolveAsset(ctx, args[0], assetArg(args), "asset> ", allAssets)
	if err != nil {
		return fail("find asset", err)
	}

	path, fallback := api.LibraryPath(p.FolderPath, asset.FilePath), api.ImageFallbackLabel
	if assetsThumb {
		path, fallback = api.ThumbPath(p.ID, asset.ID), api.ThumbFallbackLabel
	}
	media := mediaClient().FetchMedia(ctx, path, fallback)
	if media.Failed {
		printLine(ui.FormatWarning("[" + media.Label + "]"))
		return fail("fetch media", errors.New(media.Label))
	}

	out := assetsOutput
	if out == "" {
		out = asset.Name()
		if assetsThumb {
			out = asset.ID + ".jpg"
		}
	}
	if err := os.WriteFile(out, media.Data, 0644); err != nil {
		return fail("fetch media", fmt.Errorf("failed to write %s: %w", out, err))
	}
	printLine(ui.FormatSuccess(fmt.Sprintf("Saved %s (%s)", out, domain.FormatBytes(int64(len(media.Data))))))
	return nil
}

func runAssetsGallery(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)

	id, err := resolveProjectID(ctx, args)
	if err != nil {
		return fail("pick project", err)
	}
	p, err := projectService.Get(ctx, id)
	if err != nil {
		return fail("get project", err)
	}
	images := p.ImageAssets()
	if len(images) == 0 {
		printLine(ui.FormatInfo("No images in " + p.Name))
		return nil
	}

	path := appDirs.GetExportPath("gallery-" + p.ID + ".html")
	if err := os.MkdirAll(appDirs.ExportsPath, 0755); err != nil {
		return fail("write gallery", err)
	}
	if err := os.WriteFile(path, []byte(renderGallery(mediaClient(), p, images)), 0644); err != nil {
		return fail("write gallery", err)
	}
	printLine(ui.FormatSuccess(fmt.Sprintf("Gallery of %d images written to %s", len(images), path)))
	if assetsOpen {
		return OpenFile(path)
	}
	return nil
}

// renderGallery builds a page of thumbnails linking to the original files.
// A thumbnail that fails to load is replaced by its fallback label.
func renderGallery(client *api.Client, p *domain.Project, images []domain.Asset) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>` + html.EscapeString(p.Name) + `</title>
	<style>
		body { font-family: sans-serif; background: #1a1b26; color: #a9b1d6; padding: 20px; }
		.grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(200px, 1fr)); gap: 20px; }
		.card { background: #24283b; border-radius: 8px; padding: 10px; }
		.card.main { outline: 2px solid #e0af68; }
		.card img { width: 100%; height: 150px; object-fit: contain; background: #000; }
		.fallback { height: 150px; display: none; align-items: center; justify-content: center; background: #000; color: #f7768e; font-weight: bold; }
		.title { color: #7aa2f7; font-weight: bold; display: block; margin-top: 5px; word-break: break-all; }
		.desc { font-size: 0.9em; margin-top: 5px; display: block; }
	</style></head><body><h1>` + html.EscapeString(p.Name) + `</h1><div class="grid">`)

	for _, a := range images {
		class := "card"
		if p.MainImageID != nil && *p.MainImageID == a.ID {
			class += " main"
		}
		fmt.Fprintf(&b, `
		<div class="%s">
			<a href="%s" target="_blank"><img src="%s" loading="lazy" onerror="this.style.display='none';this.nextElementSibling.style.display='flex'"><div class="fallback">%s</div></a>
			<span class="title">%s</span>
			<span class="desc">%s</span>
		</div>`,
			class,
			html.EscapeString(client.AssetMediaURL(p, a, false)),
			html.EscapeString(client.AssetMediaURL(p, a, true)),
			api.ThumbFallbackLabel,
			html.EscapeString(a.FilePath),
			domain.FormatBytes(a.SizeBytes),
		)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}
