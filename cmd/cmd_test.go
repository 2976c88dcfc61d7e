package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/internal/core/ports"
	"github.com/kamal-hamza/lima-cli/internal/core/ports/mocks"
	"github.com/kamal-hamza/lima-cli/pkg/appdir"
	"github.com/kamal-hamza/lima-cli/pkg/config"
)

// setupCmdTest wires the commands to an in-memory backend and captures output
func setupCmdTest(t *testing.T) (*mocks.MockAPI, *bytes.Buffer) {
	t.Helper()

	dir := t.TempDir()
	appConfig = config.DefaultConfig()
	appDirs = &appdir.Dirs{
		ConfigPath:  filepath.Join(dir, "config.yaml"),
		StatePath:   dir,
		LogPath:     filepath.Join(dir, "logs"),
		ExportsPath: filepath.Join(dir, "exports"),
	}

	var out bytes.Buffer
	prev := stdout
	stdout = &out

	backendMock := mocks.NewMockAPI()
	apiClient = nil
	wireServices(backendMock, nil)

	t.Cleanup(func() {
		stdout = prev
		flagJSON = false
		listQuery, listCursor, listLimit, listAll = "", "", 0, false
		createDescription, createTags, createMainImage = "", "", ""
		importMainImage, importBundleID, importWatchDir = "", "", ""
		exportFormat, exportOutput, exportQuery = "", "", ""
		bundlesStatus = ""
		assetsKind, assetsOutput = "", ""
		assetsYes, assetsClearMain, assetsThumb, assetsCopy = false, false, false, false
		assetsOpen = true
	})
	return backendMock, &out
}

func writeFiles(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(paths[i], []byte("data for "+name), 0644))
	}
	return paths
}

func testCommand() *cobra.Command {
	c := &cobra.Command{}
	c.SetContext(context.Background())
	return c
}

func TestRootCommandStructure(t *testing.T) {
	want := []string{"projects", "import", "assets", "tags", "bundles", "browse", "doctor", "config", "version"}
	got := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		got[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, got[name], "missing command %s", name)
	}

	sub := map[string]bool{}
	for _, c := range projectsCmd.Commands() {
		sub[c.Name()] = true
	}
	for _, name := range []string{"list", "show", "create", "edit", "delete", "export", "stats"} {
		assert.True(t, sub[name], "missing projects %s", name)
	}
}

func TestTopLevelName(t *testing.T) {
	c, _, err := rootCmd.Find([]string{"config", "path"})
	require.NoError(t, err)
	assert.Equal(t, "config", topLevelName(c))
	assert.True(t, skipsBackend[topLevelName(c)])

	c, _, err = rootCmd.Find([]string{"projects", "list"})
	require.NoError(t, err)
	assert.Equal(t, "projects", topLevelName(c))
	assert.False(t, skipsBackend[topLevelName(c)])
}

func TestFail_ShowsServerMessage(t *testing.T) {
	cause := mocks.APIError(http.StatusNotFound, "project_not_found", "Project not found")
	err := fail("get project", cause)

	assert.Equal(t, "Project not found", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.Same(t, err, fail("again", err))
	assert.NoError(t, fail("noop", nil))
}

func TestProjectsList(t *testing.T) {
	backendMock, out := setupCmdTest(t)
	backendMock.AddProject("Dragon")
	backendMock.AddProject("Vase")

	require.NoError(t, runProjectsList(testCommand(), nil))

	assert.Contains(t, out.String(), "Dragon")
	assert.Contains(t, out.String(), "Vase")
	assert.Contains(t, out.String(), "2 projects")
}

func TestProjectsList_NoMatch(t *testing.T) {
	backendMock, out := setupCmdTest(t)
	backendMock.AddProject("Dragon")
	listQuery = "zeppelin"

	require.NoError(t, runProjectsList(testCommand(), nil))
	assert.Contains(t, out.String(), `No projects match "zeppelin"`)
}

func TestProjectsList_AllJSON(t *testing.T) {
	backendMock, out := setupCmdTest(t)
	for _, name := range []string{"A", "B", "C"} {
		backendMock.AddProject(name)
	}
	appConfig.PageSize = 2
	wireServices(backendMock, nil)
	listAll = true
	flagJSON = true

	require.NoError(t, runProjectsList(testCommand(), nil))

	var items []domain.ProjectSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &items))
	assert.Len(t, items, 3)
}

func TestProjectsShow_JSON(t *testing.T) {
	backendMock, out := setupCmdTest(t)
	p := backendMock.AddProject("Dragon", domain.Asset{FilePath: "cover.png"}, domain.Asset{FilePath: "body.stl"})
	flagJSON = true

	require.NoError(t, runProjectsShow(testCommand(), []string{p.ID}))

	var got domain.Project
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "Dragon", got.Name)
	assert.Len(t, got.Assets, 2)
}

func TestProjectsShow_NotFound(t *testing.T) {
	setupCmdTest(t)

	err := runProjectsShow(testCommand(), []string{"missing"})
	require.Error(t, err)
	assert.Equal(t, "Project not found", err.Error())
}

func TestProjectsCreate_WithFiles(t *testing.T) {
	backendMock, out := setupCmdTest(t)
	paths := writeFiles(t, "cover.png", "body.stl")
	createTags = "print, PLA, print"
	createDescription = "Test print"

	require.NoError(t, runProjectsCreate(testCommand(), append([]string{"Dragon"}, paths...)))

	assert.Contains(t, out.String(), "Created project")
	assert.Contains(t, out.String(), "Files imported")

	page, err := backendMock.ListProjects(context.Background(), ports.ListProjectsParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	p, ok := backendMock.Project(page.Items[0].ID)
	require.True(t, ok)
	assert.Len(t, p.Assets, 2)
	assert.Len(t, p.Tags, 2)
	require.NotNil(t, p.MainImageID)
	assert.Equal(t, 0, backendMock.BundleCount())
}

func TestProjectsCreate_ImportFailureKeepsProject(t *testing.T) {
	backendMock, out := setupCmdTest(t)
	paths := writeFiles(t, "cover.png")
	backendMock.FailOn("ImportBundle", mocks.APIError(http.StatusInternalServerError, "import_failed", "Import failed"))

	err := runProjectsCreate(testCommand(), append([]string{"Dragon"}, paths...))
	require.Error(t, err)
	assert.Equal(t, "Import failed", err.Error())
	assert.Contains(t, out.String(), "was created but the files were not imported")
	assert.Contains(t, out.String(), "--bundle b")
	assert.Equal(t, 1, backendMock.BundleCount())
}

func TestImport_Files(t *testing.T) {
	backendMock, out := setupCmdTest(t)
	p := backendMock.AddProject("Dragon")
	paths := writeFiles(t, "side.png", "top.png")

	require.NoError(t, runImport(importCmd, append([]string{p.ID}, paths...)))

	assert.Contains(t, out.String(), "Imported 2 files")
	got, _ := backendMock.Project(p.ID)
	assert.Len(t, got.Assets, 2)
	require.NotNil(t, got.MainImageID)
	assert.Equal(t, "side.png", got.Assets[0].FilePath)
	assert.Equal(t, *got.MainImageID, got.Assets[0].ID)
}

func TestImport_FailureKeepsBundle(t *testing.T) {
	backendMock, out := setupCmdTest(t)
	p := backendMock.AddProject("Dragon")
	paths := writeFiles(t, "body.stl")
	backendMock.FailOn("ImportBundle", mocks.APIError(http.StatusInternalServerError, "import_failed", "Import failed"))

	err := runImport(importCmd, append([]string{p.ID}, paths...))
	require.Error(t, err)
	assert.Contains(t, out.String(), "lima import "+p.ID+" --bundle ")
	assert.Equal(t, 1, backendMock.BundleCount())
}

func TestImport_NoFiles(t *testing.T) {
	setupCmdTest(t)

	err := runImport(importCmd, []string{"p1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTags_CreateAndList(t *testing.T) {
	backendMock, out := setupCmdTest(t)

	require.NoError(t, runTagsCreate(testCommand(), []string{"resin"}))
	require.NoError(t, runTagsCreate(testCommand(), []string{"pla"}))
	assert.Equal(t, 2, backendMock.Calls("CreateTag"))

	out.Reset()
	require.NoError(t, runTagsList(testCommand(), nil))
	listing := out.String()
	assert.Contains(t, listing, "2 tags")
	assert.Less(t, strings.Index(listing, "pla"), strings.Index(listing, "resin"))
}

func TestBundles_JournalDisabled(t *testing.T) {
	setupCmdTest(t)

	err := runBundlesList(testCommand(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestBundles_ListAndDiscard(t *testing.T) {
	backendMock, out := setupCmdTest(t)
	journal := mocks.NewMockJournal()
	wireServices(backendMock, journal)

	paths := writeFiles(t, "body.stl")
	bundles, state, err := stageFiles(context.Background(), paths, "", false)
	require.NoError(t, err)
	bundles.Close()

	out.Reset()
	require.NoError(t, runBundlesList(testCommand(), nil))
	assert.Contains(t, out.String(), state.BundleID)
	assert.Contains(t, out.String(), "staged")

	require.NoError(t, runBundlesDiscard(testCommand(), []string{state.BundleID}))
	assert.Equal(t, domain.BundleDiscarded, journal.Status(state.BundleID))
	assert.Equal(t, 0, backendMock.BundleCount())

	// Unknown on the server still counts as discarded
	require.NoError(t, runBundlesDiscard(testCommand(), []string{state.BundleID}))
}

func TestExport_Stdout(t *testing.T) {
	backendMock, out := setupCmdTest(t)
	backendMock.AddProject("Dragon")
	backendMock.AddProject("Vase")
	exportOutput = "-"
	exportFormat = "json"

	require.NoError(t, runProjectsExport(testCommand(), nil))

	var items []domain.ProjectSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &items))
	assert.Len(t, items, 2)
}

func TestExport_DefaultPath(t *testing.T) {
	backendMock, out := setupCmdTest(t)
	backendMock.AddProject("Dragon")
	exportFormat = "yaml"

	require.NoError(t, runProjectsExport(testCommand(), nil))
	assert.Contains(t, out.String(), "Exported 1 projects")

	entries, err := os.ReadDir(appDirs.ExportsPath)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".yaml"))
}

func TestExport_UnknownFormat(t *testing.T) {
	setupCmdTest(t)
	exportFormat = "xml"

	err := runProjectsExport(testCommand(), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestVersion_JSON(t *testing.T) {
	_, out := setupCmdTest(t)
	flagJSON = true

	require.NoError(t, runVersion(versionCmd, nil))

	var got buildInfo
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.NotEmpty(t, got.Version)
	assert.Equal(t, runtime.Version(), got.Go)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, got.Platform)
}

func TestEditorCommand(t *testing.T) {
	setupCmdTest(t)
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "nano")
	assert.Equal(t, []string{"nano"}, editorCommand())

	t.Setenv("VISUAL", "code --wait")
	assert.Equal(t, []string{"code", "--wait"}, editorCommand())

	appConfig.Editor = "hx"
	assert.Equal(t, []string{"hx"}, editorCommand())
}

func TestOpener(t *testing.T) {
	name, args := opener("darwin", "/tmp/a.png")
	assert.Equal(t, "open", name)
	assert.Equal(t, []string{"/tmp/a.png"}, args)

	name, _ = opener("linux", "http://x/media/a.png")
	assert.Equal(t, "xdg-open", name)

	name, args = opener("windows", "a.png")
	assert.Equal(t, "rundll32", name)
	assert.Equal(t, "a.png", args[len(args)-1])
}

func TestCleanupsRunWhenCommandFails(t *testing.T) {
	setupCmdTest(t)
	var order []int
	cleanups = []func(){
		func() { order = append(order, 1) },
		func() { order = append(order, 2) },
	}

	c := &cobra.Command{
		Use:           "failing",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return errors.New("boom")
		},
	}
	c.SetArgs([]string{})

	require.Error(t, c.Execute())
	assert.Equal(t, []int{2, 1}, order)
	assert.Nil(t, cleanups)
}

// serveMedia points the media client at a gin server
func serveMedia(t *testing.T, register func(r *gin.Engine)) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	appConfig.APIURL = srv.URL
}

func TestAssetsMain_SetAndClear(t *testing.T) {
	backendMock, out := setupCmdTest(t)
	p := backendMock.AddProject("Dragon", domain.Asset{FilePath: "cover.png"}, domain.Asset{FilePath: "body.stl"})

	require.NoError(t, runAssetsMain(testCommand(), []string{p.ID, "cover.png"}))
	got, _ := backendMock.Project(p.ID)
	require.NotNil(t, got.MainImageID)
	assert.Equal(t, p.Assets[0].ID, *got.MainImageID)
	assert.Contains(t, out.String(), "Main image set to cover.png")

	assetsClearMain = true
	require.NoError(t, runAssetsMain(testCommand(), []string{p.ID}))
	got, _ = backendMock.Project(p.ID)
	assert.Nil(t, got.MainImageID)
	assert.Contains(t, out.String(), "Main image cleared")
}

func TestAssetsMain_RejectsModel(t *testing.T) {
	backendMock, _ := setupCmdTest(t)
	p := backendMock.AddProject("Dragon", domain.Asset{FilePath: "body.stl"})

	err := runAssetsMain(testCommand(), []string{p.ID, "body.stl"})
	require.Error(t, err)
	got, _ := backendMock.Project(p.ID)
	assert.Nil(t, got.MainImageID)
}

func TestAssetsFetch_Original(t *testing.T) {
	backendMock, out := setupCmdTest(t)
	p := backendMock.AddProject("Dragon", domain.Asset{FilePath: "parts/body.stl"})
	serveMedia(t, func(r *gin.Engine) {
		r.GET("/media/library/*path", func(c *gin.Context) {
			c.Data(http.StatusOK, "model/stl", []byte("solid "+c.Param("path")))
		})
	})
	assetsOutput = filepath.Join(t.TempDir(), "body.stl")

	require.NoError(t, runAssetsFetch(testCommand(), []string{p.ID, "body.stl"}))

	data, err := os.ReadFile(assetsOutput)
	require.NoError(t, err)
	assert.Contains(t, string(data), "parts/body.stl")
	assert.Contains(t, out.String(), "Saved")
}

func TestAssetsFetch_ThumbFailureShowsLabel(t *testing.T) {
	backendMock, out := setupCmdTest(t)
	p := backendMock.AddProject("Dragon", domain.Asset{FilePath: "cover.png"})
	serveMedia(t, func(r *gin.Engine) {})
	assetsThumb = true
	assetsOutput = filepath.Join(t.TempDir(), "thumb.jpg")

	err := runAssetsFetch(testCommand(), []string{p.ID, "cover.png"})
	require.Error(t, err)
	assert.Contains(t, out.String(), "[THUMB 404]")
	_, statErr := os.Stat(assetsOutput)
	assert.True(t, os.IsNotExist(statErr))
}

func TestAssetsGallery(t *testing.T) {
	backendMock, out := setupCmdTest(t)
	p := backendMock.AddProject("Dragon",
		domain.Asset{FilePath: "cover.png"},
		domain.Asset{FilePath: "side <1>.jpg"},
		domain.Asset{FilePath: "body.stl"},
	)
	assetsOpen = false

	require.NoError(t, runAssetsGallery(testCommand(), []string{p.ID}))
	assert.Contains(t, out.String(), "Gallery of 2 images")

	page, err := os.ReadFile(appDirs.GetExportPath("gallery-" + p.ID + ".html"))
	require.NoError(t, err)
	doc := string(page)
	assert.Contains(t, doc, "cover.png")
	assert.Contains(t, doc, "side &lt;1&gt;.jpg")
	assert.NotContains(t, doc, "body.stl")
	assert.Contains(t, doc, "/media/thumbs/"+p.ID+"/")
}

func TestAssetsGallery_NoImages(t *testing.T) {
	backendMock, out := setupCmdTest(t)
	p := backendMock.AddProject("Dragon", domain.Asset{FilePath: "body.stl"})
	assetsOpen = false

	require.NoError(t, runAssetsGallery(testCommand(), []string{p.ID}))
	assert.Contains(t, out.String(), "No images in Dragon")
}
