package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/lima-cli/internal/adapters/api"
	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/internal/core/services"
	"github.com/kamal-hamza/lima-cli/pkg/ui"
)

// browseCmd represents the browse command
var browseCmd = &cobra.Command{
	Use:     "browse",
	Aliases: []string{"ui", "tui"},
	Short:   "Browse projects interactively (alias: ui)",
	Long: `Launch a full-screen browser for the project library.

Keyboard Shortcuts:
  Projects:
    ↑/k ↓/j     Move (more projects load as you scroll)
    g / G       Jump to top / bottom
    Enter       Open project
    /           Search (applied after you stop typing)
    d           Delete project
    r           Refresh

  Project:
    ↑/k ↓/j     Select asset
    m           Make selected image the main image
    x           Delete selected asset
    e           Rename project
    o           Open selected asset in the browser
    c           Copy selected asset URL
    Esc         Back to projects

  General:
    ?           Show help
    q           Quit`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

// prefetchMargin is how close to the end of the list the cursor may get
// before the next page is requested
const prefetchMargin = 5

func runBrowse(cmd *cobra.Command, args []string) error {
	m := newBrowseModel(getContext(cmd))
	defer m.debouncer.Cancel()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running browser: %w", err)
	}
	return nil
}

// Browser view modes
type browseMode int

const (
	modeList browseMode = iota
	modeSearch
	modeDetail
	modeRename
	modeConfirmDelete
	modeHelp
)

// Key bindings
type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	Top        key.Binding
	Bottom     key.Binding
	Open       key.Binding
	Back       key.Binding
	Search     key.Binding
	Delete     key.Binding
	Refresh    key.Binding
	MainImage  key.Binding
	DropAsset  key.Binding
	Rename     key.Binding
	OpenMedia  key.Binding
	CopyURL    key.Binding
	Help       key.Binding
	Quit       key.Binding
	Confirm    key.Binding
	Cancel     key.Binding
	ForceQuit  key.Binding
	SubmitEdit key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Open, k.Search, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.Open, k.Search, k.Delete, k.Refresh},
		{k.MainImage, k.DropAsset, k.Rename, k.OpenMedia, k.CopyURL},
		{k.Back, k.Help, k.Quit},
	}
}

// detailKeys is the short help shown on the project screen
type detailKeys struct{ keyMap }

func (k detailKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.MainImage, k.DropAsset, k.Rename, k.OpenMedia, k.Back, k.Help}
}

var keys = keyMap{
	Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
	Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
	Top:        key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
	Bottom:     key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
	Open:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Search:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Delete:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete project")),
	Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	MainImage:  key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "main image")),
	DropAsset:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete asset")),
	Rename:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "rename")),
	OpenMedia:  key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open in browser")),
	CopyURL:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy URL")),
	Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Confirm:    key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "confirm")),
	Cancel:     key.NewBinding(key.WithKeys("n", "N", "esc"), key.WithHelp("n/esc", "cancel")),
	ForceQuit:  key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	SubmitEdit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
}

// deleteTarget is what the confirmation box is asking about
type deleteTarget struct {
	project domain.ProjectSummary
	asset   *domain.Asset // nil when deleting the project
}

// Browser model
type browseModel struct {
	ctx       context.Context
	pager     *services.Paginator
	debouncer *services.Debouncer
	events    chan tea.Msg // Messages produced outside Update

	items  []domain.ProjectSummary
	cursor int
	offset int
	mode   browseMode
	prev   browseMode // Mode to return to from help and dialogs

	searchInput textinput.Model
	renameInput textinput.Model
	help        help.Model
	keys        keyMap
	width       int
	height      int
	ready       bool

	message       string
	messageStyle  lipgloss.Style
	messageExpiry time.Time
	listErr       error
	listDirty     bool

	detailID    string
	detail      *domain.Project
	detailGen   uint64
	detailErr   error
	assetCursor int

	pendingDelete *deleteTarget
}

// Messages

type pageLoadedMsg struct {
	ticket services.PageTicket
	page   *domain.ProjectPage
	err    error
}

type searchSettledMsg struct {
	query string
}

type detailLoadedMsg struct {
	gen     uint64
	project *domain.Project
	err     error
}

type actionEffect int

const (
	effectNone actionEffect = iota
	effectReloadDetail
	effectProjectDeleted
)

type actionDoneMsg struct {
	gen     uint64
	success string
	err     error
	effect  actionEffect
}

type statusMsg struct {
	message string
	style   lipgloss.Style
}

func newBrowseModel(ctx context.Context) browseModel {
	si := textinput.New()
	si.Placeholder = "Search projects..."
	si.CharLimit = 100
	si.Width = 50

	ri := textinput.New()
	ri.Placeholder = "Project name"
	ri.CharLimit = 200
	ri.Width = 50

	delay := 250 * time.Millisecond
	if appConfig != nil {
		delay = appConfig.SearchDebounce()
	}

	return browseModel{
		ctx:         ctx,
		pager:       projectListService.NewPaginator(""),
		debouncer:   services.NewDebouncer(delay),
		events:      make(chan tea.Msg, 8),
		mode:        modeList,
		searchInput: si,
		renameInput: ri,
		help:        help.New(),
		keys:        keys,
	}
}

func (m browseModel) Init() tea.Cmd {
	return tea.Batch(m.fetchPage(), m.listen())
}

// listen delivers the next message produced outside Update
func (m browseModel) listen() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return <-events
	}
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, m.maybeFetchMore()

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			return m, tea.Quit
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeDetail:
			return m.updateDetail(msg)
		case modeRename:
			return m.updateRename(msg)
		case modeConfirmDelete:
			return m.updateConfirmDelete(msg)
		case modeHelp:
			return m.updateHelp(msg)
		default:
			return m.updateList(msg)
		}

	case pageLoadedMsg:
		if !m.pager.Complete(msg.ticket, msg.page, msg.err) {
			// Answer for a query that has since changed
			return m, nil
		}
		m.items = m.pager.Items()
		m.listErr = m.pager.Err()
		m.clampCursor()
		if m.listErr != nil {
			return m, nil
		}
		return m, m.maybeFetchMore()

	case searchSettledMsg:
		// Fired before Esc or a later keystroke and no longer what the box shows
		if strings.TrimSpace(msg.query) != strings.TrimSpace(m.searchInput.Value()) {
			return m, m.listen()
		}
		cmd := m.applyQuery(msg.query)
		return m, tea.Batch(cmd, m.listen())

	case detailLoadedMsg:
		if msg.gen != m.detailGen {
			return m, nil
		}
		m.detailErr = msg.err
		if msg.err == nil {
			m.detail = msg.project
			if m.assetCursor >= len(msg.project.Assets) {
				m.assetCursor = max(len(msg.project.Assets)-1, 0)
			}
		}
		return m, nil

	case actionDoneMsg:
		return m.handleActionDone(msg)

	case statusMsg:
		m.setStatus(msg.message, msg.style)
		return m, nil
	}

	return m, nil
}

func (m browseModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.adjustViewport()
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
			m.adjustViewport()
		}
		return m, m.maybeFetchMore()

	case key.Matches(msg, m.keys.Top):
		m.cursor = 0
		m.offset = 0

	case key.Matches(msg, m.keys.Bottom):
		m.cursor = max(len(m.items)-1, 0)
		m.adjustViewport()
		return m, m.maybeFetchMore()

	case key.Matches(msg, m.keys.Open):
		if len(m.items) > 0 {
			return m.openDetail(m.items[m.cursor].ID)
		}

	case key.Matches(msg, m.keys.Delete):
		if len(m.items) > 0 {
			m.pendingDelete = &deleteTarget{project: m.items[m.cursor]}
			m.prev = modeList
			m.mode = modeConfirmDelete
		}

	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearch
		m.searchInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Refresh):
		return m, m.reloadList(true)

	case key.Matches(msg, m.keys.Help):
		m.prev = modeList
		m.mode = modeHelp
	}

	return m, nil
}

func (m browseModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEsc:
		m.mode = modeList
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		m.debouncer.Cancel()
		return m, m.applyQuery("")

	case msg.Type == tea.KeyEnter:
		// Apply right away and go back to the list
		m.mode = modeList
		m.searchInput.Blur()
		m.debouncer.Cancel()
		return m, m.applyQuery(m.searchInput.Value())

	case msg.Type == tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
			m.adjustViewport()
		}
		return m, nil

	case msg.Type == tea.KeyDown:
		if m.cursor < len(m.items)-1 {
			m.cursor++
			m.adjustViewport()
		}
		return m, m.maybeFetchMore()
	}

	before := m.searchInput.Value()
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	if query := m.searchInput.Value(); query != before {
		events := m.events
		m.debouncer.Trigger(func() {
			events <- searchSettledMsg{query: query}
		})
	}
	return m, cmd
}

// applyQuery restarts the listing for query unless it is already shown
func (m *browseModel) applyQuery(query string) tea.Cmd {
	query = strings.TrimSpace(query)
	if query == m.pager.Query() {
		return nil
	}
	m.pager.SetQuery(query)
	m.items = nil
	m.listErr = nil
	m.cursor = 0
	m.offset = 0
	return m.fetchPage()
}

// reloadList drops the accumulated pages and starts over. With purge the
// cached pages are thrown away too.
func (m *browseModel) reloadList(purge bool) tea.Cmd {
	if purge {
		queryCache.InvalidateKind(services.KindProjects)
	}
	m.pager.Reset()
	m.items = nil
	m.listErr = nil
	m.listDirty = false
	return m.fetchPage()
}

func (m browseModel) fetchPage() tea.Cmd {
	ticket, ok := m.pager.Begin()
	if !ok {
		return nil
	}
	ctx, pager := m.ctx, m.pager
	return func() tea.Msg {
		page, err := pager.Run(ctx, ticket)
		return pageLoadedMsg{ticket: ticket, page: page, err: err}
	}
}

// maybeFetchMore requests the next page when the cursor is close to the
// end of what is loaded or the screen is not yet full
func (m browseModel) maybeFetchMore() tea.Cmd {
	if !m.pager.HasNext() || m.pager.Loading() || m.listErr != nil {
		return nil
	}
	if m.cursor >= len(m.items)-prefetchMargin || len(m.items) < m.listHeight() {
		return m.fetchPage()
	}
	return nil
}

func (m browseModel) openDetail(id string) (tea.Model, tea.Cmd) {
	m.mode = modeDetail
	m.detailID = id
	m.detail = nil
	m.detailErr = nil
	m.assetCursor = 0
	m.detailGen++
	return m, m.loadDetail()
}

func (m browseModel) loadDetail() tea.Cmd {
	ctx, id, gen := m.ctx, m.detailID, m.detailGen
	return func() tea.Msg {
		p, err := projectService.Get(ctx, id)
		return detailLoadedMsg{gen: gen, project: p, err: err}
	}
}

func (m browseModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Back):
		m.mode = modeList
		m.detailGen++ // Ignore anything still loading
		m.detail = nil
		m.detailErr = nil
		if m.listDirty {
			return m, m.reloadList(false)
		}
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.prev = modeDetail
		m.mode = modeHelp
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		queryCache.Invalidate(services.ProjectKey(m.detailID))
		m.detailGen++
		return m, m.loadDetail()
	}

	if m.detail == nil {
		return m, nil
	}
	p := m.detail

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.assetCursor > 0 {
			m.assetCursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.assetCursor < len(p.Assets)-1 {
			m.assetCursor++
		}

	case key.Matches(msg, m.keys.MainImage):
		asset, ok := m.selectedAsset()
		if !ok {
			return m, nil
		}
		if !asset.IsImage() {
			m.detailErr = domain.NewValidationError("Only images can be the main image")
			return m, nil
		}
		id := p.ID
		return m, m.runAction(func(ctx context.Context) error {
			return projectService.SetMainImage(ctx, id, asset.ID)
		}, "Main image set to "+asset.Name(), effectReloadDetail)

	case key.Matches(msg, m.keys.DropAsset):
		asset, ok := m.selectedAsset()
		if !ok {
			return m, nil
		}
		m.pendingDelete = &deleteTarget{project: p.Summary(), asset: &asset}
		m.prev = modeDetail
		m.mode = modeConfirmDelete

	case key.Matches(msg, m.keys.Delete):
		m.pendingDelete = &deleteTarget{project: p.Summary()}
		m.prev = modeDetail
		m.mode = modeConfirmDelete

	case key.Matches(msg, m.keys.Rename):
		m.renameInput.SetValue(p.Name)
		m.renameInput.CursorEnd()
		m.renameInput.Focus()
		m.mode = modeRename
		return m, textinput.Blink

	case key.Matches(msg, m.keys.OpenMedia):
		asset, ok := m.selectedAsset()
		if !ok {
			return m, nil
		}
		url := mediaClient().AssetMediaURL(p, asset, false)
		return m, func() tea.Msg {
			if err := OpenFile(url); err != nil {
				return statusMsg{message: err.Error(), style: ui.StyleError}
			}
			return statusMsg{message: "Opened " + asset.Name(), style: ui.StyleSuccess}
		}

	case key.Matches(msg, m.keys.CopyURL):
		asset, ok := m.selectedAsset()
		if !ok {
			return m, nil
		}
		url := mediaClient().AssetMediaURL(p, asset, false)
		return m, func() tea.Msg {
			if err := clipboard.WriteAll(url); err != nil {
				return statusMsg{message: "Clipboard access failed", style: ui.StyleWarning}
			}
			return statusMsg{message: "Copied " + url, style: ui.StyleSuccess}
		}
	}

	return m, nil
}

func (m browseModel) selectedAsset() (domain.Asset, bool) {
	if m.detail == nil || m.assetCursor < 0 || m.assetCursor >= len(m.detail.Assets) {
		return domain.Asset{}, false
	}
	return m.detail.Assets[m.assetCursor], true
}

func (m browseModel) updateRename(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.renameInput.Blur()
		m.mode = modeDetail
		return m, nil

	case tea.KeyEnter:
		name := m.renameInput.Value()
		m.renameInput.Blur()
		m.mode = modeDetail
		if err := domain.ValidateProjectName(name); err != nil {
			m.detailErr = err
			return m, nil
		}
		if m.detail == nil || strings.TrimSpace(name) == m.detail.Name {
			return m, nil
		}
		id := m.detail.ID
		return m, m.runAction(func(ctx context.Context) error {
			return projectService.Rename(ctx, id, name)
		}, "Renamed to "+strings.TrimSpace(name), effectReloadDetail)
	}

	var cmd tea.Cmd
	m.renameInput, cmd = m.renameInput.Update(msg)
	return m, cmd
}

func (m browseModel) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		target := m.pendingDelete
		m.pendingDelete = nil
		m.mode = m.prev
		if target == nil {
			return m, nil
		}
		projectID := target.project.ID
		if target.asset != nil {
			assetID, name := target.asset.ID, target.asset.Name()
			return m, m.runAction(func(ctx context.Context) error {
				return projectService.DeleteAsset(ctx, projectID, assetID)
			}, "Deleted "+name, effectReloadDetail)
		}
		return m, m.runAction(func(ctx context.Context) error {
			return projectService.DeleteProject(ctx, projectID)
		}, "Deleted "+target.project.Name, effectProjectDeleted)

	case key.Matches(msg, m.keys.Cancel):
		m.pendingDelete = nil
		m.mode = m.prev
	}
	return m, nil
}

func (m browseModel) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Help), key.Matches(msg, m.keys.Quit):
		m.mode = m.prev
	}
	return m, nil
}

// runAction performs a mutation off the UI loop. The result is tagged with
// the current detail generation.
func (m browseModel) runAction(fn func(context.Context) error, success string, effect actionEffect) tea.Cmd {
	ctx, gen := m.ctx, m.detailGen
	return func() tea.Msg {
		return actionDoneMsg{gen: gen, success: success, err: fn(ctx), effect: effect}
	}
}

func (m browseModel) handleActionDone(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setStatus(api.ErrorMessage(msg.err), ui.StyleError)
		if m.mode == modeDetail && msg.gen == m.detailGen {
			m.detailErr = msg.err
		}
		return m, nil
	}

	m.setStatus(msg.success, ui.StyleSuccess)
	m.listDirty = true

	switch msg.effect {
	case effectProjectDeleted:
		if m.mode == modeDetail {
			m.mode = modeList
			m.detailGen++
			m.detail = nil
		}
		if m.mode == modeList || m.mode == modeSearch {
			return m, m.reloadList(false)
		}

	case effectReloadDetail:
		if m.mode == modeDetail && msg.gen == m.detailGen {
			m.detailErr = nil
			m.detailGen++
			return m, m.loadDetail()
		}
	}
	return m, nil
}

func (m *browseModel) setStatus(message string, style lipgloss.Style) {
	m.message = message
	m.messageStyle = style
	m.messageExpiry = time.Now().Add(3 * time.Second)
}

func (m *browseModel) clampCursor() {
	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.adjustViewport()
}

func (m browseModel) listHeight() int {
	return max(m.height-10, 3)
}

func (m *browseModel) adjustViewport() {
	listHeight := m.listHeight()

	// Scroll down
	if m.cursor >= m.offset+listHeight {
		m.offset = m.cursor - listHeight + 1
	}

	// Scroll up
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
}

// Views

func (m browseModel) View() string {
	if !m.ready {
		return "\n  Loading projects..."
	}

	switch m.mode {
	case modeHelp:
		return m.viewHelp()
	case modeConfirmDelete:
		return m.viewConfirmDelete()
	case modeDetail, modeRename:
		return m.viewDetail()
	default:
		return m.viewList()
	}
}

func (m browseModel) viewList() string {
	listWidth := max(int(float64(m.width)*0.45), 30)
	previewWidth := m.width - listWidth - 2

	var s strings.Builder
	s.WriteString(m.renderHeader())
	s.WriteString("\n")
	s.WriteString(m.renderSearchBar())
	s.WriteString("\n\n")

	listContent := m.renderProjectList(listWidth)
	if previewWidth < 30 {
		s.WriteString(listContent)
	} else {
		s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			padBlock(listContent, listWidth),
			"  ",
			m.renderPreview(previewWidth),
		))
	}

	s.WriteString("\n")
	s.WriteString(m.renderFooter(m.keys))
	return s.String()
}

func (m browseModel) renderHeader() string {
	titleStyle := lipgloss.NewStyle().
		Foreground(ui.ColorPrimary).
		Bold(true).
		Padding(0, 1)

	title := titleStyle.Render(ui.IconProject + " LIMA Projects")

	count := fmt.Sprintf("%d projects", len(m.items))
	if m.pager.HasNext() {
		count = fmt.Sprintf("%d+ projects", len(m.items))
	}
	server := ""
	if appConfig != nil {
		server = appConfig.APIURL
	}
	stats := ui.StyleMuted.Render(count + "  " + server)

	spacer := max(m.width-lipgloss.Width(title)-lipgloss.Width(stats), 0)
	return lipgloss.JoinHorizontal(lipgloss.Top, title, strings.Repeat(" ", spacer), stats)
}

func (m browseModel) renderSearchBar() string {
	borderColor := ui.ColorMuted
	if m.mode == modeSearch {
		borderColor = ui.ColorPrimary
	}

	searchStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(max(m.width-4, 10))

	content := m.searchInput.View()
	if m.mode != modeSearch && m.searchInput.Value() == "" {
		content = ui.StyleMuted.Render("Press / to search...")
	}
	if m.debouncer.Pending() {
		content += ui.StyleMuted.Render("  …")
	}
	return searchStyle.Render(content)
}

func (m browseModel) renderProjectList(width int) string {
	emptyStyle := lipgloss.NewStyle().
		Foreground(ui.ColorMuted).
		Italic(true).
		Padding(1, 2).
		Width(width)

	if m.listErr != nil && len(m.items) == 0 {
		return ui.StyleError.Render("  "+ui.IconError+" "+api.ErrorMessage(m.listErr)) + "\n" +
			ui.StyleMuted.Render("  Press r to retry")
	}
	if len(m.items) == 0 {
		if m.pager.Loading() {
			return emptyStyle.Render("Loading...")
		}
		if m.pager.Query() != "" {
			return emptyStyle.Render("No projects match your search.")
		}
		return emptyStyle.Render("No projects yet. Create one with 'lima projects create'.")
	}

	var s strings.Builder
	end := min(m.offset+m.listHeight(), len(m.items))
	for i := m.offset; i < end; i++ {
		s.WriteString(m.renderProjectItem(m.items[i], i == m.cursor, width))
		s.WriteString("\n")
	}

	switch {
	case m.listErr != nil:
		s.WriteString(ui.StyleError.Render("  " + api.ErrorMessage(m.listErr) + " (r to retry)"))
	case m.pager.Loading():
		s.WriteString(ui.StyleMuted.Render("  Loading more..."))
	}
	return s.String()
}

func (m browseModel) renderProjectItem(p domain.ProjectSummary, selected bool, width int) string {
	cursor := "  "
	titleStyle := lipgloss.NewStyle().Foreground(ui.ColorDefault)
	if selected {
		cursor = ui.StylePrimary.Render("▶ ")
		titleStyle = ui.StylePrimary.Bold(true)
	}

	date := relativeTime(p.UpdatedAt, time.Now())
	maxTitle := max(width-lipgloss.Width(date)-4, 10)
	title := ui.Truncate(p.Name, maxTitle)

	line := cursor + titleStyle.Render(title)
	gap := max(width-lipgloss.Width(line)-lipgloss.Width(date), 1)
	return line + strings.Repeat(" ", gap) + ui.StyleMuted.Render(date)
}

func (m browseModel) renderPreview(width int) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ui.ColorMuted).
		Padding(0, 1).
		Width(width - 2)

	if len(m.items) == 0 {
		return box.Render(ui.StyleMuted.Render("No project selected"))
	}
	p := m.items[m.cursor]

	var s strings.Builder
	s.WriteString(lipgloss.NewStyle().Foreground(ui.ColorPrimary).Bold(true).Render(p.Name))
	s.WriteString("\n")
	s.WriteString(ui.StyleMuted.Render(p.FolderPath))
	s.WriteString("\n\n")

	desc := domain.DescriptionOr(p.Description, "")
	if desc == "" {
		s.WriteString(ui.StyleSubtle.Render("No description"))
	} else {
		s.WriteString(lipgloss.NewStyle().Width(width - 6).Render(desc))
	}
	s.WriteString("\n\n")

	if len(p.Tags) > 0 {
		names := make([]string, len(p.Tags))
		colors := make([]string, len(p.Tags))
		for i, t := range p.Tags {
			names[i], colors[i] = t.Name, t.Color
		}
		s.WriteString(ui.TagChips(names, colors))
		s.WriteString("\n\n")
	}

	mainImage := "none"
	if p.MainImageID != nil {
		mainImage = "set"
	}
	s.WriteString(ui.RenderKeyValue("Main image", mainImage) + "\n")
	s.WriteString(ui.RenderKeyValue("Updated", displayTime(p.UpdatedAt)) + "\n")
	s.WriteString(ui.RenderKeyValue("Created", displayTime(p.CreatedAt)))

	return box.Render(s.String())
}

func (m browseModel) viewDetail() string {
	var s strings.Builder

	titleStyle := lipgloss.NewStyle().Foreground(ui.ColorPrimary).Bold(true).Padding(0, 1)

	if m.detail == nil {
		s.WriteString("\n")
		if m.detailErr != nil {
			s.WriteString(ui.StyleError.Render("  " + ui.IconError + " " + api.ErrorMessage(m.detailErr)))
			s.WriteString("\n\n")
			s.WriteString(ui.StyleMuted.Render("  r retry  esc back"))
		} else {
			s.WriteString(ui.StyleMuted.Render("  Loading project..."))
		}
		return s.String()
	}
	p := m.detail

	s.WriteString(titleStyle.Render(ui.IconProject + " " + p.Name))
	s.WriteString(ui.StyleMuted.Render("  " + p.FolderPath))
	s.WriteString("\n")
	if desc := domain.DescriptionOr(p.Description, ""); desc != "" {
		s.WriteString("  " + desc + "\n")
	}
	if len(p.Tags) > 0 {
		names := make([]string, len(p.Tags))
		colors := make([]string, len(p.Tags))
		for i, t := range p.Tags {
			names[i], colors[i] = t.Name, t.Color
		}
		s.WriteString("  " + ui.TagChips(names, colors) + "\n")
	}

	// Inline error line
	if m.detailErr != nil {
		s.WriteString(ui.StyleError.Render("  " + ui.IconError + " " + api.ErrorMessage(m.detailErr)))
	}
	s.WriteString("\n")

	if m.mode == modeRename {
		s.WriteString("  " + ui.StyleBold.Render("Name: ") + m.renameInput.View() + "\n")
		s.WriteString(ui.StyleMuted.Render("  enter save  esc cancel") + "\n")
	}
	s.WriteString("\n")

	if len(p.Assets) == 0 {
		s.WriteString(ui.StyleSubtle.Render("  No assets") + "\n")
	}
	for i, a := range p.Assets {
		cursor := "  "
		nameStyle := lipgloss.NewStyle().Foreground(ui.ColorDefault)
		if i == m.assetCursor {
			cursor = ui.StylePrimary.Render("▶ ")
			nameStyle = ui.StylePrimary.Bold(true)
		}
		marker := "  "
		if p.MainImageID != nil && *p.MainImageID == a.ID {
			marker = ui.IconMain + " "
		}
		s.WriteString(fmt.Sprintf("%s%s%s %s  %s\n",
			cursor,
			marker,
			ui.KindIcon(string(a.Kind)),
			nameStyle.Render(a.FilePath),
			ui.StyleMuted.Render(domain.FormatBytes(a.SizeBytes)),
		))
	}

	s.WriteString("\n")
	s.WriteString(m.renderFooter(detailKeys{m.keys}))
	return s.String()
}

func (m browseModel) viewHelp() string {
	var s strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ui.ColorPrimary).
		Padding(1, 2)

	s.WriteString(titleStyle.Render("LIMA Browser - Keyboard Shortcuts"))
	s.WriteString("\n\n")

	h := m.help
	h.ShowAll = true
	s.WriteString(lipgloss.NewStyle().Padding(0, 2).Render(h.View(m.keys)))
	s.WriteString("\n\n")
	s.WriteString(ui.StyleMuted.Render("  Press ESC or ? to return"))
	s.WriteString("\n")
	return s.String()
}

func (m browseModel) viewConfirmDelete() string {
	if m.pendingDelete == nil {
		return ""
	}
	t := m.pendingDelete

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ui.ColorWarning).
		Padding(1, 2).
		Width(60).
		Align(lipgloss.Center)

	title, subject, detail := "Delete Project?", t.project.Name, "The project folder and all its files are removed."
	if t.asset != nil {
		title, subject = "Delete Asset?", t.asset.FilePath
		detail = fmt.Sprintf("%s from %s", domain.FormatBytes(t.asset.SizeBytes), t.project.Name)
	}

	content := fmt.Sprintf("%s\n\n%s\n%s\n\n%s",
		lipgloss.NewStyle().Foreground(ui.ColorWarning).Bold(true).Render(ui.IconWarning+"  "+title),
		ui.StylePrimary.Render(subject),
		ui.StyleMuted.Render(detail),
		"Press 'y' to confirm, 'n' or ESC to cancel",
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, boxStyle.Render(content))
}

func (m browseModel) renderFooter(bindings help.KeyMap) string {
	statusLine := ui.StyleMuted.Render("Ready")
	if m.message != "" && time.Now().Before(m.messageExpiry) {
		statusLine = m.messageStyle.Render(m.message)
	}

	footerStyle := lipgloss.NewStyle().
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ui.ColorMuted).
		Padding(0, 1)

	return footerStyle.Render(lipgloss.JoinVertical(lipgloss.Left, statusLine, m.help.View(bindings)))
}

// padBlock pads every line of s to width
func padBlock(s string, width int) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if w := lipgloss.Width(l); w < width {
			lines[i] = l + strings.Repeat(" ", width-w)
		}
	}
	return strings.Join(lines, "\n")
}

// relativeTime renders a server timestamp as "3d ago"
func relativeTime(ts string, now time.Time) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}

	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	}

	days := int(diff.Hours() / 24)
	switch {
	case days < 7:
		return fmt.Sprintf("%dd ago", days)
	case days < 30:
		return fmt.Sprintf("%dw ago", days/7)
	case days < 365:
		return fmt.Sprintf("%dmo ago", days/30)
	default:
		return fmt.Sprintf("%dy ago", days/365)
	}
}
