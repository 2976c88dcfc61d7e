package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"
	"github.com/mattn/go-isatty"

	"github.com/kamal-hamza/lima-cli/internal/adapters/api"
	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/pkg/ui"
)

// stdout is swapped in tests
var stdout io.Writer = os.Stdout

// userError carries the message to show for a failed command while
// keeping the cause for errors.Is / errors.As
type userError struct {
	err error
}

func (e *userError) Error() string {
	return api.ErrorMessage(e.err)
}

func (e *userError) Unwrap() error {
	return e.err
}

// fail logs err and returns it in the form shown to the user
func fail(action string, err error) error {
	if err == nil {
		return nil
	}
	logger.Sugar().Warnw(action+" failed", "error", err, "code", api.ErrorCode(err))
	var ue *userError
	if errors.As(err, &ue) {
		return err
	}
	return &userError{err: err}
}

// editorCommand resolves the editor from config, then $VISUAL, then
// $EDITOR. The value may carry arguments ("code --wait").
func editorCommand() []string {
	candidates := []string{os.Getenv("VISUAL"), os.Getenv("EDITOR"), "vi"}
	if appConfig != nil {
		candidates = append([]string{appConfig.Editor}, candidates...)
	}
	for _, c := range candidates {
		if fields := strings.Fields(c); len(fields) > 0 {
			return fields
		}
	}
	return []string{"vi"}
}

// OpenEditor edits path in the foreground and waits for the editor to exit
func OpenEditor(path string) error {
	editor := editorCommand()
	cmd := exec.Command(editor[0], append(editor[1:], path)...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s exited with error: %w", editor[0], err)
	}
	return nil
}

// opener returns the command that hands target to the desktop
func opener(goos, target string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{target}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}
	default:
		return "xdg-open", []string{target}
	}
}

// OpenFile opens a local file or media URL in the default viewer without
// waiting for it
func OpenFile(target string) error {
	name, args := opener(runtime.GOOS, target)
	if err := exec.Command(name, args...).Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}
	return nil
}

// confirm asks a yes/no question on stdin. Anything but y or yes is no.
func confirm(question string) bool {
	fmt.Fprint(stdout, ui.StyleWarning.Render(question+" [y/N] "))
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// isTerminal reports whether stdout is an interactive terminal
func isTerminal() bool {
	f, ok := stdout.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// printJSON writes v as indented JSON, highlighted on terminals
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	out := string(data)
	if isTerminal() && (appConfig == nil || appConfig.SyntaxHighlighting) {
		out = ui.Highlight(out, "json")
	}
	_, err = fmt.Fprintln(stdout, out)
	return err
}

// printLine writes a line to stdout
func printLine(a ...any) {
	fmt.Fprintln(stdout, a...)
}

// displayTime formats a server timestamp with the configured layout
func displayTime(ts string) string {
	layout := "2006-01-02 15:04"
	if appConfig != nil {
		layout = appConfig.DisplayDateFormat
	}
	return domain.FormatTimestamp(ts, layout)
}

// pickAsset lets the user choose an asset with a fuzzy finder
func pickAsset(prompt string, assets []domain.Asset) (domain.Asset, error) {
	if len(assets) == 0 {
		return domain.Asset{}, domain.NewValidationError("No assets to choose from")
	}

	idx, err := fuzzyfinder.Find(
		assets,
		func(i int) string {
			return ui.KindIcon(string(assets[i].Kind)) + " " + assets[i].FilePath
		},
		fuzzyfinder.WithPromptString(prompt),
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return ""
			}
			a := assets[i]
			return fmt.Sprintf("%s\n\nKind: %s\nSize: %s\nID:   %s",
				a.FilePath, a.Kind, domain.FormatBytes(a.SizeBytes), a.ID)
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return domain.Asset{}, domain.NewValidationError("Selection cancelled")
		}
		return domain.Asset{}, err
	}
	return assets[idx], nil
}

// pickProject lets the user choose a project with a fuzzy finder
func pickProject(projects []domain.ProjectSummary) (domain.ProjectSummary, error) {
	if len(projects) == 0 {
		return domain.ProjectSummary{}, domain.NewValidationError("No projects found")
	}

	idx, err := fuzzyfinder.Find(
		projects,
		func(i int) string { return projects[i].Name },
		fuzzyfinder.WithPromptString("project> "),
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return ""
			}
			p := projects[i]
			return fmt.Sprintf("%s\n\n%s\n\nFolder:  %s\nUpdated: %s",
				p.Name, domain.DescriptionOr(p.Description, ui.EmptyValue), p.FolderPath, displayTime(p.UpdatedAt))
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return domain.ProjectSummary{}, domain.NewValidationError("Selection cancelled")
		}
		return domain.ProjectSummary{}, err
	}
	return projects[idx], nil
}
