package ui

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// LIMA palette. Light values are darker shades of the same hue so text
// stays readable on white terminals.
var (
	ColorPrimary = lipgloss.AdaptiveColor{Light: "30", Dark: "44"}   // teal
	ColorAccent  = lipgloss.AdaptiveColor{Light: "166", Dark: "214"} // filament orange
	ColorSuccess = lipgloss.AdaptiveColor{Light: "28", Dark: "42"}
	ColorError   = lipgloss.AdaptiveColor{Light: "160", Dark: "203"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "136", Dark: "220"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "25", Dark: "75"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "244", Dark: "243"}
	ColorDefault = lipgloss.AdaptiveColor{Light: "235", Dark: "252"}
)

var (
	StyleSuccess lipgloss.Style
	StyleError   lipgloss.Style
	StylePrimary lipgloss.Style
	StyleInfo    lipgloss.Style
	StyleMuted   lipgloss.Style
	StyleWarning lipgloss.Style
	StyleAccent  lipgloss.Style

	StyleTitle       lipgloss.Style
	StyleHeader      lipgloss.Style
	StyleSubtle      lipgloss.Style
	StyleBold        lipgloss.Style
	StyleTableHeader lipgloss.Style
	StyleTableRow    lipgloss.Style
	StyleTableRowAlt lipgloss.Style
	StyleTableBorder lipgloss.Style
)

const (
	IconSuccess = "✔"
	IconError   = "✘"
	IconInfo    = "ℹ"
	IconWarning = "⚠"
	IconProject = "📁"
	IconImage   = "🖼"
	IconModel   = "🧊"
	IconFile    = "📄"
	IconUpload  = "⇪"
	IconMain    = "★"
)

// EmptyValue is shown in place of missing optional fields
const EmptyValue = "—"

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// theme is the value last passed to SetTheme
var theme = "auto"

func init() {
	SetTheme("auto")
}

// SetTheme selects "dark", "light" or "auto" (detect from the terminal)
// and rebuilds every style
func SetTheme(name string) {
	switch name {
	case "light":
		lipgloss.SetHasDarkBackground(false)
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	default:
		name = "auto"
	}
	theme = name

	base := lipgloss.NewStyle()
	StyleSuccess = base.Foreground(ColorSuccess).Bold(true)
	StyleError = base.Foreground(ColorError).Bold(true)
	StylePrimary = base.Foreground(ColorPrimary).Bold(true)
	StyleInfo = base.Foreground(ColorInfo)
	StyleMuted = base.Foreground(ColorMuted)
	StyleWarning = base.Foreground(ColorWarning).Bold(true)
	StyleAccent = base.Foreground(ColorAccent)

	StyleHeader = StylePrimary
	StyleTitle = StylePrimary.Underline(true)
	StyleSubtle = StyleMuted.Italic(true)
	StyleBold = base.Bold(true)

	StyleTableHeader = StyleHeader
	StyleTableRow = base.Foreground(ColorDefault)
	StyleTableRowAlt = StyleTableRow.Faint(true)
	StyleTableBorder = StyleMuted
}

// darkBackground reports whether styles currently target a dark terminal
func darkBackground() bool {
	switch theme {
	case "light":
		return false
	case "dark":
		return true
	default:
		return lipgloss.HasDarkBackground()
	}
}

func withIcon(style lipgloss.Style, icon, msg string) string {
	return style.Render(icon + " " + msg)
}

func FormatSuccess(msg string) string { return withIcon(StyleSuccess, IconSuccess, msg) }
func FormatError(msg string) string   { return withIcon(StyleError, IconError, msg) }
func FormatInfo(msg string) string    { return withIcon(StyleInfo, IconInfo, msg) }
func FormatWarning(msg string) string { return withIcon(StyleWarning, IconWarning, msg) }

// FormatUpload reports bundle upload progress
func FormatUpload(msg string) string { return withIcon(StyleAccent, IconUpload, msg) }

func FormatTitle(title string) string { return StyleTitle.Render(title) }
func FormatMuted(text string) string  { return StyleMuted.Render(text) }

// StatusBadge colours a bundle or upload status by outcome
func StatusBadge(status string) string {
	switch status {
	case "consumed", "ready":
		return StyleSuccess.Render(status)
	case "staged", "pending":
		return StyleWarning.Render(status)
	case "failed":
		return StyleError.Render(status)
	default:
		return StyleMuted.Render(status)
	}
}

// KindIcon returns the icon for an asset kind
func KindIcon(kind string) string {
	switch kind {
	case "image":
		return IconImage
	case "model":
		return IconModel
	default:
		return IconFile
	}
}

// TagChip renders a tag name on its own colour. Tags without a valid hex
// colour use the accent colour as foreground.
func TagChip(name, color string) string {
	style := lipgloss.NewStyle().Padding(0, 1).Bold(true)
	if hexColor.MatchString(color) {
		return style.Background(lipgloss.Color(color)).Foreground(lipgloss.Color("0")).Render(name)
	}
	return style.Foreground(ColorAccent).Render(name)
}

// TagChips renders chips separated by a space
func TagChips(names, colors []string) string {
	chips := make([]string, len(names))
	for i, name := range names {
		var color string
		if i < len(colors) {
			color = colors[i]
		}
		chips[i] = TagChip(name, color)
	}
	return strings.Join(chips, " ")
}

// OrEmpty returns EmptyValue when s is blank
func OrEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return EmptyValue
	}
	return s
}
