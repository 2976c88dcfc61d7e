package ui

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Highlight colours JSON or YAML output for the terminal. The chroma style
// follows the active theme and the formatter the colour depth. On failure
// content is returned as is.
func Highlight(content, language string) string {
	formatter := terminalFormatter()
	if formatter == nil {
		return content
	}

	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}

	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, content)
	if err != nil {
		return content
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, chromaStyle(), iterator); err != nil {
		return content
	}
	return buf.String()
}

func chromaStyle() *chroma.Style {
	name := "github"
	if darkBackground() {
		name = "monokai"
	}
	if s := styles.Get(name); s != nil {
		return s
	}
	return styles.Fallback
}

// terminalFormatter returns nil when the output has no colour support
func terminalFormatter() chroma.Formatter {
	switch lipgloss.ColorProfile() {
	case termenv.TrueColor:
		return formatters.TTY16m
	case termenv.ANSI256:
		return formatters.TTY256
	case termenv.ANSI:
		return formatters.TTY16
	default:
		return nil
	}
}
