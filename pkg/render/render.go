// Package render is the thin terminal presentation the transformer hands
// its strings to: role-styled transcript lines, status badges and
// syntax-highlighted file edits.
package render

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/stackpad/stackpad/pkg/chat"
	"github.com/stackpad/stackpad/pkg/transform"
)

// Renderer formats snapshots for a line-oriented terminal
type Renderer struct {
	userStyle      lipgloss.Style
	assistantStyle lipgloss.Style
	statusStyle    lipgloss.Style
	fileEditStyle  lipgloss.Style
	loadingStyle   lipgloss.Style
	followUpStyle  lipgloss.Style

	chromaFormatter chroma.Formatter
}

// NewRenderer creates a renderer with terminal-friendly styling
func NewRenderer() *Renderer {
	formatter := formatters.Get("terminal16m")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	return &Renderer{
		userStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#6b93b5")),

		assistantStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ab937b")),

		statusStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#f5b761")),

		fileEditStyle: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#93b56b")).
			Padding(0, 1),

		loadingStyle: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#5c5044")),

		followUpStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#61afaf")),

		chromaFormatter: formatter,
	}
}

// StatusLine renders the session status badge
func (r *Renderer) StatusLine(status chat.Status) string {
	return r.statusStyle.Render("[" + status.String() + "]")
}

// Message renders one transcript message from its transformed content,
// expanding file-edit markers and the loading placeholder
func (r *Renderer) Message(role, rendered string) string {
	var out strings.Builder

	prefix := "assistant"
	style := r.assistantStyle
	if role == chat.RoleUser {
		prefix = "you"
		style = r.userStyle
	}
	out.WriteString(style.Render(prefix+":") + " ")

	for i, line := range strings.Split(rendered, "\n") {
		if i > 0 {
			out.WriteString("\n")
		}
		switch {
		case transform.IsMarker(line):
			edit, err := transform.DecodeMarker(line)
			if err != nil {
				out.WriteString(line)
				continue
			}
			out.WriteString(r.FileEdit(edit))
		case line == transform.LoadingMarker:
			out.WriteString(r.loadingStyle.Render("… writing code …"))
		default:
			out.WriteString(line)
		}
	}
	return out.String()
}

// FileEdit renders a decoded file edit as a titled, highlighted box
func (r *Renderer) FileEdit(edit transform.FileEdit) string {
	title := r.statusStyle.Render(edit.Filename)
	body := r.highlight(edit.Content, edit.Filename)
	return r.fileEditStyle.Render(title + "\n" + body)
}

// FollowUps renders the current suggestion set
func (r *Renderer) FollowUps(followUps []string) string {
	if len(followUps) == 0 {
		return ""
	}
	var out strings.Builder
	out.WriteString(r.followUpStyle.Render("suggestions:"))
	for i, f := range followUps {
		out.WriteString(fmt.Sprintf("\n  %d. %s", i+1, f))
	}
	return out.String()
}

func (r *Renderer) highlight(content, filename string) string {
	lexer := lexers.Match(filepath.Base(filename))
	if lexer == nil {
		lexer = lexers.Analyse(content)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}

	iterator, err := lexer.Tokenise(nil, content)
	if err != nil {
		return content
	}
	var buf strings.Builder
	if err := r.chromaFormatter.Format(&buf, styles.Get("monokai"), iterator); err != nil {
		return content
	}
	return buf.String()
}
