// Package ui renders client state for a terminal.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"docdisk/internal/docdisk"
)

const (
	// EmptyListText is shown when the user has no documents.
	EmptyListText = "No documents yet. Create your first document!"

	snippetLength = 100
	dateLayout    = "Jan 2, 2006, 03:04 PM"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	bannerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	severityStyles = map[docdisk.Severity]lipgloss.Style{
		docdisk.SeverityInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		docdisk.SeveritySuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		docdisk.SeverityWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		docdisk.SeverityError:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
	severityMarks = map[docdisk.Severity]string{
		docdisk.SeverityInfo:    "i",
		docdisk.SeveritySuccess: "✓",
		docdisk.SeverityWarning: "!",
		docdisk.SeverityError:   "✗",
	}
)

// Renderer formats documents and messages. Dates are shown in Location.
type Renderer struct {
	Location *time.Location
}

// NewRenderer returns a Renderer that shows dates in loc, or local time if loc is nil.
func NewRenderer(loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{Location: loc}
}

// FormatDate formats t like "Jan 15, 2024, 10:30 AM".
func FormatDate(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(dateLayout)
}

// Snippet returns the first 100 characters of content followed by "...".
func Snippet(content string) string {
	r := []rune(content)
	if len(r) > snippetLength {
		r = r[:snippetLength]
	}
	return strings.ReplaceAll(string(r), "\n", " ") + "..."
}

func (r *Renderer) Notification(n docdisk.Notification) string {
	style, ok := severityStyles[n.Severity]
	if !ok {
		style = severityStyles[docdisk.SeverityInfo]
	}
	mark := severityMarks[n.Severity]
	if mark == "" {
		mark = severityMarks[docdisk.SeverityInfo]
	}
	return style.Render(mark + " " + n.Message)
}

// Banner renders the inline error line. An empty message renders as "".
func (r *Renderer) Banner(msg string) string {
	if msg == "" {
		return ""
	}
	return bannerStyle.Render(msg)
}

// DocumentList renders the list view body.
func (r *Renderer) DocumentList(docs []docdisk.Document) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Your Documents"))
	b.WriteString("\n\n")

	if len(docs) == 0 {
		b.WriteString(mutedStyle.Render(EmptyListText))
		b.WriteString("\n")
		return b.String()
	}

	for i, doc := range docs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s  %s\n", idStyle.Render(doc.ID), titleStyle.Render(doc.Title))
		fmt.Fprintf(&b, "  %s\n", Snippet(doc.Content))
		fmt.Fprintf(&b, "  %s\n", mutedStyle.Render(FormatDate(doc.UpdatedAt, r.Location)))
	}
	return b.String()
}

// Document renders one document in full.
func (r *Renderer) Document(doc docdisk.Document) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(doc.Title))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%s · updated %s", doc.ID, FormatDate(doc.UpdatedAt, r.Location))))
	b.WriteString("\n\n")
	b.WriteString(doc.Content)
	if !strings.HasSuffix(doc.Content, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

// Editor renders the editor view with the selection marked by [ and ].
func (r *Renderer) Editor(v docdisk.EditorView) string {
	var b strings.Builder
	heading := "Edit Document"
	if v.IsNew() {
		heading = "New Document"
	}
	b.WriteString(headingStyle.Render(heading))
	b.WriteString("\n\n")

	if v.Draft == nil {
		return b.String()
	}
	title := v.Draft.Title
	if strings.TrimSpace(title) == "" {
		title = mutedStyle.Render("(untitled)")
	}
	fmt.Fprintf(&b, "Title: %s\n", title)
	b.WriteString(mutedStyle.Render("Content:"))
	b.WriteString("\n")

	content := []rune(v.Draft.Content)
	start, end := v.Draft.Selection()
	end = min(end, len(content))
	start = min(start, end)
	b.WriteString(string(content[:start]))
	b.WriteString(idStyle.Render("["))
	b.WriteString(string(content[start:end]))
	b.WriteString(idStyle.Render("]"))
	b.WriteString(string(content[end:]))
	b.WriteString("\n")
	return b.String()
}
