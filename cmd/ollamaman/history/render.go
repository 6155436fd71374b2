package historycmder

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/g023/g023-OllamaMan-sub000/pkg/llm"
	"github.com/g023/g023-OllamaMan-sub000/pkg/storage"
)

const defaultWidth = 100

// terminal describes where output goes. Styles render as plain text unless
// the writer is a color terminal.
type terminal struct {
	isTTY bool
	width int

	star  lipgloss.Style
	id    lipgloss.Style
	model lipgloss.Style
	title lipgloss.Style
	role  lipgloss.Style
}

func detectTerminal(w io.Writer) terminal {
	t := terminal{width: defaultWidth}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t.isTTY = true
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			t.width = width
		}
	}

	r := lipgloss.NewRenderer(w)
	t.star = r.NewStyle().Foreground(lipgloss.Color("11"))
	t.id = r.NewStyle().Faint(true)
	t.model = r.NewStyle().Foreground(lipgloss.Color("6"))
	t.title = r.NewStyle().Bold(true)
	t.role = r.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	return t
}

// markdownStyle picks a glamour style for the terminal.
func (t terminal) markdownStyle() string {
	if !t.isTTY {
		return "notty"
	}
	if termenv.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

func (t terminal) listLine(conv *storage.Conversation) string {
	star := " "
	if conv.Starred {
		star = t.star.Render("*")
	}
	head := star + " " + t.id.Render(conv.ID) + "  " +
		conv.CreatedAt.Local().Format("2006-01-02 15:04") + "  " +
		t.model.Render(padRight(conv.Model, 20)) + " "

	room := t.width - ansi.StringWidth(head)
	if room < 20 {
		room = 20
	}
	return head + ansi.Truncate(summary(conv), room, "...")
}

// summary is the title, or the first user message when there is none.
func summary(conv *storage.Conversation) string {
	if conv.Title != nil && *conv.Title != "" {
		return *conv.Title
	}
	for _, m := range conv.Messages {
		if m.Role == llm.RoleUser {
			return strings.Join(strings.Fields(m.Content), " ")
		}
	}
	return ""
}

func padRight(s string, n int) string {
	if w := ansi.StringWidth(s); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s
}

// printConversation writes the header and every message. With markdown set,
// assistant replies are rendered through glamour.
func (t terminal) printConversation(w io.Writer, conv *storage.Conversation, markdown bool) error {
	title := "(untitled)"
	if conv.Title != nil {
		title = *conv.Title
	}
	io.WriteString(w, t.title.Render(title)+"\n")
	io.WriteString(w, "Model: "+t.model.Render(conv.Model)+"\n")
	io.WriteString(w, "Date:  "+conv.CreatedAt.Local().Format("2006-01-02 15:04:05")+"\n")

	var renderer *glamour.TermRenderer
	if markdown {
		var err error
		renderer, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle(t.markdownStyle()),
			glamour.WithWordWrap(t.width),
		)
		if err != nil {
			return err
		}
	}

	for _, m := range conv.Messages {
		body := m.Content
		if renderer != nil && m.Role == llm.RoleAssistant {
			rendered, err := renderer.Render(m.Content)
			if err != nil {
				return err
			}
			body = strings.TrimRight(rendered, "\n")
		}
		io.WriteString(w, "\n"+t.role.Render("["+m.Role+"]")+"\n"+body+"\n")
	}
	return nil
}
