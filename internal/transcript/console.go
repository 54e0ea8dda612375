package transcript

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/p2pchat/internal/client"
)

// Console prints the chat transcript to a terminal.
type Console struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time

	timeStyle   lipgloss.Style
	selfStyle   lipgloss.Style
	peerStyle   lipgloss.Style
	systemStyle lipgloss.Style
	errorStyle  lipgloss.Style
}

// NewConsole writes to w, with colors only when w is a color terminal.
func NewConsole(w io.Writer) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		out:         w,
		now:         time.Now,
		timeStyle:   r.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		selfStyle:   r.NewStyle().Foreground(lipgloss.Color("#22d3ee")).Bold(true),
		peerStyle:   r.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true),
		systemStyle: r.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true),
		errorStyle:  r.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true),
	}
}

// Chat prints one chat line.
func (c *Console) Chat(nickname, text string, local bool) {
	style := c.peerStyle
	if local {
		style = c.selfStyle
	}
	c.println(style.Render(nickname+":") + " " + text)
}

// System prints a status line.
func (c *Console) System(text string) {
	c.println(c.systemStyle.Render("* " + text))
}

// Error prints a failure line.
func (c *Console) Error(text string) {
	c.println(c.errorStyle.Render("! " + text))
}

// Render prints a session event. Directory updates are not printed; the
// caller decides when to show the directory.
func (c *Console) Render(ev client.Event) {
	switch ev.Kind {
	case client.EventChat:
		c.Chat(ev.Nickname, ev.Text, ev.Local)
	case client.EventSystem:
		c.System(ev.Text)
	case client.EventStateChanged:
		c.System("state: " + ev.State.String())
	case client.EventPeerConnected:
		c.System(ev.Nickname + " connected")
	case client.EventPeerLeft:
		c.System(ev.Nickname + " left")
	case client.EventNickname:
		c.System(fmt.Sprintf("%s is %s", ev.From, ev.Nickname))
	case client.EventJoinRejected:
		c.Error(fmt.Sprintf("could not join %s: %s", ev.From, ev.Text))
	}
}

func (c *Console) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stamp := c.timeStyle.Render(c.now().Format("15:04"))
	fmt.Fprintln(c.out, stamp+" "+line)
}
