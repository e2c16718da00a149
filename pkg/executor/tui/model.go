package tui

import (
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/entrhq/recall/pkg/agent/slash"
	"github.com/entrhq/recall/pkg/types"
)

// model represents the state of the TUI application.
type model struct {
	// Bubble Tea components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// Agent integration
	agent    slash.Agent
	channels *types.AgentChannels
	commands *slash.Handler

	// Rendering
	opts     Options
	renderer *replyRenderer
	copy     func(string) error

	// Content buffers. content holds committed transcript text; stream holds
	// the text of the model call in progress.
	content *strings.Builder
	stream  *strings.Builder

	// UI state
	panel *panel
	toast *toastNotification

	// Pending user state
	confirm     *types.Input // save waiting for y/n
	attachments []string     // files for the next message
	lastReply   string

	// Agent state
	agentBusy             bool
	summarizing           bool
	currentLoadingMessage string

	// Window dimensions
	width  int
	height int
	ready  bool

	// Token usage tracking
	totalPromptTokens     int
	totalCompletionTokens int
	totalTokens           int
	currentContextTokens  int
	maxContextTokens      int
	recalledFacts         int

	shouldQuit bool
}

// toastNotification represents a temporary notification message.
type toastNotification struct {
	message   string
	details   string
	icon      string
	isError   bool
	showUntil time.Time
}

// agentChannels is the part of Agent the model needs besides slash.Agent.
type agentChannels interface {
	slash.Agent
	GetChannels() *types.AgentChannels
}

func newModel(ag agentChannels, opts Options) *model {
	ta := textarea.New()
	ta.Placeholder = "Send a message or type / for commands..."
	ta.Focus()
	ta.Prompt = "> "
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(1)
	ta.MaxHeight = 8
	ta.KeyMap.InsertNewline.SetEnabled(false)

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return &model{
		viewport: vp,
		textarea: ta,
		spinner:  sp,
		agent:    ag,
		channels: ag.GetChannels(),
		commands: slash.NewHandler(ag),
		opts:     opts,
		renderer: newReplyRenderer(opts.RenderMarkdown),
		copy:     clipboard.WriteAll,
		content:  &strings.Builder{},
		stream:   &strings.Builder{},
	}
}
