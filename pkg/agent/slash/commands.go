// Package slash parses and runs the slash commands shared by the interactive
// executors. Commands that only read or reset agent state run directly; the
// rest are returned to the executor as an Action to carry out.
package slash

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/entrhq/recall/pkg/agent"
	agentcontext "github.com/entrhq/recall/pkg/agent/context"
	"github.com/entrhq/recall/pkg/agent/longtermmemory"
	"github.com/entrhq/recall/pkg/types"
)

// Command is a parsed slash command.
type Command struct {
	Name string
	Arg  string
}

// Parse splits input of the form "/name arg" into a Command. It reports
// false when input is not a slash command.
func Parse(input string) (*Command, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return nil, false
	}
	body := strings.TrimPrefix(input, "/")
	name, arg, _ := strings.Cut(body, " ")
	return &Command{
		Name: strings.ToLower(name),
		Arg:  strings.TrimSpace(arg),
	}, true
}

// ShouldIntercept reports whether input must be handled as a command
// instead of being sent to the agent as a message.
func ShouldIntercept(input string) bool {
	_, ok := Parse(input)
	return ok
}

// Action tells the executor what to do after a command ran.
type Action int

const (
	// ActionNone means the command is complete; show Output if set.
	ActionNone Action = iota
	// ActionSend means Input must be sent on the agent's input channel.
	ActionSend
	// ActionConfirm means Input must only be sent after the user confirms
	// the Output question.
	ActionConfirm
	// ActionAttach means Paths are to be attached to the next message.
	ActionAttach
	// ActionCopy means the last reply is to be copied to the clipboard.
	ActionCopy
	// ActionClear means the conversation was reset; the transcript shown
	// to the user should be cleared.
	ActionClear
	// ActionQuit ends the session.
	ActionQuit
)

// Result is the outcome of Execute.
type Result struct {
	Output string
	Input  *types.Input
	Paths  []string
	Action Action
}

// Agent is the agent surface the commands use.
type Agent interface {
	ThreadExists(ctx context.Context, name string) (bool, error)
	ListThreads(ctx context.Context) ([]string, error)
	Memories(ctx context.Context) ([]*longtermmemory.Fact, error)
	Forget(ctx context.Context, id string) (*longtermmemory.Fact, error)
	Summary() agentcontext.Summary
	ClearHistory()
	GetContextInfo() *agent.ContextInfo
}

var (
	// ErrUnknownCommand is returned for names not in the command table.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrMissingArgument is returned when a command needs an argument.
	ErrMissingArgument = errors.New("missing argument")
)

type commandDef struct {
	usage       string
	description string
	run         func(h *Handler, ctx context.Context, arg string) (*Result, error)
}

// commands is filled in init; the help entry refers back to the table.
var commands map[string]commandDef

func init() {
	commands = map[string]commandDef{
		"save":     {"/save <name> [!]", "Save the conversation as a thread; ! overwrites", (*Handler).save},
		"load":     {"/load <name>", "Replace the conversation with a saved thread", (*Handler).load},
		"threads":  {"/threads", "List saved threads", (*Handler).threads},
		"attach":   {"/attach <path>...", "Attach files to the next message", (*Handler).attach},
		"memories": {"/memories [text]", "List long-term memories, optionally filtered", (*Handler).memories},
		"forget":   {"/forget <id>", "Delete a long-term memory by ID or ID prefix", (*Handler).forget},
		"summary":  {"/summary", "Show the rolling summary of older messages", (*Handler).summary},
		"context":  {"/context", "Show prompt and token usage", (*Handler).context},
		"clear":    {"/clear", "Start a new conversation, keeping memories", (*Handler).clear},
		"copy":     {"/copy", "Copy the last reply to the clipboard", (*Handler).copyReply},
		"help":     {"/help", "Show this list", (*Handler).help},
		"quit":     {"/quit", "Exit", (*Handler).quit},
	}
}

var aliases = map[string]string{
	"exit": "quit",
	"q":    "quit",
	"new":  "clear",
}

// Names returns the command names in order.
func Names() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the usage line and description of a command.
func Describe(name string) (usage, description string, ok bool) {
	s, ok := commands[name]
	return s.usage, s.description, ok
}

// Handler runs commands against an agent.
type Handler struct {
	agent Agent
}

// NewHandler creates a handler for ag.
func NewHandler(ag Agent) *Handler {
	return &Handler{agent: ag}
}

// Execute runs cmd.
func (h *Handler) Execute(ctx context.Context, cmd *Command) (*Result, error) {
	name := cmd.Name
	if target, ok := aliases[name]; ok {
		name = target
	}
	s, ok := commands[name]
	if !ok {
		return nil, fmt.Errorf("%w: /%s (try /help)", ErrUnknownCommand, cmd.Name)
	}
	return s.run(h, ctx, cmd.Arg)
}

func (h *Handler) save(ctx context.Context, arg string) (*Result, error) {
	name, force := strings.CutSuffix(arg, "!")
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: usage /save <name>", ErrMissingArgument)
	}
	if force {
		return &Result{Action: ActionSend, Input: types.NewSaveThreadInput(name, true)}, nil
	}

	exists, err := h.agent.ThreadExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return &Result{
			Action: ActionConfirm,
			Input:  types.NewSaveThreadInput(name, true),
			Output: fmt.Sprintf("Thread %q already exists. Overwrite it? (y/n)", name),
		}, nil
	}
	return &Result{Action: ActionSend, Input: types.NewSaveThreadInput(name, false)}, nil
}

func (h *Handler) load(_ context.Context, arg string) (*Result, error) {
	if arg == "" {
		return nil, fmt.Errorf("%w: usage /load <name>", ErrMissingArgument)
	}
	return &Result{Action: ActionSend, Input: types.NewLoadThreadInput(arg)}, nil
}

func (h *Handler) threads(ctx context.Context, _ string) (*Result, error) {
	names, err := h.agent.ListThreads(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return &Result{Output: "No saved threads."}, nil
	}
	var b strings.Builder
	b.WriteString("Saved threads:")
	for _, name := range names {
		b.WriteString("\n  " + name)
	}
	return &Result{Output: b.String()}, nil
}

func (h *Handler) attach(_ context.Context, arg string) (*Result, error) {
	paths := strings.Fields(arg)
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: usage /attach <path>...", ErrMissingArgument)
	}
	return &Result{
		Action: ActionAttach,
		Paths:  paths,
		Output: fmt.Sprintf("Attached %d file(s) to the next message.", len(paths)),
	}, nil
}

func (h *Handler) memories(ctx context.Context, arg string) (*Result, error) {
	facts, err := h.agent.Memories(ctx)
	if err != nil {
		return nil, err
	}
	filter := strings.ToLower(arg)
	var b strings.Builder
	n := 0
	for _, f := range facts {
		if filter != "" && !strings.Contains(strings.ToLower(f.Content), filter) {
			continue
		}
		if n == 0 {
			b.WriteString("Long-term memories:")
		}
		n++
		fmt.Fprintf(&b, "\n  [%s] %s (%s)", ShortID(f.ID), f.Content, f.Category)
	}
	if n == 0 {
		return &Result{Output: "No memories stored."}, nil
	}
	return &Result{Output: b.String()}, nil
}

func (h *Handler) forget(ctx context.Context, arg string) (*Result, error) {
	if arg == "" {
		return nil, fmt.Errorf("%w: usage /forget <id>", ErrMissingArgument)
	}
	facts, err := h.agent.Memories(ctx)
	if err != nil {
		return nil, err
	}
	id, err := resolveID(facts, arg)
	if err != nil {
		return nil, err
	}
	prev, err := h.agent.Forget(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Result{Output: fmt.Sprintf("Forgot: %s", prev.Content)}, nil
}

func (h *Handler) summary(_ context.Context, _ string) (*Result, error) {
	s := h.agent.Summary()
	if s.IsEmpty() {
		return &Result{Output: "No summary yet."}, nil
	}
	return &Result{Output: fmt.Sprintf("Summary of the first %d messages:\n%s", s.Covered, s.Content)}, nil
}

func (h *Handler) context(_ context.Context, _ string) (*Result, error) {
	info := h.agent.GetContextInfo()
	var b strings.Builder
	fmt.Fprintf(&b, "Tools: %d (%s)\n", info.ToolCount, strings.Join(info.ToolNames, ", "))
	fmt.Fprintf(&b, "History: %d messages, %d turns\n", info.MessageCount, info.ConversationTurns)
	fmt.Fprintf(&b, "Summary: %d messages in %d folds, %d tokens\n", info.SummarizedMessages, info.SummaryFolds, info.SummaryTokens)
	fmt.Fprintf(&b, "Window: %d messages, %d tokens\n", info.WindowMessages, info.WindowTokens)
	fmt.Fprintf(&b, "Recalled facts: %d\n", info.RecalledFacts)
	fmt.Fprintf(&b, "Context: %d / %d tokens (%.1f%%)\n", info.CurrentContextTokens, info.MaxContextTokens, info.UsagePercent)
	fmt.Fprintf(&b, "Session usage: %d in, %d out, %d total", info.TotalPromptTokens, info.TotalCompletionTokens, info.TotalTokens)
	return &Result{Output: b.String()}, nil
}

func (h *Handler) clear(_ context.Context, _ string) (*Result, error) {
	h.agent.ClearHistory()
	return &Result{Action: ActionClear, Output: "Started a new conversation. Long-term memories are kept."}, nil
}

func (h *Handler) copyReply(_ context.Context, _ string) (*Result, error) {
	return &Result{Action: ActionCopy}, nil
}

func (h *Handler) help(_ context.Context, _ string) (*Result, error) {
	return &Result{Output: Help()}, nil
}

func (h *Handler) quit(_ context.Context, _ string) (*Result, error) {
	return &Result{Action: ActionQuit}, nil
}

// Help renders the command table.
func Help() string {
	var b strings.Builder
	b.WriteString("Commands:")
	for _, name := range Names() {
		s := commands[name]
		fmt.Fprintf(&b, "\n  %-20s %s", s.usage, s.description)
	}
	return b.String()
}

// ShortID is the abbreviated form of a fact ID shown to users.
func ShortID(id string) string {
	short := strings.TrimPrefix(id, longtermmemory.IDPrefix)
	if len(short) > 8 {
		short = short[:8]
	}
	return short
}

func resolveID(facts []*longtermmemory.Fact, ref string) (string, error) {
	var match string
	for _, f := range facts {
		if f.ID == ref {
			return f.ID, nil
		}
		if strings.HasPrefix(strings.TrimPrefix(f.ID, longtermmemory.IDPrefix), ref) {
			if match != "" {
				return "", fmt.Errorf("memory ID %q is ambiguous", ref)
			}
			match = f.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("memory %q: %w", ref, longtermmemory.ErrNotFound)
	}
	return match, nil
}
