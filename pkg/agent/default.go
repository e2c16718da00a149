package agent

import (
	"context"
	"fmt"
	"sync"

	agentcontext "github.com/entrhq/recall/pkg/agent/context"
	"github.com/entrhq/recall/pkg/agent/longtermmemory"
	"github.com/entrhq/recall/pkg/agent/longtermmemory/capture"
	"github.com/entrhq/recall/pkg/agent/memory"
	"github.com/entrhq/recall/pkg/agent/prompts"
	"github.com/entrhq/recall/pkg/agent/tools"
	"github.com/entrhq/recall/pkg/attachments"
	"github.com/entrhq/recall/pkg/llm"
	"github.com/entrhq/recall/pkg/llm/tokenizer"
	"github.com/entrhq/recall/pkg/logging"
	"github.com/entrhq/recall/pkg/threads"
	"github.com/entrhq/recall/pkg/types"
)

var agentDebugLog *logging.Logger

func init() {
	var err error
	agentDebugLog, err = logging.NewLogger("agent")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		agentDebugLog.Warnf("Failed to initialize agent logger, using stderr fallback: %v", err)
	}
}

const (
	// DefaultMaxIterations bounds the model calls made for a single turn.
	DefaultMaxIterations = 10

	defaultBufferSize = 10

	// maxRepeatedErrors identical errors in a row end the turn.
	maxRepeatedErrors = 5
)

// MemoryController reconciles long-term memory with each user message and
// returns the facts relevant to it. *capture.Controller implements it.
type MemoryController interface {
	Apply(ctx context.Context, text, sessionID string) (*capture.Result, error)
	List(ctx context.Context) ([]*longtermmemory.Fact, error)
	Forget(ctx context.Context, id string) (*longtermmemory.Fact, error)
}

// ChatAgent is the chat assistant. Turns are processed one at a time in the
// order they arrive; a cancel input interrupts the turn in flight.
type ChatAgent struct {
	provider           llm.Provider
	providerMu         sync.RWMutex
	channels           *types.AgentChannels
	customInstructions string
	welcome            string
	sessionID          string
	maxIterations      int
	bufferSize         int

	tools *tools.Registry

	// history is the short-term memory. Only raw user inputs and final
	// replies are stored in it.
	history        *memory.ConversationMemory
	contextManager *agentcontext.Manager
	longTerm       MemoryController
	attachments    *attachments.Loader
	threads        threads.Store
	tokenizer      *tokenizer.Tokenizer

	// turnMu serializes turns, thread operations and history resets.
	turnMu sync.Mutex

	// Control channels
	cancelMu     sync.Mutex
	cancelStream context.CancelFunc
	stopping     chan struct{}
	shutdownOnce sync.Once

	// Running state
	running bool
	runMu   sync.Mutex

	// Error recovery state
	lastErrors [maxRepeatedErrors]string // Ring buffer of recent error messages
	errorIndex int                       // Current position in ring buffer

	// Per-session statistics
	statsMu               sync.Mutex
	lastPromptTokens      int
	totalPromptTokens     int
	totalCompletionTokens int
	lastFacts             []string
}

// AgentOption is a function that configures an agent
type AgentOption func(*ChatAgent)

// WithCustomInstructions sets user-provided instructions that are added to
// the system prompt.
func WithCustomInstructions(instructions string) AgentOption {
	return func(a *ChatAgent) {
		a.customInstructions = instructions
	}
}

// WithMaxIterations bounds the model calls made for one turn.
func WithMaxIterations(n int) AgentOption {
	return func(a *ChatAgent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// WithBufferSize sets the channel buffer size
func WithBufferSize(size int) AgentOption {
	return func(a *ChatAgent) {
		if size > 0 {
			a.bufferSize = size
		}
	}
}

// WithContextManager enables the rolling summary. Without one the full
// history is sent every turn.
func WithContextManager(manager *agentcontext.Manager) AgentOption {
	return func(a *ChatAgent) {
		a.contextManager = manager
	}
}

// WithMemory enables long-term memory.
func WithMemory(controller MemoryController) AgentOption {
	return func(a *ChatAgent) {
		a.longTerm = controller
	}
}

// WithAttachmentLoader replaces the default attachment loader.
func WithAttachmentLoader(loader *attachments.Loader) AgentOption {
	return func(a *ChatAgent) {
		a.attachments = loader
	}
}

// WithThreadStore enables saving and loading threads.
func WithThreadStore(store threads.Store) AgentOption {
	return func(a *ChatAgent) {
		a.threads = store
	}
}

// WithTools registers extra tools next to the built-in ones.
func WithTools(extra ...tools.Tool) AgentOption {
	return func(a *ChatAgent) {
		for _, t := range extra {
			if err := a.RegisterTool(t); err != nil {
				agentDebugLog.Warnf("Skipping tool: %v", err)
			}
		}
	}
}

// WithSessionID sets the session ID recorded on facts captured by this agent.
func WithSessionID(id string) AgentOption {
	return func(a *ChatAgent) {
		if id != "" {
			a.sessionID = id
		}
	}
}

// WithWelcomeMessage sets the message emitted when the agent starts. An
// empty message disables it.
func WithWelcomeMessage(msg string) AgentOption {
	return func(a *ChatAgent) {
		a.welcome = msg
	}
}

// WithHistory seeds the chat history.
func WithHistory(msgs []*types.Message) AgentOption {
	return func(a *ChatAgent) {
		a.history.Replace(msgs)
	}
}

// NewChatAgent creates a new ChatAgent with the given provider and options.
func NewChatAgent(provider llm.Provider, opts ...AgentOption) *ChatAgent {
	// Create tokenizer for client-side token counting
	tok, err := tokenizer.New()
	if err != nil {
		agentDebugLog.Warnf("Tokenizer unavailable, estimating token counts: %v", err)
		tok = nil
	}

	a := &ChatAgent{
		provider:      provider,
		bufferSize:    defaultBufferSize,
		maxIterations: DefaultMaxIterations,
		welcome:       prompts.WelcomeMessage,
		sessionID:     logging.GetSessionID(),
		tools:         tools.NewRegistry(tools.NewConverseTool(), tools.NewAskQuestionTool()),
		history:       memory.NewConversationMemory(),
		tokenizer:     tok,
		stopping:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.attachments == nil {
		// The default patterns are static and always compile.
		a.attachments, _ = attachments.NewLoader(nil, 0)
	}

	a.channels = types.NewAgentChannels(a.bufferSize)

	if a.contextManager != nil {
		a.contextManager.SetEventChannel(a.channels.Event)
		if tok != nil {
			a.contextManager.SetTokenizer(tok)
		}
	}

	return a
}

// Start begins the agent's event loop in a goroutine.
func (a *ChatAgent) Start(ctx context.Context) error {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return fmt.Errorf("agent is already running")
	}
	a.running = true
	a.runMu.Unlock()

	go a.eventLoop(ctx)

	return nil
}

// Shutdown stops the agent and waits for it to finish.
func (a *ChatAgent) Shutdown(ctx context.Context) error {
	a.shutdownOnce.Do(func() {
		close(a.channels.Shutdown)
	})

	select {
	case <-a.channels.Done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetChannels returns the communication channels for this agent.
func (a *ChatAgent) GetChannels() *types.AgentChannels {
	return a.channels
}

// SessionID returns the ID recorded on facts captured by this agent.
func (a *ChatAgent) SessionID() string {
	return a.sessionID
}

// eventLoop is the main processing loop for the agent. Cancellations are
// handled inline so they can interrupt the worker; everything else is
// queued and processed in order.
func (a *ChatAgent) eventLoop(ctx context.Context) {
	loopCtx, stop := context.WithCancel(ctx)
	queue := make(chan *types.Input, a.bufferSize)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for input := range queue {
			if loopCtx.Err() != nil {
				continue
			}
			a.processInput(loopCtx, input)
		}
	}()

	defer func() {
		close(a.stopping)
		stop()
		close(queue)
		wg.Wait()

		a.runMu.Lock()
		a.running = false
		a.runMu.Unlock()
		a.channels.Close()
	}()

	if a.welcome != "" {
		a.emitEvent(types.NewFinalReplyEvent(a.welcome).WithMetadata("welcome", true))
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-a.channels.Shutdown:
			return

		case input, ok := <-a.channels.Input:
			if !ok || input == nil {
				return
			}

			if input.IsCancel() {
				a.cancelCurrentTurn()
				continue
			}

			select {
			case queue <- input:
			case <-a.channels.Shutdown:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

// processInput dispatches one queued input.
func (a *ChatAgent) processInput(ctx context.Context, input *types.Input) {
	switch input.Type {
	case types.InputTypeUserInput:
		a.processUserInput(ctx, input)
	case types.InputTypeSaveThread:
		a.handleSaveThread(ctx, input)
	case types.InputTypeLoadThread:
		a.handleLoadThread(ctx, input)
	default:
		a.emitEvent(types.NewErrorEvent(fmt.Errorf("unsupported input type %q", input.Type)))
	}
}

func (a *ChatAgent) cancelCurrentTurn() {
	a.cancelMu.Lock()
	defer a.cancelMu.Unlock()
	if a.cancelStream != nil {
		a.cancelStream()
		a.cancelStream = nil
	}
}

// RegisterTool adds a tool to the agent's tool registry. The built-in
// converse and ask_question tools cannot be replaced.
func (a *ChatAgent) RegisterTool(tool tools.Tool) error {
	return a.tools.Register(tool)
}

// GetTool retrieves a specific tool by name from the agent's tool registry.
// Returns nil if the tool is not found.
func (a *ChatAgent) GetTool(name string) interface{} {
	t, ok := a.tools.Get(name)
	if !ok {
		return nil
	}
	return t
}

// GetTools returns every registered tool, sorted by name.
func (a *ChatAgent) GetTools() []interface{} {
	list := a.tools.List()
	out := make([]interface{}, len(list))
	for i, t := range list {
		out[i] = t
	}
	return out
}

// GetContextInfo returns context statistics for display.
func (a *ChatAgent) GetContextInfo() *ContextInfo {
	systemPrompt := a.buildSystemPrompt()
	summaryMsg, recent := a.window()

	windowMsgs := make([]*types.Message, 0, len(recent)+1)
	if summaryMsg != nil {
		windowMsgs = append(windowMsgs, summaryMsg)
	}
	windowMsgs = append(windowMsgs, recent...)

	info := &ContextInfo{
		SystemPromptTokens: a.tokenizer.Counter([]*types.Message{types.NewSystemMessage(systemPrompt)}),
		CustomInstructions: a.customInstructions != "",
		ToolNames:          a.tools.Names(),
		MessageCount:       a.history.Len(),
		WindowMessages:     len(windowMsgs),
		WindowTokens:       a.tokenizer.Counter(windowMsgs),
	}
	info.ToolCount = len(info.ToolNames)
	for _, msg := range a.history.GetAll() {
		if msg.Role == types.RoleUser {
			info.ConversationTurns++
		}
	}

	if a.contextManager != nil {
		s := a.contextManager.Summary()
		info.SummarizedMessages = s.Covered
		info.SummaryFolds = s.Count
		if summaryMsg != nil {
			info.SummaryTokens = a.tokenizer.Counter([]*types.Message{summaryMsg})
		}
		info.MaxContextTokens = a.contextManager.GetMaxTokens()
	}
	if info.MaxContextTokens == 0 {
		if mi := a.GetProvider().GetModelInfo(); mi != nil {
			info.MaxContextTokens = mi.MaxTokens
		}
	}

	a.statsMu.Lock()
	info.RecalledFacts = len(a.lastFacts)
	info.CurrentContextTokens = a.lastPromptTokens
	info.TotalPromptTokens = a.totalPromptTokens
	info.TotalCompletionTokens = a.totalCompletionTokens
	a.statsMu.Unlock()
	info.TotalTokens = info.TotalPromptTokens + info.TotalCompletionTokens

	if info.CurrentContextTokens == 0 {
		info.CurrentContextTokens = info.SystemPromptTokens + info.WindowTokens
	}
	if info.MaxContextTokens > 0 {
		info.FreeTokens = info.MaxContextTokens - info.CurrentContextTokens
		if info.FreeTokens < 0 {
			info.FreeTokens = 0
		}
		info.UsagePercent = float64(info.CurrentContextTokens) / float64(info.MaxContextTokens) * 100
	}

	return info
}

// GetProvider returns the current LLM provider
func (a *ChatAgent) GetProvider() llm.Provider {
	a.providerMu.RLock()
	defer a.providerMu.RUnlock()
	return a.provider
}

// SetProvider updates the LLM provider used for chat completions.
func (a *ChatAgent) SetProvider(provider llm.Provider) error {
	if provider == nil {
		return fmt.Errorf("provider cannot be nil")
	}
	a.providerMu.Lock()
	defer a.providerMu.Unlock()
	a.provider = provider
	return nil
}
