package types

// InputType defines the type of input being sent to the agent.
type InputType string

const (
	InputTypeCancel     InputType = "cancel"      // InputTypeCancel indicates a cancellation request.
	InputTypeUserInput  InputType = "user_input"  // InputTypeUserInput indicates a chat message from the user.
	InputTypeSaveThread InputType = "save_thread" // InputTypeSaveThread asks the agent to save its history under a name.
	InputTypeLoadThread InputType = "load_thread" // InputTypeLoadThread asks the agent to replace its history with a saved thread.
)

// Input represents various types of input that can be sent to an agent.
type Input struct {
	// Metadata holds optional additional information about the input.
	Metadata map[string]interface{}

	// Content is the text typed by the user.
	Content string

	// Attachments lists file paths to read into the turn. They are rendered
	// ahead of Content in the prompt but never stored in chat history.
	Attachments []string

	// Thread is the thread name for save and load requests.
	Thread string

	// Type indicates the kind of input.
	Type InputType

	// Overwrite allows a save request to replace an existing thread.
	Overwrite bool
}

// NewCancelInput creates a new cancellation input.
func NewCancelInput() *Input {
	return &Input{
		Type:     InputTypeCancel,
		Metadata: make(map[string]interface{}),
	}
}

// NewUserInput creates a new user text input.
func NewUserInput(content string, attachments ...string) *Input {
	return &Input{
		Type:        InputTypeUserInput,
		Content:     content,
		Attachments: attachments,
		Metadata:    make(map[string]interface{}),
	}
}

// NewSaveThreadInput creates a request to save the chat history as thread.
func NewSaveThreadInput(thread string, overwrite bool) *Input {
	return &Input{
		Type:      InputTypeSaveThread,
		Thread:    thread,
		Overwrite: overwrite,
		Metadata:  make(map[string]interface{}),
	}
}

// NewLoadThreadInput creates a request to load a saved thread.
func NewLoadThreadInput(thread string) *Input {
	return &Input{
		Type:     InputTypeLoadThread,
		Thread:   thread,
		Metadata: make(map[string]interface{}),
	}
}

// WithMetadata adds metadata to the input and returns the input for chaining.
func (i *Input) WithMetadata(key string, value interface{}) *Input {
	if i.Metadata == nil {
		i.Metadata = make(map[string]interface{})
	}
	i.Metadata[key] = value
	return i
}

// IsCancel returns true if this is a cancellation input.
func (i *Input) IsCancel() bool {
	return i.Type == InputTypeCancel
}

// IsUserInput returns true if this is a user text input.
func (i *Input) IsUserInput() bool {
	return i.Type == InputTypeUserInput
}

// IsThreadRequest returns true if this is a save or load thread request.
func (i *Input) IsThreadRequest() bool {
	return i.Type == InputTypeSaveThread || i.Type == InputTypeLoadThread
}

// HasAttachments reports whether the input carries file attachments.
func (i *Input) HasAttachments() bool {
	return len(i.Attachments) > 0
}
