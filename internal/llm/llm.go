// Package llm specifies the provider boundary the control loops call
// through: the four prompt functions (act, extract, observe,
// verifyActCompletion) are an external collaborator, specified here only
// by their request/response shapes. No concrete provider is implemented
// in this module; callers supply a Provider (an HTTP client to a hosted
// model, a local runtime, or a test double).
package llm

import "context"

// ObserveRequest is sent once per observe call.
type ObserveRequest struct {
	Instruction string
	DOMElements string
	Screenshot  []byte // present only when vision is used
	ModelName   string
	RequestID   string
}

// ObservedElement is one entry in an ObserveResponse.
type ObservedElement struct {
	ElementID   int
	Description string
}

// ObserveResponse is the model's answer to an observe call.
type ObserveResponse struct {
	Elements []ObservedElement
}

// ExtractRequest is sent once per extract loop iteration.
type ExtractRequest struct {
	Instruction               string
	Progress                  string
	PreviouslyExtractedContent map[string]any
	DOMElements               string
	Schema                    map[string]any
	ChunksSeen                int
	ChunksTotal               int
	ModelName                 string
	RequestID                 string
}

// ExtractMetadata carries the loop-control fields of an extract response,
// separate from the schema-shaped payload fields.
type ExtractMetadata struct {
	Progress  string
	Completed bool
}

// ExtractResponse is the model's answer to one extract iteration: the
// loop-control metadata plus a schema-shaped partial value.
type ExtractResponse struct {
	Metadata ExtractMetadata
	Fields   map[string]any
}

// ActRequest is sent once per act loop iteration.
type ActRequest struct {
	Action     string
	DOMElements string
	Steps      string
	Screenshot []byte // present only when vision is used
	ModelName  string
	RequestID  string
}

// ActCommand is the model's chosen next step. A nil *ActCommand from Act
// means "no actionable element in this chunk".
type ActCommand struct {
	ElementID int
	Method    string
	Args      []any
	Step      string
	Why       string
	Completed bool
}

// VerifyRequest is sent once per completion-verification call.
type VerifyRequest struct {
	Goal        string
	Steps       string
	Screenshot  []byte // present only when verifierUseVision
	DOMElements string  // present only when not using vision
	ModelName   string
	RequestID   string
}

// Provider is the LLM boundary the control loops call through.
type Provider interface {
	// SupportsVision reports whether modelName accepts image inputs.
	SupportsVision(modelName string) bool

	Observe(ctx context.Context, req ObserveRequest) (ObserveResponse, error)
	Extract(ctx context.Context, req ExtractRequest) (ExtractResponse, error)
	Act(ctx context.Context, req ActRequest) (*ActCommand, error)
	VerifyActCompletion(ctx context.Context, req VerifyRequest) (bool, error)
}
