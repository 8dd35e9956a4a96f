// MCP tool registration for the three control-loop operations and the
// Markdown render.
package agent

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/domloop/internal/mcptool"
)

// RegisterMCP registers act, extract, observe, and render as MCP tools
// on srv.
func (a *Agent) RegisterMCP(srv *mcp.Server) {
	a.registerActTool(srv)
	a.registerExtractTool(srv)
	a.registerObserveTool(srv)
	a.registerRenderTool(srv)
}

// --- act ---

type actRequest struct {
	Action            string `json:"action"`
	ModelName         string `json:"model_name,omitempty"`
	UseVision         string `json:"use_vision,omitempty"` // "true" | "false" | "fallback"
	VerifierUseVision bool   `json:"verifier_use_vision,omitempty"`
}

func (a *Agent) registerActTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domloop_act",
		Description: "Perform a single natural-language browser action (click, type, press a key, hover, check, scroll into view) against the current page.",
		InputSchema: mcptool.InputSchema(map[string]any{
			"action":              map[string]any{"type": "string", "description": "Natural-language description of the action to perform"},
			"model_name":          map[string]any{"type": "string", "description": "Model to use for planning"},
			"use_vision":          map[string]any{"type": "string", "enum": []any{"true", "false", "fallback"}, "description": "Vision policy (default fallback)"},
			"verifier_use_vision": map[string]any{"type": "boolean", "description": "Use a screenshot for completion verification"},
		}, []string{"action"}),
	}

	mcptool.Register(srv, tool, func(ctx context.Context, r *actRequest) (any, error) {
		p := NewActParams(r.Action, r.ModelName)
		p.VerifierUseVision = r.VerifierUseVision
		switch r.UseVision {
		case "true":
			p.UseVision = VisionTrue
		case "false":
			p.UseVision = VisionFalse
		}
		return a.Act(ctx, p)
	})
}

// --- extract ---

type extractRequest struct {
	Instruction string         `json:"instruction"`
	Schema      map[string]any `json:"schema,omitempty"`
	ModelName   string         `json:"model_name,omitempty"`
}

func (a *Agent) registerExtractTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domloop_extract",
		Description: "Extract schema-shaped structured data from the current page, accumulating across DOM chunks.",
		InputSchema: mcptool.InputSchema(map[string]any{
			"instruction": map[string]any{"type": "string", "description": "What to extract"},
			"schema":      map[string]any{"type": "object", "description": "JSON Schema describing the fields to extract"},
			"model_name":  map[string]any{"type": "string", "description": "Model to use"},
		}, []string{"instruction"}),
	}

	mcptool.Register(srv, tool, func(ctx context.Context, r *extractRequest) (any, error) {
		return a.Extract(ctx, ExtractParams{
			Instruction: r.Instruction,
			Schema:      r.Schema,
			ModelName:   r.ModelName,
		})
	})
}

// --- observe ---

type observeRequest struct {
	Instruction string `json:"instruction,omitempty"`
	UseVision   bool   `json:"use_vision,omitempty"`
	FullPage    bool   `json:"full_page,omitempty"`
	ModelName   string `json:"model_name,omitempty"`
}

func (a *Agent) registerObserveTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domloop_observe",
		Description: "Enumerate interactive elements on the current page matching an instruction, without performing an action.",
		InputSchema: mcptool.InputSchema(map[string]any{
			"instruction": map[string]any{"type": "string", "description": "What to look for (default: find interactive elements)"},
			"use_vision":  map[string]any{"type": "boolean", "description": "Use a screenshot instead of serialized DOM text"},
			"full_page":   map[string]any{"type": "boolean", "description": "Serialize the whole page instead of one chunk"},
			"model_name":  map[string]any{"type": "string", "description": "Model to use"},
		}, nil),
	}

	mcptool.Register(srv, tool, func(ctx context.Context, r *observeRequest) (any, error) {
		return a.Observe(ctx, ObserveParams{
			Instruction: r.Instruction,
			UseVision:   r.UseVision,
			FullPage:    r.FullPage,
			ModelName:   r.ModelName,
		})
	})
}

// --- render ---

type renderRequest struct{}

type renderResponse struct {
	Markdown string `json:"markdown"`
}

func (a *Agent) registerRenderTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domloop_render",
		Description: "Render the full current page DOM as Markdown, for human review of what the agent is about to act on.",
		InputSchema: mcptool.InputSchema(map[string]any{}, nil),
	}

	mcptool.Register(srv, tool, func(ctx context.Context, _ *renderRequest) (any, error) {
		md, err := a.RenderMarkdown(ctx)
		if err != nil {
			return nil, err
		}
		return renderResponse{Markdown: md}, nil
	})
}
