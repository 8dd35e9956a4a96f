// Package mcptool registers domloop's act/extract/observe/render
// operations as MCP tools: decode the call's JSON arguments into a
// typed request, run the operation, marshal its response back as tool
// content. Generic over the request type so agent/mcp.go's four
// registrations don't each hand-write a decode closure.
package mcptool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers endpoint as an MCP tool on srv. req's JSON
// arguments are unmarshaled into a fresh TReq before endpoint runs;
// TReq should be a struct with `json` tags matching tool's input
// schema. Use struct{} for tools that take no arguments.
func Register[TReq any](srv *mcp.Server, tool *mcp.Tool, endpoint func(context.Context, *TReq) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var decoded TReq
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &decoded); err != nil {
				var res mcp.CallToolResult
				res.SetError(fmt.Errorf("invalid arguments: %w", err))
				return &res, nil
			}
		}

		resp, err := endpoint(ctx, &decoded)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(err)
			return &res, nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

// InputSchema builds a JSON Schema object with type "object".
func InputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
