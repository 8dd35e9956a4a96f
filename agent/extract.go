package agent

import (
	"context"
	"fmt"

	"github.com/hazyhaar/domloop/internal/llm"
)

// ExtractParams are the inputs to Extract.
type ExtractParams struct {
	Instruction string
	Schema      map[string]any
	ModelName   string
}

// Extract implements the Extract Loop: multi-chunk
// accumulation against a schema, reimplemented as explicit iteration
// over a mutable state record since Go has
// no tail calls. The outer iteration cap is chunks.length + 2 — chunk
// exhaustion alone already terminates
// the loop in the same call that discovers chunksSeen == chunks, so the
// cap is a backstop against a pathological DOM bridge, not a normal
// exit path.
func (a *Agent) Extract(ctx context.Context, p ExtractParams) (map[string]any, error) {
	requestID := a.newRequestID()
	a.logf(1, "agent: extract start", "requestId", requestID, "instruction", p.Instruction)

	result, err := a.extract(ctx, p, requestID)
	if err != nil {
		a.logger.Error("agent: extract failed", "requestId", requestID, "error", err)
		a.evictCacheOnFailure(ctx, requestID)
		return nil, err
	}
	return result, nil
}

func (a *Agent) extract(ctx context.Context, p ExtractParams, requestID string) (map[string]any, error) {
	var (
		progress    string
		content     = map[string]any{}
		chunksSeen  []int
		totalChunks = 1
	)

	maxIterations := 1000 // refined to chunks+2 once the first chunk count is known
	for iter := 0; iter < maxIterations; iter++ {
		a.waitSettled(ctx)
		a.bridge.DebugStart(ctx)

		chunk, err := a.bridge.ProcessDom(ctx, chunksSeen)
		if err != nil {
			a.bridge.DebugCleanup(ctx)
			return nil, fmt.Errorf("agent: extract: processDom: %w", err)
		}
		a.bridge.DebugCleanup(ctx)

		totalChunks = len(chunk.Chunks)
		if iter == 0 {
			maxIterations = totalChunks + 2
		}

		resp, err := a.llm.Extract(ctx, llm.ExtractRequest{
			Instruction:                p.Instruction,
			Progress:                   progress,
			PreviouslyExtractedContent: content,
			DOMElements:                a.sanitizeString(chunk.OutputString),
			Schema:                     p.Schema,
			ChunksSeen:                 len(chunksSeen),
			ChunksTotal:                totalChunks,
			ModelName:                  p.ModelName,
			RequestID:                  requestID,
		})
		if err != nil {
			return nil, fmt.Errorf("agent: extract: llm: %w", err)
		}

		content = resp.Fields
		progress = resp.Metadata.Progress
		chunksSeen = append(chunksSeen, chunk.Chunk)

		if resp.Metadata.Completed || len(chunksSeen) == totalChunks {
			return content, nil
		}
	}

	return content, fmt.Errorf("agent: extract: exceeded iteration cap (%d) without completion", maxIterations)
}
