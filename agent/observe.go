package agent

import (
	"context"
	"fmt"

	"github.com/hazyhaar/domloop/internal/llm"
	"github.com/hazyhaar/domloop/internal/recorder"
)

// ObserveParams are the inputs to Observe.
type ObserveParams struct {
	Instruction string
	UseVision   bool
	FullPage    bool
	ModelName   string
}

const defaultObserveInstruction = "find interactive elements"

// Observe implements the Observe Pipeline: a single-shot
// serialize-DOM -> LLM observe -> map element IDs back to selectors
// round trip. Observe is single-chunk even when the DOM is larger than
// one chunk — preserved as-is rather than guessing a new chunking
// policy for an open question (see DESIGN.md).
func (a *Agent) Observe(ctx context.Context, p ObserveParams) ([]recorder.Element, error) {
	requestID := a.newRequestID()
	a.logf(1, "agent: observe start", "requestId", requestID, "instruction", p.Instruction)

	elements, err := a.observe(ctx, p, requestID)
	if err != nil {
		a.logger.Error("agent: observe failed", "requestId", requestID, "error", err)
		a.evictCacheOnFailure(ctx, requestID)
		return nil, err
	}
	return elements, nil
}

func (a *Agent) observe(ctx context.Context, p ObserveParams, requestID string) ([]recorder.Element, error) {
	instruction := p.Instruction
	if instruction == "" {
		instruction = defaultObserveInstruction
	}

	a.waitSettled(ctx)
	a.bridge.DebugStart(ctx)
	defer a.bridge.DebugCleanup(ctx)

	var outputString string
	var selectorMap map[int]string

	if p.FullPage {
		full, err := a.bridge.ProcessAllOfDom(ctx)
		if err != nil {
			return nil, fmt.Errorf("agent: observe: processAllOfDom: %w", err)
		}
		outputString, selectorMap = full.OutputString, full.SelectorMap
	} else {
		chunk, err := a.bridge.ProcessDom(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("agent: observe: processDom: %w", err)
		}
		outputString, selectorMap = chunk.OutputString, chunk.SelectorMap
	}

	outputString = a.sanitizeString(outputString)

	useVision := p.UseVision && a.llm.SupportsVision(p.ModelName)
	if p.UseVision && !useVision {
		a.logf(1, "agent: observe: model does not support vision, proceeding without", "model", p.ModelName)
	}

	var screenshot []byte
	if useVision {
		screenshot = a.annotatedScreenshot(ctx, selectorMap)
		outputString = "n/a. use the image to find the elements."
	}

	resp, err := a.llm.Observe(ctx, llm.ObserveRequest{
		Instruction: instruction,
		DOMElements: outputString,
		Screenshot:  screenshot,
		ModelName:   p.ModelName,
		RequestID:   requestID,
	})
	if err != nil {
		return nil, fmt.Errorf("agent: observe: llm: %w", err)
	}

	result := make([]recorder.Element, 0, len(resp.Elements))
	for _, e := range resp.Elements {
		result = append(result, recorder.Element{
			Selector:    "xpath=" + selectorMap[e.ElementID],
			Description: a.sanitizeString(e.Description),
		})
	}

	// Recorded twice; idempotent given content addressing, so kept
	// as-is rather than "fixed" (see DESIGN.md).
	a.recorder.RecordObservation(instruction, result)
	a.recorder.RecordObservation(instruction, result)

	return result, nil
}
