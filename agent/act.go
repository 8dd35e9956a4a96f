package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/domloop/internal/llm"
	"github.com/hazyhaar/domloop/internal/recorder"
)

// Vision is the useVision tri-state: the model may be
// told to always use vision, never use it, or fall back to it only
// after text-only planning yields no actionable element.
type Vision int

const (
	VisionFalse Vision = iota
	VisionTrue
	VisionFallback
)

// ActParams are the inputs to Act.
type ActParams struct {
	Action            string
	ModelName         string
	UseVision         Vision // NewActParams sets VisionFallback; the zero value is VisionFalse
	VerifierUseVision bool
}

// NewActParams returns ActParams with the documented default of
// useVision="fallback".
func NewActParams(action, modelName string) ActParams {
	return ActParams{Action: action, ModelName: modelName, UseVision: VisionFallback}
}

// ActResult is the public result of Act.
type ActResult struct {
	Success bool
	Message string
	Action  string
}

// actState is the mutable state record threaded through the iterative
// act state machine: Go has no tail calls, so the recursive loop
// becomes explicit iteration over this record.
type actState struct {
	chunksSeen         []int
	steps              string
	useVision          bool
	verifierUseVision  bool
	fallbackConsumed   bool
	retries            int
	verifierRejections int
	totalChunks        int
}

const maxActRetries = 2

// dispatchError marks an error from Phase E dispatch, the only kind of
// error the Act Loop retries.
type dispatchError struct{ err error }

func (e *dispatchError) Error() string { return e.err.Error() }
func (e *dispatchError) Unwrap() error { return e.err }

// Act implements the Act Loop: the central state machine
// that, per chunk, asks the LLM for the next command, dispatches it,
// handles navigation, optionally verifies completion, and otherwise
// advances chunks or falls back to vision.
func (a *Agent) Act(ctx context.Context, p ActParams) (ActResult, error) {
	requestID := a.newRequestID()
	a.logf(1, "agent: act start", "requestId", requestID, "action", p.Action)

	result, err := a.act(ctx, p, requestID)
	if err != nil {
		a.logger.Error("agent: act failed", "requestId", requestID, "error", err)
		a.evictCacheOnFailure(ctx, requestID)
		return ActResult{Success: false, Message: fmt.Sprintf("Error performing action: %v", err), Action: p.Action}, nil
	}
	if !result.Success {
		a.evictCacheOnFailure(ctx, requestID)
	}
	return result, nil
}

func (a *Agent) act(ctx context.Context, p ActParams, requestID string) (ActResult, error) {
	st := &actState{
		useVision:         p.UseVision == VisionTrue,
		verifierUseVision: p.VerifierUseVision,
	}

	// Phase A: vision gating.
	if (p.UseVision == VisionTrue || p.UseVision == VisionFallback) && !a.llm.SupportsVision(p.ModelName) {
		a.logf(1, "agent: act: model does not support vision, forcing text-only", "model", p.ModelName)
		st.useVision = false
		st.verifierUseVision = false
	}

	maxIterations := 1000
	for iter := 0; iter < maxIterations; iter++ {
		res, done, err := a.actIteration(ctx, p, st, requestID)
		if err != nil {
			var derr *dispatchError
			if !errors.As(err, &derr) {
				return ActResult{}, err
			}
			if st.retries < maxActRetries {
				st.retries++
				a.logf(1, "agent: act: dispatch error, retrying", "retries", st.retries, "error", err)
				continue
			}
			a.recorder.RecordAction(p.Action, recorder.ActionResult{})
			var uerr *ErrUnknownMethod
			if isUnknownMethod(err, &uerr) {
				return ActResult{Success: false, Message: fmt.Sprintf("Internal error: %s", err.Error()), Action: p.Action}, nil
			}
			return ActResult{Success: false, Message: fmt.Sprintf("Error performing action: %v", err), Action: p.Action}, nil
		}
		st.retries = 0

		if done {
			return res, nil
		}

		// Verifier rejections are capped by the number of chunks on the
		// page (at least one): once they exceed it, the act gives up.
		if st.verifierRejections > maxInt(1, st.totalChunks) {
			a.recorder.RecordAction(p.Action, recorder.ActionResult{})
			return ActResult{Success: false, Message: "Action was not able to be completed.", Action: p.Action}, nil
		}
	}

	return ActResult{Success: false, Message: "Action was not able to be completed.", Action: p.Action}, nil
}

// actIteration runs Phases B-I once. It returns (result, true, nil) when
// the loop should terminate with result, (zero, false, nil) when it
// should continue (state mutated in place), or (zero, false, err) on an
// error: a dispatch error (wrapped in dispatchError) is retried by the
// caller, any other error ends the act.
func (a *Agent) actIteration(ctx context.Context, p ActParams, st *actState, requestID string) (ActResult, bool, error) {
	// Phase B: prompt preparation.
	a.waitSettled(ctx)
	a.bridge.DebugStart(ctx)
	chunk, err := a.bridge.ProcessDom(ctx, st.chunksSeen)
	a.bridge.DebugCleanup(ctx)
	if err != nil {
		return ActResult{}, false, fmt.Errorf("processDom: %w", err)
	}
	st.totalChunks = len(chunk.Chunks)

	var screenshot []byte
	if st.useVision {
		screenshot = a.annotatedScreenshot(ctx, chunk.SelectorMap)
	}

	// Phase C: plan.
	cmd, err := a.llm.Act(ctx, llm.ActRequest{
		Action:      p.Action,
		DOMElements: a.sanitizeString(chunk.OutputString),
		Steps:       st.steps,
		Screenshot:  screenshot,
		ModelName:   p.ModelName,
		RequestID:   requestID,
	})
	if err != nil {
		return ActResult{}, false, fmt.Errorf("llm act: %w", err)
	}

	// Phase D: no action.
	if cmd == nil {
		if len(st.chunksSeen)+1 < len(chunk.Chunks) {
			st.chunksSeen = append(st.chunksSeen, chunk.Chunk)
			st.steps += "\n## Step: Scrolled to another section"
			return ActResult{}, false, nil
		}
		if p.UseVision == VisionFallback && !st.fallbackConsumed && a.llm.SupportsVision(p.ModelName) {
			if err := a.bridge.ScrollToTop(ctx); err != nil {
				a.logf(1, "agent: act: scrollToTop failed", "error", err)
			}
			st.useVision = true
			st.fallbackConsumed = true
			return ActResult{}, false, nil
		}
		a.recorder.RecordAction(p.Action, recorder.ActionResult{})
		return ActResult{Success: false, Message: "Action was not able to be completed.", Action: p.Action}, true, nil
	}

	// Phase E: dispatch.
	selector := "xpath=" + chunk.SelectorMap[cmd.ElementID]
	if err := a.dispatch(selector, method(cmd.Method), cmd.Args); err != nil {
		return ActResult{}, false, &dispatchError{err: err}
	}

	// Phase F: post-click navigation.
	if cmd.Method == string(methodClick) {
		a.handlePostClickNavigation(ctx)
	}

	// Phase H: step bookkeeping.
	elementText := elementTextFor(chunk.OutputString, cmd.ElementID)
	newSteps := st.steps + fmt.Sprintf("\n## Step: %s\n  Element: %s\n  Action: %s\n  Reasoning: %s",
		cmd.Step, elementText, cmd.Method, cmd.Why)
	st.steps = newSteps

	if !cmd.Completed {
		return ActResult{}, false, nil
	}

	// Phase I: completion verification.
	verified, err := a.verifyCompletion(ctx, p, st, newSteps, requestID)
	if err != nil {
		return ActResult{}, false, fmt.Errorf("verify completion: %w", err)
	}
	if verified {
		result := ActResult{Success: true, Message: fmt.Sprintf("Action completed: %s", cmd.Step), Action: p.Action}
		a.recorder.RecordAction(p.Action, recorder.ActionResult{Success: true, Message: result.Message})
		return result, true, nil
	}

	st.verifierRejections++
	return ActResult{}, false, nil
}

func (a *Agent) verifyCompletion(ctx context.Context, p ActParams, st *actState, steps, requestID string) (bool, error) {
	req := llm.VerifyRequest{
		Goal:      p.Action,
		Steps:     steps,
		ModelName: p.ModelName,
		RequestID: requestID,
	}

	if st.verifierUseVision {
		shot := a.fullPageScreenshot(ctx)
		if shot == nil {
			shot = a.fullPageScreenshot(ctx) // one retry on failure
		}
		req.Screenshot = shot
	} else {
		full, err := a.bridge.ProcessAllOfDom(ctx)
		if err != nil {
			return false, fmt.Errorf("processAllOfDom: %w", err)
		}
		req.DOMElements = a.sanitizeString(full.OutputString)
	}

	return a.llm.VerifyActCompletion(ctx, req)
}

// handlePostClickNavigation implements Phase F: race a new-tab event
// against 1,500ms, then a networkidle wait against 5,000ms, logging any
// URL change. Both timeouts are soft: they log and continue.
func (a *Agent) handlePostClickNavigation(ctx context.Context) {
	preURL := a.nav.CurrentURL()

	if targetID, ok := a.nav.WaitForNewTab(ctx, 1500*time.Millisecond); ok {
		a.nav.AdoptNewTab(ctx, targetID)
	}

	if err := a.nav.WaitIdle(5 * time.Second); err != nil {
		a.logf(1, "agent: act: networkidle timeout, continuing", "error", err)
	}

	if postURL := a.nav.CurrentURL(); postURL != preURL {
		a.logf(1, "agent: act: url changed", "from", preURL, "to", postURL)
	}
}

func elementTextFor(outputString string, elementID int) string {
	prefix := fmt.Sprintf("%d:", elementID)
	for _, line := range strings.Split(outputString, "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimPrefix(line, prefix)
		}
	}
	return "Element not found"
}

func isUnknownMethod(err error, target **ErrUnknownMethod) bool {
	var u *ErrUnknownMethod
	for e := err; e != nil; e = unwrap(e) {
		if cast, ok := e.(*ErrUnknownMethod); ok {
			u = cast
			break
		}
	}
	*target = u
	return u != nil
}

func unwrap(err error) error {
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return u.Unwrap()
	}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
