package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/domloop/internal/llm"
)

// fakeProvider replays canned responses in call order, one list per
// operation. It implements llm.Provider for the S1-S7 scenario tests.
type fakeProvider struct {
	vision bool

	observeResponses []llm.ObserveResponse
	observeCalls     int

	extractResponses []llm.ExtractResponse
	extractCalls     int

	actResponses []*llm.ActCommand
	actCalls     int

	verifyResponses []bool
	verifyCalls     int
}

func (f *fakeProvider) SupportsVision(string) bool { return f.vision }

func (f *fakeProvider) Observe(ctx context.Context, req llm.ObserveRequest) (llm.ObserveResponse, error) {
	if f.observeCalls >= len(f.observeResponses) {
		return llm.ObserveResponse{}, fmt.Errorf("fakeProvider: no more Observe responses")
	}
	r := f.observeResponses[f.observeCalls]
	f.observeCalls++
	return r, nil
}

func (f *fakeProvider) Extract(ctx context.Context, req llm.ExtractRequest) (llm.ExtractResponse, error) {
	if f.extractCalls >= len(f.extractResponses) {
		return llm.ExtractResponse{}, fmt.Errorf("fakeProvider: no more Extract responses")
	}
	r := f.extractResponses[f.extractCalls]
	f.extractCalls++
	return r, nil
}

func (f *fakeProvider) Act(ctx context.Context, req llm.ActRequest) (*llm.ActCommand, error) {
	if f.actCalls >= len(f.actResponses) {
		return nil, fmt.Errorf("fakeProvider: no more Act responses")
	}
	r := f.actResponses[f.actCalls]
	f.actCalls++
	return r, nil
}

func (f *fakeProvider) VerifyActCompletion(ctx context.Context, req llm.VerifyRequest) (bool, error) {
	if f.verifyCalls >= len(f.verifyResponses) {
		return false, fmt.Errorf("fakeProvider: no more VerifyActCompletion responses")
	}
	r := f.verifyResponses[f.verifyCalls]
	f.verifyCalls++
	return r, nil
}

// noopNavigator never reports a new tab; Phase F becomes a no-op.
type noopNavigator struct {
	waitIdleCalls int
}

func (n *noopNavigator) CurrentURL() string { return "https://example.com/" }

func (n *noopNavigator) WaitForNewTab(ctx context.Context, timeout time.Duration) (proto.TargetID, bool) {
	return "", false
}

func (n *noopNavigator) AdoptNewTab(ctx context.Context, targetID proto.TargetID) {}

func (n *noopNavigator) WaitIdle(timeout time.Duration) error {
	n.waitIdleCalls++
	return nil
}

// newTabNavigator reports exactly one new tab with url on its first
// WaitForNewTab call, then behaves like noopNavigator.
type newTabNavigator struct {
	noopNavigator
	url          string
	adoptedCalls int
	adoptedURL   string
}

func (n *newTabNavigator) WaitForNewTab(ctx context.Context, timeout time.Duration) (proto.TargetID, bool) {
	if n.adoptedCalls > 0 {
		return "", false
	}
	return proto.TargetID("fake-target"), true
}

func (n *newTabNavigator) AdoptNewTab(ctx context.Context, targetID proto.TargetID) {
	n.adoptedCalls++
	n.adoptedURL = n.url
}

// dispatchCall records one call made through Agent.dispatchFn.
type dispatchCall struct {
	selector string
	method   method
	args     []any
}

// recordingDispatch returns a dispatchFn that records every call and
// always succeeds, plus the slice it appends to.
func recordingDispatch() (func(selector string, m method, args []any) error, *[]dispatchCall) {
	calls := &[]dispatchCall{}
	fn := func(selector string, m method, args []any) error {
		*calls = append(*calls, dispatchCall{selector: selector, method: m, args: args})
		return nil
	}
	return fn, calls
}
