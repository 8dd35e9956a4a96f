// Package domtest provides fake DOM bridges for driving the
// act/extract/observe control loops without a live browser: a
// ScriptedBridge that replays a literal, pre-authored sequence of chunk
// responses (used to seed the exact end-to-end scenarios described as
// S1-S7), and a FixtureBridge that derives chunk responses from a
// static HTML fixture parsed with golang.org/x/net/html.
package domtest

import (
	"context"
	"fmt"

	"github.com/hazyhaar/domloop/internal/dom"
)

// ScriptedBridge replays canned responses in call order. It implements
// the same method set as *dom.Bridge, so it satisfies any interface the
// agent package declares over that method set.
type ScriptedBridge struct {
	ProcessDomCalls       int
	ProcessAllOfDomCalls  int
	DebugStartCalls       int
	DebugCleanupCalls     int
	ScrollToTopCalls      int

	chunkResponses []dom.ChunkDescriptor
	fullResponses  []dom.FullDOM
	markdown       string
}

// NewScriptedBridge returns a bridge that serves chunkResponses in
// order on successive ProcessDom calls, and fullResponses in order on
// successive ProcessAllOfDom calls.
func NewScriptedBridge(chunkResponses []dom.ChunkDescriptor, fullResponses []dom.FullDOM) *ScriptedBridge {
	return &ScriptedBridge{chunkResponses: chunkResponses, fullResponses: fullResponses}
}

func (s *ScriptedBridge) Install(ctx context.Context) error { return nil }

func (s *ScriptedBridge) ProcessDom(ctx context.Context, chunksSeen []int) (dom.ChunkDescriptor, error) {
	if s.ProcessDomCalls >= len(s.chunkResponses) {
		return dom.ChunkDescriptor{}, fmt.Errorf("domtest: no more scripted ProcessDom responses (call %d)", s.ProcessDomCalls+1)
	}
	r := s.chunkResponses[s.ProcessDomCalls]
	s.ProcessDomCalls++
	return r, nil
}

func (s *ScriptedBridge) ProcessAllOfDom(ctx context.Context) (dom.FullDOM, error) {
	if s.ProcessAllOfDomCalls >= len(s.fullResponses) {
		return dom.FullDOM{}, fmt.Errorf("domtest: no more scripted ProcessAllOfDom responses (call %d)", s.ProcessAllOfDomCalls+1)
	}
	r := s.fullResponses[s.ProcessAllOfDomCalls]
	s.ProcessAllOfDomCalls++
	return r, nil
}

func (s *ScriptedBridge) DebugStart(ctx context.Context)   { s.DebugStartCalls++ }
func (s *ScriptedBridge) DebugCleanup(ctx context.Context) { s.DebugCleanupCalls++ }

func (s *ScriptedBridge) ScrollToTop(ctx context.Context) error {
	s.ScrollToTopCalls++
	return nil
}

func (s *ScriptedBridge) FullPageMarkdown(ctx context.Context) (string, error) {
	return s.markdown, nil
}

// WithMarkdown sets the canned FullPageMarkdown response.
func (s *ScriptedBridge) WithMarkdown(md string) *ScriptedBridge {
	s.markdown = md
	return s
}
