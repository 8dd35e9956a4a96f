// Package agent implements the act/extract/observe control loop: the
// Observe Pipeline, the Extract Loop, the Act Loop, and the Façade that
// wraps all three with request-id generation, error capture, and cache
// cleanup on failure.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/domloop/idgen"
	"github.com/hazyhaar/domloop/internal/browser"
	"github.com/hazyhaar/domloop/internal/dom"
	"github.com/hazyhaar/domloop/internal/llm"
	"github.com/hazyhaar/domloop/internal/llmcache"
	"github.com/hazyhaar/domloop/internal/recorder"
	"github.com/hazyhaar/domloop/internal/sanitize"
)

// Bridge is the subset of *dom.Bridge the control loops call through.
// Declared here so tests can substitute domtest.ScriptedBridge /
// domtest.FixtureBridge.
type Bridge interface {
	Install(ctx context.Context) error
	ProcessDom(ctx context.Context, chunksSeen []int) (dom.ChunkDescriptor, error)
	ProcessAllOfDom(ctx context.Context) (dom.FullDOM, error)
	DebugStart(ctx context.Context)
	DebugCleanup(ctx context.Context)
	ScrollToTop(ctx context.Context) error
	FullPageMarkdown(ctx context.Context) (string, error)
}

// Provisioner is the external collaborator that supplies a live browser
// tab. *browser.Manager satisfies it.
type Provisioner interface {
	Start(ctx context.Context) (*rod.Browser, error)
	OpenTab(ctx context.Context, pageURL, pageID string) (*browser.Tab, error)
	Close() error
}

// LogRecord is one entry in the pending log mirror queue.
type LogRecord struct {
	Level   int
	Message string
}

// Agent is a single browser automation session: one page, one browser
// context, and the observation/action recorder and LLM cache behind it.
// Concurrent act/extract/observe calls on the same Agent are unsafe —
// that's left to callers; Agent documents the requirement rather than
// serializing internally.
type Agent struct {
	cfg Config

	prov   Provisioner
	llm    llm.Provider
	logger *slog.Logger

	tab    *browser.Tab
	bridge Bridge
	nav    navigator

	// dispatchFn performs one locator method call. Set to a real
	// *rod.Page-backed dispatch in Open; tests substitute a fake.
	dispatchFn func(selector string, m method, args []any) error

	recorder *recorder.Recorder
	cache    *llmcache.Cache
	shots    Screenshotter

	mu             sync.Mutex
	pendingLogs    []LogRecord
	processingLogs bool
}

// New constructs an Agent. Call Open to provision a browser tab before
// issuing Act/Extract/Observe calls.
func New(cfg Config, prov Provisioner, provider llm.Provider, logger *slog.Logger) (*Agent, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	a := &Agent{
		cfg:      cfg,
		prov:     prov,
		llm:      provider,
		logger:   logger,
		recorder: recorder.New(),
	}

	if cfg.EnableCaching && cfg.CachePath != "" {
		c, err := llmcache.Open(cfg.CachePath)
		if err != nil {
			return nil, fmt.Errorf("agent: open cache: %w", err)
		}
		a.cache = c
	}

	return a, nil
}

// SetScreenshotter installs the screenshot annotation service used for
// vision requests and completion verification. Optional: without one,
// vision degrades to no-screenshot.
func (a *Agent) SetScreenshotter(s Screenshotter) {
	a.shots = s
}

// Open provisions (or connects to) a browser and opens the initial tab
// at url.
func (a *Agent) Open(ctx context.Context, url string) error {
	if _, err := a.prov.Start(ctx); err != nil {
		return fmt.Errorf("agent: start browser: %w", err)
	}

	tab, err := a.prov.OpenTab(ctx, url, idgen.New())
	if err != nil {
		return fmt.Errorf("agent: open tab: %w", err)
	}
	a.tab = tab
	a.bridge = dom.New(tab.Page, a.logger)
	a.nav = &tabNavigator{a: a}
	a.dispatchFn = func(selector string, m method, args []any) error {
		return dispatch(a.tab.Page, selector, m, args)
	}

	if err := a.bridge.Install(ctx); err != nil {
		return fmt.Errorf("agent: install dom bridge: %w", err)
	}
	return nil
}

// dispatch performs one locator method call through dispatchFn.
func (a *Agent) dispatch(selector string, m method, args []any) error {
	return a.dispatchFn(selector, m, args)
}

// RenderMarkdown returns a Markdown rendering of the full current page
// DOM, for human review of what the agent is about to act on.
func (a *Agent) RenderMarkdown(ctx context.Context) (string, error) {
	return a.bridge.FullPageMarkdown(ctx)
}

// Close releases the browser and cache.
func (a *Agent) Close() error {
	var firstErr error
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			firstErr = err
		}
	}
	if a.prov != nil {
		if err := a.prov.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// newRequestID produces a request-scoped ID: a random base-36 suffix.
func (a *Agent) newRequestID() string {
	return idgen.NanoID(10)()
}

// logf mirrors a message into the pending log queue, gated by
// verbosity, and emits it through the structured logger. The queue uses
// a single-flight drain guarded by processingLogs: if a drain is
// already running, new records are simply enqueued and picked up by
// that drain's next pass.
func (a *Agent) logf(level int, msg string, args ...any) {
	switch {
	case level >= 2:
		a.logger.Debug(msg, args...)
	case level >= 1:
		a.logger.Info(msg, args...)
	default:
		a.logger.Warn(msg, args...)
	}

	if level > a.cfg.Verbosity {
		return
	}

	a.mu.Lock()
	a.pendingLogs = append(a.pendingLogs, LogRecord{Level: level, Message: msg})
	already := a.processingLogs
	if !already {
		a.processingLogs = true
	}
	a.mu.Unlock()

	if already {
		return
	}
	go a.drainLogs(context.Background())
}

// drainLogs snapshots the pending queue and mirrors it into the page
// console. A cycle already draining simply lets new records accumulate
// for the running cycle's next pass.
func (a *Agent) drainLogs(ctx context.Context) {
	for {
		a.mu.Lock()
		batch := a.pendingLogs
		a.pendingLogs = nil
		if len(batch) == 0 {
			a.processingLogs = false
			a.mu.Unlock()
			return
		}
		a.mu.Unlock()

		if a.tab != nil && a.tab.Page != nil {
			for _, rec := range batch {
				a.tab.Page.Context(ctx).Eval(`(msg) => console.log(msg)`, rec.Message)
			}
		}
	}
}

// evictCacheOnFailure implements the Façade's tail handler: on failure,
// wipe the request's LLM cache entry if caching is enabled. The calling
// context is often the very context whose deadline/cancellation caused
// the failure, so the evict runs detached from it (context.WithoutCancel)
// rather than inheriting a context that is already done — otherwise the
// cleanup this exists to guarantee would fail precisely on timeout, the
// most common real failure mode.
func (a *Agent) evictCacheOnFailure(ctx context.Context, requestID string) {
	if a.cache == nil {
		return
	}
	evictCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := a.cache.Evict(evictCtx, requestID); err != nil {
		a.logger.Warn("agent: cache evict failed", "requestId", requestID, "error", err)
	}
}

// sanitizeString runs s through the configured sanitize policy.
func (a *Agent) sanitizeString(s string) string {
	return sanitize.Strip(s, a.cfg.SanitizePolicy)
}

// settler is implemented by *dom.Bridge. Test doubles in
// internal/dom/domtest don't implement it, so waitSettled is a no-op
// against them — their canned responses need no real settle wait.
type settler interface {
	WaitSettled(ctx context.Context, timeout time.Duration, logger *slog.Logger)
}

func (a *Agent) waitSettled(ctx context.Context) {
	if s, ok := a.bridge.(settler); ok {
		s.WaitSettled(ctx, a.cfg.DOMSettleTimeout, a.logger)
	}
}
