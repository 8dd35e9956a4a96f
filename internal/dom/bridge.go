package dom

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/go-rod/rod"
)

// Bridge is a thin typed wrapper around the in-page DOM processing
// scripts: chunked serialization, full-page serialization, scroll, and
// the debug overlay lifecycle.
type Bridge struct {
	page        *rod.Page
	logger      *slog.Logger
	mdConverter *converter.Converter
	installed   bool
}

// New wraps page. Call Install once before the first ProcessDom /
// ProcessAllOfDom call on a freshly navigated page.
func New(page *rod.Page, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		page:   page,
		logger: logger,
		mdConverter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Install injects the default page-side script if the page does not
// already define processDom. Idempotent; safe to call on every
// navigation.
func (b *Bridge) Install(ctx context.Context) error {
	res, err := b.page.Context(ctx).Eval(`() => typeof window.processDom === "function"`)
	if err == nil && res.Value.Bool() {
		b.installed = true
		return nil
	}
	if _, err := b.page.Context(ctx).Eval(string(pageScript)); err != nil {
		return fmt.Errorf("dom: install page script: %w", err)
	}
	b.installed = true
	return nil
}

type rawChunk struct {
	OutputString string         `json:"outputString"`
	SelectorMap  map[string]string `json:"selectorMap"`
	Chunk        int            `json:"chunk"`
	Chunks       []int          `json:"chunks"`
}

type rawFull struct {
	OutputString string            `json:"outputString"`
	SelectorMap  map[string]string `json:"selectorMap"`
}

// ProcessDom returns exactly one chunk not present in chunksSeen. Chunk
// selection order is determined by the page-side script and is treated
// as opaque but deterministic within a session.
func (b *Bridge) ProcessDom(ctx context.Context, chunksSeen []int) (ChunkDescriptor, error) {
	arg, err := json.Marshal(chunksSeen)
	if err != nil {
		return ChunkDescriptor{}, fmt.Errorf("dom: marshal chunksSeen: %w", err)
	}

	res, err := b.page.Context(ctx).Eval(fmt.Sprintf(`() => window.processDom(%s)`, string(arg)))
	if err != nil {
		return ChunkDescriptor{}, fmt.Errorf("dom: processDom: %w", err)
	}

	var raw rawChunk
	if err := res.Value.Unmarshal(&raw); err != nil {
		return ChunkDescriptor{}, fmt.Errorf("dom: decode processDom result: %w", err)
	}

	return ChunkDescriptor{
		OutputString: raw.OutputString,
		SelectorMap:  intKeyedMap(raw.SelectorMap),
		Chunk:        raw.Chunk,
		Chunks:       raw.Chunks,
	}, nil
}

// ProcessAllOfDom returns a full-page flat serialization with no chunking.
func (b *Bridge) ProcessAllOfDom(ctx context.Context) (FullDOM, error) {
	res, err := b.page.Context(ctx).Eval(`() => window.processAllOfDom()`)
	if err != nil {
		return FullDOM{}, fmt.Errorf("dom: processAllOfDom: %w", err)
	}

	var raw rawFull
	if err := res.Value.Unmarshal(&raw); err != nil {
		return FullDOM{}, fmt.Errorf("dom: decode processAllOfDom result: %w", err)
	}

	return FullDOM{
		OutputString: raw.OutputString,
		SelectorMap:  intKeyedMap(raw.SelectorMap),
	}, nil
}

// DebugStart starts the debug overlay. It is not gated on any config
// flag: the agent loops call it on every DOM pass and do not consult
// Config.DebugDOM. All errors are swallowed since the overlay is a
// development aid, never load-bearing.
func (b *Bridge) DebugStart(ctx context.Context) {
	if _, err := b.page.Context(ctx).Eval(`() => window.debugDom && window.debugDom()`); err != nil {
		b.logger.Debug("dom: debugStart failed, ignoring", "error", err)
	}
}

// DebugCleanup tears down the debug overlay. Errors swallowed.
func (b *Bridge) DebugCleanup(ctx context.Context) {
	if _, err := b.page.Context(ctx).Eval(`() => window.cleanupDebug && window.cleanupDebug()`); err != nil {
		b.logger.Debug("dom: debugCleanup failed, ignoring", "error", err)
	}
}

// ScrollToTop scrolls the page to y=0. Invoked exclusively by the vision
// fallback in the Act Loop.
func (b *Bridge) ScrollToTop(ctx context.Context) error {
	if _, err := b.page.Context(ctx).Eval(`() => window.scrollToHeight(0)`); err != nil {
		return fmt.Errorf("dom: scrollToTop: %w", err)
	}
	return nil
}

// FullPageMarkdown renders the page's full outerHTML as Markdown for
// human review of what the agent is about to act on. Read-only; never
// called from the core control loops.
func (b *Bridge) FullPageMarkdown(ctx context.Context) (string, error) {
	res, err := b.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("dom: get full page html: %w", err)
	}

	md, err := b.mdConverter.ConvertString(res.Value.Str())
	if err != nil {
		return "", fmt.Errorf("dom: convert to markdown: %w", err)
	}
	return md, nil
}

func intKeyedMap(m map[string]string) map[int]string {
	out := make(map[int]string, len(m))
	for k, v := range m {
		var i int
		fmt.Sscanf(k, "%d", &i)
		out[i] = v
	}
	return out
}
