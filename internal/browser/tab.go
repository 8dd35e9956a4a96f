package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tab wraps the one Rod page a domloop Agent owns: stealth patches,
// resource blocking, a stable viewport for chunking, and the layout
// pass the DOM bridge needs before its first chunked read.
type Tab struct {
	Page     *rod.Page
	PageURL  string
	PageID   string
	Headless bool
	manager  *Manager
}

// OpenTab creates a new tab behind the stealth patches, navigates to the
// URL, and forces a layout pass so the DOM bridge's chunked/full-page
// serialization sees every node, not just the ones attached at first
// paint. When the manager is running headless, the viewport is forced
// to 1280x720 so chunking decisions are made against a stable,
// deterministic page size.
func OpenTab(ctx context.Context, mgr *Manager, pageURL, pageID string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if mgr.cfg.Headless {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:  1280,
			Height: 720,
		}); err != nil {
			mgr.cfg.Logger.Warn("browser: set viewport failed", "error", err)
		}
	}

	if len(mgr.cfg.ResourceBlocking) > 0 {
		if err := blockResourceTypes(page, mgr.cfg.ResourceBlocking); err != nil {
			mgr.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
	}

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}

	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	t := &Tab{
		Page:     page,
		PageURL:  pageURL,
		PageID:   pageID,
		Headless: mgr.cfg.Headless,
		manager:  mgr,
	}

	if err := t.forceLayout(navCtx); err != nil {
		mgr.cfg.Logger.Warn("browser: force layout failed", "error", err)
	}

	return t, nil
}

// forceLayout reads offsetHeight to force a synchronous layout pass
// before the DOM bridge's first read.
func (t *Tab) forceLayout(ctx context.Context) error {
	_, err := t.Page.Context(ctx).Eval(`() => { document.documentElement.offsetHeight; }`)
	return err
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}

// blockResourceTypes sets up request interception to block the given
// resource types (images, fonts, media, stylesheets) on page, trading
// visual fidelity the agent never looks at for a faster DOM settle on
// image/media-heavy pages.
func blockResourceTypes(page *rod.Page, types []string) error {
	blockSet := make(map[string]bool, len(types))
	for _, t := range types {
		blockSet[strings.ToLower(t)] = true
	}

	router := page.HijackRequests()

	router.MustAdd("*", func(ctx *rod.Hijack) {
		resType := string(ctx.Request.Type())

		if shouldBlock(blockSet, resType) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	go router.Run()

	return nil
}

func shouldBlock(blockSet map[string]bool, resType string) bool {
	switch strings.ToLower(resType) {
	case "image":
		return blockSet["images"]
	case "font":
		return blockSet["fonts"]
	case "media":
		return blockSet["media"]
	case "stylesheet":
		return blockSet["stylesheets"]
	}
	return blockSet[strings.ToLower(resType)]
}
