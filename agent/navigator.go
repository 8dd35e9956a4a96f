package agent

import (
	"context"
	"time"

	"github.com/go-rod/rod/lib/proto"
)

// navigator is the Act Loop's Phase F collaborator: detecting a new tab
// spawned by a click, adopting it into the single owned page, and
// reporting the current URL for change-logging. Pulled behind an
// interface so tests can drive Phase F without a live browser.
type navigator interface {
	CurrentURL() string
	WaitForNewTab(ctx context.Context, timeout time.Duration) (proto.TargetID, bool)
	AdoptNewTab(ctx context.Context, targetID proto.TargetID)
	WaitIdle(timeout time.Duration) error
}

// tabNavigator is the production navigator: a thin wrapper over the
// agent's single owned browser.Tab.
type tabNavigator struct {
	a *Agent
}

func (n *tabNavigator) CurrentURL() string {
	info, err := n.a.tab.Page.Info()
	if err != nil || info == nil {
		return ""
	}
	return info.URL
}

// WaitForNewTab races a browser-level TargetCreated event against
// timeout. A timeout is treated as "no new tab".
func (n *tabNavigator) WaitForNewTab(ctx context.Context, timeout time.Duration) (proto.TargetID, bool) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var targetID proto.TargetID
	wait := n.a.tab.Page.Browser().Context(waitCtx).EachEvent(func(e *proto.TargetTargetCreated) bool {
		targetID = e.TargetInfo.TargetID
		return true
	})
	wait()

	return targetID, targetID != ""
}

// AdoptNewTab closes the spawned tab and navigates the main page (the
// agent's single owned page) to its URL instead, preserving the
// single-tab invariant.
func (n *tabNavigator) AdoptNewTab(ctx context.Context, targetID proto.TargetID) {
	newPage, err := n.a.tab.Page.Browser().PageFromTarget(targetID)
	if err != nil {
		n.a.logf(1, "agent: act: new-tab adoption failed", "error", err)
		return
	}
	newURL := ""
	if info, err := newPage.Info(); err == nil && info != nil {
		newURL = info.URL
	}
	newPage.Close()

	if newURL == "" {
		return
	}

	navCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := n.a.tab.Page.Context(navCtx).Navigate(newURL); err != nil {
		n.a.logf(1, "agent: act: navigate to new-tab url failed", "url", newURL, "error", err)
		return
	}
	if err := n.a.tab.Page.Context(navCtx).WaitLoad(); err != nil {
		n.a.logf(1, "agent: act: wait load after new-tab navigate timed out", "error", err)
	}
	n.a.waitSettled(ctx)
}

func (n *tabNavigator) WaitIdle(timeout time.Duration) error {
	return n.a.tab.Page.WaitIdle(timeout)
}
