package dom

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSettleTimeout is used when WaitSettled is called with timeout <= 0.
const DefaultSettleTimeout = 60 * time.Second

// WaitSettled races the page's injected waitForDomSettle against
// document.readyState reaching "interactive" or "complete" (DOM content
// loaded), a queryable body element, and
// a timeout. It returns as soon as the first of those occurs and never
// returns an error: on timeout it logs at level 1 (Info) and returns as
// if settled, because the surrounding loop cannot make progress without
// some DOM view and a hard failure here would be worse than best-effort.
func (b *Bridge) WaitSettled(ctx context.Context, timeout time.Duration, logger *slog.Logger) {
	if timeout <= 0 {
		timeout = DefaultSettleTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	settleCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan struct{}, 3)

	go func() {
		if _, err := b.page.Context(settleCtx).Eval(`() => window.waitForDomSettle ? window.waitForDomSettle() : undefined`); err != nil {
			logger.Debug("dom: waitForDomSettle errored, swallowing", "error", err)
		}
		select {
		case done <- struct{}{}:
		default:
		}
	}()

	go func() {
		for {
			select {
			case <-settleCtx.Done():
				return
			default:
			}
			res, err := b.page.Context(settleCtx).Eval(`() => document.readyState === "complete" || document.readyState === "interactive"`)
			if err == nil && res.Value.Bool() {
				select {
				case done <- struct{}{}:
				default:
				}
				return
			}
			time.Sleep(25 * time.Millisecond)
		}
	}()

	go func() {
		for {
			select {
			case <-settleCtx.Done():
				return
			default:
			}
			res, err := b.page.Context(settleCtx).Eval(`() => !!document.body`)
			if err == nil && res.Value.Bool() {
				select {
				case done <- struct{}{}:
				default:
				}
				return
			}
			time.Sleep(25 * time.Millisecond)
		}
	}()

	select {
	case <-done:
	case <-settleCtx.Done():
		logger.Info("dom: settle timeout, continuing", "timeout", timeout)
	}
}
