package agent

import "context"

// Screenshotter is the screenshot annotation service: an external
// collaborator specified only by its interface. It
// draws colored markers at the bounding box of each selector-map entry
// for the annotated variant, or a bitmap of the full page for
// completion verification.
type Screenshotter interface {
	Annotated(ctx context.Context, selectorMap map[int]string) ([]byte, error)
	FullPage(ctx context.Context) ([]byte, error)
}

// annotatedScreenshot returns an annotated screenshot, or nil if no
// Screenshotter is configured or the call fails — vision degrades to
// no-screenshot rather than failing the loop.
func (a *Agent) annotatedScreenshot(ctx context.Context, selectorMap map[int]string) []byte {
	if a.shots == nil {
		return nil
	}
	img, err := a.shots.Annotated(ctx, selectorMap)
	if err != nil {
		a.logf(1, "agent: annotated screenshot failed", "error", err)
		return nil
	}
	return img
}

// fullPageScreenshot returns a full-page screenshot, or nil on failure.
func (a *Agent) fullPageScreenshot(ctx context.Context) []byte {
	if a.shots == nil {
		return nil
	}
	img, err := a.shots.FullPage(ctx)
	if err != nil {
		a.logf(1, "agent: full page screenshot failed", "error", err)
		return nil
	}
	return img
}
