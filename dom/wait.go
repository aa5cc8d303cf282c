package dom

import (
	"context"
	"time"
)

// Signal is the outcome of a render wait.
type Signal string

const (
	SignalRendered Signal = "rendered"
	SignalTimedOut Signal = "timed-out"
)

// DefaultRenderTimeout bounds WaitForRender when no timeout is given.
const DefaultRenderTimeout = 10 * time.Second

// WaitForRender blocks until an svg element exists under container or
// timeout elapses. The observer is registered before the first check so a
// render committed in between is not missed, and it is always removed
// before returning. After a rendered signal the container display is
// toggled to force a reflow of the new content.
func WaitForRender(ctx context.Context, container *Element, timeout time.Duration) (Signal, error) {
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}

	found := make(chan struct{}, 1)
	disconnect := container.Observe(func(Mutation) {
		if container.QuerySelector("svg") == nil {
			return
		}
		select {
		case found <- struct{}{}:
		default:
		}
	})

	signal, err := awaitSVG(ctx, container, found, timeout)
	disconnect()
	if err != nil {
		return "", err
	}

	if signal == SignalRendered {
		reflow(container)
	}
	return signal, nil
}

// reflow hides the container for one mutation and puts its inline style
// back exactly as it was, dropping the attribute when there was none.
func reflow(container *Element) {
	style, ok := container.Attr("style")
	container.SetStyle("display", "none")
	if !ok {
		container.RemoveAttr("style")
		return
	}
	container.SetAttr("style", style)
}

func awaitSVG(ctx context.Context, container *Element, found <-chan struct{}, timeout time.Duration) (Signal, error) {
	if container.QuerySelector("svg") != nil {
		return SignalRendered, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-found:
		return SignalRendered, nil
	case <-timer.C:
		return SignalTimedOut, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
