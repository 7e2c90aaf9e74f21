package trigger

import (
	"context"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// FollowBuild stays attached to a running build, streaming its log to
// out until the build reaches a terminal status, which it returns.
// Transient API failures are logged and retried on the next tick; only
// context cancellation aborts the watch.
func (c *Client) FollowBuild(ctx context.Context, app, build string, out io.Writer, interval time.Duration) (string, error) {
	if interval <= 0 {
		interval = 3 * time.Second
	}

	var (
		final string
		done  = make(chan struct{})
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(done)
		for {
			b, err := c.BuildStatus(gctx, app, build)
			switch {
			case err != nil:
				slog.Warn("could not fetch build status",
					slog.String("build", build),
					slog.String("error", err.Error()))
			case b.Finished():
				final = b.Status
				return nil
			}

			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-time.After(interval):
			}
		}
	})

	g.Go(func() error {
		var cursor string
		var draining bool
		for {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			page, err := c.BuildLog(gctx, app, build, cursor)
			if err != nil {
				slog.Warn("could not fetch build log",
					slog.String("build", build),
					slog.String("error", err.Error()))
			} else {
				for _, chunk := range page.Chunks {
					if _, werr := io.WriteString(out, chunk.Data); werr != nil {
						return werr
					}
				}
				cursor = page.Cursor
				if page.Archived {
					return nil
				}
			}

			if draining {
				return nil
			}
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-done:
				// The build finished; fetch once more to pick up the
				// tail of the log before leaving.
				draining = true
			case <-time.After(interval):
			}
		}
	})

	if err := g.Wait(); err != nil {
		return "", err
	}
	return final, nil
}
