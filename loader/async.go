package loader

import (
	"context"
	"io/fs"
	"sync"

	"github.com/gogpu/atmosphere/precompute"
)

// Handle is a pending asynchronous load.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	abandoned bool
	delivered bool
}

// Async starts Load in the background and calls done with its result.
//
// When ctx is cancelled or Cancel is called before the load resolves, the
// load is abandoned: done is never called and nothing is reported. done runs
// without any lock held, so it may call Cancel or Wait on its own handle.
func Async(ctx context.Context, fsys fs.FS, m Manifest, done func(*precompute.TextureSet, error)) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer cancel()
		set, err := Load(ctx, fsys, m)

		h.mu.Lock()
		deliver := !h.abandoned && ctx.Err() == nil
		h.delivered = deliver
		h.abandoned = !deliver
		h.mu.Unlock()
		close(h.done)

		if !deliver {
			precompute.Logger().Debug("loader: load abandoned")
			return
		}
		done(set, err)
	}()
	return h
}

// Cancel abandons the load. It reports whether the load was abandoned; false
// means the result had already been handed to done. When Cancel returns true,
// done is never called.
func (h *Handle) Cancel() bool {
	h.mu.Lock()
	if h.delivered {
		h.mu.Unlock()
		return false
	}
	h.abandoned = true
	h.mu.Unlock()
	h.cancel()
	return true
}

// Done is closed once the load has resolved, just before done is called,
// or once it has been abandoned.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until Done is closed.
func (h *Handle) Wait() {
	<-h.done
}
