package admission

import (
	"context"
	"net/http"
	"time"
)

// Options configures Middleware.
type Options struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
}

// Middleware caps the number of requests in flight at once to Max. A
// request that cannot acquire a slot within AcquireTimeout is rejected with
// RejectStatus. If AcquireTimeout is 0 there is no time limit: the request
// waits for a slot until its own context ends (client disconnect), and only
// then is rejected. Max <= 0 disables the ceiling entirely.
func Middleware(opts Options) func(http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}

	pool := NewPool(opts.Max)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if opts.AcquireTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.AcquireTimeout)
				defer cancel()
			}

			release, ok := pool.Acquire(ctx)
			if !ok {
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
