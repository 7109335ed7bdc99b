package rendezvous

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"piping-relay/internal/rendezvous/domain"
)

// registry is the subset of infra.Registry the Router needs. Declaring it
// here (rather than importing the concrete type) keeps the adapter layer
// testable against a fake.
type registry interface {
	AdmitSender(ctx context.Context, key, rawCapacity string, handle domain.SenderHandle) error
	AdmitReceiver(ctx context.Context, key string, handle domain.ReceiverHandle) error
}

// Router is the single http.Handler entry point. It classifies every
// inbound request into a reserved-endpoint response or a rendezvous
// admission, and does not return until the request's response is fully
// committed.
type Router struct {
	registry registry
	reserved *Reserved
	logger   *slog.Logger
}

// NewRouter builds a Router. logger may be nil.
func NewRouter(reg registry, reserved *Reserved, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Router{registry: reg, reserved: reserved, logger: logger}
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if domain.IsReserved(path) {
		if r.Method != http.MethodGet {
			rt.reject(w, path, domain.ErrReservedPath)
			return
		}
		rt.reserved.ServeHTTP(w, r)
		return
	}

	switch r.Method {
	case http.MethodPost, http.MethodPut:
		rt.admitSender(w, r, path)
	case http.MethodGet:
		rt.admitReceiver(w, r, path)
	default:
		rt.reject(w, path, domain.ErrMethodNotAllowed)
	}
}

func (rt *Router) admitSender(w http.ResponseWriter, r *http.Request, path string) {
	handle := newHTTPSenderHandle(w, r)
	err := rt.registry.AdmitSender(r.Context(), path, r.URL.Query().Get("n"), handle)
	rt.logOutcome(domain.RoleSender, path, err)
	if err != nil {
		rt.reject(w, path, err)
	}
}

func (rt *Router) admitReceiver(w http.ResponseWriter, r *http.Request, path string) {
	handle := newHTTPReceiverHandle(w)
	err := rt.registry.AdmitReceiver(r.Context(), path, handle)
	rt.logOutcome(domain.RoleReceiver, path, err)
	if err != nil {
		rt.reject(w, path, err)
	}
}

func (rt *Router) logOutcome(role domain.Role, path string, err error) {
	if err != nil {
		rt.logger.Info("rendezvous rejected", "role", role.String(), "path", path, "error", err)
		return
	}
	rt.logger.Info("rendezvous transfer finished", "role", role.String(), "path", path)
}

// reject writes a 400 with a short diagnostic body. It is only ever called
// before any header has been committed on w, since every admission error
// is returned before the Pump touches the handle.
func (rt *Router) reject(w http.ResponseWriter, path string, err error) {
	http.Error(w, err.Error(), http.StatusBadRequest)
}
