package rendezvous

import (
	"log/slog"
	"net/http"

	"piping-relay/internal/rendezvous/infra"
)

// Config are the construction-time knobs for NewHandler.
type Config struct {
	Version   string
	ChunkSize int
}

// NewHandler wires a Registry, Pump, Reserved responder, and Router into a
// single http.Handler.
func NewHandler(cfg Config, logger *slog.Logger) http.Handler {
	var pumpOpts []infra.PumpOption
	if cfg.ChunkSize > 0 {
		pumpOpts = append(pumpOpts, infra.WithChunkSize(cfg.ChunkSize))
	}
	pump := infra.NewPump(logger, pumpOpts...)
	reg := infra.NewRegistry(pump, logger)
	reserved := NewReserved(cfg.Version)
	return NewRouter(reg, reserved, logger)
}
