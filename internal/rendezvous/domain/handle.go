package domain

import (
	"context"
	"io"
)

// SenderHandle is the server-side view of the peer uploading bytes. It
// exposes only what the Pump needs: the declared framing, the readable body,
// and a narrow channel for the short human-readable lines the Pump writes
// back (connection acknowledgement, completion message).
type SenderHandle interface {
	Headers() Headers
	Body() io.Reader
	// Notify writes a short plain-text progress line to the sender's own
	// response. It commits a 200 status on first call.
	Notify(line string) error
}

// ReceiverHandle is the server-side view of one peer waiting to download
// bytes. CommitHeaders must be called exactly once, before the first Write.
type ReceiverHandle interface {
	CommitHeaders(h Headers) error
	Write(p []byte) (int, error)
	Flush()
}

// SenderSession pairs a SenderHandle with the request context the Pump
// watches for disconnect.
type SenderSession struct {
	Ctx    context.Context
	Handle SenderHandle
}

// ReceiverSession pairs a ReceiverHandle with its request context and its
// FIFO arrival index.
type ReceiverSession struct {
	Ctx    context.Context
	Handle ReceiverHandle
	Index  int
}

// Pump streams sender.Handle's body to every receiver in receivers,
// committing headers before the first byte and applying backpressure so a
// slow receiver never causes dropped bytes for the rest. It never returns
// an error to its caller: failures are peer disconnects, which are expected
// outcomes, not exceptional ones, and never reach the caller.
type Pump interface {
	Run(sender SenderSession, receivers []ReceiverSession)
}
