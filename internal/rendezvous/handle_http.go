package rendezvous

import (
	"io"
	"net/http"
	"strconv"

	"piping-relay/internal/rendezvous/domain"
)

// httpSenderHandle implements domain.SenderHandle directly on top of an
// http.ResponseWriter/*http.Request pair, in the header-set-then-commit
// style linkdata-rap's ResponseWriter uses (wroteHeader guard before the
// first Write).
type httpSenderHandle struct {
	w           http.ResponseWriter
	r           *http.Request
	wroteHeader bool
}

func newHTTPSenderHandle(w http.ResponseWriter, r *http.Request) *httpSenderHandle {
	return &httpSenderHandle{w: w, r: r}
}

func (h *httpSenderHandle) Headers() domain.Headers {
	hd := domain.Headers{}
	if h.r.ContentLength >= 0 {
		hd.ContentLength = h.r.ContentLength
		hd.HasContentLength = true
	}
	if ct := h.r.Header.Get("Content-Type"); ct != "" {
		hd.ContentType = ct
		hd.HasContentType = true
	}
	return hd
}

func (h *httpSenderHandle) Body() io.Reader {
	return h.r.Body
}

// Notify writes one line of the sender's plain-text progress/completion
// feed. It commits a 200 status on first call, mirroring
// datewu-sandy's Peanut.Feedback progress reporting, except the feed here
// is the sender's own HTTP response body rather than a separate channel.
func (h *httpSenderHandle) Notify(line string) error {
	if !h.wroteHeader {
		// The Pump acknowledges the sender before reading its body; without
		// full duplex, net/http discards the unread request body as soon as
		// the response header is written.
		_ = http.NewResponseController(h.w).EnableFullDuplex()
		h.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		h.w.WriteHeader(http.StatusOK)
		h.wroteHeader = true
	}
	_, err := io.WriteString(h.w, line)
	if f, ok := h.w.(http.Flusher); ok {
		f.Flush()
	}
	return err
}

// httpReceiverHandle implements domain.ReceiverHandle. CommitHeaders must
// run before the first Write; Flush pushes buffered bytes out immediately
// so chunked receivers see data as it arrives rather than batched on
// whatever interval the transport would otherwise choose.
type httpReceiverHandle struct {
	w           http.ResponseWriter
	wroteHeader bool
}

func newHTTPReceiverHandle(w http.ResponseWriter) *httpReceiverHandle {
	return &httpReceiverHandle{w: w}
}

func (h *httpReceiverHandle) CommitHeaders(hd domain.Headers) error {
	if h.wroteHeader {
		return nil
	}
	if hd.HasContentLength {
		h.w.Header().Set("Content-Length", strconv.FormatInt(hd.ContentLength, 10))
	}
	if hd.HasContentType {
		h.w.Header().Set("Content-Type", hd.ContentType)
	}
	h.w.WriteHeader(http.StatusOK)
	h.wroteHeader = true
	if f, ok := h.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

func (h *httpReceiverHandle) Write(p []byte) (int, error) {
	return h.w.Write(p)
}

func (h *httpReceiverHandle) Flush() {
	if f, ok := h.w.(http.Flusher); ok {
		f.Flush()
	}
}
