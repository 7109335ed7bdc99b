package infra

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"piping-relay/internal/rendezvous/domain"
)

type bufSenderHandle struct {
	body    io.Reader
	headers domain.Headers

	mu    sync.Mutex
	notes []string
}

func (h *bufSenderHandle) Headers() domain.Headers { return h.headers }
func (h *bufSenderHandle) Body() io.Reader         { return h.body }
func (h *bufSenderHandle) Notify(line string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notes = append(h.notes, line)
	return nil
}

type bufReceiverHandle struct {
	mu          sync.Mutex
	buf         bytes.Buffer
	headers     domain.Headers
	committed   bool
	writeErr    error
	flushCalled int
}

func (h *bufReceiverHandle) CommitHeaders(hd domain.Headers) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.headers = hd
	h.committed = true
	return nil
}

func (h *bufReceiverHandle) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.writeErr != nil {
		return 0, h.writeErr
	}
	return h.buf.Write(p)
}

func (h *bufReceiverHandle) Flush() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.flushCalled++
}

func (h *bufReceiverHandle) bytes() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]byte(nil), h.buf.Bytes()...)
}

func TestPump_SingleReceiver_ByteForByte(t *testing.T) {
	sender := &bufSenderHandle{
		body:    strings.NewReader("this is a content"),
		headers: domain.Headers{ContentLength: 17, HasContentLength: true},
	}
	recv := &bufReceiverHandle{}

	p := NewPump(nil)
	p.Run(
		domain.SenderSession{Ctx: context.Background(), Handle: sender},
		[]domain.ReceiverSession{{Ctx: context.Background(), Handle: recv, Index: 0}},
	)

	require.True(t, recv.committed)
	require.Equal(t, "this is a content", string(recv.bytes()))
	require.Equal(t, int64(17), recv.headers.ContentLength)
	require.True(t, recv.headers.HasContentLength)
}

func TestPump_FanOutToThreeReceivers_IdenticalBytes(t *testing.T) {
	sender := &bufSenderHandle{
		body:    strings.NewReader("this is a content"),
		headers: domain.Headers{ContentLength: 17, HasContentLength: true},
	}
	recvs := []*bufReceiverHandle{{}, {}, {}}
	sessions := make([]domain.ReceiverSession, len(recvs))
	for i, r := range recvs {
		sessions[i] = domain.ReceiverSession{Ctx: context.Background(), Handle: r, Index: i}
	}

	p := NewPump(nil)
	p.Run(domain.SenderSession{Ctx: context.Background(), Handle: sender}, sessions)

	for _, r := range recvs {
		require.True(t, r.committed)
		require.Equal(t, "this is a content", string(r.bytes()))
	}
}

func TestPump_ChunkedSenderNoContentLength(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		_, _ = pw.Write([]byte("this is"))
		_, _ = pw.Write([]byte(" a content"))
		_ = pw.Close()
	}()
	sender := &bufSenderHandle{body: pr}
	recv := &bufReceiverHandle{}

	p := NewPump(nil, WithChunkSize(4))
	p.Run(
		domain.SenderSession{Ctx: context.Background(), Handle: sender},
		[]domain.ReceiverSession{{Ctx: context.Background(), Handle: recv}},
	)

	require.False(t, recv.headers.HasContentLength)
	require.Equal(t, "this is a content", string(recv.bytes()))
}

func TestPump_DisconnectedReceiverDoesNotTruncateSurvivor(t *testing.T) {
	sender := &bufSenderHandle{
		body: strings.NewReader("this is a content"),
	}
	survivor := &bufReceiverHandle{}
	goneCtx, cancel := context.WithCancel(context.Background())
	gone := &bufReceiverHandle{}

	// Cancel the disconnecting receiver's context shortly after the
	// transfer begins so the Pump observes it mid-stream.
	go func() {
		time.Sleep(2 * time.Millisecond)
		cancel()
	}()

	p := NewPump(nil, WithChunkSize(4))
	p.Run(
		domain.SenderSession{Ctx: context.Background(), Handle: sender},
		[]domain.ReceiverSession{
			{Ctx: context.Background(), Handle: survivor, Index: 0},
			{Ctx: goneCtx, Handle: gone, Index: 1},
		},
	)

	require.Equal(t, "this is a content", string(survivor.bytes()))
}

func TestPump_SenderDisconnectTruncatesReceivers(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		_, _ = pw.Write([]byte("partial"))
		_ = pw.CloseWithError(errors.New("connection reset"))
	}()
	sender := &bufSenderHandle{body: pr}
	recv := &bufReceiverHandle{}

	p := NewPump(nil, WithChunkSize(4))
	p.Run(
		domain.SenderSession{Ctx: context.Background(), Handle: sender},
		[]domain.ReceiverSession{{Ctx: context.Background(), Handle: recv}},
	)

	require.Equal(t, "partial", string(recv.bytes()))
	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Contains(t, sender.notes[len(sender.notes)-1], "interrupted")
}

func TestPump_AllReceiversGone_SenderStillCompletes(t *testing.T) {
	goneCtx, cancel := context.WithCancel(context.Background())
	cancel()
	sender := &bufSenderHandle{body: strings.NewReader(strings.Repeat("x", 64))}
	recv := &bufReceiverHandle{}

	p := NewPump(nil, WithChunkSize(4))
	done := make(chan struct{})
	go func() {
		p.Run(
			domain.SenderSession{Ctx: context.Background(), Handle: sender},
			[]domain.ReceiverSession{{Ctx: goneCtx, Handle: recv}},
		)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not complete after all receivers disconnected")
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Contains(t, sender.notes[len(sender.notes)-1], "complete")
}
