package infra

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegistry_GetOrCreateIsSerialisedAcrossConcurrentArrivals(t *testing.T) {
	reg := NewRegistry(NewPump(nil), nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs[0] = reg.AdmitSender(context.Background(), "/mydataid", "1", &bufSenderHandle{body: strings.NewReader("x")})
	}()
	go func() {
		defer wg.Done()
		time.Sleep(5 * time.Millisecond)
		errs[1] = reg.AdmitReceiver(context.Background(), "/mydataid", &bufReceiverHandle{})
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, 0, reg.Size())
}

func TestRegistry_PathReusableAfterCompletion(t *testing.T) {
	reg := NewRegistry(NewPump(nil), nil)

	go func() { _ = reg.AdmitReceiver(context.Background(), "/mydataid", &bufReceiverHandle{}) }()
	err := reg.AdmitSender(context.Background(), "/mydataid", "1", &bufSenderHandle{body: strings.NewReader("x")})
	require.NoError(t, err)

	// First round may still be draining; give it a moment, then start a
	// second, independent round on the same path.
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 0, reg.Size())

	var wg sync.WaitGroup
	wg.Add(2)
	var sErr, rErr error
	go func() {
		defer wg.Done()
		sErr = reg.AdmitSender(context.Background(), "/mydataid", "1", &bufSenderHandle{body: strings.NewReader("y")})
	}()
	time.Sleep(5 * time.Millisecond)
	go func() {
		defer wg.Done()
		rErr = reg.AdmitReceiver(context.Background(), "/mydataid", &bufReceiverHandle{})
	}()
	wg.Wait()

	require.NoError(t, sErr)
	require.NoError(t, rErr)
}

func TestRegistry_SecondSenderRejected(t *testing.T) {
	reg := NewRegistry(NewPump(nil), nil)

	done := make(chan struct{})
	go func() {
		_ = reg.AdmitSender(context.Background(), "/mydataid", "1", &bufSenderHandle{body: strings.NewReader("x")})
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)

	err := reg.AdmitSender(context.Background(), "/mydataid", "1", &bufSenderHandle{body: strings.NewReader("y")})
	require.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = reg.AdmitReceiver(ctx, "/mydataid", &bufReceiverHandle{})
	<-done
}
