package listener

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cornellsh/signal-client/internal/wsclient"
)

func TestRun_DropNewest_DiscardsWhenFull(t *testing.T) {
	s := New(Config{QueueSize: 2, Policy: DropNewest})
	upstream := make(chan wsclient.Frame)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx, upstream)

	upstream <- wsclient.Frame{Payload: "a"}
	upstream <- wsclient.Frame{Payload: "b"}
	upstream <- wsclient.Frame{Payload: "c"} // dropped, queue full at 2

	require.Eventually(t, func() bool { return len(s.Ingress()) == 2 }, time.Second, time.Millisecond)

	first := <-s.Ingress()
	second := <-s.Ingress()
	assert.Equal(t, "a", first.Payload)
	assert.Equal(t, "b", second.Payload)
}

func TestRun_DropOldest_EvictsHeadWhenFull(t *testing.T) {
	s := New(Config{QueueSize: 2, Policy: DropOldest})
	upstream := make(chan wsclient.Frame)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx, upstream)

	upstream <- wsclient.Frame{Payload: "a"}
	upstream <- wsclient.Frame{Payload: "b"}
	require.Eventually(t, func() bool { return len(s.Ingress()) == 2 }, time.Second, time.Millisecond)
	upstream <- wsclient.Frame{Payload: "c"}
	require.Eventually(t, func() bool { return len(s.Ingress()) == 2 }, time.Second, time.Millisecond)

	first := <-s.Ingress()
	second := <-s.Ingress()
	assert.Equal(t, "b", first.Payload)
	assert.Equal(t, "c", second.Payload)
}

func TestRun_Block_WaitsForCapacity(t *testing.T) {
	s := New(Config{QueueSize: 1, Policy: Block})
	upstream := make(chan wsclient.Frame)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx, upstream)

	upstream <- wsclient.Frame{Payload: "a"}
	require.Eventually(t, func() bool { return len(s.Ingress()) == 1 }, time.Second, time.Millisecond)

	sent := make(chan struct{})
	go func() {
		upstream <- wsclient.Frame{Payload: "b"}
		close(sent)
	}()

	select {
	case <-sent:
		t.Fatal("send should have blocked while queue was full")
	case <-time.After(50 * time.Millisecond):
	}

	<-s.Ingress() // frees capacity
	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("send did not unblock after capacity freed")
	}
}
