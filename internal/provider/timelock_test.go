package provider

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"lotto-server/common/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger()
	m.Run()
}

func TestTimeLockRejectsEarlyRelease(t *testing.T) {
	p := NewLocalTimeLock(func(context.Context, string, []byte) {})

	unlockAt := time.Now().Add(time.Hour).UnixMilli()
	id, err := p.RequestUnlock(context.Background(), unlockAt, []byte("key-material"))
	if err != nil {
		t.Fatalf("request unlock: %v", err)
	}

	// 解锁时间未到，托管方必须拒绝交付
	if _, err := p.Release(id); err != ErrNotDue {
		t.Fatalf("expected ErrNotDue, got %v", err)
	}
}

func TestTimeLockReleaseAfterDue(t *testing.T) {
	p := NewLocalTimeLock(func(context.Context, string, []byte) {})

	unlockAt := time.Now().Add(-time.Second).UnixMilli()
	payload := []byte("key-material")
	id, err := p.RequestUnlock(context.Background(), unlockAt, payload)
	if err != nil {
		t.Fatalf("request unlock: %v", err)
	}

	got, err := p.Release(id)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: %s", got)
	}

	// 同一请求不得二次交付
	if _, err := p.Release(id); err == nil {
		t.Fatalf("expected error on second release")
	}
}

func TestTimeLockCallbackDelivery(t *testing.T) {
	var mu sync.Mutex
	delivered := map[string][]byte{}
	done := make(chan struct{}, 1)

	p := NewLocalTimeLock(func(_ context.Context, id string, proof []byte) {
		mu.Lock()
		delivered[id] = proof
		mu.Unlock()
		done <- struct{}{}
	})

	unlockAt := time.Now().Add(20 * time.Millisecond).UnixMilli()
	id, err := p.RequestUnlock(context.Background(), unlockAt, []byte("abc"))
	if err != nil {
		t.Fatalf("request unlock: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("callback not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	if !bytes.Equal(delivered[id], []byte("abc")) {
		t.Fatalf("delivered proof mismatch: %v", delivered)
	}
}

func TestTimeLockUnknownRequest(t *testing.T) {
	p := NewLocalTimeLock(func(context.Context, string, []byte) {})
	if _, err := p.Release("no-such-id"); err == nil {
		t.Fatalf("expected error for unknown request id")
	}
}
