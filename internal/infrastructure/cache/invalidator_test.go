package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
)

func TestInvalidator_NotifyLoop(t *testing.T) {
	var mu sync.Mutex
	var payloads []string

	inv := NewInvalidator("", func(payload string) {
		mu.Lock()
		payloads = append(payloads, payload)
		mu.Unlock()
	})

	notify := make(chan *pq.Notification, 2)
	done := make(chan struct{})
	go func() {
		inv.notifyLoop(notify)
		close(done)
	}()

	notify <- &pq.Notification{Channel: Channel, Extra: "instruments"}
	notify <- &pq.Notification{Channel: Channel, Extra: "musicians"}

	// Wait for both payloads to arrive.
	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(payloads)
		mu.Unlock()
		if n == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("received %d payloads, want 2", n)
		case <-time.After(10 * time.Millisecond):
		}
	}

	mu.Lock()
	if payloads[0] != "instruments" || payloads[1] != "musicians" {
		t.Errorf("payloads = %v, want [instruments musicians]", payloads)
	}
	mu.Unlock()

	if err := inv.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notifyLoop did not exit after Stop")
	}
}

func TestInvalidator_NilNotificationIgnored(t *testing.T) {
	called := false
	inv := NewInvalidator("", func(string) { called = true })

	notify := make(chan *pq.Notification, 1)
	done := make(chan struct{})
	go func() {
		inv.notifyLoop(notify)
		close(done)
	}()

	// A nil notification signals a dropped connection, not a change.
	notify <- nil
	time.Sleep(50 * time.Millisecond)

	if err := inv.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	<-done

	if called {
		t.Error("onChange should not fire for nil notifications")
	}
}

func TestInvalidator_StopTwice(t *testing.T) {
	inv := NewInvalidator("", func(string) {})
	if err := inv.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := inv.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
}
