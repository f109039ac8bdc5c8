package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
)

// Channel is the NOTIFY channel carrying roster change events. Database
// triggers send the changed table name as the payload.
const Channel = "roster_changed"

// Invalidator propagates roster changes across instances using
// PostgreSQL LISTEN/NOTIFY. When another instance commits a change to
// musicians or instruments, every listener drops its cached selection
// options for that table instead of waiting out the TTL.
type Invalidator struct {
	mu       sync.Mutex
	connStr  string
	onChange func(payload string)
	listener *pq.Listener
	stopCh   chan struct{}
	stopped  bool
}

// NewInvalidator creates a new Invalidator. onChange is called with the
// notification payload for every received event.
func NewInvalidator(connStr string, onChange func(payload string)) *Invalidator {
	return &Invalidator{
		connStr:  connStr,
		onChange: onChange,
		stopCh:   make(chan struct{}),
	}
}

// Start begins listening for roster change notifications.
func (inv *Invalidator) Start() error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			// The TTL on cached entries bounds staleness while the
			// listener reconnects.
			fmt.Printf("cache invalidator listener error: %v\n", err)
		}
	}

	inv.listener = pq.NewListener(inv.connStr, 10*time.Second, time.Minute, reportProblem)
	if err := inv.listener.Listen(Channel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", Channel, err)
	}

	go inv.notifyLoop(inv.listener.Notify)
	return nil
}

// Stop stops the Invalidator and cleans up resources.
func (inv *Invalidator) Stop() error {
	inv.mu.Lock()
	if inv.stopped {
		inv.mu.Unlock()
		return nil
	}
	inv.stopped = true
	close(inv.stopCh)
	inv.mu.Unlock()

	if inv.listener != nil {
		return inv.listener.Close()
	}
	return nil
}

// notifyLoop processes incoming NOTIFY events until Stop is called.
func (inv *Invalidator) notifyLoop(notify <-chan *pq.Notification) {
	for {
		select {
		case <-inv.stopCh:
			return
		case notification := <-notify:
			if notification == nil {
				// Connection lost, listener will reconnect automatically
				continue
			}
			inv.onChange(notification.Extra)
		case <-time.After(90 * time.Second):
			// Periodic ping to keep connection alive
			go func() {
				if inv.listener == nil {
					return
				}
				if err := inv.listener.Ping(); err != nil {
					fmt.Printf("cache invalidator ping error: %v\n", err)
				}
			}()
		}
	}
}
