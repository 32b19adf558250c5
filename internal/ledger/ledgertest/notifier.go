package ledgertest

import (
	"context"
	"sync"

	"github.com/hardik-0129/backend/internal/ledger"
)

// Notifier records every balance event it receives.
type Notifier struct {
	mu     sync.Mutex
	events []ledger.BalanceSnapshot
}

func (n *Notifier) BalanceChanged(_ context.Context, snap ledger.BalanceSnapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, snap)
}

func (n *Notifier) Events() []ledger.BalanceSnapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]ledger.BalanceSnapshot(nil), n.events...)
}

// For returns the events delivered for one user, oldest first.
func (n *Notifier) For(userID int64) []ledger.BalanceSnapshot {
	var out []ledger.BalanceSnapshot
	for _, e := range n.Events() {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}
