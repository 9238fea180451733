package automation

import (
	"context"
	"time"

	"songsmith/internal/browser"
)

// WaitReady polls document.readyState until it reports complete, then waits
// one settle period for late scripts. A false result means "proceed carefully".
func (e *Engine) WaitReady(ctx context.Context, page browser.Page, timeout time.Duration) bool {
	var last string
	err := Poll(ctx, e.readyPoll, timeout, func() bool {
		state, err := page.ReadyState()
		if err != nil {
			e.log.Debug().Err(err).Msg("ready state unavailable")
			return false
		}
		last = state
		return state == "complete"
	})
	if err != nil {
		e.log.Warn().Str("state", last).Dur("timeout", timeout).Msg("page not ready")
		return false
	}

	if err := Sleep(ctx, e.readySettle); err != nil {
		return false
	}
	return true
}
