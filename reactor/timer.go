// File: reactor/timer.go
// Author: momentics <momentics@gmail.com>
//
// One-shot timeouts delivered through the loop.

package reactor

import (
	"errors"
	"fmt"
	"time"

	"github.com/momentics/hioload-relay/api"
)

// TimeoutAfter delivers a timeout to tok once d has elapsed. The returned
// function cancels the timer and reports whether it was still pending. A
// machine that terminated in the meantime is skipped silently.
func (l *Loop[S]) TimeoutAfter(tok api.Token, d time.Duration) (cancel func() bool, err error) {
	l.mu.Lock()
	_, ok := l.entries[tok]
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return nil, ErrLoopClosed
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownToken, tok)
	}
	t := time.AfterFunc(d, func() {
		err := l.DeliverTimeout(tok)
		if err != nil && !errors.Is(err, ErrUnknownToken) && !errors.Is(err, ErrLoopClosed) {
			l.log.Warn("timeout not delivered", "token", uint64(tok), "error", err)
		}
	})
	return t.Stop, nil
}
