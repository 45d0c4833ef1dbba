package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ccheshirecat/rollerbot/internal/bot/browser"
)

// ErrRequiredElementMissing means a form element the flow depends on never
// appeared.
var ErrRequiredElementMissing = errors.New("session: required element missing")

// Outcome is the result of looking for one element.
type Outcome int

const (
	// OutcomeFound means the element became visible within its timeout.
	OutcomeFound Outcome = iota
	// OutcomeAbsent means an optional element did not appear.
	OutcomeAbsent
	// OutcomeMissing means a required element did not appear.
	OutcomeMissing
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeAbsent:
		return "absent"
	case OutcomeMissing:
		return "missing"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// locate waits up to timeout for sel to become visible. Running out of time
// is an outcome, not an error; any other failure, including cancellation of
// ctx itself, is returned.
func locate(ctx context.Context, h browser.Handle, sel browser.Selector, timeout time.Duration, required bool) (Outcome, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := h.WaitVisible(waitCtx, sel)
	switch {
	case err == nil:
		return OutcomeFound, nil
	case ctx.Err() != nil:
		return 0, ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		if required {
			return OutcomeMissing, nil
		}
		return OutcomeAbsent, nil
	default:
		return 0, err
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
