package browser

import (
	"context"
	"strings"
)

// Handle is one live, controllable browser session. A handle belongs to a
// single cycle and must be closed by its owner.
type Handle interface {
	// Navigate loads url and waits for the navigation to commit.
	Navigate(ctx context.Context, url string) error
	// WaitReady blocks until sel exists in the DOM.
	WaitReady(ctx context.Context, sel Selector) error
	// WaitVisible blocks until sel is visible.
	WaitVisible(ctx context.Context, sel Selector) error
	// Visible reports, without waiting, whether any node matching sel is
	// currently rendered.
	Visible(ctx context.Context, sel Selector) (bool, error)
	Click(ctx context.Context, sel Selector) error
	// ClearAndType empties an input and types value into it.
	ClearAndType(ctx context.Context, sel Selector, value string) error
	// Location returns the current document address.
	Location(ctx context.Context) (string, error)
	// Close force-closes the session. It is safe to call more than once.
	Close() error
}

// Selector addresses DOM nodes either by CSS query or by XPath.
type Selector struct {
	Expr  string
	XPath bool
}

// CSS builds a query selector.
func CSS(expr string) Selector { return Selector{Expr: expr} }

// XPath builds an XPath selector.
func XPath(expr string) Selector { return Selector{Expr: expr, XPath: true} }

func (s Selector) String() string {
	if s.XPath {
		return "xpath:" + s.Expr
	}
	return s.Expr
}

// TextMatch returns an XPath selecting elements of the given tags whose
// normalized text contains needle, ignoring ASCII case.
func TextMatch(needle string, tags ...string) Selector {
	if len(tags) == 0 {
		tags = []string{"*"}
	}
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == "*" {
			parts = append(parts, "//*")
			continue
		}
		parts = append(parts, "//"+tag)
	}
	cond := "[contains(translate(normalize-space(.), 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), '" +
		strings.ToLower(needle) + "')]"
	for i := range parts {
		parts[i] += cond
	}
	return XPath(strings.Join(parts, " | "))
}

// Reporter receives human-readable descriptions of the step in progress.
type Reporter func(action string)

// Report forwards action when r is set.
func (r Reporter) Report(action string) {
	if r != nil {
		r(action)
	}
}
