package otp

import (
	"context"
	"errors"
	"fmt"
)

// Clipboard is a write-only system clipboard.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

var (
	ErrNoBrowserWrite     = errors.New("browser did not report a clipboard write")
	ErrClipboardTextStale = errors.New("browser wrote a different code than the one displayed")
)

// BrowserWrite is the browser's report of its navigator.clipboard write,
// made before it asks the server to mark the code as copied.
type BrowserWrite struct {
	Text string
	Err  error
}

type browserWriteKey struct{}

// ContextWithBrowserWrite attaches the browser's report to a copy request.
func ContextWithBrowserWrite(ctx context.Context, w BrowserWrite) context.Context {
	return context.WithValue(ctx, browserWriteKey{}, w)
}

// BrowserClipboard succeeds only when the request carries a successful
// browser write of exactly the text being copied.
type BrowserClipboard struct{}

var _ Clipboard = BrowserClipboard{}

func NewBrowserClipboard() BrowserClipboard {
	return BrowserClipboard{}
}

func (BrowserClipboard) WriteText(ctx context.Context, text string) error {
	w, ok := ctx.Value(browserWriteKey{}).(BrowserWrite)
	if !ok {
		return ErrNoBrowserWrite
	}
	if w.Err != nil {
		return fmt.Errorf("browser clipboard write failed: %w", w.Err)
	}
	if w.Text != text {
		return ErrClipboardTextStale
	}
	return nil
}
