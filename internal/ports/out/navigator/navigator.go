package navigator

import "context"

// View is a named destination the client can send the user to.
type View string

const (
	ViewLogin View = "login"
	ViewIndex View = "index"
)

// Navigator moves the user between views.
type Navigator interface {
	// Redirect sends the user to view.
	Redirect(ctx context.Context, view View)
	// ReplaceURL rewrites the visible address without reloading the current view.
	ReplaceURL(ctx context.Context, rawURL string)
}
