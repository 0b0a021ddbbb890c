package console

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/navigator"
)

// Navigator tells a terminal user where the web client would have taken them.
// It is safe for concurrent use.
type Navigator struct {
	mu    sync.Mutex
	w     io.Writer
	paths map[navigator.View]string
	url   string
}

// NewNavigator maps views to web paths for display, e.g. login -> /login.html.
func NewNavigator(w io.Writer, paths map[navigator.View]string) *Navigator {
	return &Navigator{w: w, paths: paths}
}

func (n *Navigator) Redirect(ctx context.Context, view navigator.View) {
	_ = ctx
	n.mu.Lock()
	defer n.mu.Unlock()
	target := string(view)
	if p, ok := n.paths[view]; ok {
		target = p
	}
	_, _ = fmt.Fprintf(n.w, "-> %s\n", target)
}

func (n *Navigator) ReplaceURL(ctx context.Context, rawURL string) {
	_ = ctx
	n.mu.Lock()
	defer n.mu.Unlock()
	n.url = rawURL
}

// URL returns the last address set via ReplaceURL.
func (n *Navigator) URL() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.url
}
