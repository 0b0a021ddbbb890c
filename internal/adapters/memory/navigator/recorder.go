package navigator

import (
	"context"
	"sync"

	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/navigator"
)

// Recorder keeps every navigation in memory.
// It is safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	redirects []navigator.View
	url       string
}

// NewRecorder returns a Recorder whose visible address starts at initialURL.
func NewRecorder(initialURL string) *Recorder { return &Recorder{url: initialURL} }

func (r *Recorder) Redirect(ctx context.Context, view navigator.View) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redirects = append(r.redirects, view)
}

func (r *Recorder) ReplaceURL(ctx context.Context, rawURL string) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.url = rawURL
}

func (r *Recorder) Redirects() []navigator.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]navigator.View(nil), r.redirects...)
}

// URL returns the current visible address.
func (r *Recorder) URL() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.url
}
