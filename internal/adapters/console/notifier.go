package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/notifier"
)

// Notifier prints notifications as single lines on a terminal.
// It is safe for concurrent use.
type Notifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewNotifier(w io.Writer) *Notifier {
	return &Notifier{w: w}
}

func (n *Notifier) Notify(ctx context.Context, level notifier.Level, message string) {
	_ = ctx
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintf(n.w, "%-9s %s\n", "["+strings.ToUpper(string(level))+"]", message)
}
