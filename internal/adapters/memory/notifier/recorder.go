package notifier

import (
	"context"
	"sync"

	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/notifier"
)

type Message struct {
	Level notifier.Level
	Text  string
}

// Recorder keeps every notification in memory.
// It is safe for concurrent use.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Notify(ctx context.Context, level notifier.Level, message string) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, Message{Level: level, Text: message})
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

// Count returns how many messages were recorded at level.
func (r *Recorder) Count(level notifier.Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.msgs {
		if m.Level == level {
			n++
		}
	}
	return n
}
