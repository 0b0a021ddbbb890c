package notifier

import "context"

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier surfaces short messages to the user (toasts in a browser, lines on a terminal).
type Notifier interface {
	Notify(ctx context.Context, level Level, message string)
}
