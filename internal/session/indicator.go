package session

import "context"

// Indicator is the session-facing subset of user-facing status behavior.
type Indicator interface {
	ShowNarrating(ctx context.Context, stepID, text string)
	ShowListening(context.Context)
	ShowAnswer(ctx context.Context, text string)
	ShowComplete(context.Context)
	ShowError(ctx context.Context, text string)
	Hide(context.Context)
}

// noopIndicator preserves session flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) ShowNarrating(context.Context, string, string) {}
func (noopIndicator) ShowListening(context.Context)                 {}
func (noopIndicator) ShowAnswer(context.Context, string)            {}
func (noopIndicator) ShowComplete(context.Context)                  {}
func (noopIndicator) ShowError(context.Context, string)             {}
func (noopIndicator) Hide(context.Context)                          {}
