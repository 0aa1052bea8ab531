package notify

import (
	"context"
	"log/slog"
)

// LogNotifier logs notifications using slog.
type LogNotifier struct {
	Logger *slog.Logger
}

// NewLogNotifier creates a notifier that logs to the given logger.
// If logger is nil, uses the default slog logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{Logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, event Event) error {
	level := slog.LevelInfo
	if event.Severity == SeverityError {
		level = slog.LevelError
	}

	attrs := []any{
		"type", event.Type,
		"run_id", event.Run.ID,
		"mode", event.Run.Mode,
		"project", event.Run.Project,
	}
	if r := event.Repo; r != nil {
		attrs = append(attrs, "repo_url", r.URL, "commit", r.CommitSHA)
	}
	if f := event.Failure; f != nil {
		attrs = append(attrs,
			"stage", f.Stage,
			"kind", f.Kind,
			"reason", f.Reason,
			"retryable", f.Retryable,
		)
	}
	n.Logger.Log(ctx, level, event.Summary(), attrs...)
	return nil
}
