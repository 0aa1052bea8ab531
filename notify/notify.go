package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	seederrors "github.com/randalmurphal/seedrepo/errors"
	"github.com/randalmurphal/seedrepo/orchestrator"
	"github.com/randalmurphal/seedrepo/prompt"
)

// EventType represents the type of run event.
type EventType string

// Event type constants.
const (
	EventRunStarted   EventType = "run_started"
	EventRunCompleted EventType = "run_completed"
	EventRunFailed    EventType = "run_failed"
)

// Severity constants for notifications.
const (
	SeverityError = "error"
	SeverityInfo  = "info"
)

// Run identifies the submission an event belongs to.
type Run struct {
	ID      string `json:"id"`
	Mode    string `json:"mode"`
	Project string `json:"project"`
}

// Repository is the published repository of a completed run.
type Repository struct {
	Name      string `json:"name"`
	Owner     string `json:"owner"`
	URL       string `json:"url"`
	CommitSHA string `json:"commit_sha,omitempty"`
}

// FullName returns owner/name.
func (r Repository) FullName() string {
	if r.Owner == "" {
		return r.Name
	}
	return r.Owner + "/" + r.Name
}

// Failure explains a failed run.
type Failure struct {
	Stage      string `json:"stage,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
	Retryable  bool   `json:"retryable"`
}

// Event describes a run event for notification.
type Event struct {
	Type      EventType   `json:"type"`
	Severity  string      `json:"severity"`
	Run       Run         `json:"run"`
	Repo      *Repository `json:"repository,omitempty"`
	Failure   *Failure    `json:"failure,omitempty"`
	Timestamp time.Time   `json:"timestamp"`

	// Follow-up instructions, completed runs only.
	Instructions string `json:"instructions,omitempty"`
	HTML         string `json:"html,omitempty"`
}

// RunStarted announces a run that was recorded and handed to the orchestrator.
func RunStarted(run Run) Event {
	return Event{Type: EventRunStarted, Severity: SeverityInfo, Run: run}
}

// RunCompleted announces a published repository. The instructions are
// rendered to HTML; a render error is returned alongside an event that
// carries the markdown only.
func RunCompleted(run Run, result *orchestrator.Result) (Event, error) {
	event := Event{
		Type:     EventRunCompleted,
		Severity: SeverityInfo,
		Run:      run,
		Repo: &Repository{
			Name:      result.RepoName,
			Owner:     result.Owner,
			URL:       result.RepoURL,
			CommitSHA: result.CommitSHA,
		},
		Instructions: result.Instructions,
	}
	html, err := prompt.RenderHTML(result.Instructions)
	if err != nil {
		return event, err
	}
	event.HTML = html
	return event, nil
}

// RunFailed announces a failed run, classified by the stage and kind the
// orchestrator attached to err.
func RunFailed(run Run, err error) Event {
	msg := seederrors.UserMessage(err)
	f := &Failure{
		Stage:      seederrors.StageOf(err),
		Kind:       string(seederrors.KindOf(err)),
		Message:    msg.Message,
		Suggestion: msg.Suggestion,
		Retryable:  seederrors.IsRetryable(err),
	}
	var se *seederrors.StageError
	if errors.As(err, &se) {
		f.Reason = se.Reason
	}
	return Event{Type: EventRunFailed, Severity: SeverityError, Run: run, Failure: f}
}

// Summary returns a one-line description of the event.
func (e Event) Summary() string {
	switch e.Type {
	case EventRunStarted:
		return fmt.Sprintf("Seeding %s (%s)", e.Run.Project, e.Run.Mode)
	case EventRunCompleted:
		if e.Repo != nil {
			return fmt.Sprintf("%s is ready at %s", e.Run.Project, e.Repo.URL)
		}
		return e.Run.Project + " is ready"
	case EventRunFailed:
		if e.Failure == nil {
			return e.Run.Project + " failed"
		}
		if e.Failure.Stage == "" {
			return fmt.Sprintf("%s failed: %s", e.Run.Project, e.Failure.Message)
		}
		return fmt.Sprintf("%s failed at %s: %s", e.Run.Project, e.Failure.Stage, e.Failure.Message)
	}
	return string(e.Type)
}

// Notifier sends notifications about run events.
type Notifier interface {
	// Notify sends a notification. Callers log errors and carry on; a
	// failed notification never fails a run.
	Notify(ctx context.Context, event Event) error
}

// New builds the notifier set from configuration: always a LogNotifier,
// plus a webhook and a Slack notifier when their URLs are set.
func New(logger *slog.Logger, webhookURL, slackWebhookURL string) Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	notifiers := []Notifier{NewLogNotifier(logger)}
	if webhookURL != "" {
		notifiers = append(notifiers, NewWebhookNotifier(webhookURL, nil))
	}
	if slackWebhookURL != "" {
		notifiers = append(notifiers, NewSlackNotifier(slackWebhookURL))
	}
	if len(notifiers) == 1 {
		return notifiers[0]
	}
	multi := NewMultiNotifier(notifiers...)
	multi.Logger = logger
	return multi
}
