package ledger

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle state of a run.
type Status string

// Run statuses.
const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Errors returned by Store implementations.
var (
	ErrRunNotFound      = errors.New("run not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrRunExists        = errors.New("run already exists")
)

// Run is one orchestration request and its outcome.
type Run struct {
	ID           string
	UserID       string
	UserEmail    string
	ProjectName  string
	Mode         string
	TemplateSlug string

	// Archived document URLs, empty when not supplied.
	BriefURL        string
	PRDURL          string
	ArchitectureURL string
	FrontendURL     string

	Status       Status
	RepoName     string
	RepoURL      string
	Instructions string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Template is a catalog entry backed by a brief file on disk.
type Template struct {
	Slug      string
	Name      string
	BriefPath string
}

// Outcome is what CompleteRun records.
type Outcome struct {
	RepoName     string
	RepoURL      string
	Instructions string
}

// Stats summarizes the runs table.
type Stats struct {
	Total     int
	Completed int
	Failed    int
	Full      int
	Light     int
}

// TemplateUsage counts full-mode runs per template.
type TemplateUsage struct {
	Name  string
	Count int
}

// Store is the ledger interface.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, run Run) error
	CompleteRun(ctx context.Context, id string, out Outcome) error
	FailRun(ctx context.Context, id string) error
	GetRun(ctx context.Context, id, userID string) (*Run, error)
	ListRuns(ctx context.Context, userID string, limit int) ([]Run, error)
	Stats(ctx context.Context) (*Stats, error)
	TopTemplates(ctx context.Context, limit int) ([]TemplateUsage, error)

	// Templates
	SyncTemplates(ctx context.Context, templates []Template) error
	ListTemplates(ctx context.Context) ([]Template, error)
	FindTemplate(ctx context.Context, slug string) (*Template, error)
}
