package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const schema = `
CREATE TABLE IF NOT EXISTS project_templates (
	slug       TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	brief_path TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS project_runs (
	id                    TEXT PRIMARY KEY,
	user_id               TEXT NOT NULL,
	user_email            TEXT,
	project_name          TEXT NOT NULL,
	mode                  TEXT NOT NULL,
	template_slug         TEXT,
	brief_blob_url        TEXT,
	prd_blob_url          TEXT,
	architecture_blob_url TEXT,
	frontend_blob_url     TEXT,
	repo_name             TEXT,
	repo_url              TEXT,
	status                TEXT NOT NULL,
	claude_instructions   TEXT,
	created_at            INTEGER NOT NULL,
	updated_at            INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS project_runs_user_created ON project_runs (user_id, created_at DESC);
`

const runColumns = `id, user_id, user_email, project_name, mode, template_slug,
	brief_blob_url, prd_blob_url, architecture_blob_url, frontend_blob_url,
	repo_name, repo_url, status, claude_instructions, created_at, updated_at`

// SQLStore implements Store over database/sql. Timestamps are stored as
// unix milliseconds.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLStore wraps an open database. The caller owns db.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// Open opens (creating if needed) a sqlite database file. Use ":memory:"
// for a throwaway ledger.
func Open(path string) (*SQLStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	// sqlite allows one writer; a single connection also keeps ":memory:"
	// databases shared across calls.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	return NewSQLStore(db), nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the ledger tables. It is idempotent.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	return nil
}

// CreateRun inserts a run in the processing state.
func (s *SQLStore) CreateRun(ctx context.Context, run Run) error {
	now := s.now().UnixMilli()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO project_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, ?, NULL, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		run.ID, run.UserID, nullable(run.UserEmail), run.ProjectName, run.Mode, nullable(run.TemplateSlug),
		nullable(run.BriefURL), nullable(run.PRDURL), nullable(run.ArchitectureURL), nullable(run.FrontendURL),
		StatusProcessing, now, now)
	if err != nil {
		return fmt.Errorf("create run %s: %w", run.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("create run %s: %w", run.ID, ErrRunExists)
	}
	return nil
}

// CompleteRun marks a run completed and records where it was published.
func (s *SQLStore) CompleteRun(ctx context.Context, id string, out Outcome) error {
	return s.updateRun(ctx, id, `
		UPDATE project_runs
		SET status = ?, repo_name = ?, repo_url = ?, claude_instructions = ?, updated_at = ?
		WHERE id = ?`,
		StatusCompleted, out.RepoName, out.RepoURL, out.Instructions, s.now().UnixMilli(), id)
}

// FailRun marks a run failed.
func (s *SQLStore) FailRun(ctx context.Context, id string) error {
	return s.updateRun(ctx, id, `
		UPDATE project_runs SET status = ?, updated_at = ? WHERE id = ?`,
		StatusFailed, s.now().UnixMilli(), id)
}

func (s *SQLStore) updateRun(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// GetRun returns a run owned by userID. Runs owned by someone else are
// reported as ErrRunNotFound.
func (s *SQLStore) GetRun(ctx context.Context, id, userID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM project_runs
		WHERE id = ? AND user_id = ?
		LIMIT 1`, id, userID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the newest runs first. An empty userID lists every
// user's runs. A limit <= 0 means no limit.
func (s *SQLStore) ListRuns(ctx context.Context, userID string, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM project_runs`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Stats counts runs by status and mode.
func (s *SQLStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(status = ?), 0),
			COALESCE(SUM(status = ?), 0),
			COALESCE(SUM(mode = 'full'), 0),
			COALESCE(SUM(mode = 'light'), 0)
		FROM project_runs`, StatusCompleted, StatusFailed).
		Scan(&st.Total, &st.Completed, &st.Failed, &st.Full, &st.Light)
	if err != nil {
		return nil, fmt.Errorf("run stats: %w", err)
	}
	return &st, nil
}

// TopTemplates returns the most used templates among full-mode runs.
func (s *SQLStore) TopTemplates(ctx context.Context, limit int) ([]TemplateUsage, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT pt.name, COUNT(pr.id) AS n
		FROM project_runs pr
		JOIN project_templates pt ON pr.template_slug = pt.slug
		WHERE pr.mode = 'full'
		GROUP BY pt.name
		ORDER BY n DESC, pt.name
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("top templates: %w", err)
	}
	defer rows.Close()

	var usage []TemplateUsage
	for rows.Next() {
		var u TemplateUsage
		if err := rows.Scan(&u.Name, &u.Count); err != nil {
			return nil, fmt.Errorf("top templates: %w", err)
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}

// SyncTemplates upserts every template and deletes rows whose slug is no
// longer present. An empty list leaves the table untouched.
func (s *SQLStore) SyncTemplates(ctx context.Context, templates []Template) error {
	if len(templates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sync templates: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	now := s.now().UnixMilli()
	slugs := make([]any, 0, len(templates))
	for _, t := range templates {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO project_templates (slug, name, brief_path, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (slug) DO UPDATE
			SET name = excluded.name, brief_path = excluded.brief_path, updated_at = excluded.updated_at`,
			t.Slug, t.Name, t.BriefPath, now, now)
		if err != nil {
			return fmt.Errorf("sync template %s: %w", t.Slug, err)
		}
		slugs = append(slugs, t.Slug)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(slugs)), ",")
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM project_templates WHERE slug NOT IN (`+placeholders+`)`, slugs...); err != nil {
		return fmt.Errorf("prune templates: %w", err)
	}
	return tx.Commit()
}

// ListTemplates returns all templates ordered by name.
func (s *SQLStore) ListTemplates(ctx context.Context) ([]Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slug, name, brief_path FROM project_templates ORDER BY name, slug`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []Template
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.Slug, &t.Name, &t.BriefPath); err != nil {
			return nil, fmt.Errorf("list templates: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// FindTemplate looks a template up by slug.
func (s *SQLStore) FindTemplate(ctx context.Context, slug string) (*Template, error) {
	var t Template
	err := s.db.QueryRowContext(ctx, `
		SELECT slug, name, brief_path FROM project_templates WHERE slug = ? LIMIT 1`, slug).
		Scan(&t.Slug, &t.Name, &t.BriefPath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find template %s: %w", slug, err)
	}
	return &t, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run                                  Run
		email, slug, brief, prd, arch, front sql.NullString
		repoName, repoURL, instructions      sql.NullString
		status                               string
		created, updated                     int64
	)
	err := row.Scan(&run.ID, &run.UserID, &email, &run.ProjectName, &run.Mode, &slug,
		&brief, &prd, &arch, &front,
		&repoName, &repoURL, &status, &instructions, &created, &updated)
	if err != nil {
		return nil, err
	}
	run.UserEmail = email.String
	run.TemplateSlug = slug.String
	run.BriefURL = brief.String
	run.PRDURL = prd.String
	run.ArchitectureURL = arch.String
	run.FrontendURL = front.String
	run.RepoName = repoName.String
	run.RepoURL = repoURL.String
	run.Instructions = instructions.String
	run.Status = Status(status)
	run.CreatedAt = time.UnixMilli(created)
	run.UpdatedAt = time.UnixMilli(updated)
	return &run, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Store = (*SQLStore)(nil)
