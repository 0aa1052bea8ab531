package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/randalmurphal/seedrepo/archive"
	"github.com/randalmurphal/seedrepo/auth"
	"github.com/randalmurphal/seedrepo/catalog"
	"github.com/randalmurphal/seedrepo/document"
	seederrors "github.com/randalmurphal/seedrepo/errors"
	"github.com/randalmurphal/seedrepo/ledger"
	"github.com/randalmurphal/seedrepo/notify"
	"github.com/randalmurphal/seedrepo/orchestrator"
)

// Runner executes one orchestration. *orchestrator.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, req orchestrator.Request) (*orchestrator.Result, error)
}

// Archiver stores uploaded documents. *archive.Store satisfies it.
type Archiver interface {
	Put(key string, data []byte) (*archive.Object, error)
}

// Session identifies the signed-in user.
type Session struct {
	UserID      string
	Email       string
	AccessToken string // GitHub OAuth token with repo scope
}

// Upload is a user-supplied file.
type Upload struct {
	Name    string
	Content []byte
}

func (u *Upload) empty() bool {
	return u == nil || len(u.Content) == 0
}

// FullSource selects where a full-mode brief comes from.
type FullSource string

// Full-mode brief sources.
const (
	FromTemplate FullSource = "template"
	FromUpload   FullSource = "custom"
)

// FullRequest is a full-mode submission: a catalog template, or a custom
// brief with a project name.
type FullRequest struct {
	Source       FullSource
	TemplateSlug string
	ProjectName  string // Required for FromUpload; FromTemplate uses the template name
	Brief        *Upload
}

// LightRequest is a light-mode submission.
type LightRequest struct {
	ProjectName  string
	PRD          *Upload
	Architecture *Upload
	Frontend     *Upload // Optional
}

// Response is returned to the submitting user.
type Response struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	RunID   string               `json:"run_id,omitempty"`
	Result  *orchestrator.Result `json:"result,omitempty"`

	// Err is the underlying failure, if any, for callers that render
	// their own detail.
	Err error `json:"-"`
}

func failure(msg string, err error) Response {
	return Response{Message: msg, Err: err}
}

// Config wires a Service.
type Config struct {
	Runner      Runner       // Required
	Ledger      ledger.Store // Required
	Archive     Archiver     // Required for uploads
	Notifier    notify.Notifier
	ProjectsDir string // Template catalog synced before full submissions (optional)
	Logger      *slog.Logger
	Now         func() time.Time
	NewID       func() string
}

// Service handles submissions.
type Service struct {
	cfg    Config
	logger *slog.Logger
}

// New validates cfg and applies defaults.
func New(cfg Config) (*Service, error) {
	if cfg.Runner == nil {
		return nil, errors.New("runner is required")
	}
	if cfg.Ledger == nil {
		return nil, errors.New("ledger is required")
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.NopNotifier{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cfg: cfg, logger: logger.With("component", "submission")}, nil
}

// SyncTemplates rescans the projects directory into the ledger.
func (s *Service) SyncTemplates(ctx context.Context) error {
	if s.cfg.ProjectsDir == "" {
		return nil
	}
	templates, err := catalog.Scan(s.cfg.ProjectsDir)
	if err != nil {
		return err
	}
	return s.cfg.Ledger.SyncTemplates(ctx, templates)
}

// SubmitFull handles a full-mode submission.
func (s *Service) SubmitFull(ctx context.Context, sess Session, req FullRequest) Response {
	if resp, ok := checkSession(sess); !ok {
		return resp
	}
	if err := s.SyncTemplates(ctx); err != nil {
		s.logger.Warn("template sync failed", "error", err, "dir", s.cfg.ProjectsDir)
	}

	run := ledger.Run{UserID: sess.UserID, UserEmail: sess.Email, Mode: string(document.ModeFull)}
	var brief document.Source

	switch req.Source {
	case FromTemplate:
		if req.ProjectName != "" && !validName(req.ProjectName) {
			return failure(MsgInvalidForm, nil)
		}
		if req.TemplateSlug == "" {
			return failure(MsgSelectTemplate, nil)
		}
		tmpl, err := s.cfg.Ledger.FindTemplate(ctx, req.TemplateSlug)
		if errors.Is(err, ledger.ErrTemplateNotFound) {
			return failure(MsgTemplateNotFound, err)
		}
		if err != nil {
			s.logger.Error("template lookup failed", "error", err, "slug", req.TemplateSlug)
			return failure(MsgFailed, err)
		}
		run.ProjectName = tmpl.Name
		run.TemplateSlug = tmpl.Slug
		brief = document.PathSource{TargetName: document.TargetBrief, Path: tmpl.BriefPath}

	case FromUpload:
		if strings.TrimSpace(req.ProjectName) == "" {
			return failure(MsgProjectName, nil)
		}
		if !validName(req.ProjectName) {
			return failure(MsgInvalidForm, nil)
		}
		if req.Brief.empty() {
			return failure(MsgUploadBrief, nil)
		}
		src, err := s.archiveUpload(archive.CategoryBrief, sess.UserID, document.TargetBrief, req.Brief)
		if err != nil {
			return failure(MsgPrepareDocuments, err)
		}
		run.ProjectName = strings.TrimSpace(req.ProjectName)
		run.BriefURL = src.ArchivedURL
		brief = src

	default:
		return failure(MsgInvalidForm, fmt.Errorf("unknown brief source %q", req.Source))
	}

	return s.execute(ctx, sess, run, document.ModeFull, []document.Source{brief})
}

// SubmitLight handles a light-mode submission.
func (s *Service) SubmitLight(ctx context.Context, sess Session, req LightRequest) Response {
	if resp, ok := checkSession(sess); !ok {
		return resp
	}
	if !validName(req.ProjectName) {
		return failure(MsgInvalidForm, nil)
	}
	if req.PRD.empty() || req.Architecture.empty() {
		return failure(MsgUploadLightDocs, nil)
	}

	run := ledger.Run{
		UserID:      sess.UserID,
		UserEmail:   sess.Email,
		ProjectName: strings.TrimSpace(req.ProjectName),
		Mode:        string(document.ModeLight),
	}

	uploads := []struct {
		category string
		target   string
		upload   *Upload
		url      *string
	}{
		{archive.CategoryPRD, document.TargetPRD, req.PRD, &run.PRDURL},
		{archive.CategoryArchitecture, document.TargetArchitecture, req.Architecture, &run.ArchitectureURL},
		{archive.CategoryFrontend, document.TargetFrontend, req.Frontend, &run.FrontendURL},
	}

	var docs []document.Source
	for _, u := range uploads {
		if u.upload.empty() {
			continue
		}
		src, err := s.archiveUpload(u.category, sess.UserID, u.target, u.upload)
		if err != nil {
			return failure(MsgPrepareDocuments, err)
		}
		*u.url = src.ArchivedURL
		docs = append(docs, src)
	}

	return s.execute(ctx, sess, run, document.ModeLight, docs)
}

func (s *Service) archiveUpload(category, userID, target string, u *Upload) (document.BufferSource, error) {
	if s.cfg.Archive == nil {
		return document.BufferSource{}, errors.New("no archive configured")
	}
	name := u.Name
	if name == "" {
		name = target
	}
	obj, err := s.cfg.Archive.Put(archive.Key(category, userID, name, s.cfg.Now()), u.Content)
	if err != nil {
		s.logger.Error("archive upload failed", "error", err, "category", category, "file", name)
		return document.BufferSource{}, err
	}
	return document.BufferSource{
		TargetName:   target,
		Content:      u.Content,
		OriginalName: name,
		ArchivedURL:  obj.URL,
	}, nil
}

// execute records the run, invokes the orchestrator and records the outcome.
func (s *Service) execute(ctx context.Context, sess Session, run ledger.Run, mode document.Mode, docs []document.Source) Response {
	run.ID = s.cfg.NewID()
	logger := s.logger.With("run_id", run.ID, "mode", mode, "user", sess.UserID)

	if err := s.cfg.Ledger.CreateRun(ctx, run); err != nil {
		logger.Error("record run failed", "error", err)
		return failure(MsgFailed, err)
	}
	nrun := notify.Run{ID: run.ID, Mode: run.Mode, Project: run.ProjectName}
	s.notify(ctx, logger, notify.RunStarted(nrun))

	caller := sess.Email
	if caller == "" {
		caller = sess.UserID
	}
	result, err := s.cfg.Runner.Run(ctx, orchestrator.Request{
		Mode:           mode,
		ProjectName:    run.ProjectName,
		CallerIdentity: caller,
		Credential:     sess.AccessToken,
		Documents:      docs,
	})
	if err != nil {
		logger.Error("orchestration failed",
			"error", err,
			"stage", seederrors.StageOf(err),
			"kind", seederrors.KindOf(err),
			"credential", auth.Fingerprint(sess.AccessToken),
		)
		// Recorded even when ctx was canceled.
		if ferr := s.cfg.Ledger.FailRun(context.WithoutCancel(ctx), run.ID); ferr != nil {
			logger.Error("record run failure failed", "error", ferr)
		}
		s.notify(ctx, logger, notify.RunFailed(nrun, err))
		resp := failure(MsgFailed, err)
		resp.RunID = run.ID
		return resp
	}

	// The repository exists at this point; a ledger write failure is
	// logged, not reported as a failed run.
	if err := s.cfg.Ledger.CompleteRun(context.WithoutCancel(ctx), run.ID, ledger.Outcome{
		RepoName:     result.RepoName,
		RepoURL:      result.RepoURL,
		Instructions: result.Instructions,
	}); err != nil {
		logger.Error("record run completion failed", "error", err, "repo", result.RepoURL)
	}

	completed, err := notify.RunCompleted(nrun, result)
	if err != nil {
		logger.Warn("render instructions failed", "error", err)
	}
	s.notify(ctx, logger, completed)

	return Response{Success: true, Message: MsgQueued, RunID: run.ID, Result: result}
}

func (s *Service) notify(ctx context.Context, logger *slog.Logger, event notify.Event) {
	event.Timestamp = s.cfg.Now()
	if err := s.cfg.Notifier.Notify(ctx, event); err != nil {
		logger.Warn("notification failed", "error", err, "event", event.Type)
	}
}

func checkSession(sess Session) (Response, bool) {
	if sess.UserID == "" || sess.Email == "" {
		return failure(MsgSignInRequired, nil), false
	}
	if sess.AccessToken == "" {
		return failure(MsgGitHubAuth, nil), false
	}
	return Response{}, true
}

func validName(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n >= orchestrator.MinProjectNameLen && n <= orchestrator.MaxProjectNameLen
}
