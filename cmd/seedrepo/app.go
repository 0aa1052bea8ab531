package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/randalmurphal/seedrepo/archive"
	"github.com/randalmurphal/seedrepo/auth"
	"github.com/randalmurphal/seedrepo/config"
	"github.com/randalmurphal/seedrepo/document"
	"github.com/randalmurphal/seedrepo/ledger"
	"github.com/randalmurphal/seedrepo/notify"
	"github.com/randalmurphal/seedrepo/orchestrator"
	"github.com/randalmurphal/seedrepo/prompt"
	"github.com/randalmurphal/seedrepo/publish"
	"github.com/randalmurphal/seedrepo/submission"
	"github.com/randalmurphal/seedrepo/workspace"
)

// app holds resolved settings and builds components from them.
type app struct {
	settings *config.Settings
	resolved *config.Resolved
	logger   *slog.Logger
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (a *app) openLedger(ctx context.Context) (*ledger.SQLStore, error) {
	store, err := ledger.Open(a.settings.LedgerPath)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func (a *app) openArchive() (*archive.Store, error) {
	return archive.New(archive.Config{BaseDir: a.settings.ArchiveDir})
}

func (a *app) orchestrator() (*orchestrator.Orchestrator, error) {
	s := a.settings

	prompts, err := a.prompts()
	if err != nil {
		return nil, err
	}

	pub, err := publish.NewGitHubPublisher(publish.Config{
		BaseURL:     s.APIURL,
		Concurrency: s.BlobConcurrency,
		Message:     s.CommitMessage,
		AuthorName:  s.CommitAuthorName,
		AuthorEmail: s.CommitAuthorEmail,
		Logger:      a.logger,
	})
	if err != nil {
		return nil, err
	}

	pruner := workspace.NewPruner(s.PrunePatterns...)
	return orchestrator.New(orchestrator.Config{
		TemplateDir: s.TemplateDir,
		RepoPrefix:  s.RepoPrefix,
		WebURL:      s.WebURL,
		Stager:      &workspace.Stager{Pruner: pruner, Logger: a.logger},
		Pruner:      pruner,
		Merger:      document.NewMerger(prompts, a.logger),
		Publisher:   pub,
		Logger:      a.logger,
	})
}

// prompts returns the instruction store and checks that every mode's
// instruction file can be read.
func (a *app) prompts() (*prompt.Store, error) {
	store := prompt.NewStore()
	if info, err := os.Stat(a.settings.PromptsDir); err == nil && info.IsDir() {
		store.AddSearchDir(a.settings.PromptsDir)
	}
	for _, mode := range []document.Mode{document.ModeFull, document.ModeLight} {
		name, err := document.InstructionFilename(mode)
		if err != nil {
			return nil, err
		}
		if !store.Exists(name) {
			return nil, fmt.Errorf("instruction file %s not found in %s or the built-in set", name, a.settings.PromptsDir)
		}
	}
	return store, nil
}

// submissions wires the full submission service. The returned ledger must
// be closed by the caller.
func (a *app) submissions(ctx context.Context) (*submission.Service, *ledger.SQLStore, error) {
	orch, err := a.orchestrator()
	if err != nil {
		return nil, nil, err
	}
	arch, err := a.openArchive()
	if err != nil {
		return nil, nil, err
	}
	store, err := a.openLedger(ctx)
	if err != nil {
		return nil, nil, err
	}
	svc, err := submission.New(submission.Config{
		Runner:      orch,
		Ledger:      store,
		Archive:     arch,
		Notifier:    notify.New(a.logger, a.settings.WebhookURL, a.settings.SlackWebhookURL),
		ProjectsDir: a.settings.ProjectsDir,
		Logger:      a.logger,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return svc, store, nil
}

func (a *app) jwtConfig() (auth.JWTConfig, error) {
	if a.settings.JWTSecret == "" {
		return auth.JWTConfig{}, errors.New("jwt_secret is not set (seedrepo config set jwt_secret <value>, or SEEDREPO_JWT_SECRET)")
	}
	return auth.JWTConfig{Secret: []byte(a.settings.JWTSecret)}, nil
}
