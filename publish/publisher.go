package publish

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/randalmurphal/seedrepo/workspace"
)

// Defaults applied by NewGitHubPublisher.
const (
	DefaultConcurrency = 8
	DefaultMessage     = "chore: seed project files"
	DefaultAuthorName  = "seedrepo"
	DefaultAuthorEmail = "seedrepo@users.noreply.github.com"
	DefaultBranch      = "main"
)

// Publisher creates a repository and commits a manifest to it.
type Publisher interface {
	Publish(ctx context.Context, credential string, target Target, manifest []workspace.Entry) (*Published, error)
}

// Target names the repository to create.
type Target struct {
	Name        string
	Description string // Overrides Config.Description when set
}

// RemoteRepository identifies a created repository.
type RemoteRepository struct {
	Owner         string
	Name          string
	DefaultBranch string
	HTMLURL       string
}

// TreeEntry is one file in the new tree.
type TreeEntry struct {
	Path string
	Mode string // Always "100644"
	SHA  string
}

// Published describes a successful publish.
type Published struct {
	Repository RemoteRepository
	ParentSHA  string // Auto-initialized head the commit builds on
	TreeSHA    string
	CommitSHA  string
	BlobCount  int
	Duration   time.Duration
}

// Config configures a GitHubPublisher.
type Config struct {
	BaseURL     string       // API base URL; "" uses api.github.com
	Concurrency int          // Max concurrent blob uploads
	Message     string       // Commit message
	AuthorName  string       // Commit author and committer
	AuthorEmail string       // Commit author and committer
	Description string       // Default repository description (optional)
	HTTPClient  *http.Client // Transport under the oauth2 client (optional)
	Logger      *slog.Logger

	// SkipBlobVerify disables comparing returned blob SHAs with the
	// locally computed git hash.
	SkipBlobVerify bool
}

// GitHubPublisher publishes through the GitHub REST API.
// It holds no per-call state; one instance serves concurrent publishes.
type GitHubPublisher struct {
	cfg     Config
	baseURL *url.URL
	logger  *slog.Logger
}

// NewGitHubPublisher creates a publisher, filling unset Config fields with defaults.
func NewGitHubPublisher(cfg Config) (*GitHubPublisher, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Message == "" {
		cfg.Message = DefaultMessage
	}
	if cfg.AuthorName == "" {
		cfg.AuthorName = DefaultAuthorName
	}
	if cfg.AuthorEmail == "" {
		cfg.AuthorEmail = DefaultAuthorEmail
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &GitHubPublisher{cfg: cfg, logger: logger}
	if cfg.BaseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse GitHub API URL: %w", err)
		}
		p.baseURL = u
	}
	return p, nil
}

// Publish creates the target repository for the credential's user and
// commits manifest to its default branch. It returns either a complete Published or an error
// carrying the failing stage; see the package doc for the rollback waiver.
func (p *GitHubPublisher) Publish(ctx context.Context, credential string, target Target, manifest []workspace.Entry) (*Published, error) {
	if credential == "" {
		return nil, stageErr(stageIdentity, fmt.Errorf("empty credential"))
	}
	start := time.Now()
	s := &session{
		client: p.client(credential),
		cfg:    p.cfg,
		logger: p.logger.With("repo", target.Name),
	}

	id, err := s.resolveIdentity(ctx)
	if err != nil {
		return nil, err
	}
	repo, err := s.createRepository(ctx, id, target)
	if err != nil {
		return nil, err
	}
	base, err := s.resolveBase(ctx, repo)
	if err != nil {
		return nil, err
	}
	blobs, err := s.uploadBlobs(ctx, base, manifest)
	if err != nil {
		return nil, err
	}
	tree, err := s.createTree(ctx, blobs)
	if err != nil {
		return nil, err
	}
	commit, err := s.createCommit(ctx, tree)
	if err != nil {
		return nil, err
	}
	published, err := s.advanceRef(ctx, commit)
	if err != nil {
		return nil, err
	}

	published.Duration = time.Since(start)
	s.logger.Info("repository published",
		"owner", published.Repository.Owner,
		"commit", published.CommitSHA,
		"files", published.BlobCount,
		"duration", published.Duration,
	)
	return published, nil
}

// client builds a go-github client authenticated with a static token.
func (p *GitHubPublisher) client(credential string) *github.Client {
	ctx := context.Background()
	if p.cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.cfg.HTTPClient)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential})
	client := github.NewClient(oauth2.NewClient(ctx, ts))
	if p.baseURL != nil {
		client.BaseURL = p.baseURL
	}
	return client
}
