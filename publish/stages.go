package publish

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/go-github/v57/github"
	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/seedrepo/workspace"
)

// Stage names, used as the "stage" log attribute and on errors.
const (
	stageIdentity   = "resolve_identity"
	stageCreateRepo = "create_repository"
	stageBase       = "resolve_base"
	stageBlobs      = "upload_blobs"
	stageTree       = "create_tree"
	stageCommit     = "create_commit"
	stageRef        = "advance_ref"
)

const regularFileMode = "100644"

// session carries one publish attempt's client.
type session struct {
	client *github.Client
	cfg    Config
	logger *slog.Logger
}

type identity struct {
	login string
}

type baseSnapshot struct {
	repo    RemoteRepository
	headSHA string
	treeSHA string
}

type uploadedBlobs struct {
	base    baseSnapshot
	entries []TreeEntry
}

type stagedTree struct {
	blobs uploadedBlobs
	sha   string
}

type stagedCommit struct {
	tree stagedTree
	sha  string
}

func (s *session) resolveIdentity(ctx context.Context) (identity, error) {
	user, _, err := s.client.Users.Get(ctx, "")
	if err != nil {
		return identity{}, stageErr(stageIdentity, err)
	}
	if user.GetLogin() == "" {
		return identity{}, stageErr(stageIdentity, fmt.Errorf("authenticated user has no login"))
	}
	s.logger.Debug("identity resolved", "stage", stageIdentity, "owner", user.GetLogin())
	return identity{login: user.GetLogin()}, nil
}

func (s *session) createRepository(ctx context.Context, id identity, target Target) (RemoteRepository, error) {
	req := &github.Repository{
		Name:     github.String(target.Name),
		Private:  github.Bool(true),
		AutoInit: github.Bool(true),
	}
	description := target.Description
	if description == "" {
		description = s.cfg.Description
	}
	if description != "" {
		req.Description = github.String(description)
	}

	created, _, err := s.client.Repositories.Create(ctx, "", req)
	if err != nil {
		return RemoteRepository{}, stageErr(stageCreateRepo, err)
	}

	repo := RemoteRepository{
		Owner:         created.GetOwner().GetLogin(),
		Name:          created.GetName(),
		DefaultBranch: created.GetDefaultBranch(),
		HTMLURL:       created.GetHTMLURL(),
	}
	if repo.Owner == "" {
		repo.Owner = id.login
	}
	if repo.Name == "" {
		repo.Name = target.Name
	}
	if repo.DefaultBranch == "" {
		repo.DefaultBranch = DefaultBranch
	}
	s.logger.Info("repository created", "stage", stageCreateRepo, "owner", repo.Owner, "branch", repo.DefaultBranch)
	return repo, nil
}

func (s *session) resolveBase(ctx context.Context, repo RemoteRepository) (baseSnapshot, error) {
	ref, _, err := s.client.Git.GetRef(ctx, repo.Owner, repo.Name, "heads/"+repo.DefaultBranch)
	if err != nil {
		return baseSnapshot{}, stageErr(stageBase, fmt.Errorf("get ref: %w", err))
	}
	head := ref.GetObject().GetSHA()

	commit, _, err := s.client.Git.GetCommit(ctx, repo.Owner, repo.Name, head)
	if err != nil {
		return baseSnapshot{}, stageErr(stageBase, fmt.Errorf("get commit %s: %w", head, err))
	}

	base := baseSnapshot{repo: repo, headSHA: head, treeSHA: commit.GetTree().GetSHA()}
	s.logger.Debug("base resolved", "stage", stageBase, "head", base.headSHA, "tree", base.treeSHA)
	return base, nil
}

// uploadBlobs creates one blob per manifest entry with at most
// cfg.Concurrency requests in flight. The first failure cancels the rest.
// Entries are returned in manifest order.
func (s *session) uploadBlobs(ctx context.Context, base baseSnapshot, manifest []workspace.Entry) (uploadedBlobs, error) {
	start := time.Now()
	entries := make([]TreeEntry, len(manifest))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, entry := range manifest {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sha, err := s.uploadBlob(gctx, base.repo, entry)
			if err != nil {
				return fmt.Errorf("%s: %w", entry.RelPath, err)
			}
			entries[i] = TreeEntry{Path: entry.RelPath, Mode: regularFileMode, SHA: sha}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return uploadedBlobs{}, stageErr(stageBlobs, err)
	}

	s.logger.Info("blobs uploaded", "stage", stageBlobs, "count", len(entries), "duration", time.Since(start))
	return uploadedBlobs{base: base, entries: entries}, nil
}

func (s *session) uploadBlob(ctx context.Context, repo RemoteRepository, entry workspace.Entry) (string, error) {
	data, err := os.ReadFile(entry.AbsPath)
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}

	blob, _, err := s.client.Git.CreateBlob(ctx, repo.Owner, repo.Name, &github.Blob{
		Content:  github.String(base64.StdEncoding.EncodeToString(data)),
		Encoding: github.String("base64"),
	})
	if err != nil {
		return "", err
	}

	sha := blob.GetSHA()
	if !s.cfg.SkipBlobVerify {
		if want := plumbing.ComputeHash(plumbing.BlobObject, data).String(); sha != want {
			return "", fmt.Errorf("blob sha mismatch: remote %s, local %s", sha, want)
		}
	}
	return sha, nil
}

func (s *session) createTree(ctx context.Context, blobs uploadedBlobs) (stagedTree, error) {
	entries := make([]*github.TreeEntry, len(blobs.entries))
	for i, e := range blobs.entries {
		entries[i] = &github.TreeEntry{
			Path: github.String(e.Path),
			Mode: github.String(e.Mode),
			Type: github.String("blob"),
			SHA:  github.String(e.SHA),
		}
	}

	repo := blobs.base.repo
	tree, _, err := s.client.Git.CreateTree(ctx, repo.Owner, repo.Name, blobs.base.treeSHA, entries)
	if err != nil {
		return stagedTree{}, stageErr(stageTree, err)
	}
	s.logger.Debug("tree created", "stage", stageTree, "tree", tree.GetSHA(), "entries", len(entries))
	return stagedTree{blobs: blobs, sha: tree.GetSHA()}, nil
}

func (s *session) createCommit(ctx context.Context, tree stagedTree) (stagedCommit, error) {
	base := tree.blobs.base
	now := github.Timestamp{Time: time.Now()}
	author := &github.CommitAuthor{
		Name:  github.String(s.cfg.AuthorName),
		Email: github.String(s.cfg.AuthorEmail),
		Date:  &now,
	}

	commit, _, err := s.client.Git.CreateCommit(ctx, base.repo.Owner, base.repo.Name, &github.Commit{
		Message:   github.String(s.cfg.Message),
		Tree:      &github.Tree{SHA: github.String(tree.sha)},
		Parents:   []*github.Commit{{SHA: github.String(base.headSHA)}},
		Author:    author,
		Committer: author,
	}, nil)
	if err != nil {
		return stagedCommit{}, stageErr(stageCommit, err)
	}
	s.logger.Debug("commit created", "stage", stageCommit, "commit", commit.GetSHA(), "parent", base.headSHA)
	return stagedCommit{tree: tree, sha: commit.GetSHA()}, nil
}

// advanceRef moves the default branch to the new commit. This is the
// publish's linearization point.
func (s *session) advanceRef(ctx context.Context, commit stagedCommit) (*Published, error) {
	blobs := commit.tree.blobs
	repo := blobs.base.repo

	_, _, err := s.client.Git.UpdateRef(ctx, repo.Owner, repo.Name, &github.Reference{
		Ref:    github.String("heads/" + repo.DefaultBranch),
		Object: &github.GitObject{SHA: github.String(commit.sha)},
	}, false)
	if err != nil {
		return nil, stageErr(stageRef, err)
	}
	s.logger.Debug("ref advanced", "stage", stageRef, "branch", repo.DefaultBranch, "commit", commit.sha)

	return &Published{
		Repository: repo,
		ParentSHA:  blobs.base.headSHA,
		TreeSHA:    commit.tree.sha,
		CommitSHA:  commit.sha,
		BlobCount:  len(blobs.entries),
	}, nil
}
