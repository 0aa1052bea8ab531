package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/randalmurphal/flowgraph/pkg/flowgraph"

	"github.com/randalmurphal/seedrepo/auth"
	"github.com/randalmurphal/seedrepo/document"
	seederrors "github.com/randalmurphal/seedrepo/errors"
	"github.com/randalmurphal/seedrepo/publish"
	"github.com/randalmurphal/seedrepo/workspace"
)

// Stage names used in logs and errors.
const (
	stageValidate = "validate_request"
	stageStage    = "stage_workspace"
	stageMerge    = "merge_documents"
	stageWalk     = "walk_tree"
	stagePublish  = "publish"
	stageAssemble = "assemble_result"
)

// Config wires an Orchestrator.
type Config struct {
	TemplateDir string            // Template copied into every workspace (required)
	RepoPrefix  string            // Repository name prefix (default "seed")
	WebURL      string            // Web host for repository links (default https://github.com)
	Stager      *workspace.Stager // Workspace creation (default: zero Stager)
	Pruner      *workspace.Pruner // Walk exclusions (default: NewPruner())
	Merger      *document.Merger  // Required
	Publisher   publish.Publisher // Required
	Logger      *slog.Logger
	Now         func() time.Time // Clock for repository names (default time.Now)
}

// Orchestrator runs seeding attempts. It is safe for concurrent use;
// attempts share no mutable state.
type Orchestrator struct {
	cfg    Config
	logger *slog.Logger
}

// New validates cfg and applies defaults.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.TemplateDir == "" {
		return nil, fmt.Errorf("template dir is required")
	}
	if cfg.Merger == nil {
		return nil, fmt.Errorf("document merger is required")
	}
	if cfg.Publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if cfg.RepoPrefix == "" {
		cfg.RepoPrefix = DefaultRepoPrefix
	}
	if cfg.WebURL == "" {
		cfg.WebURL = DefaultWebURL
	}
	if cfg.Stager == nil {
		cfg.Stager = &workspace.Stager{Pruner: cfg.Pruner, Logger: cfg.Logger}
	}
	if cfg.Pruner == nil {
		cfg.Pruner = workspace.NewPruner()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{cfg: cfg, logger: logger}, nil
}

// pipelineState flows through the flowgraph nodes.
type pipelineState struct {
	Root        string
	RepoName    string
	Instruction string
	Manifest    []workspace.Entry
	Published   *publish.Published
	Result      Result
}

// Run seeds a new repository from req. The staged workspace is removed
// before Run returns, whether or not publishing succeeded. Remote objects
// created by a failed attempt are not rolled back.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	repoName := RepoName(o.cfg.RepoPrefix, req.ProjectName, o.cfg.Now())
	logger := o.logger.With(
		"repo", repoName,
		"mode", string(req.Mode),
		"caller", req.CallerIdentity,
		"credential", auth.Fingerprint(req.Credential),
	)
	start := time.Now()
	logger.Info("orchestration started", "stage", stageStage, "documents", len(req.Documents))

	ws, err := o.cfg.Stager.Stage(ctx, o.cfg.TemplateDir)
	if err != nil {
		logger.Error("orchestration failed", "stage", seederrors.StageOf(err), "error", err)
		return nil, err
	}
	defer ws.Close()

	// Node errors are captured here so callers see the StageError itself
	// rather than the graph's wrapping.
	var failed error
	fail := func(err error) error {
		if failed == nil {
			failed = err
		}
		return err
	}

	graph := flowgraph.NewGraph[pipelineState]().
		AddNode(stageMerge, func(fctx flowgraph.Context, s pipelineState) (pipelineState, error) {
			instruction, err := o.cfg.Merger.Merge(fctx, s.Root, req.Documents, req.Mode)
			if err != nil {
				return s, fail(err)
			}
			s.Instruction = instruction
			return s, nil
		}).
		AddNode(stageWalk, func(fctx flowgraph.Context, s pipelineState) (pipelineState, error) {
			manifest, err := workspace.Enumerate(s.Root, o.cfg.Pruner)
			if err != nil {
				return s, fail(err)
			}
			if err := checkManifest(manifest, req.Documents, s.Instruction); err != nil {
				return s, fail(err)
			}
			s.Manifest = manifest
			logger.Debug("tree walked", "stage", stageWalk, "files", len(manifest))
			return s, nil
		}).
		AddNode(stagePublish, func(fctx flowgraph.Context, s pipelineState) (pipelineState, error) {
			target := publish.Target{Name: s.RepoName, Description: Description(req.CallerIdentity)}
			published, err := o.cfg.Publisher.Publish(fctx, req.Credential, target, s.Manifest)
			if err != nil {
				return s, fail(err)
			}
			s.Published = published
			return s, nil
		}).
		AddNode(stageAssemble, func(fctx flowgraph.Context, s pipelineState) (pipelineState, error) {
			repo := s.Published.Repository
			s.Result = Assemble(o.cfg.WebURL, repo.Owner, repo.Name, s.Instruction)
			s.Result.CommitSHA = s.Published.CommitSHA
			return s, nil
		}).
		AddEdge(stageMerge, stageWalk).
		AddEdge(stageWalk, stagePublish).
		AddEdge(stagePublish, stageAssemble).
		AddEdge(stageAssemble, flowgraph.END).
		SetEntry(stageMerge)

	compiled, err := graph.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile pipeline: %w", err)
	}

	final, err := compiled.Run(flowgraph.NewContext(ctx), pipelineState{Root: ws.Path(), RepoName: repoName})
	if failed != nil {
		err = failed
	}
	if err != nil {
		logger.Error("orchestration failed",
			"stage", seederrors.StageOf(err),
			"kind", string(seederrors.KindOf(err)),
			"error", err,
			"duration", time.Since(start),
		)
		return nil, err
	}

	result := final.Result
	logger.Info("orchestration completed",
		"stage", stageAssemble,
		"url", result.RepoURL,
		"files", len(final.Manifest),
		"duration", time.Since(start),
	)
	return &result, nil
}

// checkManifest fails when the walk dropped a merged document or the
// instruction file, which happens when prune patterns cover docs/.
func checkManifest(manifest []workspace.Entry, docs []document.Source, instruction string) error {
	present := make(map[string]bool, len(manifest))
	for _, e := range manifest {
		present[e.RelPath] = true
	}
	want := []string{instruction}
	for _, doc := range docs {
		want = append(want, path.Join(document.DocsDir, doc.Target()))
	}
	for _, rel := range want {
		if !present[rel] {
			return seederrors.New(stageWalk, seederrors.KindDocumentWrite,
				fmt.Errorf("%s is excluded from the published tree; check prune_patterns", rel))
		}
	}
	return nil
}
