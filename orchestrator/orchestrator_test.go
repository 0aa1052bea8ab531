package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/seedrepo/document"
	seederrors "github.com/randalmurphal/seedrepo/errors"
	"github.com/randalmurphal/seedrepo/prompt"
	"github.com/randalmurphal/seedrepo/publish"
	"github.com/randalmurphal/seedrepo/testutil"
	"github.com/randalmurphal/seedrepo/workspace"
)

const (
	testOwner = "octo"
	testToken = "gho_orchestrator"
)

var fixedNow = time.UnixMilli(1718000000000)

type harness struct {
	fake     *testutil.FakeGitHub
	orch     *Orchestrator
	tempRoot string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	fake := testutil.NewFakeGitHub(t, testOwner, testToken)
	pub, err := publish.NewGitHubPublisher(publish.Config{BaseURL: fake.URL(), Concurrency: 4})
	require.NoError(t, err)

	tempRoot := t.TempDir()
	orch, err := New(Config{
		TemplateDir: testutil.WriteTree(t, testutil.SampleTemplate),
		Stager:      &workspace.Stager{TempRoot: tempRoot},
		Merger:      document.NewMerger(prompt.NewStore(), nil),
		Publisher:   pub,
		Now:         func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	return &harness{fake: fake, orch: orch, tempRoot: tempRoot}
}

func (h *harness) assertWorkspaceRemoved(t *testing.T) {
	t.Helper()
	left, err := os.ReadDir(h.tempRoot)
	require.NoError(t, err)
	assert.Empty(t, left, "staged workspace should be removed")
}

func TestRun_FullModeWithTemplateBrief(t *testing.T) {
	h := newHarness(t)
	brief := testutil.TempFile(t, "PRD_Inventory.md", []byte("# Inventory brief\n"))

	result, err := h.orch.Run(testutil.TestContext(t), Request{
		Mode:           document.ModeFull,
		ProjectName:    "Inventory Tracker",
		CallerIdentity: "user-1",
		Credential:     testToken,
		Documents:      []document.Source{document.PathSource{TargetName: document.TargetBrief, Path: brief}},
	})
	require.NoError(t, err)

	wantName := RepoName(DefaultRepoPrefix, "Inventory Tracker", fixedNow)
	assert.Equal(t, wantName, result.RepoName)
	assert.Equal(t, "https://github.com/octo/"+wantName, result.RepoURL)
	assert.Equal(t, document.InstructionFull, result.InstructionFilename)
	assert.Contains(t, result.Instructions, "Load orch-full.md into your context")
	assert.NotEmpty(t, result.CommitSHA)

	files := h.fake.Files(wantName, "main")
	assert.Equal(t, "# Inventory brief\n", string(files["docs/brief.md"]))
	assert.Contains(t, files, "orch-full.md")
	assert.NotContains(t, files, "orch-light.md")
	for _, path := range testutil.SampleTemplateFiles {
		assert.Equal(t, testutil.SampleTemplate[path], string(files[path]), path)
	}
	for path := range files {
		assert.NotContains(t, path, "node_modules")
		assert.NotContains(t, path, "__pycache__")
	}
	// Template files, one document, one instruction file. README.md is
	// overlaid on the auto-init README.
	assert.Len(t, files, len(testutil.SampleTemplateFiles)+2)

	assert.Equal(t, 1, h.fake.Calls(testutil.CallUpdateRef))
	h.assertWorkspaceRemoved(t)
}

func TestRun_LightModeWithUploadedDocuments(t *testing.T) {
	h := newHarness(t)
	prd := testutil.Bytes(1200)
	arch := bytes.Repeat([]byte("arch\x00"), 680)
	require.Len(t, arch, 3400)

	result, err := h.orch.Run(testutil.TestContext(t), Request{
		Mode:        document.ModeLight,
		ProjectName: "Payments API",
		Credential:  testToken,
		Documents: []document.Source{
			document.BufferSource{TargetName: document.TargetPRD, Content: prd, OriginalName: "prd.md"},
			document.BufferSource{TargetName: document.TargetArchitecture, Content: arch, OriginalName: "arch.md"},
		},
	})
	require.NoError(t, err)

	files := h.fake.Files(result.RepoName, "main")
	assert.Equal(t, prd, files["docs/prd.md"])
	assert.Equal(t, arch, files["docs/architecture.md"])
	assert.Contains(t, files, "orch-light.md")
	assert.Equal(t, document.InstructionLight, result.InstructionFilename)
	h.assertWorkspaceRemoved(t)
}

func TestRun_RepoNameCollision(t *testing.T) {
	h := newHarness(t)
	h.fake.AddRepo(RepoName(DefaultRepoPrefix, "Taken", fixedNow))

	result, err := h.orch.Run(testutil.TestContext(t), Request{
		Mode:        document.ModeLight,
		ProjectName: "Taken",
		Credential:  testToken,
		Documents: []document.Source{
			document.BufferSource{TargetName: document.TargetPRD, Content: []byte("p")},
			document.BufferSource{TargetName: document.TargetArchitecture, Content: []byte("a")},
		},
	})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, seederrors.ErrRepoCreation), "err = %v", err)

	for _, call := range []string{testutil.CallCreateBlob, testutil.CallCreateTree, testutil.CallCreateCommit, testutil.CallUpdateRef} {
		assert.Zero(t, h.fake.Calls(call), call)
	}
	msg := seederrors.UserMessage(err).Error()
	assert.Contains(t, msg, "name already exists on this account")
	assert.Contains(t, msg, "necessary permissions")
	h.assertWorkspaceRemoved(t)
}

func TestRun_RefUpdateFailureKeepsOriginalHead(t *testing.T) {
	h := newHarness(t)
	h.fake.FailOn(testutil.CallUpdateRef, 0, http.StatusInternalServerError, "ref update failed")

	_, err := h.orch.Run(testutil.TestContext(t), Request{
		Mode:        document.ModeFull,
		ProjectName: "Ref Failure",
		Credential:  testToken,
		Documents:   []document.Source{document.BufferSource{TargetName: document.TargetBrief, Content: []byte("b")}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, seederrors.ErrRemoteObject), "err = %v", err)

	repoName := RepoName(DefaultRepoPrefix, "Ref Failure", fixedNow)
	assert.Equal(t, 1, h.fake.Calls(testutil.CallCreateCommit))
	head, ok := h.fake.Commit(repoName, h.fake.Head(repoName, "main"))
	require.True(t, ok)
	assert.Equal(t, "Initial commit", head.Message)
	assert.Empty(t, head.Parents)
	assert.Len(t, h.fake.Files(repoName, "main"), 1)
	h.assertWorkspaceRemoved(t)
}

func TestRun_BadCredential(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.Run(testutil.TestContext(t), Request{
		Mode:        document.ModeFull,
		ProjectName: "Nope",
		Credential:  "gho_revoked",
		Documents:   []document.Source{document.BufferSource{TargetName: document.TargetBrief, Content: []byte("b")}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, seederrors.ErrAuth))
	assert.Contains(t, seederrors.UserMessage(err).Error(), "repo scope")
	assert.Zero(t, h.fake.Calls(testutil.CallCreateRepo))
	h.assertWorkspaceRemoved(t)
}

func TestRun_DocumentFailureStopsBeforePublish(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.Run(testutil.TestContext(t), Request{
		Mode:        document.ModeFull,
		ProjectName: "Missing Brief",
		Credential:  testToken,
		Documents:   []document.Source{document.PathSource{TargetName: document.TargetBrief, Path: "/nonexistent/brief.md"}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, seederrors.ErrDocumentWrite))
	assert.Equal(t, stageMerge, seederrors.StageOf(err))
	assert.Zero(t, h.fake.Calls(testutil.CallUser))
	h.assertWorkspaceRemoved(t)
}

func TestRun_CancelledContext(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.orch.Run(ctx, Request{
		Mode:        document.ModeFull,
		ProjectName: "Cancelled",
		Credential:  testToken,
		Documents:   []document.Source{document.BufferSource{TargetName: document.TargetBrief, Content: []byte("b")}},
	})
	require.Error(t, err)
	assert.Zero(t, h.fake.Calls(testutil.CallUpdateRef))
	h.assertWorkspaceRemoved(t)
}

func TestRun_UsesInjectedPublisher(t *testing.T) {
	mock := &publish.MockPublisher{}
	orch, err := New(Config{
		TemplateDir: testutil.WriteTree(t, map[string]string{"README.md": "x"}),
		Merger:      document.NewMerger(prompt.NewStore(), nil),
		Publisher:   mock,
		RepoPrefix:  "bmax",
		WebURL:      "https://ghe.example.com",
		Now:         func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	result, err := orch.Run(testutil.TestContext(t), Request{
		Mode:        document.ModeFull,
		ProjectName: "Mocked",
		Credential:  "token",
		Documents:   []document.Source{document.BufferSource{TargetName: document.TargetBrief, Content: []byte("b")}},
	})
	require.NoError(t, err)

	require.Len(t, mock.Calls, 1)
	call := mock.Calls[0]
	assert.Equal(t, "token", call.Credential)
	assert.True(t, strings.HasPrefix(call.Target.Name, "bmax-mocked-"))

	var paths []string
	for _, e := range call.Manifest {
		paths = append(paths, e.RelPath)
	}
	assert.Equal(t, []string{"README.md", "docs/brief.md", "orch-full.md"}, paths)
	assert.Equal(t, "https://ghe.example.com/mock/"+call.Target.Name, result.RepoURL)
}

func TestRequestValidate(t *testing.T) {
	buf := func(target string) document.Source {
		return document.BufferSource{TargetName: target, Content: []byte("x")}
	}

	tests := []struct {
		name    string
		req     Request
		wantErr string
	}{
		{
			name: "valid full",
			req:  Request{Mode: document.ModeFull, ProjectName: "ok", Documents: []document.Source{buf("brief.md")}},
		},
		{
			name:    "unknown mode",
			req:     Request{Mode: "heavy", ProjectName: "ok", Documents: []document.Source{buf("brief.md")}},
			wantErr: "unknown mode",
		},
		{
			name:    "blank name",
			req:     Request{Mode: document.ModeFull, ProjectName: "   ", Documents: []document.Source{buf("brief.md")}},
			wantErr: "project name is required",
		},
		{
			name:    "name too long",
			req:     Request{Mode: document.ModeFull, ProjectName: strings.Repeat("é", MaxProjectNameLen+1), Documents: []document.Source{buf("brief.md")}},
			wantErr: "at most",
		},
		{
			name:    "no documents",
			req:     Request{Mode: document.ModeFull, ProjectName: "ok"},
			wantErr: "at least one document",
		},
		{
			name:    "light without architecture",
			req:     Request{Mode: document.ModeLight, ProjectName: "ok", Documents: []document.Source{buf("prd.md")}},
			wantErr: "architecture.md",
		},
		{
			name:    "nested target",
			req:     Request{Mode: document.ModeFull, ProjectName: "ok", Documents: []document.Source{buf("a/b.md")}},
			wantErr: "path separators",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, seederrors.ErrInvalidRequest))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRun_FileGlobPrunePatternKeepsDocuments(t *testing.T) {
	mock := &publish.MockPublisher{}
	pruner := workspace.NewPruner("*.md")
	orch, err := New(Config{
		TemplateDir: testutil.WriteTree(t, map[string]string{"README.md": "x", "src/main.go": "package main\n"}),
		Pruner:      pruner,
		Stager:      &workspace.Stager{Pruner: pruner},
		Merger:      document.NewMerger(prompt.NewStore(), nil),
		Publisher:   mock,
	})
	require.NoError(t, err)

	_, err = orch.Run(testutil.TestContext(t), Request{
		Mode:        document.ModeFull,
		ProjectName: "Globbed",
		Credential:  "token",
		Documents:   []document.Source{document.BufferSource{TargetName: document.TargetBrief, Content: []byte("b")}},
	})
	require.NoError(t, err)

	require.Len(t, mock.Calls, 1)
	var paths []string
	for _, e := range mock.Calls[0].Manifest {
		paths = append(paths, e.RelPath)
	}
	assert.Equal(t, []string{"README.md", "docs/brief.md", "orch-full.md", "src/main.go"}, paths)
}

func TestRun_PrunedDocsDirFailsBeforePublish(t *testing.T) {
	mock := &publish.MockPublisher{}
	orch, err := New(Config{
		TemplateDir: testutil.WriteTree(t, map[string]string{"README.md": "x"}),
		Pruner:      workspace.NewPruner("docs/"),
		Merger:      document.NewMerger(prompt.NewStore(), nil),
		Publisher:   mock,
	})
	require.NoError(t, err)

	_, err = orch.Run(testutil.TestContext(t), Request{
		Mode:        document.ModeFull,
		ProjectName: "No Docs",
		Credential:  "token",
		Documents:   []document.Source{document.BufferSource{TargetName: document.TargetBrief, Content: []byte("b")}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, seederrors.ErrDocumentWrite))
	assert.Equal(t, stageWalk, seederrors.StageOf(err))
	assert.Contains(t, err.Error(), "docs/brief.md")
	assert.Empty(t, mock.Calls)
}

func TestRun_DescribesRepositoryForCaller(t *testing.T) {
	mock := &publish.MockPublisher{}
	orch, err := New(Config{
		TemplateDir: testutil.WriteTree(t, map[string]string{"README.md": "x"}),
		Merger:      document.NewMerger(prompt.NewStore(), nil),
		Publisher:   mock,
	})
	require.NoError(t, err)

	_, err = orch.Run(testutil.TestContext(t), Request{
		Mode:           document.ModeFull,
		ProjectName:    "Described",
		CallerIdentity: "ada@example.com",
		Credential:     "token",
		Documents:      []document.Source{document.BufferSource{TargetName: document.TargetBrief, Content: []byte("b")}},
	})
	require.NoError(t, err)
	require.Len(t, mock.Calls, 1)
	assert.Equal(t, "Generated by seedrepo for ada@example.com", mock.Calls[0].Target.Description)
}
