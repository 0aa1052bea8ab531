package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/seedrepo/auth"
	"github.com/randalmurphal/seedrepo/config"
	"github.com/randalmurphal/seedrepo/ledger"
	"github.com/randalmurphal/seedrepo/submission"
	"github.com/randalmurphal/seedrepo/testutil"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(testutil.TestContext(t))
	return stdout.String(), stderr.String(), err
}

type configEntry struct {
	Key    string        `json:"key"`
	Value  string        `json:"value"`
	Source config.Source `json:"source"`
}

func showConfig(t *testing.T, cfgPath string) map[string]configEntry {
	t.Helper()
	out, _, err := execute(t, "--config", cfgPath, "config", "show", "--json")
	require.NoError(t, err)
	var entries []configEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	byKey := make(map[string]configEntry, len(entries))
	for _, e := range entries {
		byKey[e.Key] = e
	}
	return byKey
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "seedrepo "), out)

	out, _, err = execute(t, "version", "--json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.NotEmpty(t, info["version"])
	assert.NotEmpty(t, info["go"])
}

func TestConfigSetShowUnset(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	_, _, err := execute(t, "--config", cfgPath, "config", "set", config.KeyRepoPrefix, "acme")
	require.NoError(t, err)
	_, _, err = execute(t, "--config", cfgPath, "config", "set", config.KeyJWTSecret, "not-for-display")
	require.NoError(t, err)

	entries := showConfig(t, cfgPath)
	assert.Equal(t, "acme", entries[config.KeyRepoPrefix].Value)
	assert.Equal(t, config.SourceGlobal, entries[config.KeyRepoPrefix].Source)
	assert.Equal(t, "********", entries[config.KeyJWTSecret].Value)

	_, _, err = execute(t, "--config", cfgPath, "config", "unset", config.KeyRepoPrefix)
	require.NoError(t, err)
	entries = showConfig(t, cfgPath)
	assert.Equal(t, config.Defaults[config.KeyRepoPrefix], entries[config.KeyRepoPrefix].Value)
	assert.Equal(t, config.SourceDefault, entries[config.KeyRepoPrefix].Source)
}

func TestConfigSet_UnknownKey(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	_, _, err := execute(t, "--config", cfgPath, "config", "set", "no_such_key", "x")
	assert.Error(t, err)
}

func TestToken(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	secret := strings.Repeat("k", 32)
	require.NoError(t, config.Save(cfgPath, config.KeyJWTSecret, secret))

	out, _, err := execute(t, "--config", cfgPath, "token", "--user", "alice", "--email", "alice@example.com")
	require.NoError(t, err)

	claims, err := auth.ValidateUserToken(auth.JWTConfig{Secret: []byte(secret)}, strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID())
	assert.Equal(t, "alice@example.com", claims.Email)
}

func TestToken_RequiresSecret(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	_, _, err := execute(t, "--config", cfgPath, "token", "--user", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestTemplates(t *testing.T) {
	dir := t.TempDir()
	projects := testutil.WriteTree(t, map[string]string{
		"PRD_Inventory_Tracker.md": "# Inventory\n",
		"notes.txt":                "ignored",
	})

	out, _, err := execute(t,
		"--config", filepath.Join(dir, "config.yaml"),
		"--ledger", filepath.Join(dir, "ledger.db"),
		"--projects-dir", projects,
		"templates")
	require.NoError(t, err)
	assert.Contains(t, out, "PRD_Inventory_Tracker")
	assert.Contains(t, out, "Inventory Tracker")
	assert.NotContains(t, out, "notes")
}

func TestInstructions(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	out, _, err := execute(t, "--config", cfgPath, "instructions")
	require.NoError(t, err)
	assert.Contains(t, out, "orch-full.md\n")
	assert.Contains(t, out, "orch-light.md\n")

	custom := testutil.WriteTree(t, map[string]string{
		"orch-full.md":  "# Custom full\n",
		"orch-light.md": "# Custom light\n",
	})
	out, _, err = execute(t, "--config", cfgPath, "--prompts-dir", custom, "instructions", "light")
	require.NoError(t, err)
	assert.Equal(t, "# Custom light\n", out)

	_, _, err = execute(t, "--config", cfgPath, "instructions", "heavy")
	assert.Error(t, err)
}

func TestPublishLight_EndToEnd(t *testing.T) {
	fake := testutil.NewFakeGitHub(t, "octo", "secret")
	dir := t.TempDir()
	template := testutil.WriteTree(t, testutil.SampleTemplate)
	prd := testutil.TempFile(t, "prd.md", []byte("# PRD\n"))
	arch := testutil.TempFile(t, "architecture.md", []byte("# Architecture\n"))

	global := []string{
		"--config", filepath.Join(dir, "config.yaml"),
		"--ledger", filepath.Join(dir, "ledger.db"),
		"--archive-dir", filepath.Join(dir, "archive"),
		"--template-dir", template,
		"--api-url", fake.URL(),
		"--log-level", "error",
	}

	args := append(append([]string{}, global...),
		"publish", "light", "--json",
		"--token", "secret", "--user", "alice",
		"--name", "Demo App", "--prd", prd, "--architecture", arch)
	out, _, err := execute(t, args...)
	require.NoError(t, err)

	var resp submission.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.True(t, resp.Success, resp.Message)
	require.NotNil(t, resp.Result)
	assert.True(t, strings.HasPrefix(resp.Result.RepoName, "seed-demo-app-"), resp.Result.RepoName)
	assert.Equal(t, "orch-light.md", resp.Result.InstructionFilename)

	repo, ok := fake.Repo(resp.Result.RepoName)
	require.True(t, ok)
	assert.True(t, repo.Private)

	files := fake.Files(resp.Result.RepoName, "main")
	assert.Equal(t, "# PRD\n", string(files["docs/prd.md"]))
	assert.Equal(t, "# Architecture\n", string(files["docs/architecture.md"]))
	assert.Contains(t, files, "orch-light.md")
	assert.NotContains(t, files, "node_modules/left-pad/index.js")

	args = append(append([]string{}, global...), "runs", "--user", "alice", "--json")
	out, _, err = execute(t, args...)
	require.NoError(t, err)
	var runs []ledger.Run
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, resp.RunID, runs[0].ID)
	assert.Equal(t, ledger.StatusCompleted, runs[0].Status)
	assert.Equal(t, resp.Result.RepoURL, runs[0].RepoURL)

	args = append(append([]string{}, global...), "runs", "show", resp.RunID, "--user", "alice", "--document", "prd")
	out, _, err = execute(t, args...)
	require.NoError(t, err)
	assert.Equal(t, "# PRD\n", out)

	args = append(append([]string{}, global...), "runs", "show", resp.RunID, "--user", "alice", "--document", "brief")
	_, _, err = execute(t, args...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no archived brief")
}

func TestPublishLight_BadToken(t *testing.T) {
	fake := testutil.NewFakeGitHub(t, "octo", "secret")
	dir := t.TempDir()
	prd := testutil.TempFile(t, "prd.md", []byte("# PRD\n"))
	arch := testutil.TempFile(t, "architecture.md", []byte("# Architecture\n"))

	_, _, err := execute(t,
		"--config", filepath.Join(dir, "config.yaml"),
		"--ledger", filepath.Join(dir, "ledger.db"),
		"--archive-dir", filepath.Join(dir, "archive"),
		"--template-dir", testutil.WriteTree(t, testutil.SampleTemplate),
		"--api-url", fake.URL(),
		"--log-level", "error",
		"publish", "light",
		"--token", "wrong", "--user", "alice",
		"--name", "Demo App", "--prd", prd, "--architecture", arch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repo scope")
	assert.Zero(t, fake.Calls(testutil.CallCreateRepo))
}
