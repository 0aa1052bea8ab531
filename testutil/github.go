package testutil

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/go-github/v57/github"
)

// Call names counted by FakeGitHub.
const (
	CallUser         = "user"
	CallCreateRepo   = "create_repo"
	CallGetRef       = "get_ref"
	CallGetCommit    = "get_commit"
	CallCreateBlob   = "create_blob"
	CallCreateTree   = "create_tree"
	CallCreateCommit = "create_commit"
	CallUpdateRef    = "update_ref"
)

// FakeGitHub is an in-process stand-in for the GitHub git data API.
// It keeps blobs, trees, commits and refs in memory and hashes blobs the
// way git does, so returned SHAs can be verified by clients.
type FakeGitHub struct {
	Server *httptest.Server
	Owner  string // Login returned by GET /user
	Token  string // Accepted bearer token

	mu       sync.Mutex
	repos    map[string]*fakeRepo
	calls    map[string]int
	failures map[string]*failure
	seq      int
}

// FakeCommit is a commit stored by FakeGitHub.
type FakeCommit struct {
	SHA         string
	Tree        string
	Parents     []string
	Message     string
	AuthorName  string
	AuthorEmail string
}

// FakeRepo describes a repository created through the fake.
type FakeRepo struct {
	Name        string
	Private     bool
	AutoInit    bool
	Description string
}

type fakeRepo struct {
	meta    FakeRepo
	blobs   map[string][]byte
	trees   map[string]map[string]string // tree sha -> path -> blob sha
	commits map[string]FakeCommit
	refs    map[string]string // "heads/main" -> commit sha
}

type failure struct {
	after   int
	status  int
	message string
	hits    int
}

// NewFakeGitHub starts a fake server for owner, accepting token.
// The server is closed when the test ends.
func NewFakeGitHub(t *testing.T, owner, token string) *FakeGitHub {
	t.Helper()

	f := &FakeGitHub{
		Owner:    owner,
		Token:    token,
		repos:    make(map[string]*fakeRepo),
		calls:    make(map[string]int),
		failures: make(map[string]*failure),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /user", f.handleUser)
	mux.HandleFunc("POST /user/repos", f.handleCreateRepo)
	mux.HandleFunc("GET /repos/{owner}/{repo}/git/ref/{ref...}", f.handleGetRef)
	mux.HandleFunc("GET /repos/{owner}/{repo}/git/commits/{sha}", f.handleGetCommit)
	mux.HandleFunc("POST /repos/{owner}/{repo}/git/blobs", f.handleCreateBlob)
	mux.HandleFunc("POST /repos/{owner}/{repo}/git/trees", f.handleCreateTree)
	mux.HandleFunc("POST /repos/{owner}/{repo}/git/commits", f.handleCreateCommit)
	mux.HandleFunc("PATCH /repos/{owner}/{repo}/git/refs/{ref...}", f.handleUpdateRef)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the API base URL with a trailing slash.
func (f *FakeGitHub) URL() string {
	return f.Server.URL + "/"
}

// Client returns a go-github client pointed at the fake, authenticated with token.
func (f *FakeGitHub) Client(t *testing.T, token string) *github.Client {
	t.Helper()
	client := github.NewClient(nil).WithAuthToken(token)
	base, err := client.BaseURL.Parse(f.URL())
	if err != nil {
		t.Fatalf("parse fake URL: %v", err)
	}
	client.BaseURL = base
	return client
}

// FailOn makes the named call fail with status after it has succeeded
// `after` times. A 403 whose message starts with "API rate limit exceeded"
// is sent with X-RateLimit-Remaining: 0.
func (f *FakeGitHub) FailOn(call string, after, status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[call] = &failure{after: after, status: status, message: message}
}

// AddRepo creates an auto-initialized repository directly, bypassing the API.
func (f *FakeGitHub) AddRepo(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initRepo(FakeRepo{Name: name, Private: true, AutoInit: true})
}

// Calls returns how many times the named call reached the fake, including failures.
func (f *FakeGitHub) Calls(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[call]
}

// Repo returns metadata for a created repository.
func (f *FakeGitHub) Repo(name string) (FakeRepo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.repos[name]
	if !ok {
		return FakeRepo{}, false
	}
	return r.meta, true
}

// Head returns the commit the branch points at, or "".
func (f *FakeGitHub) Head(repo, branch string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.repos[repo]
	if !ok {
		return ""
	}
	return r.refs["heads/"+branch]
}

// Commit returns a stored commit.
func (f *FakeGitHub) Commit(repo, sha string) (FakeCommit, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.repos[repo]
	if !ok {
		return FakeCommit{}, false
	}
	c, ok := r.commits[sha]
	return c, ok
}

// Files returns the content of every file reachable from the branch head.
func (f *FakeGitHub) Files(repo, branch string) map[string][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.repos[repo]
	if !ok {
		return nil
	}
	commit, ok := r.commits[r.refs["heads/"+branch]]
	if !ok {
		return nil
	}
	files := make(map[string][]byte)
	for path, sha := range r.trees[commit.Tree] {
		files[path] = r.blobs[sha]
	}
	return files
}

// BlobCount returns how many distinct blobs the repository holds.
func (f *FakeGitHub) BlobCount(repo string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.repos[repo]; ok {
		return len(r.blobs)
	}
	return 0
}

// BlobSHA computes the git blob object id for content.
func BlobSHA(content []byte) string {
	return plumbing.ComputeHash(plumbing.BlobObject, content).String()
}

// begin counts a call and reports whether it may proceed. The caller must
// not hold f.mu.
func (f *FakeGitHub) begin(w http.ResponseWriter, r *http.Request, call string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[call]++

	if r.Header.Get("Authorization") != "Bearer "+f.Token {
		writeError(w, http.StatusUnauthorized, "Bad credentials")
		return false
	}

	if fl, ok := f.failures[call]; ok {
		if fl.hits >= fl.after {
			if fl.status == http.StatusForbidden && strings.HasPrefix(fl.message, "API rate limit exceeded") {
				w.Header().Set("X-RateLimit-Limit", "5000")
				w.Header().Set("X-RateLimit-Remaining", "0")
			}
			writeError(w, fl.status, fl.message)
			return false
		}
		fl.hits++
	}
	return true
}

func (f *FakeGitHub) handleUser(w http.ResponseWriter, r *http.Request) {
	if !f.begin(w, r, CallUser) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"login": f.Owner, "id": 1, "type": "User"})
}

func (f *FakeGitHub) handleCreateRepo(w http.ResponseWriter, r *http.Request) {
	if !f.begin(w, r, CallCreateRepo) {
		return
	}
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Private     bool   `json:"private"`
		AutoInit    bool   `json:"auto_init"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request.")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.repos[req.Name]; exists {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "Repository creation failed.",
			"errors": []map[string]string{{
				"resource": "Repository",
				"code":     "custom",
				"field":    "name",
				"message":  "name already exists on this account",
			}},
		})
		return
	}
	f.initRepo(FakeRepo{Name: req.Name, Private: req.Private, AutoInit: req.AutoInit, Description: req.Description})

	writeJSON(w, http.StatusCreated, map[string]any{
		"name":           req.Name,
		"full_name":      f.Owner + "/" + req.Name,
		"owner":          map[string]any{"login": f.Owner},
		"private":        req.Private,
		"default_branch": "main",
		"html_url":       "https://github.com/" + f.Owner + "/" + req.Name,
	})
}

func (f *FakeGitHub) handleGetRef(w http.ResponseWriter, r *http.Request) {
	if !f.begin(w, r, CallGetRef) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	repo, ok := f.lookup(w, r)
	if !ok {
		return
	}
	ref := r.PathValue("ref")
	sha, ok := repo.refs[ref]
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ref":    "refs/" + ref,
		"object": map[string]any{"type": "commit", "sha": sha},
	})
}

func (f *FakeGitHub) handleGetCommit(w http.ResponseWriter, r *http.Request) {
	if !f.begin(w, r, CallGetCommit) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	repo, ok := f.lookup(w, r)
	if !ok {
		return
	}
	c, ok := repo.commits[r.PathValue("sha")]
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, commitJSON(c))
}

func (f *FakeGitHub) handleCreateBlob(w http.ResponseWriter, r *http.Request) {
	if !f.begin(w, r, CallCreateBlob) {
		return
	}
	var req struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request.")
		return
	}
	content := []byte(req.Content)
	if req.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "Invalid base64 content.")
			return
		}
		content = decoded
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	repo, ok := f.lookup(w, r)
	if !ok {
		return
	}
	sha := BlobSHA(content)
	repo.blobs[sha] = content
	writeJSON(w, http.StatusCreated, map[string]any{"sha": sha})
}

func (f *FakeGitHub) handleCreateTree(w http.ResponseWriter, r *http.Request) {
	if !f.begin(w, r, CallCreateTree) {
		return
	}
	var req struct {
		BaseTree string `json:"base_tree"`
		Tree     []struct {
			Path string `json:"path"`
			Mode string `json:"mode"`
			Type string `json:"type"`
			SHA  string `json:"sha"`
		} `json:"tree"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request.")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	repo, ok := f.lookup(w, r)
	if !ok {
		return
	}

	entries := make(map[string]string)
	if req.BaseTree != "" {
		base, ok := repo.trees[req.BaseTree]
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "base_tree is not a valid tree")
			return
		}
		for p, s := range base {
			entries[p] = s
		}
	}
	for _, e := range req.Tree {
		if _, ok := repo.blobs[e.SHA]; !ok {
			writeError(w, http.StatusUnprocessableEntity, "tree.sha "+e.SHA+" is not a valid blob")
			return
		}
		entries[e.Path] = e.SHA
	}

	sha := repo.storeTree(entries)
	writeJSON(w, http.StatusCreated, map[string]any{"sha": sha, "truncated": false})
}

func (f *FakeGitHub) handleCreateCommit(w http.ResponseWriter, r *http.Request) {
	if !f.begin(w, r, CallCreateCommit) {
		return
	}
	var req struct {
		Message string   `json:"message"`
		Tree    string   `json:"tree"`
		Parents []string `json:"parents"`
		Author  *struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"author"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request.")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	repo, ok := f.lookup(w, r)
	if !ok {
		return
	}
	if _, ok := repo.trees[req.Tree]; !ok {
		writeError(w, http.StatusUnprocessableEntity, "Tree SHA does not exist")
		return
	}
	for _, p := range req.Parents {
		if _, ok := repo.commits[p]; !ok {
			writeError(w, http.StatusUnprocessableEntity, "Parent SHA does not exist or is not a commit object")
			return
		}
	}

	c := FakeCommit{Tree: req.Tree, Parents: req.Parents, Message: req.Message}
	if req.Author != nil {
		c.AuthorName, c.AuthorEmail = req.Author.Name, req.Author.Email
	}
	c = f.storeCommit(repo, c)
	writeJSON(w, http.StatusCreated, commitJSON(c))
}

func (f *FakeGitHub) handleUpdateRef(w http.ResponseWriter, r *http.Request) {
	if !f.begin(w, r, CallUpdateRef) {
		return
	}
	var req struct {
		SHA   string `json:"sha"`
		Force bool   `json:"force"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request.")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	repo, ok := f.lookup(w, r)
	if !ok {
		return
	}
	ref := r.PathValue("ref")
	current, ok := repo.refs[ref]
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "Reference does not exist")
		return
	}
	next, ok := repo.commits[req.SHA]
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "Object does not exist")
		return
	}
	if !req.Force && !containsString(next.Parents, current) {
		writeError(w, http.StatusUnprocessableEntity, "Update is not a fast forward")
		return
	}
	repo.refs[ref] = req.SHA
	writeJSON(w, http.StatusOK, map[string]any{
		"ref":    "refs/" + ref,
		"object": map[string]any{"type": "commit", "sha": req.SHA},
	})
}

// initRepo creates a repository with an initial README commit on main.
// Caller holds f.mu.
func (f *FakeGitHub) initRepo(meta FakeRepo) {
	repo := &fakeRepo{
		meta:    meta,
		blobs:   make(map[string][]byte),
		trees:   make(map[string]map[string]string),
		commits: make(map[string]FakeCommit),
		refs:    make(map[string]string),
	}
	f.repos[meta.Name] = repo
	if !meta.AutoInit {
		return
	}

	readme := []byte("# " + meta.Name + "\n")
	blob := BlobSHA(readme)
	repo.blobs[blob] = readme
	tree := repo.storeTree(map[string]string{"README.md": blob})
	c := f.storeCommit(repo, FakeCommit{Tree: tree, Message: "Initial commit", AuthorName: f.Owner})
	repo.refs["heads/main"] = c.SHA
}

func (f *FakeGitHub) lookup(w http.ResponseWriter, r *http.Request) (*fakeRepo, bool) {
	if r.PathValue("owner") != f.Owner {
		writeError(w, http.StatusNotFound, "Not Found")
		return nil, false
	}
	repo, ok := f.repos[r.PathValue("repo")]
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return nil, false
	}
	return repo, true
}

func (r *fakeRepo) storeTree(entries map[string]string) string {
	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var sb strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&sb, "100644 %s %s\n", p, entries[p])
	}
	sha := plumbing.ComputeHash(plumbing.TreeObject, []byte(sb.String())).String()
	r.trees[sha] = entries
	return sha
}

// storeCommit assigns a unique SHA. Caller holds f.mu.
func (f *FakeGitHub) storeCommit(r *fakeRepo, c FakeCommit) FakeCommit {
	f.seq++
	body := fmt.Sprintf("tree %s\nparents %s\nauthor %s <%s>\nseq %d\n\n%s",
		c.Tree, strings.Join(c.Parents, " "), c.AuthorName, c.AuthorEmail, f.seq, c.Message)
	c.SHA = plumbing.ComputeHash(plumbing.CommitObject, []byte(body)).String()
	r.commits[c.SHA] = c
	return c
}

func commitJSON(c FakeCommit) map[string]any {
	parents := make([]map[string]any, len(c.Parents))
	for i, p := range c.Parents {
		parents[i] = map[string]any{"sha": p}
	}
	return map[string]any{
		"sha":     c.SHA,
		"message": c.Message,
		"tree":    map[string]any{"sha": c.Tree},
		"parents": parents,
		"author":  map[string]any{"name": c.AuthorName, "email": c.AuthorEmail},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"message":           message,
		"documentation_url": "https://docs.github.com/rest",
	})
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
