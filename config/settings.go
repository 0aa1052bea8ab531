package config

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// App names the config directory and environment prefix.
const (
	App             = "seedrepo"
	EnvPrefix       = "SEEDREPO_"
	LocalConfigName = ".seedrepo.yaml"
)

// Configuration keys.
const (
	KeyTemplateDir       = "template_dir"
	KeyPromptsDir        = "prompts_dir"
	KeyProjectsDir       = "projects_dir"
	KeyRepoPrefix        = "repo_prefix"
	KeyAPIURL            = "api_url"
	KeyWebURL            = "web_url"
	KeyBlobConcurrency   = "blob_concurrency"
	KeyCommitMessage     = "commit_message"
	KeyCommitAuthorName  = "commit_author_name"
	KeyCommitAuthorEmail = "commit_author_email"
	KeyPrunePatterns     = "prune_patterns"
	KeyLedgerPath        = "ledger_path"
	KeyArchiveDir        = "archive_dir"
	KeyJWTSecret         = "jwt_secret"
	KeyWebhookURL        = "webhook_url"
	KeySlackWebhookURL   = "slack_webhook_url"
	KeyListenAddr        = "listen_addr"
	KeyLogLevel          = "log_level"
	KeyLogFormat         = "log_format"
)

// Defaults holds every known key and its default value.
var Defaults = map[string]string{
	KeyTemplateDir:       "template",
	KeyPromptsDir:        "prompts",
	KeyProjectsDir:       "projects",
	KeyRepoPrefix:        "seed",
	KeyAPIURL:            "",
	KeyWebURL:            "https://github.com",
	KeyBlobConcurrency:   "8",
	KeyCommitMessage:     "chore: seed project files",
	KeyCommitAuthorName:  "seedrepo",
	KeyCommitAuthorEmail: "seedrepo@users.noreply.github.com",
	KeyPrunePatterns:     "",
	KeyLedgerPath:        "seedrepo.db",
	KeyArchiveDir:        "archive",
	KeyJWTSecret:         "",
	KeyWebhookURL:        "",
	KeySlackWebhookURL:   "",
	KeyListenAddr:        ":8080",
	KeyLogLevel:          "info",
	KeyLogFormat:         "text",
}

// Keys returns every known key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(Defaults))
	for k := range Defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Settings is the typed, resolved configuration.
type Settings struct {
	TemplateDir       string
	PromptsDir        string
	ProjectsDir       string
	RepoPrefix        string
	APIURL            string
	WebURL            string
	BlobConcurrency   int
	CommitMessage     string
	CommitAuthorName  string
	CommitAuthorEmail string
	PrunePatterns     []string
	LedgerPath        string
	ArchiveDir        string
	JWTSecret         string
	WebhookURL        string
	SlackWebhookURL   string
	ListenAddr        string
	LogLevel          string
	LogFormat         string
}

// LoadOptions controls Load.
type LoadOptions struct {
	GlobalPath string            // "" uses ~/.config/seedrepo/config.yaml
	LocalPath  string            // "" uses ./.seedrepo.yaml
	Flags      map[string]string // Highest-priority overrides
	ErrWriter  io.Writer         // Warnings destination
}

// Load resolves configuration and converts it to Settings.
func Load(opts LoadOptions) (*Settings, *Resolved, error) {
	globalPath := opts.GlobalPath
	if globalPath == "" {
		globalPath = DefaultGlobalPath(App)
	}
	localPath := opts.LocalPath
	if localPath == "" {
		localPath = LocalConfigName
	}

	resolved := NewResolver(ResolverConfig{
		EnvPrefix:  EnvPrefix,
		GlobalPath: globalPath,
		LocalPath:  localPath,
		Defaults:   Defaults,
		ErrWriter:  opts.ErrWriter,
	}).Resolve(opts.Flags)

	s, err := FromResolved(resolved)
	if err != nil {
		return nil, nil, err
	}
	return s, resolved, nil
}

// FromResolved converts resolved values to Settings, validating as it goes.
func FromResolved(r *Resolved) (*Settings, error) {
	concurrency, err := positiveInt(r, KeyBlobConcurrency)
	if err != nil {
		return nil, err
	}
	level, err := oneOf(r, KeyLogLevel, "debug", "info", "warn", "error")
	if err != nil {
		return nil, err
	}
	format, err := oneOf(r, KeyLogFormat, "text", "json")
	if err != nil {
		return nil, err
	}

	return &Settings{
		TemplateDir:       r.Get(KeyTemplateDir),
		PromptsDir:        r.Get(KeyPromptsDir),
		ProjectsDir:       r.Get(KeyProjectsDir),
		RepoPrefix:        r.Get(KeyRepoPrefix),
		APIURL:            r.Get(KeyAPIURL),
		WebURL:            r.Get(KeyWebURL),
		BlobConcurrency:   concurrency,
		CommitMessage:     r.Get(KeyCommitMessage),
		CommitAuthorName:  r.Get(KeyCommitAuthorName),
		CommitAuthorEmail: r.Get(KeyCommitAuthorEmail),
		PrunePatterns:     splitList(r.Get(KeyPrunePatterns)),
		LedgerPath:        r.Get(KeyLedgerPath),
		ArchiveDir:        r.Get(KeyArchiveDir),
		JWTSecret:         r.Get(KeyJWTSecret),
		WebhookURL:        r.Get(KeyWebhookURL),
		SlackWebhookURL:   r.Get(KeySlackWebhookURL),
		ListenAddr:        r.Get(KeyListenAddr),
		LogLevel:          level,
		LogFormat:         format,
	}, nil
}

func positiveInt(r *Resolved, key string) (int, error) {
	value, src := r.GetWithSource(key)
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q (from %s)", key, value, src)
	}
	return n, nil
}

func oneOf(r *Resolved, key string, allowed ...string) (string, error) {
	value, src := r.GetWithSource(key)
	value = strings.ToLower(strings.TrimSpace(value))
	for _, a := range allowed {
		if value == a {
			return value, nil
		}
	}
	return "", fmt.Errorf("%s must be one of %s, got %q (from %s)", key, strings.Join(allowed, "|"), value, src)
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
