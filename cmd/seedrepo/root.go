package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/seedrepo/config"
)

// rootOptions holds persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	overrides  map[string]*string // config key -> flag value
	stderr     io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	o := &rootOptions{overrides: make(map[string]*string), stderr: stderr}

	cmd := &cobra.Command{
		Use:   "seedrepo",
		Short: "Seed private GitHub repositories from a template and project documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	pf := cmd.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "", "Global config file (default ~/.config/seedrepo/config.yaml)")
	for _, f := range []struct{ name, key, usage string }{
		{"template-dir", config.KeyTemplateDir, "Template copied into every repository"},
		{"prompts-dir", config.KeyPromptsDir, "Directory overriding the embedded instruction files"},
		{"projects-dir", config.KeyProjectsDir, "Directory of template briefs (*.md)"},
		{"ledger", config.KeyLedgerPath, "Ledger database file"},
		{"archive-dir", config.KeyArchiveDir, "Directory for archived uploads"},
		{"api-url", config.KeyAPIURL, "GitHub API base URL (GitHub Enterprise)"},
		{"web-url", config.KeyWebURL, "GitHub web URL used in repository links"},
		{"log-level", config.KeyLogLevel, "Log level: debug, info, warn, error"},
		{"log-format", config.KeyLogFormat, "Log format: text, json"},
	} {
		v := new(string)
		o.overrides[f.key] = v
		pf.StringVar(v, f.name, "", f.usage)
	}

	cmd.AddCommand(
		newPublishCmd(o),
		newTemplatesCmd(o),
		newInstructionsCmd(o),
		newRunsCmd(o),
		newServeCmd(o),
		newTokenCmd(o),
		newConfigCmd(o),
		newArchiveCmd(o),
		newVersionCmd(),
	)
	return cmd
}

func (o *rootOptions) flags() map[string]string {
	out := make(map[string]string, len(o.overrides))
	for key, v := range o.overrides {
		if *v != "" {
			out[key] = *v
		}
	}
	return out
}

// load resolves configuration and builds the logger.
func (o *rootOptions) load() (*app, error) {
	settings, resolved, err := config.Load(config.LoadOptions{
		GlobalPath: o.configPath,
		Flags:      o.flags(),
		ErrWriter:  o.stderr,
	})
	if err != nil {
		return nil, err
	}
	return &app{
		settings: settings,
		resolved: resolved,
		logger:   newLogger(o.stderr, settings.LogLevel, settings.LogFormat),
	}, nil
}

func (o *rootOptions) globalConfigPath() string {
	if o.configPath != "" {
		return o.configPath
	}
	return config.DefaultGlobalPath(config.App)
}
