package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	seederrors "github.com/randalmurphal/seedrepo/errors"
	"github.com/randalmurphal/seedrepo/submission"
)

type publishOptions struct {
	token  string
	user   string
	email  string
	asJSON bool
}

func newPublishCmd(o *rootOptions) *cobra.Command {
	po := &publishOptions{}
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Seed a new private repository (full or light mode)",
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&po.token, "token", "", "GitHub token with repo scope (default $GITHUB_TOKEN or $GH_TOKEN)")
	pf.StringVar(&po.user, "user", "", "User id recorded in the ledger (default current OS user)")
	pf.StringVar(&po.email, "email", "", "User email recorded in the ledger")
	pf.BoolVar(&po.asJSON, "json", false, "Print the response as JSON")

	cmd.AddCommand(newPublishFullCmd(o, po), newPublishLightCmd(o, po))
	return cmd
}

func newPublishFullCmd(o *rootOptions, po *publishOptions) *cobra.Command {
	var template, brief, name string
	cmd := &cobra.Command{
		Use:   "full",
		Short: "Seed from a catalog template or a custom brief",
		Example: `  seedrepo publish full --template PRD_Inventory_Tracker
  seedrepo publish full --brief ./brief.md --name "Side Project"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.load()
			if err != nil {
				return err
			}
			svc, store, err := a.submissions(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			req := submission.FullRequest{Source: submission.FromTemplate, TemplateSlug: template, ProjectName: name}
			if brief != "" {
				upload, err := readUpload(brief)
				if err != nil {
					return err
				}
				req = submission.FullRequest{Source: submission.FromUpload, ProjectName: name, Brief: upload}
			}
			return po.report(cmd.OutOrStdout(), svc.SubmitFull(cmd.Context(), po.session(), req))
		},
	}
	cmd.Flags().StringVar(&template, "template", "", "Template slug (see: seedrepo templates)")
	cmd.Flags().StringVar(&brief, "brief", "", "Custom brief file, instead of a template")
	cmd.Flags().StringVar(&name, "name", "", "Project name (required with --brief)")
	cmd.MarkFlagsMutuallyExclusive("template", "brief")
	return cmd
}

func newPublishLightCmd(o *rootOptions, po *publishOptions) *cobra.Command {
	var name, prd, arch, frontend string
	cmd := &cobra.Command{
		Use:     "light",
		Short:   "Seed from a PRD and an architecture document",
		Example: `  seedrepo publish light --name Demo --prd prd.md --architecture arch.md [--frontend ui.md]`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.load()
			if err != nil {
				return err
			}

			req := submission.LightRequest{ProjectName: name}
			for _, u := range []struct {
				path string
				dst  **submission.Upload
			}{
				{prd, &req.PRD},
				{arch, &req.Architecture},
				{frontend, &req.Frontend},
			} {
				if *u.dst, err = readUpload(u.path); err != nil {
					return err
				}
			}

			svc, store, err := a.submissions(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			return po.report(cmd.OutOrStdout(), svc.SubmitLight(cmd.Context(), po.session(), req))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Project name")
	cmd.Flags().StringVar(&prd, "prd", "", "Product requirements document")
	cmd.Flags().StringVar(&arch, "architecture", "", "Architecture document")
	cmd.Flags().StringVar(&frontend, "frontend", "", "Front-end specification (optional)")
	return cmd
}

func (po *publishOptions) session() submission.Session {
	sess := submission.Session{UserID: po.user, Email: po.email, AccessToken: po.token}
	if sess.AccessToken == "" {
		sess.AccessToken = os.Getenv("GITHUB_TOKEN")
	}
	if sess.AccessToken == "" {
		sess.AccessToken = os.Getenv("GH_TOKEN")
	}
	if sess.UserID == "" {
		sess.UserID = currentUser()
	}
	if sess.Email == "" && sess.UserID != "" {
		sess.Email = sess.UserID + "@users.noreply.github.com"
	}
	return sess
}

func (po *publishOptions) report(w io.Writer, resp submission.Response) error {
	if po.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return err
		}
	} else if resp.Success {
		fmt.Fprintf(w, "Repository: %s\n", resp.Result.RepoURL)
		fmt.Fprintf(w, "Run:        %s\n\n", resp.RunID)
		fmt.Fprintln(w, resp.Result.Instructions)
	}

	if resp.Success {
		return nil
	}
	if resp.Err != nil && resp.RunID != "" {
		return seederrors.UserMessage(resp.Err)
	}
	return errors.New(resp.Message)
}

// readUpload reads path into an Upload. An empty path yields nil.
func readUpload(path string) (*submission.Upload, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &submission.Upload{Name: filepath.Base(path), Content: data}, nil
}
