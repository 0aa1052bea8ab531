// Package seedrepo seeds new private GitHub repositories from a project
// template and a set of planning documents.
//
// The module is organized into packages by concern:
//
//   - orchestrator: one seeding attempt (stage, merge, walk, publish, assemble)
//   - workspace: temporary template copies and pruned tree walks
//   - document: document targets, modes and the docs/ merge
//   - publish: atomic upload to GitHub (blobs, tree, commit, ref)
//   - prompt: instruction files and their HTML rendering
//   - submission: user-facing full and light submissions
//   - ledger: SQLite record of runs and the template catalog
//   - catalog: template briefs discovered on disk
//   - archive: storage for uploaded documents
//   - notify: run notifications (log, webhook, Slack)
//   - server: authenticated run status API
//   - auth: user tokens for the status API
//   - config: layered configuration
//   - errors: stage errors and user-facing messages
//   - testutil: fixtures and a fake GitHub API
//
// # Quick Start
//
//	orch, _ := orchestrator.New(orchestrator.Config{
//	    TemplateDir: "/srv/template",
//	    Merger:      document.NewMerger(prompt.NewStore(), logger),
//	    Publisher:   publisher,
//	})
//	result, err := orch.Run(ctx, orchestrator.Request{
//	    Mode:        document.ModeLight,
//	    ProjectName: "Inventory Tracker",
//	    Credential:  token,
//	    Documents:   docs,
//	})
//
// The seedrepo command in cmd/seedrepo wires these packages together.
package seedrepo
