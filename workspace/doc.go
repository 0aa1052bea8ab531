// Package workspace stages a project template into an isolated temporary
// directory and enumerates the files inside it.
//
// A Workspace is owned by exactly one publish attempt. Callers defer Close
// immediately after Stage succeeds:
//
//	ws, err := stager.Stage(ctx, templateDir)
//	if err != nil {
//		return err
//	}
//	defer ws.Close()
//
// Dependency-cache directories (node_modules and friends) are pruned both
// when copying and when enumerating, using gitignore-style patterns.
package workspace
