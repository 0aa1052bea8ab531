// Package ledger records orchestration runs and the template catalog in a
// SQL database.
//
// The ledger belongs to the caller of the orchestrator: a run row is
// created as processing before publishing starts and moved to completed or
// failed afterwards. The orchestrator itself never touches it.
//
// Example usage:
//
//	store, err := ledger.Open("seedrepo.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//	if err := store.EnsureSchema(ctx); err != nil {
//	    return err
//	}
//	err = store.CreateRun(ctx, ledger.Run{ID: id, UserID: uid, ProjectName: "Demo", Mode: "full"})
package ledger
