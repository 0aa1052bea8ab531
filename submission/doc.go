// Package submission turns a signed-in user's form submission into an
// orchestration run.
//
// The service owns everything around the core pipeline: it checks the
// session, resolves templates from the catalog, archives uploaded
// documents, records the run in the ledger as processing, invokes the
// orchestrator, then records the outcome and notifies. Responses carry
// short user-facing messages; details go to the log.
package submission
