// Package publish pushes a staged file manifest to a new private GitHub
// repository as a single commit built from git data primitives.
//
// The publish chain is a fixed sequence of typed stages. Each stage takes
// the previous stage's output, so the order identity → repository → base
// snapshot → blobs → tree → commit → ref is enforced by the compiler:
//
//	resolveIdentity  GET   /user
//	createRepository POST  /user/repos
//	resolveBase      GET   /repos/{o}/{r}/git/ref/heads/{b}, GET .../git/commits/{sha}
//	uploadBlobs      POST  /repos/{o}/{r}/git/blobs (bounded fan-out)
//	createTree       POST  /repos/{o}/{r}/git/trees (base_tree = head tree)
//	createCommit     POST  /repos/{o}/{r}/git/commits (one parent)
//	advanceRef       PATCH /repos/{o}/{r}/git/refs/heads/{b} (not forced)
//
// Updating the ref is the only step a reader of the repository can
// observe. Any earlier failure leaves the branch at its auto-initialized
// commit.
//
// # Rollback waiver
//
// A failed attempt is never compensated. Blobs, trees and commits created
// before the failure stay in the remote object store unreferenced until
// git garbage-collects them, and a repository created before the failure
// is not deleted. Nothing is retried; callers own any retry policy.
package publish
