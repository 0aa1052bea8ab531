// Package archive stores uploaded documents on local disk before they are
// published.
//
// Objects are addressed by slash-separated keys of the form
// <category>/<owner>/<millis>-<id>-<name> (see Key). Compressible objects
// above a size threshold are stored gzipped; reads are transparent.
//
// Example usage:
//
//	store, err := archive.New(archive.Config{BaseDir: "archive"})
//	key := archive.Key(archive.CategoryPRD, userID, "prd.md", time.Now())
//	obj, err := store.Put(key, data)
//	// obj.URL is a file:// URL recorded in the ledger
//	data, err = store.Get(key)
package archive
