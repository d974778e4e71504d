// Package fsutil holds the filesystem primitives the pipeline stages share:
// file and tree copies, delete-then-recreate replacement, atomic single-file
// replacement and a content digest of a directory tree.
package fsutil
