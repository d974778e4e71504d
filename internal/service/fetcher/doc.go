// Package fetcher downloads the prebuilt CEF archive matching the pinned
// interop version and extracts it into a clean per-platform directory.
//
// Upstream archives wrap all content in a single root folder named after the
// archive; that folder is stripped from every member during extraction.
// Members outside the root folder are rejected instead of being written to a
// corrupted path.
package fetcher
