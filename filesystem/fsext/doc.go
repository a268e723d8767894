// Package fsext is a read-only parser and access library for Linux
// Second, Third, and Fourth Extended File System (ext2/ext3/ext4) volumes.
//
// Given a seekable backend.Source containing an ext-family volume,
// optionally at a nonzero offset within a larger image, Open returns a
// Volume exposing a navigable tree of FileEntry values with their
// metadata, file contents, extended attributes, and extent maps.
//
// The package is strictly read-only: it never writes to the backing
// source, never changes mount state, and never replays a journal.
package fsext
