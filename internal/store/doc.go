// Package store synchronizes a local working copy used as durable storage.
//
// Repository owns the working-copy lifecycle: it clones or initializes the
// local path, reconciles it against an optional remote, commits and publishes
// changes, and exposes file access scoped to the working copy root. All
// mutating operations on one Repository are serialized internally.
package store
