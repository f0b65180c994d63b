// Package types holds the shared type contracts of councilflow: the
// council session aggregate and its lifecycle states, roster members,
// stages, ratings, market snapshots, verdict reports, and the structured
// error type with its unified error codes. It is the lowest-level package
// and imports nothing internal, so every other package can depend on it
// without cycles.
package types
