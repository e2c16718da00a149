// Package longtermmemory is the persistent fact store behind cross-session
// memory. Facts are append-only: an update writes a new version that
// supersedes the old one, and a delete writes a tombstone version.
package longtermmemory
