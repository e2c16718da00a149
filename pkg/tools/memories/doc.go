// Package memories exposes the long-term fact store to the model as
// read-only tools. Facts are written by the capture controller after each
// turn, so the model only ever searches and lists them.
package memories
