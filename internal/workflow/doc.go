// Package workflow implements the phase workflow behind every kirod tool.
//
// A feature moves through requirements, design, task planning and
// execution; review, archive and the task accessors work on the files those
// phases produce. Each operation is a one-shot read-compute-write against a
// workspace.Store and returns the text shown to the caller, or an *Error
// whose Kind tells transports how to report it.
package workflow
