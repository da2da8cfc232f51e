// Package tasks parses, validates and rewrites task checklists.
//
// A task document is free-form markdown in which some lines follow the
// checklist grammar:
//
//	- [ ] 1. Set up project structure
//	  - [x] 1.1. Create module layout _Requirements: 1.1_
//	  - [-] 1.2. Wire configuration
//	    - [ ] 1.2.1. Load YAML file
//
// The marker between the brackets encodes the status (space = pending,
// "-" = in progress, "x" = done). IDs are dotted decimals of any depth; the
// parent of "1.2.1" is "1.2". An optional "_Requirements: a, b_" annotation
// lists task IDs that must be done before the task may start.
//
// Parse, Validate and SetStatus share one line grammar and one scanner, so
// the task a validator approves is always the line the mutator rewrites.
// All functions are pure: callers load and persist the document.
package tasks
