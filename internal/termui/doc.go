// Package termui renders kirod output for terminals: the status table with
// progress bars, a live status view that follows file changes, and
// markdown rendering for directive responses.
package termui
