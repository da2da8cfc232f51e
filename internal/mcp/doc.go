// Package mcp exposes the kirod workflow as Model Context Protocol tools.
//
// Every tool delegates to a workflow.Service. Failures never escape as
// protocol errors: they come back as a tool result with IsError set and a
// single text content "Error: <message>".
package mcp
