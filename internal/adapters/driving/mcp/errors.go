// Package mcp provides an MCP (Model Context Protocol) server adapter for lenscore.
// It lets AI assistants retrieve photography references and assess photos.
package mcp

import "errors"

var (
	// ErrMissingRetriever is returned when the retriever is not provided.
	ErrMissingRetriever = errors.New("mcp: retriever is required")

	// ErrMissingAssessmentService is returned when the assessment service is not provided.
	ErrMissingAssessmentService = errors.New("mcp: assessment service is required")

	// ErrNoPhoto is returned when assess_photo receives neither an image nor a note.
	ErrNoPhoto = errors.New("mcp: image, path or note is required")
)
