package mcp

import (
	"github.com/custodia-labs/lenscore/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the MCP server.
type Ports struct {
	// Retriever backs the retrieve_references tool.
	Retriever driving.Retriever

	// Assessment backs the assess_photo tool.
	Assessment driving.AssessmentService

	// Index backs the index resources. Optional.
	Index driving.EmbeddingIndex

	// Criteria are the configured scoring criteria, served as a resource.
	Criteria []string

	// TopK is the default number of references per criterion.
	TopK int
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	if p.Assessment == nil {
		return ErrMissingAssessmentService
	}
	return nil
}
