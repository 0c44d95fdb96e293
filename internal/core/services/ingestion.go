package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
	"github.com/custodia-labs/lenscore/internal/core/ports/driving"
	"github.com/custodia-labs/lenscore/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// DefaultIngestWorkers bounds concurrent source loads.
const DefaultIngestWorkers = 4

// IngestionService runs "process documents": load, chunk and index every
// configured source, prune documents whose sources were removed from the
// configuration, and repair incomplete documents.
type IngestionService struct {
	catalog  driven.SourceCatalog
	loader   driven.SourceLoader
	pipeline driven.PostProcessorPipeline
	index    driving.EmbeddingIndex
	workers  int
}

// NewIngestionService creates an ingestion service.
// workers <= 0 uses DefaultIngestWorkers.
func NewIngestionService(
	catalog driven.SourceCatalog,
	loader driven.SourceLoader,
	pipeline driven.PostProcessorPipeline,
	index driving.EmbeddingIndex,
	workers int,
) *IngestionService {
	if workers <= 0 {
		workers = DefaultIngestWorkers
	}
	return &IngestionService{
		catalog:  catalog,
		loader:   loader,
		pipeline: pipeline,
		index:    index,
		workers:  workers,
	}
}

// Ingest processes every configured source. A source that fails is
// reported and skipped; only cancellation or a broken index aborts the run.
func (s *IngestionService) Ingest(ctx context.Context) (*domain.IngestionReport, error) {
	logger.Section("Ingestion")
	defer logger.Timer("ingestion")()

	report := &domain.IngestionReport{StartedAt: time.Now().UTC()}

	stored, err := s.index.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexed documents: %w", err)
	}
	known := make(map[string]*domain.IndexedDocument, len(stored))
	for i := range stored {
		known[stored[i].ID] = &stored[i]
	}

	descriptors, catalogErrs := s.catalog.Sources(ctx)
	for _, ierr := range catalogErrs {
		logger.Warn("%v", ierr)
		report.Errors = append(report.Errors, ierr)
		report.Sources = append(report.Sources, domain.SourceReport{
			Source: ierr.Source,
			Status: domain.SourceFailed,
			Error:  ierr.Error(),
		})
	}

	results := make([]domain.SourceReport, len(descriptors))
	errs := make([]*domain.IngestionError, len(descriptors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range descriptors {
		i := i
		g.Go(func() error {
			var err error
			results[i], errs[i], err = s.ingestOne(gctx, descriptors[i], known[descriptors[i].DocumentID()])
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	report.Sources = append(report.Sources, results...)
	var failedLoads []string
	for i, ierr := range errs {
		if ierr != nil {
			report.Errors = append(report.Errors, ierr)
			failedLoads = append(failedLoads, results[i].DocumentID)
		}
	}

	repaired, err := s.repair(ctx, failedLoads, known)
	report.Repaired = repaired
	if err != nil {
		return report, err
	}

	removed, err := s.prune(ctx, descriptors, catalogErrs, stored)
	report.Removed = removed
	if err != nil {
		return report, err
	}

	report.FinishedAt = time.Now().UTC()
	logger.Info("Ingestion finished: %d sources ok, %d failed, %d removed, %d repaired",
		report.Succeeded(), report.Failed(), len(report.Removed), len(report.Repaired))
	return report, nil
}

// ingestOne loads, chunks and indexes one source. Source failures are
// returned as the IngestionError; the error result is reserved for
// failures that must abort the run.
func (s *IngestionService) ingestOne(
	ctx context.Context, desc domain.SourceDescriptor, stored *domain.IndexedDocument,
) (domain.SourceReport, *domain.IngestionError, error) {
	sr := domain.SourceReport{Source: desc, DocumentID: desc.DocumentID()}

	fail := func(err error) (domain.SourceReport, *domain.IngestionError, error) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return sr, nil, ctxErr
		}
		var ierr *domain.IngestionError
		if !errors.As(err, &ierr) {
			ierr = domain.NewIngestionError(desc, err)
		}
		logger.Warn("%v", ierr)
		sr.Status = domain.SourceFailed
		sr.Error = ierr.Error()
		return sr, ierr, nil
	}

	doc, err := s.loader.Load(ctx, desc)
	if err != nil {
		return fail(err)
	}
	sr.DocumentID = doc.ID
	sr.Title = doc.Title

	doc.Chunking = s.pipeline.Fingerprint()
	if stored != nil && stored.Complete && stored.ContentHash == doc.ContentHash && stored.Chunking == doc.Chunking {
		logger.Debug("Unchanged: %s", desc)
		sr.Status = domain.SourceUnchanged
		sr.Chunks = stored.ExpectedChunks
		return sr, nil, nil
	}

	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return fail(fmt.Errorf("chunk: %w", err))
	}
	sr.Chunks = len(chunks)

	upsert, err := s.index.Upsert(ctx, doc, chunks)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return sr, nil, ctxErr
		}
		return sr, nil, fmt.Errorf("index %s: %w", desc, err)
	}
	sr.Embedded = upsert.Embedded + upsert.Skipped
	sr.FailedChunks = len(upsert.Failed)
	if upsert.Complete() {
		sr.Status = domain.SourceIndexed
	} else {
		sr.Status = domain.SourcePartial
	}
	logger.Debug("Indexed %s: %d chunks, %d embedded, %d failed", desc, sr.Chunks, upsert.Embedded, sr.FailedChunks)
	return sr, nil, nil
}

// repair rebuilds the missing embeddings of incomplete documents whose
// source could not be reloaded this run, using their stored chunks.
func (s *IngestionService) repair(
	ctx context.Context, ids []string, known map[string]*domain.IndexedDocument,
) ([]string, error) {
	var repaired []string
	for _, id := range ids {
		doc, ok := known[id]
		if !ok || doc.Complete {
			continue
		}
		report, err := s.index.Repair(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return repaired, fmt.Errorf("repair %s: %w", id, err)
		}
		if report.Complete() {
			repaired = append(repaired, id)
		} else {
			logger.Warn("Repair of %s left %d chunks without embeddings", doc.Origin, len(report.Failed))
		}
	}
	return repaired, nil
}

// prune removes documents whose source is no longer configured. Documents
// of a source type whose directory could not be listed are kept.
func (s *IngestionService) prune(
	ctx context.Context,
	descriptors []domain.SourceDescriptor,
	catalogErrs []*domain.IngestionError,
	stored []domain.IndexedDocument,
) ([]string, error) {
	configured := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		configured[d.DocumentID()] = true
	}
	unlisted := make(map[domain.SourceType]bool)
	for _, ierr := range catalogErrs {
		unlisted[ierr.Source.Type] = true
		// Text files live in the document directories.
		unlisted[domain.SourceTypeText] = true
	}

	var removed []string
	for _, doc := range stored {
		if configured[doc.ID] || unlisted[doc.SourceType] {
			continue
		}
		if err := s.index.Remove(ctx, doc.ID); err != nil {
			return removed, fmt.Errorf("remove %s: %w", doc.Origin, err)
		}
		logger.Info("Removed %s (no longer configured)", doc.Descriptor())
		removed = append(removed, doc.ID)
	}
	sort.Strings(removed)
	return removed, nil
}
