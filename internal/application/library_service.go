package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// TextbookCatalog captures the curated textbook storage operations.
type TextbookCatalog interface {
	SearchTextbooks(ctx context.Context, query string, limit int) ([]Textbook, error)
}

// BookSearcher captures the external open-book catalog lookup.
type BookSearcher interface {
	SearchBooks(ctx context.Context, query string, limit int) ([]BookResult, error)
}

const (
	localSearchLimit    = 25
	externalSearchLimit = 12
)

// LibraryService aggregates textbook search across the curated catalog and
// the external open-book index.
type LibraryService struct {
	catalog  TextbookCatalog
	external BookSearcher
	logger   *slog.Logger
}

// NewLibraryService constructs a library service with the provided
// dependencies.
func NewLibraryService(catalog TextbookCatalog, external BookSearcher, logger *slog.Logger) *LibraryService {
	return &LibraryService{catalog: catalog, external: external, logger: defaultLogger(logger)}
}

func (s *LibraryService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "LibraryService", operation, attrs...)
}

// Search merges curated matches with external hits. An external outage
// degrades to local-only results rather than failing the request.
func (s *LibraryService) Search(ctx context.Context, query string) (LibrarySearchResult, error) {
	if s == nil || s.catalog == nil {
		return LibrarySearchResult{}, fmt.Errorf("textbook catalog not configured")
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return LibrarySearchResult{Local: []Textbook{}, External: []BookResult{}}, nil
	}

	logger := s.loggerWith(ctx, "Search", "query", query)

	local, err := s.catalog.SearchTextbooks(ctx, query, localSearchLimit)
	if err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to search curated catalog", "error", err, "error_kind", ErrorKind(err))
		return LibrarySearchResult{}, err
	}

	result := LibrarySearchResult{Local: local, External: []BookResult{}}
	if s.external == nil {
		return result, nil
	}

	external, extErr := s.external.SearchBooks(ctx, query, externalSearchLimit)
	if extErr != nil {
		logger.WarnContext(ctx, "external book search failed; returning curated results only", "error", extErr)
		return result, nil
	}

	result.External = external
	return result, nil
}
