package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/unispaces/internal/application"
)

type libraryService interface {
	Search(ctx context.Context, query string) (application.LibrarySearchResult, error)
}

// LibraryHandler serves the merged textbook search.
type LibraryHandler struct {
	service   libraryService
	responder responder
}

func NewLibraryHandler(service libraryService, logger *slog.Logger) *LibraryHandler {
	return &LibraryHandler{service: service, responder: newResponder(logger)}
}

// Search merges curated catalog matches with external open-book hits.
func (h *LibraryHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	result, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	local := make([]textbookDTO, 0, len(result.Local))
	for _, textbook := range result.Local {
		local = append(local, textbookDTO{
			ID:            textbook.ID,
			Title:         textbook.Title,
			Author:        textbook.Author,
			Subject:       textbook.Subject,
			Description:   textbook.Description,
			CoverImageURL: textbook.CoverImageURL,
			OpenAccessURL: textbook.OpenAccessURL,
			ISBN:          textbook.ISBN,
			Provider:      textbook.Provider,
		})
	}

	external := make([]bookResultDTO, 0, len(result.External))
	for _, book := range result.External {
		external = append(external, bookResultDTO{
			Title:       book.Title,
			Author:      book.Author,
			Year:        book.Year,
			Key:         book.Key,
			CoverURL:    book.CoverURL,
			HasFulltext: book.HasFulltext,
			EbookCount:  book.EbookCount,
			ArchiveID:   book.ArchiveID,
			ShoppingURL: book.ShoppingURL,
		})
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, librarySearchResponse{Local: local, External: external})
}

type librarySearchResponse struct {
	Local    []textbookDTO   `json:"local"`
	External []bookResultDTO `json:"external"`
}

type textbookDTO struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Subject       string  `json:"subject"`
	Description   *string `json:"description,omitempty"`
	CoverImageURL *string `json:"cover_image_url,omitempty"`
	OpenAccessURL string  `json:"open_access_url"`
	ISBN          *string `json:"isbn,omitempty"`
	Provider      string  `json:"provider"`
}

type bookResultDTO struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Year        int    `json:"year,omitempty"`
	Key         string `json:"key"`
	CoverURL    string `json:"cover_url,omitempty"`
	HasFulltext bool   `json:"has_fulltext"`
	EbookCount  int    `json:"ebook_count"`
	ArchiveID   string `json:"archive_id,omitempty"`
	ShoppingURL string `json:"shopping_url,omitempty"`
}
