package api

import (
	"net/http"

	"github.com/tradereads/tradereads-api/internal/api/shared"
	"github.com/tradereads/tradereads-api/internal/service/ledger"
)

// BookHandler serves the public catalogue and the caller's own listings.
type BookHandler struct {
	books ledger.BookService
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(books ledger.BookService) *BookHandler {
	return &BookHandler{books: books}
}

// ListBooks handles GET /books?genre&status&listingType.
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	status, err := queryBookStatus(r)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	listing, err := queryListingType(r)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	books, err := h.books.ListBooks(r.Context(), queryParam(r, "genre"), status, listing)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, books)
}

// AvailableBooks handles GET /books/available?excludeUserId.
func (h *BookHandler) AvailableBooks(w http.ResponseWriter, r *http.Request) {
	exclude, err := queryUUID(r, "excludeUserId")
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	books, err := h.books.AvailableBooks(r.Context(), exclude)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, books)
}

// GetBook handles GET /books/{id}.
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	book, err := h.books.GetBook(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, book)
}

// MyBooks handles GET /books/my-books?listingType&status.
func (h *BookHandler) MyBooks(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	listing, err := queryListingType(r)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	status, err := queryBookStatus(r)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	books, err := h.books.MyBooks(r.Context(), userID, listing, status)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, books)
}

// CreateMyBook handles POST /books/my-books.
func (h *BookHandler) CreateMyBook(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req BookRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	book, err := h.books.CreateMyBook(r.Context(), userID, ledger.BookInput{
		Details: req.details(),
		Status:  req.status(),
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, book)
}

// UpdateMyBook handles PUT /books/my-books/{id}.
func (h *BookHandler) UpdateMyBook(w http.ResponseWriter, r *http.Request) {
	userID, bookID, ok := callerAndPathID(w, r, "id")
	if !ok {
		return
	}
	var req BookRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	book, err := h.books.UpdateMyBook(r.Context(), userID, bookID, ledger.BookInput{
		Details: req.details(),
		Status:  req.status(),
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, book)
}

// DeleteMyBook handles DELETE /books/my-books/{id}.
func (h *BookHandler) DeleteMyBook(w http.ResponseWriter, r *http.Request) {
	userID, bookID, ok := callerAndPathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.books.DeleteMyBook(r.Context(), userID, bookID); err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithMessage(w, r, http.StatusOK, "Book deleted successfully")
}
