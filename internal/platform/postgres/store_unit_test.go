package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradereads/tradereads-api/internal/domain"
	"github.com/tradereads/tradereads-api/internal/store"
)

var fixedTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func testBook(t *testing.T) *domain.Book {
	t.Helper()
	book, err := domain.NewBook(uuid.New(), domain.BookDetails{
		Title:       "Dune",
		Author:      "Frank Herbert",
		ISBN:        "978-0441013593",
		ListingType: domain.ListingTypeTrade,
	}, fixedTime)
	require.NoError(t, err)
	return book
}

func bookRows(books ...*domain.Book) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "owner_id", "title", "author", "isbn", "genre", "condition", "description",
		"status", "listing_type", "created_at", "updated_at",
	})
	for _, b := range books {
		rows.AddRow(b.ID.String(), b.OwnerID.String(), b.Title, b.Author, b.ISBN, b.Genre,
			b.Condition, b.Description, string(b.Status), string(b.ListingType), b.CreatedAt, b.UpdatedAt)
	}
	return rows
}

func TestNewPostgresBookStore_NilDBPanics(t *testing.T) {
	assert.Panics(t, func() { NewPostgresBookStore(nil, nil) })
	assert.Panics(t, func() { NewPostgresTradeRequestStore(nil, nil) })
	assert.Panics(t, func() { NewPostgresSessionStore(nil, nil) })
	assert.Panics(t, func() { NewPostgresUserStore(nil, nil) })
}

func TestPostgresBookStore_CreateDuplicateISBN(t *testing.T) {
	db, mock := newMock(t)
	books := NewPostgresBookStore(db, nil)
	book := testBook(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO books")).
		WillReturnError(newPgError(uniqueViolationCode, "books_isbn_owner_key"))

	err := books.Create(context.Background(), book)
	assert.ErrorIs(t, err, store.ErrBookISBNExists)
}

func TestPostgresBookStore_CreateRejectsInvalid(t *testing.T) {
	db, _ := newMock(t)
	books := NewPostgresBookStore(db, nil)

	err := books.Create(context.Background(), &domain.Book{})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestPostgresBookStore_GetByID(t *testing.T) {
	db, mock := newMock(t)
	books := NewPostgresBookStore(db, nil)
	book := testBook(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM books WHERE id = $1")).
		WithArgs(book.ID).
		WillReturnRows(bookRows(book))
	mock.ExpectQuery(regexp.QuoteMeta("FROM books WHERE id = $1")).
		WillReturnError(sql.ErrNoRows)

	got, err := books.GetByID(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, book, got)

	_, err = books.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrBookNotFound)
}

func TestPostgresBookStore_CompareAndSetStatus(t *testing.T) {
	db, mock := newMock(t)
	books := NewPostgresBookStore(db, nil)
	id := uuid.New()

	query := regexp.QuoteMeta("UPDATE books SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2")
	mock.ExpectExec(query).
		WithArgs(id, domain.BookStatusAvailable, domain.BookStatusTraded, fixedTime).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).
		WithArgs(id, domain.BookStatusAvailable, domain.BookStatusTraded, fixedTime).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := books.CompareAndSetStatus(context.Background(), id, domain.BookStatusAvailable, domain.BookStatusTraded, fixedTime)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = books.CompareAndSetStatus(context.Background(), id, domain.BookStatusAvailable, domain.BookStatusTraded, fixedTime)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgresBookStore_ListComposesFilters(t *testing.T) {
	db, mock := newMock(t)
	books := NewPostgresBookStore(db, nil)
	owner := uuid.New()
	status := domain.BookStatusAvailable
	genre := "SciFi"

	mock.ExpectQuery(regexp.QuoteMeta(
		"FROM books WHERE owner_id <> $1 AND status = $2 AND LOWER(genre) = LOWER($3) ORDER BY created_at DESC, id")).
		WithArgs(owner, status, genre).
		WillReturnRows(bookRows(testBook(t), testBook(t)))

	got, err := books.List(context.Background(), domain.BookFilter{
		ExcludeOwnerID: &owner,
		Status:         &status,
		Genre:          &genre,
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestPostgresBookStore_DeleteMissing(t *testing.T) {
	db, mock := newMock(t)
	books := NewPostgresBookStore(db, nil)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM books WHERE id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, books.Delete(context.Background(), uuid.New()), store.ErrBookNotFound)
}

func TestPostgresBookStore_DeleteReferenced(t *testing.T) {
	db, mock := newMock(t)
	books := NewPostgresBookStore(db, nil)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM books WHERE id = $1")).
		WillReturnError(&pgconn.PgError{
			Code:           foreignKeyViolationCode,
			ConstraintName: "trade_requests_requested_book_id_fkey",
		})

	err := books.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrBookReferenced)
	assert.ErrorIs(t, err, store.ErrReferenced)
}

func TestPostgresBookStore_GetForUpdate(t *testing.T) {
	db, mock := newMock(t)
	books := NewPostgresBookStore(db, nil)
	book := testBook(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM books WHERE id = $1 AND owner_id = $2 FOR UPDATE")).
		WithArgs(book.ID, book.OwnerID).
		WillReturnRows(bookRows(book))
	got, err := books.GetForUpdate(context.Background(), book.ID, book.OwnerID)
	require.NoError(t, err)
	assert.Equal(t, book.ID, got.ID)

	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnError(sql.ErrNoRows)
	_, err = books.GetForUpdate(context.Background(), book.ID, uuid.New())
	assert.ErrorIs(t, err, store.ErrBookNotFound)
}

func TestPostgresTradeRequestStore_CreateDuplicatePending(t *testing.T) {
	db, mock := newMock(t)
	trades := NewPostgresTradeRequestStore(db, nil)
	req, err := domain.NewTradeRequest(uuid.New(), testBook(t), nil, "hello", fixedTime)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO trade_requests")).
		WithArgs(req.ID, req.RequesterID, req.OwnerID, req.RequestedBookID, nil,
			req.Status, req.Message, req.CreatedAt, req.UpdatedAt).
		WillReturnError(newPgError(uniqueViolationCode, "trade_requests_pending_key"))

	assert.ErrorIs(t, trades.Create(context.Background(), req), store.ErrPendingExists)
}

func TestPostgresTradeRequestStore_GetByIDScansOfferedBook(t *testing.T) {
	db, mock := newMock(t)
	trades := NewPostgresTradeRequestStore(db, nil)
	id, offered := uuid.New(), uuid.New()

	rows := sqlmock.NewRows([]string{
		"id", "requester_id", "owner_id", "requested_book_id", "offered_book_id",
		"status", "message", "created_at", "updated_at",
	}).AddRow(id.String(), uuid.NewString(), uuid.NewString(), uuid.NewString(), offered.String(),
		"ACCEPTED", "", fixedTime, fixedTime)
	mock.ExpectQuery(regexp.QuoteMeta("FROM trade_requests WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(rows)

	got, err := trades.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, got.OfferedBookID)
	assert.Equal(t, offered, *got.OfferedBookID)
	assert.Equal(t, domain.TradeStatusAccepted, got.Status)
}

func TestPostgresTradeRequestStore_Count(t *testing.T) {
	db, mock := newMock(t)
	trades := NewPostgresTradeRequestStore(db, nil)
	owner := uuid.New()
	pending := domain.TradeStatusPending

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM trade_requests WHERE owner_id = $1 AND status = $2")).
		WithArgs(owner, pending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := trades.Count(context.Background(), domain.TradeRequestFilter{OwnerID: &owner, Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestPostgresSessionStore_WithUserLock(t *testing.T) {
	db, mock := newMock(t)
	sessions := NewPostgresSessionStore(db, nil)
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("pg_advisory_xact_lock")).
		WithArgs(userID.String()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE user_id = $1 ORDER BY created_at, id")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "token", "user_id", "expires_at", "created_at", "device_info", "ip_address",
		}).AddRow(uuid.NewString(), "tok", userID.String(), fixedTime.Add(time.Hour), fixedTime, "curl", "127.0.0.1"))
	mock.ExpectCommit()

	var seen int
	err := sessions.WithUserLock(context.Background(), userID, func(ctx context.Context, s store.SessionStore) error {
		list, err := s.ListByUser(ctx, userID)
		seen = len(list)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, seen)
}

func TestPostgresSessionStore_DeleteExpired(t *testing.T) {
	db, mock := newMock(t)
	sessions := NewPostgresSessionStore(db, nil)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE expires_at < $1")).
		WithArgs(fixedTime).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := sessions.DeleteExpired(context.Background(), fixedTime)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	tx := NewTransactor(db, nil)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE books SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	rule := domain.InvalidArgument("Requested book is no longer available")
	err := tx.RunInTx(context.Background(), func(ctx context.Context, s store.TxStores) error {
		ok, err := s.Books.CompareAndSetStatus(ctx, id, domain.BookStatusAvailable, domain.BookStatusTraded, fixedTime)
		if err != nil {
			return err
		}
		if !ok {
			return rule
		}
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
