package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradereads/tradereads-api/internal/domain"
	"github.com/tradereads/tradereads-api/internal/store"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newBook(t *testing.T, ownerID uuid.UUID, isbn string) *domain.Book {
	t.Helper()
	book, err := domain.NewBook(ownerID, domain.BookDetails{
		Title:       "Dune",
		Author:      "Frank Herbert",
		ISBN:        isbn,
		ListingType: domain.ListingTypeTrade,
	}, baseTime)
	require.NoError(t, err)
	return book
}

func newTrade(t *testing.T, requesterID uuid.UUID, requested *domain.Book, offered *uuid.UUID, at time.Time) *domain.TradeRequest {
	t.Helper()
	req, err := domain.NewTradeRequest(requesterID, requested, offered, "", at)
	require.NoError(t, err)
	return req
}

func TestBookStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	books := NewBookStore(NewDB())
	owner := uuid.New()

	book := newBook(t, owner, "978-0441013593")
	require.NoError(t, books.Create(ctx, book))

	got, err := books.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, book, got)

	// Returned values are copies.
	got.Title = "changed"
	again, err := books.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", again.Title)

	_, err = books.GetByOwnerAndID(ctx, book.ID, uuid.New())
	assert.ErrorIs(t, err, store.ErrBookNotFound)

	err = books.Create(ctx, newBook(t, owner, "978-0441013593"))
	assert.ErrorIs(t, err, store.ErrBookISBNExists)

	// Same ISBN for another owner is fine.
	require.NoError(t, books.Create(ctx, newBook(t, uuid.New(), "978-0441013593")))

	exists, err := books.ExistsForOwnerAndISBN(ctx, "978-0441013593", owner)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestBookStore_CompareAndSetStatus(t *testing.T) {
	ctx := context.Background()
	books := NewBookStore(NewDB())
	book := newBook(t, uuid.New(), "isbn-1")
	require.NoError(t, books.Create(ctx, book))

	later := baseTime.Add(time.Hour)
	swapped, err := books.CompareAndSetStatus(ctx, book.ID, domain.BookStatusAvailable, domain.BookStatusTraded, later)
	require.NoError(t, err)
	assert.True(t, swapped)

	swapped, err = books.CompareAndSetStatus(ctx, book.ID, domain.BookStatusAvailable, domain.BookStatusTraded, later)
	require.NoError(t, err)
	assert.False(t, swapped)

	got, err := books.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookStatusTraded, got.Status)
	assert.Equal(t, later, got.UpdatedAt)

	swapped, err = books.CompareAndSetStatus(ctx, uuid.New(), domain.BookStatusAvailable, domain.BookStatusTraded, later)
	require.NoError(t, err)
	assert.False(t, swapped)
}

func TestBookStore_DeleteRefusesReferencedBooks(t *testing.T) {
	ctx := context.Background()
	db := NewDB()
	books := NewBookStore(db)
	trades := NewTradeRequestStore(db)

	owner, requester := uuid.New(), uuid.New()
	wanted := newBook(t, owner, "isbn-wanted")
	offered := newBook(t, requester, "isbn-offered")
	loose := newBook(t, owner, "isbn-loose")
	for _, b := range []*domain.Book{wanted, offered, loose} {
		require.NoError(t, books.Create(ctx, b))
	}

	req := newTrade(t, requester, wanted, &offered.ID, baseTime)
	require.NoError(t, trades.Create(ctx, req))
	swapped, err := trades.CompareAndSetStatus(ctx, req.ID, domain.TradeStatusPending, domain.TradeStatusDeclined, baseTime)
	require.NoError(t, err)
	require.True(t, swapped)

	assert.ErrorIs(t, books.Delete(ctx, wanted.ID), store.ErrBookReferenced)
	assert.ErrorIs(t, books.Delete(ctx, offered.ID), store.ErrBookReferenced)

	got, err := trades.GetByID(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, got.OfferedBookID)
	assert.Equal(t, offered.ID, *got.OfferedBookID)

	require.NoError(t, books.Delete(ctx, loose.ID))
	assert.ErrorIs(t, books.Delete(ctx, loose.ID), store.ErrBookNotFound)
}

func TestBookStore_GetForUpdate(t *testing.T) {
	ctx := context.Background()
	db := NewDB()
	books := NewBookStore(db)
	owner := uuid.New()
	book := newBook(t, owner, "isbn-1")
	require.NoError(t, books.Create(ctx, book))

	err := NewTransactor(db).RunInTx(ctx, func(ctx context.Context, tx store.TxStores) error {
		got, err := tx.Books.GetForUpdate(ctx, book.ID, owner)
		require.NoError(t, err)
		assert.Equal(t, book.ID, got.ID)

		_, err = tx.Books.GetForUpdate(ctx, book.ID, uuid.New())
		assert.ErrorIs(t, err, store.ErrBookNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestTradeRequestStore_PendingUniqueness(t *testing.T) {
	ctx := context.Background()
	db := NewDB()
	books := NewBookStore(db)
	trades := NewTradeRequestStore(db)

	requester := uuid.New()
	book := newBook(t, uuid.New(), "isbn")
	require.NoError(t, books.Create(ctx, book))

	first := newTrade(t, requester, book, nil, baseTime)
	require.NoError(t, trades.Create(ctx, first))

	err := trades.Create(ctx, newTrade(t, requester, book, nil, baseTime))
	assert.ErrorIs(t, err, store.ErrPendingExists)

	found, err := trades.FindPending(ctx, requester, book.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	swapped, err := trades.CompareAndSetStatus(ctx, first.ID, domain.TradeStatusPending, domain.TradeStatusCancelled, baseTime)
	require.NoError(t, err)
	require.True(t, swapped)

	// Once the first is no longer pending a new request may be made.
	require.NoError(t, trades.Create(ctx, newTrade(t, requester, book, nil, baseTime)))
}

func TestTradeRequestStore_CreateRequiresBooks(t *testing.T) {
	trades := NewTradeRequestStore(NewDB())
	book := newBook(t, uuid.New(), "isbn")
	err := trades.Create(context.Background(), newTrade(t, uuid.New(), book, nil, baseTime))
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestTradeRequestStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := NewDB()
	books := NewBookStore(db)
	trades := NewTradeRequestStore(db)

	owner := uuid.New()
	var created []*domain.TradeRequest
	for i := 0; i < 4; i++ {
		book := newBook(t, owner, uuid.NewString())
		require.NoError(t, books.Create(ctx, book))
		req := newTrade(t, uuid.New(), book, nil, baseTime.Add(time.Duration(i)*time.Minute))
		require.NoError(t, trades.Create(ctx, req))
		created = append(created, req)
	}

	list, err := trades.List(ctx, domain.TradeRequestFilter{OwnerID: &owner})
	require.NoError(t, err)
	require.Len(t, list, 4)
	for i, req := range list {
		assert.Equal(t, created[len(created)-1-i].ID, req.ID)
	}

	pending := domain.TradeStatusPending
	n, err := trades.Count(ctx, domain.TradeRequestFilter{OwnerID: &owner, Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	active, err := trades.HasActiveForBook(ctx, created[0].RequestedBookID)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	db := NewDB()
	books := NewBookStore(db)
	trades := NewTradeRequestStore(db)
	tx := NewTransactor(db)

	book := newBook(t, uuid.New(), "isbn")
	require.NoError(t, books.Create(ctx, book))
	req := newTrade(t, uuid.New(), book, nil, baseTime)
	require.NoError(t, trades.Create(ctx, req))

	boom := errors.New("boom")
	err := tx.RunInTx(ctx, func(ctx context.Context, s store.TxStores) error {
		ok, err := s.Books.CompareAndSetStatus(ctx, book.ID, domain.BookStatusAvailable, domain.BookStatusTraded, baseTime)
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = s.TradeRequests.CompareAndSetStatus(ctx, req.ID, domain.TradeStatusPending, domain.TradeStatusAccepted, baseTime)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, s.TradeRequests.Delete(ctx, req.ID))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	gotBook, err := books.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookStatusAvailable, gotBook.Status)

	gotReq, err := trades.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TradeStatusPending, gotReq.Status)

	list, err := trades.List(ctx, domain.TradeRequestFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTransactor_RollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	db := NewDB()
	books := NewBookStore(db)
	tx := NewTransactor(db)

	book := newBook(t, uuid.New(), "isbn")
	require.NoError(t, books.Create(ctx, book))

	assert.Panics(t, func() {
		_ = tx.RunInTx(ctx, func(ctx context.Context, s store.TxStores) error {
			_, _ = s.Books.CompareAndSetStatus(ctx, book.ID, domain.BookStatusAvailable, domain.BookStatusTraded, baseTime)
			panic("kaboom")
		})
	})

	got, err := books.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookStatusAvailable, got.Status)
}

func TestTransactor_Commits(t *testing.T) {
	ctx := context.Background()
	db := NewDB()
	books := NewBookStore(db)
	tx := NewTransactor(db)

	book := newBook(t, uuid.New(), "isbn")
	require.NoError(t, books.Create(ctx, book))

	err := tx.RunInTx(ctx, func(ctx context.Context, s store.TxStores) error {
		_, err := s.Books.CompareAndSetStatus(ctx, book.ID, domain.BookStatusAvailable, domain.BookStatusTraded, baseTime)
		return err
	})
	require.NoError(t, err)

	got, err := books.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookStatusTraded, got.Status)
}

func newSession(userID uuid.UUID, createdAt time.Time, ttl time.Duration) *domain.Session {
	return &domain.Session{
		ID:         uuid.New(),
		Token:      uuid.NewString(),
		UserID:     userID,
		CreatedAt:  createdAt,
		ExpiresAt:  createdAt.Add(ttl),
		DeviceInfo: domain.UnreportedDevice,
	}
}

func TestSessionStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessionStore(NewDB())
	user := uuid.New()

	s1 := newSession(user, baseTime.Add(2*time.Minute), time.Hour)
	s2 := newSession(user, baseTime, time.Hour)
	s3 := newSession(user, baseTime.Add(time.Minute), time.Minute)
	other := newSession(uuid.New(), baseTime, time.Hour)
	for _, s := range []*domain.Session{s1, s2, s3, other} {
		require.NoError(t, sessions.Create(ctx, s))
	}

	list, err := sessions.ListByUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []uuid.UUID{s2.ID, s3.ID, s1.ID}, []uuid.UUID{list[0].ID, list[1].ID, list[2].ID})

	got, err := sessions.GetByToken(ctx, s1.Token)
	require.NoError(t, err)
	assert.Equal(t, s1.ID, got.ID)

	// Only s3 expires before this point.
	n, err := sessions.DeleteExpired(ctx, baseTime.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, sessions.DeleteByToken(ctx, s2.Token))
	require.NoError(t, sessions.DeleteByToken(ctx, s2.Token))
	_, err = sessions.GetByToken(ctx, s2.Token)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	n, err = sessions.DeleteByUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err = sessions.ListByUser(ctx, other.UserID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSessionStore_WithUserLockSerializes(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessionStore(NewDB())
	user := uuid.New()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sessions.WithUserLock(ctx, user, func(ctx context.Context, s store.SessionStore) error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestUserStore_Uniqueness(t *testing.T) {
	ctx := context.Background()
	users := NewUserStore(NewDB())

	alice, err := domain.NewUser("alice", "alice@example.com", "+15550001", "", "hash", baseTime)
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, alice))

	dupName, err := domain.NewUser("ALICE", "other@example.com", "", "", "hash", baseTime)
	require.NoError(t, err)
	assert.ErrorIs(t, users.Create(ctx, dupName), store.ErrUsernameExists)

	dupEmail, err := domain.NewUser("alice2", "alice@example.com", "", "", "hash", baseTime)
	require.NoError(t, err)
	assert.ErrorIs(t, users.Create(ctx, dupEmail), store.ErrEmailExists)

	dupPhone, err := domain.NewUser("alice3", "a3@example.com", "+15550001", "", "hash", baseTime)
	require.NoError(t, err)
	assert.ErrorIs(t, users.Create(ctx, dupPhone), store.ErrPhoneNumberExists)

	got, err := users.GetByUsername(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = users.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}
