package memory

import (
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/google/uuid"
	"github.com/tradereads/tradereads-api/internal/domain"
)

const btreeDegree = 16

// DB holds every record of the in-memory backend.
type DB struct {
	mu sync.RWMutex

	books  map[uuid.UUID]*domain.Book
	trades map[uuid.UUID]*domain.TradeRequest
	// tradesByTime orders trade requests newest first.
	tradesByTime *btree.BTreeG[tradeKey]

	users map[uuid.UUID]*domain.User

	sessions        map[uuid.UUID]*domain.Session
	sessionsByToken map[string]uuid.UUID
	// sessionsByUser orders each user's sessions oldest first, ties by id.
	sessionsByUser *btree.BTreeG[sessionKey]
	// sessionsByExpiry orders all sessions by expiry for the sweep.
	sessionsByExpiry *btree.BTreeG[expiryKey]

	userLocks keyedMutex
}

// NewDB returns an empty database.
func NewDB() *DB {
	return &DB{
		books:            make(map[uuid.UUID]*domain.Book),
		trades:           make(map[uuid.UUID]*domain.TradeRequest),
		tradesByTime:     btree.NewG[tradeKey](btreeDegree, tradeKeyLess),
		users:            make(map[uuid.UUID]*domain.User),
		sessions:         make(map[uuid.UUID]*domain.Session),
		sessionsByToken:  make(map[string]uuid.UUID),
		sessionsByUser:   btree.NewG[sessionKey](btreeDegree, sessionKeyLess),
		sessionsByExpiry: btree.NewG[expiryKey](btreeDegree, expiryKeyLess),
	}
}

type tradeKey struct {
	createdAt time.Time
	id        uuid.UUID
}

func tradeKeyLess(a, b tradeKey) bool {
	if !a.createdAt.Equal(b.createdAt) {
		return a.createdAt.After(b.createdAt)
	}
	return compareIDs(a.id, b.id) < 0
}

type sessionKey struct {
	userID    uuid.UUID
	createdAt time.Time
	id        uuid.UUID
}

func sessionKeyLess(a, b sessionKey) bool {
	if c := compareIDs(a.userID, b.userID); c != 0 {
		return c < 0
	}
	if !a.createdAt.Equal(b.createdAt) {
		return a.createdAt.Before(b.createdAt)
	}
	return compareIDs(a.id, b.id) < 0
}

type expiryKey struct {
	expiresAt time.Time
	id        uuid.UUID
}

func expiryKeyLess(a, b expiryKey) bool {
	if !a.expiresAt.Equal(b.expiresAt) {
		return a.expiresAt.Before(b.expiresAt)
	}
	return compareIDs(a.id, b.id) < 0
}

func compareIDs(a, b uuid.UUID) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// journal collects undo steps for one unit of work.
type journal struct {
	undo []func()
}

// record adds an undo step. A nil journal means the write is not transactional.
func (j *journal) record(step func()) {
	if j != nil {
		j.undo = append(j.undo, step)
	}
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

// keyedMutex hands out one mutex per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// Lock acquires the mutex for key and returns its release function.
func (k *keyedMutex) Lock(key uuid.UUID) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[uuid.UUID]*keyedEntry)
	}
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func cloneBook(b *domain.Book) *domain.Book {
	c := *b
	return &c
}

func cloneTrade(r *domain.TradeRequest) *domain.TradeRequest {
	c := *r
	if r.OfferedBookID != nil {
		id := *r.OfferedBookID
		c.OfferedBookID = &id
	}
	return &c
}

func cloneSession(s *domain.Session) *domain.Session {
	c := *s
	return &c
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	return &c
}
