package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradereads/tradereads-api/internal/api/middleware"
	"github.com/tradereads/tradereads-api/internal/api/shared"
	"github.com/tradereads/tradereads-api/internal/config"
	"github.com/tradereads/tradereads-api/internal/domain"
	"github.com/tradereads/tradereads-api/internal/events"
	"github.com/tradereads/tradereads-api/internal/platform/logger"
	"github.com/tradereads/tradereads-api/internal/platform/memory"
	"github.com/tradereads/tradereads-api/internal/service/auth"
	"github.com/tradereads/tradereads-api/internal/service/ledger"
	"github.com/tradereads/tradereads-api/internal/service/session"
	"github.com/tradereads/tradereads-api/internal/service/trading"
)

const testPassword = "pass-word-123"

type testAPI struct {
	t      *testing.T
	server *httptest.Server
	hub    *StreamHub
}

func newTestAPI(t *testing.T, limiter config.LimiterConfig) *testAPI {
	t.Helper()
	log, _ := logger.NewTestLogger()

	db := memory.NewDB()
	users := memory.NewUserStore(db)
	books := memory.NewBookStore(db)
	trades := memory.NewTradeRequestStore(db)
	sessions := memory.NewSessionStore(db)

	userService, err := auth.NewUserService(users, auth.NewBcryptHasher(4), log)
	require.NoError(t, err)
	jwtService, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:                  "an-adequately-long-signing-secret-for-tests",
		AccessTokenLifetimeMinutes: 10,
	})
	require.NoError(t, err)
	registry, err := session.NewRegistry(sessions, log)
	require.NoError(t, err)
	transactor := memory.NewTransactor(db)
	bookService, err := ledger.NewBookService(transactor, books, log)
	require.NoError(t, err)

	hub := NewStreamHub(log)
	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(hub)
	engine, err := trading.NewEngine(transactor, books, trades, log, trading.WithEmitter(emitter))
	require.NoError(t, err)

	rl := middleware.NewRateLimiter(limiter)
	t.Cleanup(rl.Stop)

	server := httptest.NewServer(NewRouter(RouterDeps{
		Logger:   log,
		Users:    userService,
		JWT:      jwtService,
		Sessions: registry,
		Books:    bookService,
		Trades:   engine,
		Stream:   hub,
		Limiter:  rl,
	}))
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})
	return &testAPI{t: t, server: server, hub: hub}
}

type response struct {
	status int
	body   []byte
}

func (r response) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body, v), string(r.body))
}

func (r response) errorMessage(t *testing.T) string {
	t.Helper()
	var body shared.ErrorResponse
	r.decode(t, &body)
	return body.Error
}

func (a *testAPI) do(method, path, token string, body any, headers ...string) response {
	a.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := a.server.Client().Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return response{status: resp.StatusCode, body: data}
}

type member struct {
	id           uuid.UUID
	accessToken  string
	refreshToken string
}

func (a *testAPI) register(username string) {
	a.t.Helper()
	resp := a.do(http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Username: username,
		Password: testPassword,
		Email:    username + "@example.com",
	})
	require.Equal(a.t, http.StatusCreated, resp.status, string(resp.body))
}

func (a *testAPI) login(username string, headers ...string) member {
	a.t.Helper()
	resp := a.do(http.MethodPost, "/api/auth/login", "",
		LoginRequest{Username: username, Password: testPassword}, headers...)
	require.Equal(a.t, http.StatusOK, resp.status, string(resp.body))

	var body LoginResponse
	resp.decode(a.t, &body)
	return member{id: body.User.ID, accessToken: body.Tokens.AccessToken, refreshToken: body.Tokens.RefreshToken}
}

func (a *testAPI) member(username string) member {
	a.t.Helper()
	a.register(username)
	return a.login(username)
}

func (a *testAPI) listBook(m member, title string, listing domain.ListingType) *domain.Book {
	a.t.Helper()
	resp := a.do(http.MethodPost, "/api/books/my-books", m.accessToken, BookRequest{
		Title:       title,
		Author:      "Ursula K. Le Guin",
		ISBN:        uuid.NewString(),
		Genre:       "Fiction",
		ListingType: string(listing),
	})
	require.Equal(a.t, http.StatusCreated, resp.status, string(resp.body))
	var book domain.Book
	resp.decode(a.t, &book)
	return &book
}

func defaultLimiter() config.LimiterConfig {
	return config.LimiterConfig{Enabled: false}
}

func TestAuthFlow(t *testing.T) {
	a := newTestAPI(t, defaultLimiter())

	resp := a.do(http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Username: "reader", Password: testPassword, Email: "reader@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.status)
	assert.JSONEq(t, `{"message":"User registered successfully"}`, string(resp.body))

	resp = a.do(http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Username: "reader", Password: testPassword, Email: "other@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "Username already exists", resp.errorMessage(t))

	resp = a.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "reader", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Equal(t, "Invalid username or password", resp.errorMessage(t))

	resp = a.do(http.MethodPost, "/api/auth/login", "",
		LoginRequest{Username: "reader", Password: testPassword},
		"User-Agent", "BookClient/1.0", "X-Forwarded-For", "203.0.113.9")
	require.Equal(t, http.StatusOK, resp.status)
	var login LoginResponse
	resp.decode(t, &login)
	assert.Equal(t, "Login successful", login.Message)
	assert.Equal(t, "reader", login.User.Username)
	assert.NotEmpty(t, login.Tokens.AccessToken)
	assert.NotEmpty(t, login.Tokens.RefreshToken)
	assert.Equal(t, int64(600), login.Tokens.ExpiresIn)
	assert.NotContains(t, string(resp.body), "hashed", "password hash must not be serialized")

	resp = a.do(http.MethodGet, "/api/auth/sessions", login.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	var sessions []SessionResponse
	resp.decode(t, &sessions)
	require.Len(t, sessions, 1)
	assert.Equal(t, "BookClient/1.0", sessions[0].DeviceInfo)
	assert.Equal(t, "203.0.113.9", sessions[0].IPAddress)
	assert.NotContains(t, string(resp.body), login.Tokens.RefreshToken)

	resp = a.do(http.MethodPost, "/api/auth/refresh-token", "", RefreshTokenRequest{RefreshToken: login.Tokens.RefreshToken})
	require.Equal(t, http.StatusOK, resp.status)
	var refreshed RefreshTokenResponse
	resp.decode(t, &refreshed)
	assert.Equal(t, "Bearer", refreshed.TokenType)
	assert.NotEmpty(t, refreshed.AccessToken)

	resp = a.do(http.MethodPost, "/api/auth/refresh-token", "", RefreshTokenRequest{RefreshToken: "not-a-session"})
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Equal(t, "Invalid or expired refresh token", resp.errorMessage(t))

	resp = a.do(http.MethodPost, "/api/auth/refresh-token", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "Refresh token required", resp.errorMessage(t))
}

func TestLogout(t *testing.T) {
	a := newTestAPI(t, defaultLimiter())
	alice := a.member("alice")
	bob := a.member("bobby")

	resp := a.do(http.MethodPost, "/api/auth/logout", alice.accessToken, `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "Refresh token required", resp.errorMessage(t))

	resp = a.do(http.MethodPost, "/api/auth/logout", alice.accessToken, RefreshTokenRequest{RefreshToken: bob.refreshToken})
	assert.Equal(t, http.StatusForbidden, resp.status)
	assert.Equal(t, "Invalid token for this user", resp.errorMessage(t))

	resp = a.do(http.MethodPost, "/api/auth/logout", "", RefreshTokenRequest{RefreshToken: alice.refreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.status)

	resp = a.do(http.MethodPost, "/api/auth/logout", alice.accessToken, RefreshTokenRequest{RefreshToken: alice.refreshToken})
	require.Equal(t, http.StatusOK, resp.status)
	assert.JSONEq(t, `{"message":"Logout successful"}`, string(resp.body))

	resp = a.do(http.MethodPost, "/api/auth/refresh-token", "", RefreshTokenRequest{RefreshToken: alice.refreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.status)

	// Bob's session is untouched, then every one of his devices is logged out.
	second := a.login("bobby")
	resp = a.do(http.MethodPost, "/api/auth/logout-all", bob.accessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.JSONEq(t, `{"message":"Logged out from all device"}`, string(resp.body))
	for _, token := range []string{bob.refreshToken, second.refreshToken} {
		resp = a.do(http.MethodPost, "/api/auth/refresh-token", "", RefreshTokenRequest{RefreshToken: token})
		assert.Equal(t, http.StatusUnauthorized, resp.status)
	}
}

func TestLogin_SessionCap(t *testing.T) {
	a := newTestAPI(t, defaultLimiter())
	a.register("reader")

	var first member
	for i := 0; i < session.DefaultMaxSessions+1; i++ {
		m := a.login("reader")
		if i == 0 {
			first = m
		}
	}

	resp := a.do(http.MethodGet, "/api/auth/sessions", first.accessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	var sessions []SessionResponse
	resp.decode(t, &sessions)
	assert.Len(t, sessions, session.DefaultMaxSessions)

	resp = a.do(http.MethodPost, "/api/auth/refresh-token", "", RefreshTokenRequest{RefreshToken: first.refreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.status, "the oldest session is evicted")
}

func TestLogin_RateLimited(t *testing.T) {
	a := newTestAPI(t, config.LimiterConfig{Enabled: true, RPS: 0.001, Burst: 2})
	a.register("reader")

	resp := a.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "reader", Password: testPassword})
	assert.Equal(t, http.StatusOK, resp.status)
	resp = a.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "reader", Password: testPassword})
	assert.Equal(t, http.StatusTooManyRequests, resp.status)
	assert.Equal(t, "Rate limit exceeded", resp.errorMessage(t))

	// Refresh is not limited.
	resp = a.do(http.MethodPost, "/api/auth/refresh-token", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.status)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	a := newTestAPI(t, defaultLimiter())
	for _, path := range []string{"/api/trades/outgoing", "/api/books/my-books", "/api/auth/sessions", "/api/trades/counts"} {
		resp := a.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.status, path)
	}
	resp := a.do(http.MethodGet, "/api/trades/outgoing", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.status)
}

func TestBooks(t *testing.T) {
	a := newTestAPI(t, defaultLimiter())
	alice := a.member("alice")
	bob := a.member("bobby")

	dune := a.listBook(alice, "Dune", domain.ListingTypeTrade)
	a.listBook(alice, "Emma", domain.ListingTypeGiveaway)
	a.listBook(bob, "Beloved", domain.ListingTypeTrade)

	resp := a.do(http.MethodPost, "/api/books/my-books", alice.accessToken, BookRequest{
		Title: "Dune", Author: "Frank Herbert", ISBN: dune.ISBN, ListingType: "TRADE",
	})
	assert.Equal(t, http.StatusConflict, resp.status)
	assert.Equal(t, "You already have a book with this ISBN", resp.errorMessage(t))

	resp = a.do(http.MethodPost, "/api/books/my-books", alice.accessToken, BookRequest{Title: "No listing", Author: "A", ISBN: "1"})
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "listing_type is required", resp.errorMessage(t))

	var books []domain.Book
	resp = a.do(http.MethodGet, "/api/books?listingType=trade", "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	resp.decode(t, &books)
	assert.Len(t, books, 2)

	resp = a.do(http.MethodGet, "/api/books?status=lost", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "Invalid status", resp.errorMessage(t))

	resp = a.do(http.MethodGet, "/api/books/available?excludeUserId="+alice.id.String(), "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	resp.decode(t, &books)
	require.Len(t, books, 1)
	assert.Equal(t, "Beloved", books[0].Title)

	resp = a.do(http.MethodGet, "/api/books/my-books?listingType=GIVEAWAY", alice.accessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	resp.decode(t, &books)
	require.Len(t, books, 1)
	assert.Equal(t, "Emma", books[0].Title)

	resp = a.do(http.MethodGet, "/api/books/"+dune.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	resp = a.do(http.MethodGet, "/api/books/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
	assert.Equal(t, "Book not found", resp.errorMessage(t))
	resp = a.do(http.MethodGet, "/api/books/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.status)

	resp = a.do(http.MethodPut, "/api/books/my-books/"+dune.ID.String(), alice.accessToken, BookRequest{
		Title: "Dune Messiah", Author: "Frank Herbert", ISBN: dune.ISBN, ListingType: "TRADE",
	})
	require.Equal(t, http.StatusOK, resp.status)
	var updated domain.Book
	resp.decode(t, &updated)
	assert.Equal(t, "Dune Messiah", updated.Title)

	resp = a.do(http.MethodDelete, "/api/books/my-books/"+dune.ID.String(), bob.accessToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.status, "only the owner may delete")

	resp = a.do(http.MethodDelete, "/api/books/my-books/"+dune.ID.String(), alice.accessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.JSONEq(t, `{"message":"Book deleted successfully"}`, string(resp.body))
}

func createTrade(t *testing.T, a *testAPI, m member, payload TradeRequestPayload) *domain.TradeRequest {
	t.Helper()
	resp := a.do(http.MethodPost, "/api/trades", m.accessToken, payload)
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	var body TradeRequestResponse
	resp.decode(t, &body)
	assert.Equal(t, "Trade request created successfully", body.Message)
	return body.TradeRequest
}

func TestTradeLifecycle(t *testing.T) {
	a := newTestAPI(t, defaultLimiter())
	alice := a.member("alice")
	bob := a.member("bobby")

	dune := a.listBook(alice, "Dune", domain.ListingTypeTrade)
	beloved := a.listBook(bob, "Beloved", domain.ListingTypeTrade)

	resp := a.do(http.MethodPost, "/api/trades", bob.accessToken, TradeRequestPayload{RequestedBookID: dune.ID})
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "This book requires a trade offer", resp.errorMessage(t))

	resp = a.do(http.MethodPost, "/api/trades", bob.accessToken, `{"message":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "requested_book_id is required", resp.errorMessage(t))

	trade := createTrade(t, a, bob, TradeRequestPayload{
		RequestedBookID: dune.ID,
		OfferedBookID:   &beloved.ID,
		Message:         "Swap?",
	})
	assert.Equal(t, domain.TradeStatusPending, trade.Status)
	assert.Equal(t, alice.id, trade.OwnerID)

	resp = a.do(http.MethodPost, "/api/trades", bob.accessToken, TradeRequestPayload{RequestedBookID: dune.ID, OfferedBookID: &beloved.ID})
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "You already have a pending request for this book", resp.errorMessage(t))

	resp = a.do(http.MethodGet, "/api/trades/counts", alice.accessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	var counts domain.TradeCounts
	resp.decode(t, &counts)
	assert.Equal(t, domain.TradeCounts{PendingIncoming: 1, PendingOutgoing: 0}, counts)

	var listed []domain.TradeRequest
	resp = a.do(http.MethodGet, "/api/trades/incoming?status=pending", alice.accessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	resp.decode(t, &listed)
	require.Len(t, listed, 1)
	resp = a.do(http.MethodGet, "/api/trades/outgoing?status=accepted", bob.accessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.JSONEq(t, `[]`, string(resp.body))
	resp = a.do(http.MethodGet, "/api/trades/outgoing?status=maybe", bob.accessToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.status)

	resp = a.do(http.MethodGet, "/api/trades/book/"+dune.ID.String(), alice.accessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	resp.decode(t, &listed)
	assert.Len(t, listed, 1)
	resp = a.do(http.MethodGet, "/api/trades/book/"+dune.ID.String(), bob.accessToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.status)

	path := "/api/trades/" + trade.ID.String()
	resp = a.do(http.MethodPut, path+"/accept", bob.accessToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.status, "only the owner sees the accept action")

	resp = a.do(http.MethodPut, path+"/accept", alice.accessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	var accepted TradeRequestResponse
	resp.decode(t, &accepted)
	assert.Equal(t, "Trade request accepted successfully", accepted.Message)
	assert.Equal(t, domain.TradeStatusAccepted, accepted.TradeRequest.Status)

	var book domain.Book
	for _, id := range []uuid.UUID{dune.ID, beloved.ID} {
		resp = a.do(http.MethodGet, "/api/books/"+id.String(), "", nil)
		resp.decode(t, &book)
		assert.Equal(t, domain.BookStatusTraded, book.Status)
	}

	resp = a.do(http.MethodPut, path+"/decline", alice.accessToken, nil)
	assert.Equal(t, http.StatusConflict, resp.status)
	assert.Equal(t, "Trade request cannot move from ACCEPTED to DECLINED", resp.errorMessage(t))

	resp = a.do(http.MethodDelete, path, bob.accessToken, nil)
	assert.Equal(t, http.StatusConflict, resp.status)
	assert.Equal(t, "Can only delete pending trade requests", resp.errorMessage(t))

	resp = a.do(http.MethodPut, path+"/complete", bob.accessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	var completed TradeRequestResponse
	resp.decode(t, &completed)
	assert.Equal(t, domain.TradeStatusCompleted, completed.TradeRequest.Status)

	resp = a.do(http.MethodGet, path, alice.accessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)

	carol := a.member("carol")
	resp = a.do(http.MethodGet, path, carol.accessToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
	assert.Equal(t, "Trade request not found", resp.errorMessage(t))

	resp = a.do(http.MethodDelete, "/api/books/my-books/"+dune.ID.String(), alice.accessToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "Book has trade history and cannot be deleted", resp.errorMessage(t))
	resp = a.do(http.MethodGet, path, bob.accessToken, nil)
	assert.Equal(t, http.StatusOK, resp.status, "settled trades outlive delete attempts")
}

func TestTradeCancelAndDelete(t *testing.T) {
	a := newTestAPI(t, defaultLimiter())
	alice := a.member("alice")
	bob := a.member("bobby")
	emma := a.listBook(alice, "Emma", domain.ListingTypeGiveaway)

	first := createTrade(t, a, bob, TradeRequestPayload{RequestedBookID: emma.ID})
	resp := a.do(http.MethodPut, "/api/trades/"+first.ID.String()+"/cancel", bob.accessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	var cancelled TradeRequestResponse
	resp.decode(t, &cancelled)
	assert.Equal(t, "Trade request cancelled", cancelled.Message)
	assert.Equal(t, domain.TradeStatusCancelled, cancelled.TradeRequest.Status)

	second := createTrade(t, a, bob, TradeRequestPayload{RequestedBookID: emma.ID})
	resp = a.do(http.MethodDelete, "/api/trades/"+second.ID.String(), alice.accessToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.status, "only the requester may delete")

	resp = a.do(http.MethodDelete, "/api/trades/"+second.ID.String(), bob.accessToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.JSONEq(t, `{"message":"Trade request deleted successfully"}`, string(resp.body))

	resp = a.do(http.MethodGet, "/api/trades/"+second.ID.String(), bob.accessToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
}

func TestTradeStream(t *testing.T) {
	a := newTestAPI(t, defaultLimiter())
	alice := a.member("alice")
	bob := a.member("bobby")
	emma := a.listBook(alice, "Emma", domain.ListingTypeGiveaway)

	url := "ws" + strings.TrimPrefix(a.server.URL, "http") + "/api/trades/stream?" +
		middleware.AccessTokenQueryParam + "=" + alice.accessToken
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	resp.Body.Close()
	require.Eventually(t, func() bool { return a.hub.Connections(alice.id) == 1 }, time.Second, 5*time.Millisecond)

	trade := createTrade(t, a, bob, TradeRequestPayload{RequestedBookID: emma.ID})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event events.TradeEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, events.TradeCreated, event.Type)
	assert.Equal(t, bob.id, event.ActorID)
	require.NotNil(t, event.Trade)
	assert.Equal(t, trade.ID, event.Trade.ID)

	_, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(a.server.URL, "http")+"/api/trades/stream", nil)
	assert.Error(t, err, "the stream requires a token")
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t, defaultLimiter())
	for _, path := range []string{"/health", "/api/health"} {
		resp := a.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, resp.status)
		assert.JSONEq(t, `{"status":"ok"}`, string(resp.body))
	}
}
