package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"flickr-mirror/internal/flickr"
	"flickr-mirror/internal/importer"
	"flickr-mirror/internal/middleware"
	"flickr-mirror/internal/models"
	"flickr-mirror/internal/services"
	"flickr-mirror/internal/testutil"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router http.Handler
	db     *testutil.MemDB
	api    *testutil.FakeFlickr
	users  *services.UserService
	sync   *services.SyncService
	syncs  *SyncHandler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.NewMemDB()
	api := testutil.NewFakeFlickr()
	stores := services.Stores{
		Users:       db.Users(),
		Accounts:    db.Accounts(),
		Photos:      db.Photos(),
		PhotoSets:   db.PhotoSets(),
		Collections: db.Collections(),
		Cache:       db.Cache(),
		Downloads:   db.Downloads(),
		Pending:     db.Pending(),
	}

	tmpl, err := Templates(flickr.NewPageURLs(""))
	require.NoError(t, err)

	users := services.NewUserService(db.Users(), "secret")
	auth := services.NewAuthService(api, api, stores, "read")
	syncService := services.NewSyncService(api, stores, nil, 0)
	hub := services.NewWSHub()

	gallery := NewGalleryHandler(services.NewGalleryService(stores), tmpl)
	authHandler := NewAuthHandler(auth, tmpl)
	userHandler := NewUserHandler(users)
	methodHandler := NewMethodHandler(api, auth)
	syncHandler := NewSyncHandler(context.Background(), auth, syncService)
	wsHandler := NewWebSocketHandler(hub, users)

	r := chi.NewRouter()
	r.Get("/", gallery.Index)
	r.Get("/set/{id}/", gallery.Set)
	r.Get("/photo/{id}/", gallery.Photo)
	r.With(middleware.OptionalAuth(users)).Get("/method/{name}/", methodHandler.Call)
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(users))
		r.Get("/auth/", authHandler.Begin)
		r.Get("/auth/complete/", authHandler.Complete)
	})
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/users", userHandler.CreateUser)
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(users))
			r.Get("/users/me", userHandler.Me)
			r.Post("/sync", syncHandler.Sync)
		})
	})
	r.Get("/ws", wsHandler.HandleWebSocket)

	return &testServer{router: r, db: db, api: api, users: users, sync: syncService, syncs: syncHandler}
}

func (s *testServer) do(method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// createUser calls the API and returns the session cookie it sets
func (s *testServer) createUser(t *testing.T) (*models.User, string) {
	t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/users", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))

	var session string
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			session = c.Value
		}
	}
	require.NotEmpty(t, session)
	return &user, session
}

// link walks the OAuth handshake for the session's user
func (s *testServer) link(t *testing.T, session string) {
	t.Helper()
	s.api.Respond("flickr.auth.oauth.checkToken", testutil.CheckToken("access-token", "read", "35034347371@N01", "bees", "Cal Henderson"))
	s.api.Respond("flickr.test.login", testutil.TestLogin)

	rec := s.do(http.MethodGet, "/auth/", session)
	require.Equal(t, http.StatusFound, rec.Code)
	token := strings.SplitN(rec.Header().Get("Location"), "oauth_token=", 2)[1]
	token = strings.SplitN(token, "&", 2)[0]

	rec = s.do(http.MethodGet, "/auth/complete/?oauth_token="+token+"&oauth_verifier=verifier", session)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/", rec.Header().Get("Location"))
}

func (s *testServer) seedPhotos(t *testing.T, ids ...string) *models.RemoteAccount {
	t.Helper()
	ctx := context.Background()
	account, err := s.db.Accounts().GetOrCreateForUser(ctx, "seed")
	require.NoError(t, err)
	for _, id := range ids {
		_, err := s.sync.CreatePhoto(ctx, account, importer.PhotoPayload{
			Info:  testutil.PhotoInfo(id, "Photo "+id, "bees"),
			Sizes: testutil.Sizes,
		})
		require.NoError(t, err)
	}
	return account
}

func TestGalleryPages(t *testing.T) {
	s := newTestServer(t)
	account := s.seedPhotos(t, "6110054503", "6110054504")

	_, err := s.sync.CreatePhotoSet(context.Background(), account, services.PhotoSetPayload{
		Info:   testutil.PhotoSetInfo("72157600000000101", "Barcelona", "6110054503"),
		Photos: []json.RawMessage{testutil.PhotoSetPhotos("72157600000000101", "6110054503")},
	})
	require.NoError(t, err)

	t.Run("index", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `href="/photo/6110054503/"`)
		assert.Contains(t, body, `href="/set/72157600000000101/"`)
		assert.Contains(t, body, "Barcelona")
		assert.NotContains(t, body, "page 1 of")
	})

	t.Run("set", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/set/72157600000000101/", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `href="/photo/6110054503/?set=72157600000000101"`)
		assert.NotContains(t, rec.Body.String(), `href="/photo/6110054504/`)

		rec = s.do(http.MethodGet, "/set/404/", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("photo", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/photo/6110054503/", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Photo 6110054503")
		assert.Contains(t, body, "https://farm7.staticflickr.com/6185/6110054503_3b4ea87c09_b.jpg")
		assert.Contains(t, body, "A description with a link")
		assert.Contains(t, body, "https://flic.kr/p/aiVCki")

		rec = s.do(http.MethodGet, "/photo/nope/", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCreateUser(t *testing.T) {
	s := newTestServer(t)
	user, session := s.createUser(t)
	assert.Equal(t, user.Token, session)
	assert.True(t, strings.HasPrefix(user.Name, "user-"))

	rec := s.do(http.MethodGet, "/api/v1/users/me", session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), user.ID)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+user.Token)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/users/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(http.MethodGet, "/api/v1/users/me", "forged")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	_, session := s.createUser(t)

	rec := s.do(http.MethodGet, "/auth/", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	s.link(t, session)

	rec = s.do(http.MethodGet, "/auth/", session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Linked to Flickr")
	assert.Contains(t, rec.Body.String(), "35034347371@N01")

	t.Run("revoked token", func(t *testing.T) {
		s.api.Fail("flickr.test.login", 98, "Invalid auth token")
		rec := s.do(http.MethodGet, "/auth/", session)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/auth/", rec.Header().Get("Location"))
	})

	t.Run("bad callback", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/auth/complete/?oauth_token=unknown&oauth_verifier=verifier", session)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestMethodPassthrough(t *testing.T) {
	s := newTestServer(t)
	s.api.Respond("flickr.photos.getSizes", testutil.Sizes)

	rec := s.do(http.MethodGet, "/method/flickr.photos.getSizes/?photo_id=6110054503", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, string(testutil.Sizes), rec.Body.String())

	calls := s.api.Calls("flickr.photos.getSizes")
	require.Len(t, calls, 1)
	assert.Nil(t, calls[0].Cred)
	assert.Equal(t, "6110054503", calls[0].Params["photo_id"])

	_, session := s.createUser(t)
	s.link(t, session)
	rec = s.do(http.MethodGet, "/method/flickr.photos.getSizes/", session)
	require.Equal(t, http.StatusOK, rec.Code)
	calls = s.api.Calls("flickr.photos.getSizes")
	require.Len(t, calls, 2)
	require.NotNil(t, calls[1].Cred)
	assert.Equal(t, "access-token", calls[1].Cred.Token)

	rec = s.do(http.MethodGet, "/method/flickr.nope/", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSync(t *testing.T) {
	s := newTestServer(t)
	_, session := s.createUser(t)

	rec := s.do(http.MethodPost, "/api/v1/sync", session)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "www.flickr.com", location.Host)
	assert.Equal(t, "/services/oauth/authorize", location.Path)
	assert.Equal(t, "request-token-1", location.Query().Get("oauth_token"))
	assert.Equal(t, "read", location.Query().Get("perms"))
	assert.Equal(t, 1, s.db.Pending().Len())

	s.link(t, session)
	s.api.Respond("flickr.people.getInfo", testutil.Person)
	s.api.Respond("flickr.people.getPhotos", testutil.PeoplePhotos("6110054503"))
	s.api.Respond("flickr.photos.getInfo", testutil.PhotoInfo("6110054503", "Bees"))
	s.api.Respond("flickr.photos.getSizes", testutil.Sizes)
	s.api.Respond("flickr.photosets.getList", testutil.PhotoSetList())
	s.api.Respond("flickr.collections.getTree", testutil.CollectionTree)

	rec = s.do(http.MethodPost, "/api/v1/sync", session)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp SyncResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "started", resp.Status)

	s.syncs.Wait()
	photo, err := s.db.Photos().GetByFlickrID(context.Background(), "6110054503")
	require.NoError(t, err)
	assert.Equal(t, resp.AccountID, photo.AccountID)
}

func TestWebSocketRequiresToken(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/ws", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(http.MethodGet, "/ws?token=forged", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
