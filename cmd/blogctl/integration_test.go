package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogclient/internal/api"
	"blogclient/internal/auth"
	"blogclient/internal/blog"
	"blogclient/internal/guard"
	"blogclient/internal/session"
	"blogclient/internal/tokenstore"
)

const testSecret = "integration-secret"

// fakeAPI is a minimal stand-in for the blog backend: a token endpoint and
// an authenticated post collection.
type fakeAPI struct {
	mu     sync.Mutex
	posts  []blog.Post
	nextID int64
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /token/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "correct horse" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": "No active account found with the given credentials"}`))
			return
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": 1,
			"email":   body["username"],
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)
		json.NewEncoder(w).Encode(map[string]string{"access": signed, "refresh": "refresh-1"})
	})

	mux.HandleFunc("GET /blogs/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"count": len(f.posts), "results": f.posts})
	})

	mux.HandleFunc("POST /blogs/", func(w http.ResponseWriter, r *http.Request) {
		claims, ok := f.authorize(w, r)
		if !ok {
			return
		}
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		f.mu.Lock()
		f.nextID++
		post := blog.Post{
			ID:             f.nextID,
			Title:          body["title"],
			Content:        body["content"],
			AuthorID:       int64(claims["user_id"].(float64)),
			AuthorUsername: claims["email"].(string),
			CreatedAt:      time.Now().UTC(),
		}
		f.posts = append(f.posts, post)
		f.mu.Unlock()

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(post)
	})

	return mux
}

func (f *fakeAPI) authorize(w http.ResponseWriter, r *http.Request) (jwt.MapClaims, bool) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(testSecret), nil
	})
	if raw == "" || err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "Given token not valid for any token type"}`))
		return nil, false
	}
	return claims, true
}

type harness struct {
	store    *tokenstore.Store
	sessions *session.Manager
	guard    *guard.Guard
	auth     *auth.Service
	blogs    *blog.Service
}

func newHarness(t *testing.T, serverURL string) *harness {
	t.Helper()
	store := tokenstore.New(filepath.Join(t.TempDir(), "credentials.json"))
	sessions := session.NewManager(store)
	sessions.Restore()

	client := api.NewClient(serverURL,
		func() (string, bool) {
			tokens, _, ok, err := store.Load()
			if err != nil || !ok {
				return "", false
			}
			return tokens.AccessToken, true
		},
		api.WithUnauthorizedHook(sessions.Terminate),
	)

	return &harness{
		store:    store,
		sessions: sessions,
		guard:    guard.New(sessions, "blogctl login"),
		auth:     auth.NewService(client),
		blogs:    blog.NewService(client, sessions),
	}
}

func TestLifecycle_LoginCreateLogout(t *testing.T) {
	server := httptest.NewServer((&fakeAPI{}).handler(t))
	defer server.Close()

	h := newHarness(t, server.URL)
	ctx := context.Background()

	assert.Equal(t, guard.Redirect, h.guard.Check(), "fresh client starts anonymous")

	result, err := h.auth.Login(ctx, "author@example.com", "correct horse")
	require.NoError(t, err)
	require.NoError(t, h.sessions.Establish(result.User, result.Tokens))
	assert.Equal(t, guard.Allow, h.guard.Check())

	post, err := h.blogs.Create(ctx, "first post", "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(1), post.AuthorID)
	assert.Equal(t, "author@example.com", post.AuthorUsername)

	page, err := h.blogs.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalCount)

	h.sessions.Terminate()
	assert.Equal(t, guard.Redirect, h.guard.Check())
	_, _, ok, err := h.store.Load()
	require.NoError(t, err)
	assert.False(t, ok, "logout leaves no credentials behind")
}

func TestLifecycle_BadCredentialsDoNotEstablish(t *testing.T) {
	server := httptest.NewServer((&fakeAPI{}).handler(t))
	defer server.Close()

	h := newHarness(t, server.URL)
	_, err := h.auth.Login(context.Background(), "author@example.com", "wrong")
	require.ErrorIs(t, err, auth.ErrLogin)
	assert.Contains(t, err.Error(), "No active account found")
	assert.False(t, h.sessions.IsAuthenticated())
}

func TestLifecycle_RejectedTokenForcesSingleLogout(t *testing.T) {
	server := httptest.NewServer((&fakeAPI{}).handler(t))
	defer server.Close()

	h := newHarness(t, server.URL)
	ctx := context.Background()

	result, err := h.auth.Login(ctx, "author@example.com", "correct horse")
	require.NoError(t, err)
	require.NoError(t, h.sessions.Establish(result.User, result.Tokens))

	// Sabotage the stored token so the server rejects every write.
	require.NoError(t, h.store.Save(
		tokenstore.TokenPair{AccessToken: "tampered", RefreshToken: "r"},
		result.User,
	))

	var logouts atomic.Int64
	h.sessions.Subscribe(func(state session.State) {
		if state == session.StateAnonymous {
			logouts.Add(1)
		}
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.blogs.Create(ctx, "doomed", "post")
			assert.Error(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), logouts.Load(), "concurrent 401s collapse to one logout")
	assert.False(t, h.sessions.IsAuthenticated())
	_, _, ok, err := h.store.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLifecycle_SessionSurvivesRestart(t *testing.T) {
	server := httptest.NewServer((&fakeAPI{}).handler(t))
	defer server.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.json")

	store := tokenstore.New(path)
	sessions := session.NewManager(store)
	sessions.Restore()
	client := api.NewClient(server.URL, func() (string, bool) { return "", false })
	authSvc := auth.NewService(client)

	result, err := authSvc.Login(context.Background(), "author@example.com", "correct horse")
	require.NoError(t, err)
	require.NoError(t, sessions.Establish(result.User, result.Tokens))

	// A second process: fresh manager over the same credential file.
	restarted := session.NewManager(tokenstore.New(path))
	assert.Equal(t, session.StateAuthenticated, restarted.Restore())
	sess, ok := restarted.Current()
	require.True(t, ok)
	assert.Equal(t, "author@example.com", sess.Email)
}
