package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/drivebox/internal/repository/sqlite"
	"github.com/prn-tf/drivebox/internal/service"
	"github.com/prn-tf/drivebox/internal/session"
	"github.com/prn-tf/drivebox/internal/storage"
)

const testCookieName = "drivebox_session"

// testServer wires a full handler stack against an in-memory database,
// a temp-dir filesystem backend and an in-memory session store.
type testServer struct {
	*httptest.Server
	client *http.Client
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ctx := context.Background()
	logger := zerolog.Nop()

	db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(":memory:"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	backend, err := storage.NewFilesystemBackend(t.TempDir(), logger)
	require.NoError(t, err)

	store := session.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	userService := service.NewUserService(sqlite.NewUserRepository(db), logger)
	sessionService := service.NewSessionService(userService, store, time.Hour, logger)
	fileService := service.NewFileService(sqlite.NewFileRepository(db), backend, logger)

	webHandler, err := NewWebHandler(WebConfig{
		UserService:    userService,
		SessionService: sessionService,
		FileService:    fileService,
		CookieName:     testCookieName,
		MaxUploadSize:  1 << 20,
		Logger:         logger,
	})
	require.NoError(t, err)

	router := NewRouter(RouterConfig{
		WebHandler: webHandler,
		Database:   db,
		StaticDir:  backend.DataDir(),
		Logger:     logger,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	// Redirects are assertions in these tests, never followed.
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testServer{Server: srv, client: client}
}

func (s *testServer) get(t *testing.T, path, token string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, s.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: testCookieName, Value: token})
	}

	resp, err := s.client.Do(req)
	require.NoError(t, err)
	return resp
}

func (s *testServer) postForm(t *testing.T, path string, form url.Values, token string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, s.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: testCookieName, Value: token})
	}

	resp, err := s.client.Do(req)
	require.NoError(t, err)
	return resp
}

func (s *testServer) upload(t *testing.T, token, filename string, content []byte) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, s.URL+"/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.AddCookie(&http.Cookie{Name: testCookieName, Value: token})
	}

	resp, err := s.client.Do(req)
	require.NoError(t, err)
	return resp
}

// register creates a user and returns a logged-in session token.
func (s *testServer) register(t *testing.T, username, password string) string {
	t.Helper()

	resp := s.postForm(t, "/register", url.Values{
		"username": {username},
		"password": {password},
	}, "")
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/login", resp.Header.Get("Location"))

	resp = s.postForm(t, "/login", url.Values{
		"username": {username},
		"password": {password},
	}, "")
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/dashboard", resp.Header.Get("Location"))

	for _, c := range resp.Cookies() {
		if c.Name == testCookieName {
			require.True(t, c.HttpOnly)
			return c.Value
		}
	}
	t.Fatal("login response did not set a session cookie")
	return ""
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestWebHandler_IndexRedirectsToLogin(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.get(t, "/", "")
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestWebHandler_ProtectedRoutesRedirectWithoutSession(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/dashboard", "/download/whatever.txt", "/delete/1"} {
		resp := srv.get(t, path, "")
		resp.Body.Close()
		require.Equal(t, http.StatusFound, resp.StatusCode, "GET %s", path)
		require.Equal(t, "/login", resp.Header.Get("Location"), "GET %s", path)
	}

	resp := srv.upload(t, "", "notes.txt", []byte("data"))
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/login", resp.Header.Get("Location"))

	// A stale token is treated the same as no token.
	resp = srv.get(t, "/dashboard", "stale-token")
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestWebHandler_Register(t *testing.T) {
	srv := newTestServer(t)

	t.Run("duplicate username", func(t *testing.T) {
		srv.register(t, "alice", "correct-horse")

		resp := srv.postForm(t, "/register", url.Values{
			"username": {"alice"},
			"password": {"another-pass"},
		}, "")
		require.Equal(t, http.StatusConflict, resp.StatusCode)
		require.Equal(t, "Username already exists.", readBody(t, resp))
	})

	t.Run("invalid input", func(t *testing.T) {
		resp := srv.postForm(t, "/register", url.Values{
			"username": {"bob"},
			"password": {"short"},
		}, "")
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestWebHandler_Login(t *testing.T) {
	srv := newTestServer(t)
	srv.register(t, "alice", "correct-horse")

	t.Run("wrong password", func(t *testing.T) {
		resp := srv.postForm(t, "/login", url.Values{
			"username": {"alice"},
			"password": {"battery-staple"},
		}, "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "Invalid credentials.", readBody(t, resp))
	})

	t.Run("unknown user gets the same error", func(t *testing.T) {
		resp := srv.postForm(t, "/login", url.Values{
			"username": {"nobody"},
			"password": {"whatever-pass"},
		}, "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "Invalid credentials.", readBody(t, resp))
	})
}

func TestWebHandler_Logout(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "alice", "correct-horse")

	resp := srv.get(t, "/logout", token)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/login", resp.Header.Get("Location"))

	// The session is destroyed server-side, not just the cookie.
	resp = srv.get(t, "/dashboard", token)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestWebHandler_UploadListDownloadDelete(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "alice", "correct-horse")

	resp := srv.upload(t, token, "notes.txt", []byte("hello drivebox"))
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/dashboard", resp.Header.Get("Location"))

	// The dashboard lists the uploaded file by its original name.
	resp = srv.get(t, "/dashboard", token)
	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "notes.txt")
	require.Contains(t, body, "alice")

	// Extract the generated storage name from the download link.
	start := strings.Index(body, `/download/`)
	require.GreaterOrEqual(t, start, 0)
	rest := body[start+len("/download/"):]
	storageName := rest[:strings.IndexByte(rest, '"')]
	require.NotEqual(t, "notes.txt", storageName)

	// Download round-trips the bytes with attachment headers.
	resp = srv.get(t, "/download/"+storageName, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Disposition"), `filename="notes.txt"`)
	require.Equal(t, "hello drivebox", readBody(t, resp))

	// Extract the delete link target.
	start = strings.Index(body, `/delete/`)
	require.GreaterOrEqual(t, start, 0)
	rest = body[start+len("/delete/"):]
	fileID := rest[:strings.IndexByte(rest, '"')]

	resp = srv.get(t, "/delete/"+fileID, token)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/dashboard", resp.Header.Get("Location"))

	// The file is gone from the listing and from download.
	resp = srv.get(t, "/dashboard", token)
	require.NotContains(t, readBody(t, resp), "notes.txt")

	resp = srv.get(t, "/download/"+storageName, token)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Deleting again is a silent no-op.
	resp = srv.get(t, "/delete/"+fileID, token)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func TestWebHandler_OwnershipIsolation(t *testing.T) {
	srv := newTestServer(t)
	aliceToken := srv.register(t, "alice", "correct-horse")
	bobToken := srv.register(t, "bob", "battery-staple")

	resp := srv.upload(t, aliceToken, "secret.txt", []byte("alice only"))
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	// Find the storage name via alice's dashboard.
	resp = srv.get(t, "/dashboard", aliceToken)
	body := readBody(t, resp)
	start := strings.Index(body, `/download/`)
	require.GreaterOrEqual(t, start, 0)
	rest := body[start+len("/download/"):]
	storageName := rest[:strings.IndexByte(rest, '"')]

	// Bob does not see the file and cannot download it. Not found, not
	// forbidden: the response does not reveal that the file exists.
	resp = srv.get(t, "/dashboard", bobToken)
	require.NotContains(t, readBody(t, resp), "secret.txt")

	resp = srv.get(t, "/download/"+storageName, bobToken)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebHandler_UploadTooLarge(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "alice", "correct-horse")

	// Exceeds the 1 MiB test cap; the body is rejected before any blob or
	// record is written.
	resp := srv.upload(t, token, "big.bin", bytes.Repeat([]byte("x"), 2<<20))
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = srv.get(t, "/dashboard", token)
	require.NotContains(t, readBody(t, resp), "big.bin")
}

func TestWebHandler_DeleteMalformedID(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "alice", "correct-horse")

	resp := srv.get(t, "/delete/not-a-number", token)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func TestRouter_Health(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.get(t, "/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"healthy"}`, readBody(t, resp))
}

func TestRouter_StaticUploads(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "alice", "correct-horse")

	resp := srv.upload(t, token, "public.txt", []byte("served statically"))
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp = srv.get(t, "/dashboard", token)
	body := readBody(t, resp)
	start := strings.Index(body, `/download/`)
	require.GreaterOrEqual(t, start, 0)
	rest := body[start+len("/download/"):]
	storageName := rest[:strings.IndexByte(rest, '"')]

	// Blobs are also reachable read-only under /uploads/ by storage name.
	resp = srv.get(t, "/uploads/"+storageName, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "served statically", readBody(t, resp))
}
