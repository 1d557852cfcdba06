// Package integration provides end-to-end tests against a running Drivebox
// server. Point DRIVEBOX_TEST_ENDPOINT at the server under test.
package integration

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestConfig holds the configuration for integration tests.
type TestConfig struct {
	Endpoint string
}

// getTestConfig reads test configuration from environment variables.
func getTestConfig() TestConfig {
	return TestConfig{
		Endpoint: getEnv("DRIVEBOX_TEST_ENDPOINT", "http://localhost:3000"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// newWebClient creates an HTTP client that keeps session cookies and does not
// follow redirects, so redirect targets can be asserted directly.
func newWebClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
		Timeout: 30 * time.Second,
	}
}

func postForm(t *testing.T, client *http.Client, endpoint, path string, form url.Values) *http.Response {
	t.Helper()

	resp, err := client.Post(endpoint+path, "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	require.NoError(t, err)
	return resp
}

// TestAccountAndFileLifecycle walks a full user journey: register, log in,
// upload, list, download, delete, log out.
func TestAccountAndFileLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cfg := getTestConfig()
	client := newWebClient(t)

	username := "it-user-" + time.Now().Format("20060102150405")
	password := "integration-pass"
	content := []byte("integration test payload")

	t.Run("Register", func(t *testing.T) {
		resp := postForm(t, client, cfg.Endpoint, "/register", url.Values{
			"username": {username},
			"password": {password},
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Equal(t, "/login", resp.Header.Get("Location"))
	})

	t.Run("Login", func(t *testing.T) {
		resp := postForm(t, client, cfg.Endpoint, "/login", url.Values{
			"username": {username},
			"password": {password},
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Equal(t, "/dashboard", resp.Header.Get("Location"))
	})

	t.Run("Upload", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", "lifecycle.txt")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		resp, err := client.Post(cfg.Endpoint+"/upload", mw.FormDataContentType(), &buf)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Equal(t, "/dashboard", resp.Header.Get("Location"))
	})

	var storageName, fileID string

	t.Run("Dashboard_ListsFile", func(t *testing.T) {
		resp, err := client.Get(cfg.Endpoint + "/dashboard")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		body := string(data)
		require.Contains(t, body, "lifecycle.txt")

		storageName = extractLinkTarget(t, body, "/download/")
		fileID = extractLinkTarget(t, body, "/delete/")
	})

	t.Run("Download", func(t *testing.T) {
		resp, err := client.Get(cfg.Endpoint + "/download/" + storageName)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, resp.Header.Get("Content-Disposition"), `filename="lifecycle.txt"`)

		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, content, data)
	})

	t.Run("Delete", func(t *testing.T) {
		resp, err := client.Get(cfg.Endpoint + "/delete/" + fileID)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Equal(t, "/dashboard", resp.Header.Get("Location"))
	})

	t.Run("Download_NotFoundAfterDelete", func(t *testing.T) {
		resp, err := client.Get(cfg.Endpoint + "/download/" + storageName)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Logout", func(t *testing.T) {
		resp, err := client.Get(cfg.Endpoint + "/logout")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Equal(t, "/login", resp.Header.Get("Location"))

		resp, err = client.Get(cfg.Endpoint + "/dashboard")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Equal(t, "/login", resp.Header.Get("Location"))
	})
}

// TestUnauthenticatedAccess verifies the session gate on protected routes.
func TestUnauthenticatedAccess(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cfg := getTestConfig()
	client := newWebClient(t)

	for _, path := range []string{"/dashboard", "/download/anything.txt", "/delete/1"} {
		resp, err := client.Get(cfg.Endpoint + path)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusFound, resp.StatusCode, "GET %s", path)
		require.Equal(t, "/login", resp.Header.Get("Location"), "GET %s", path)
	}
}

// TestDuplicateRegistration verifies the conflict response for a taken name.
func TestDuplicateRegistration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cfg := getTestConfig()
	client := newWebClient(t)

	username := fmt.Sprintf("it-dup-%d", time.Now().UnixNano())
	form := url.Values{
		"username": {username},
		"password": {"integration-pass"},
	}

	resp := postForm(t, client, cfg.Endpoint, "/register", form)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp = postForm(t, client, cfg.Endpoint, "/register", form)
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "Username already exists.", string(data))
}

// extractLinkTarget pulls the first href target under the given prefix out of
// a rendered dashboard page.
func extractLinkTarget(t *testing.T, body, prefix string) string {
	t.Helper()

	start := strings.Index(body, prefix)
	require.GreaterOrEqual(t, start, 0, "no link with prefix %s", prefix)
	rest := body[start+len(prefix):]
	end := strings.IndexByte(rest, '"')
	require.Greater(t, end, 0)
	return rest[:end]
}
