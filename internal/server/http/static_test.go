package httpserver

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>rank</html>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "script.js"), []byte("console.log(1)"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secrets.env"), []byte("KEY=1"), 0o600))

	s := newTestServer(t, Config{StaticDir: dir}, nil)

	get := func(path string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		return rr
	}

	rr := get("/")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "<html>rank</html>", rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")

	rr = get("/script.js")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "console.log(1)", rr.Body.String())

	assert.Equal(t, http.StatusNotFound, get("/secrets.env").Code, "not whitelisted")
	assert.Equal(t, http.StatusNotFound, get("/styles.css").Code, "whitelisted but missing")
	assert.Equal(t, http.StatusNotFound, get("/..%2Fetc%2Fpasswd").Code)
}

func TestStaticFiles_Disabled(t *testing.T) {
	s := newTestServer(t, Config{}, nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
