package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareCounters(t *testing.T) {
	m := New()

	m.ShareCreated("code")
	m.ShareCreated("code")
	m.ShareCreated("file")
	m.ShareDeleted("file")
	m.SharesExpired("code", 3)
	m.PasswordRejected("code")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.sharesCreated.WithLabelValues("code")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sharesCreated.WithLabelValues("file")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sharesDeleted.WithLabelValues("file")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sharesExpired.WithLabelValues("code")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.passwordsRejected.WithLabelValues("code")))
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	m := New()
	r := mux.NewRouter()
	r.Use(m.Middleware)
	r.HandleFunc("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}).Methods(http.MethodGet)

	for _, id := range []string{"1", "2", "3"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
		require.Equal(t, http.StatusTeapot, w.Code)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/items/{id}", "418")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpDuration))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ShareCreated("file")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `goshare_shares_created_total{kind="file"} 1`), "expected created counter in %s", body)
	assert.Contains(t, string(body), "go_goroutines")
}
