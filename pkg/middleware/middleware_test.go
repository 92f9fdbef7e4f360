package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/kwatuha/imes-sub010/pkg/composables"
)

func TestWithLogger_AttachesRequestLogger(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	var seen *logrus.Entry
	h := WithLogger(log, DefaultLoggerOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = composables.UseLogger(r.Context())
		_, ok := RequestStart(r)
		require.True(t, ok)
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/projects/api/import-data", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "req-1", rec.Header().Get("X-Request-Id"))
	require.Equal(t, "req-1", seen.Data["request-id"])
	last := hook.LastEntry()
	require.Equal(t, "request completed", last.Message)
	require.Equal(t, http.StatusCreated, last.Data["status-code"])
}

func TestWithLogger_RecoversPanic(t *testing.T) {
	log, hook := test.NewNullLogger()
	h := WithLogger(log, DefaultLoggerOptions())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() { h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil)) })
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "INTERNAL_SERVER_ERROR")
	require.Equal(t, "panic recovered in request handler", hook.LastEntry().Message)
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestProvide(t *testing.T) {
	h := Provide(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := composables.UsePool(r.Context())
		require.Error(t, err)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
