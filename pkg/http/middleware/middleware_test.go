package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type denyAfter struct{ n int }

func (d *denyAfter) Allow(string) bool {
	d.n--
	return d.n >= 0
}

func newEcho(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.Use(mw...)
	e.GET("/ok", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/panic", func(echo.Context) error { panic(errors.New("boom")) })
	e.GET("/fail", func(echo.Context) error { return echo.NewHTTPError(http.StatusBadGateway) })
	return e
}

func serve(e *echo.Echo, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRecover(t *testing.T) {
	e := newEcho(Recover(nil))
	rec := serve(e, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRateLimit(t *testing.T) {
	e := newEcho(RateLimit(&denyAfter{n: 1}))
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/ok", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodGet, "/ok", nil).Code)
}

func TestCORS(t *testing.T) {
	e := newEcho(CORS(CORSConfig{AllowOrigins: []string{"https://app.example"}, AllowMethods: []string{"GET"}}))

	rec := serve(e, http.MethodGet, "/ok", map[string]string{"Origin": "https://app.example"})
	assert.Equal(t, "https://app.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "GET", rec.Header().Get(echo.HeaderAccessControlAllowMethods))

	rec = serve(e, http.MethodGet, "/ok", map[string]string{"Origin": "https://evil.example"})
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestMetricsAndLogging(t *testing.T) {
	e := newEcho(Metrics(nil, 0), RequestLogging(nil))
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/ok", nil).Code)
	assert.Equal(t, http.StatusBadGateway, serve(e, http.MethodGet, "/fail", nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(e, http.MethodGet, "/nope", nil).Code)
}
