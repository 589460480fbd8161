package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anmoldairy/dairy/internal/repository/memory"
	"github.com/anmoldairy/dairy/internal/server/handlers"
	"github.com/anmoldairy/dairy/internal/service/dairy"
	"github.com/anmoldairy/dairy/internal/service/reporting"
)

func newEngine(t *testing.T) http.Handler {
	t.Helper()
	loc := time.UTC
	mem := memory.New(10)
	require.NoError(t, mem.UpdateRates(context.Background(), 50, 43))
	api := handlers.NewDairyHandler(
		dairy.NewService(mem, loc, nil),
		reporting.NewService(mem, reporting.Options{PageSize: 10, Location: loc}, nil),
		nil, nil, nil)
	return New(api, nil, nil)
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutes(t *testing.T) {
	engine := newEngine(t)

	rec := serve(engine, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(engine, http.MethodGet, "/api/rates", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"vlc":50,"thekadari":43}`, rec.Body.String())

	rec = serve(engine, http.MethodPost, "/api/farmers", `{"name":"Ramesh","milkType":"vlc"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(engine, http.MethodGet, "/api/collections/morning", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(engine, http.MethodGet, "/api/collections/night", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(engine, http.MethodGet, "/api/sales", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRoutes_MessagingDisabled(t *testing.T) {
	engine := newEngine(t)

	rec := serve(engine, http.MethodGet, "/webhook?hub.mode=subscribe", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(engine, http.MethodPost, "/api/farmers/1/notify", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
