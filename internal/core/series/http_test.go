// Copyright (c) 2026 Shelfmark. All rights reserved.

package series_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LaMia-3/shelfmark/internal/core/series"
	"github.com/LaMia-3/shelfmark/internal/platform/middleware"
	"github.com/LaMia-3/shelfmark/pkg/pagination"
)

type seriesListEnvelope struct {
	Data []*series.Series `json:"data"`
	Meta pagination.Meta  `json:"meta"`
}

type seriesEnvelope struct {
	Data *series.Series `json:"data"`
}

type errorEnvelope struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// newSeriesRouter mounts the series routes over a stubbed repository with
// the auth guard disabled.
func newSeriesRouter(t *testing.T, repo *seriesRepoStub) http.Handler {
	t.Helper()

	service, _ := newSeriesService(t, repo)
	return series.NewHandler(service, middleware.Passthrough).Routes()
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(target))
}

/*
TestSeriesRoutes_List verifies filtered, paginated listing over the cached
collection.
*/
func TestSeriesRoutes_List(t *testing.T) {
	tracked := sampleSeries("s-1", "Earthsea Cycle")
	tracked.IsTracked = true
	done := sampleSeries("s-2", "The Expanse")
	done.Status = series.StatusCompleted

	router := newSeriesRouter(t, newSeriesRepoStub(tracked, done))

	tests := []struct {
		name    string
		target  string
		wantIDs []string
	}{
		{"all", "/", []string{"s-1", "s-2"}},
		{"by_name_substring", "/?name=expanse", []string{"s-2"}},
		{"by_status", "/?status=completed", []string{"s-2"}},
		{"by_tracked", "/?tracked=true", []string{"s-1"}},
		{"by_untracked", "/?tracked=false", []string{"s-2"}},
		{"unknown_status_ignored", "/?status=paused", []string{"s-1", "s-2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, tt.target, nil))

			require.Equal(t, http.StatusOK, recorder.Code)

			var envelope seriesListEnvelope
			decodeBody(t, recorder, &envelope)

			ids := make([]string, 0, len(envelope.Data))
			for _, s := range envelope.Data {
				ids = append(ids, s.ID)
			}
			assert.ElementsMatch(t, tt.wantIDs, ids)
			assert.Equal(t, len(tt.wantIDs), envelope.Meta.Total)
		})
	}
}

/*
TestSeriesRoutes_Get covers the single-series fetch and its 404 shape.
*/
func TestSeriesRoutes_Get(t *testing.T) {
	existing := sampleSeries("s-1", "Earthsea Cycle")
	existing.Books = []string{"b-1"}
	router := newSeriesRouter(t, newSeriesRepoStub(existing))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/s-1", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	var envelope seriesEnvelope
	decodeBody(t, recorder, &envelope)
	assert.Equal(t, "s-1", envelope.Data.ID)
	assert.Equal(t, []string{"b-1"}, envelope.Data.Books)

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ghost", nil))

	require.Equal(t, http.StatusNotFound, recorder.Code)

	var failure errorEnvelope
	decodeBody(t, recorder, &failure)
	assert.Equal(t, "NOT_FOUND", failure.Code)
}

/*
TestSeriesRoutes_Create checks payload decoding, enum coercion, and the
forced-empty member list on the created record.
*/
func TestSeriesRoutes_Create(t *testing.T) {
	repo := newSeriesRepoStub()
	router := newSeriesRouter(t, repo)

	payload := `{
		"name": "Earthsea Cycle",
		"author": "Ursula K. Le Guin",
		"total_books": 6,
		"status": "paused",
		"is_tracked": true
	}`

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload)))

	require.Equal(t, http.StatusCreated, recorder.Code)

	var envelope seriesEnvelope
	decodeBody(t, recorder, &envelope)

	created := envelope.Data
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Earthsea Cycle", created.Name)
	assert.Equal(t, series.StatusOngoing, created.Status, "unknown status coerces to ongoing")
	assert.Equal(t, series.OrderPublication, created.ReadingOrder)
	assert.Equal(t, []string{}, created.Books)
	assert.True(t, created.IsTracked)
	assert.Len(t, repo.items, 1)
}

/*
TestSeriesRoutes_CreateValidationFails checks the 400 shape on a rejected
payload.
*/
func TestSeriesRoutes_CreateValidationFails(t *testing.T) {
	router := newSeriesRouter(t, newSeriesRepoStub())

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"total_books": 3}`)))

	require.Equal(t, http.StatusBadRequest, recorder.Code)

	var failure errorEnvelope
	decodeBody(t, recorder, &failure)
	assert.Equal(t, "VALIDATION_ERROR", failure.Code)
}

/*
TestSeriesRoutes_Update verifies that a replacement payload cannot touch
membership or derived counters.
*/
func TestSeriesRoutes_Update(t *testing.T) {
	existing := sampleSeries("s-1", "Earthsea Cycle")
	existing.Books = []string{"b-1", "b-2"}
	existing.CompletedBooks = 1
	existing.ReadingProgress = 0.5

	repo := newSeriesRepoStub(existing)
	router := newSeriesRouter(t, repo)

	payload := `{"name": "Earthsea", "status": "completed", "reading_order": "chronological"}`

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPut, "/s-1", strings.NewReader(payload)))

	require.Equal(t, http.StatusOK, recorder.Code)

	var envelope seriesEnvelope
	decodeBody(t, recorder, &envelope)

	updated := envelope.Data
	assert.Equal(t, "Earthsea", updated.Name)
	assert.Equal(t, series.StatusCompleted, updated.Status)
	assert.Equal(t, series.OrderChronological, updated.ReadingOrder)
	assert.Equal(t, []string{"b-1", "b-2"}, updated.Books)
	assert.Equal(t, 1, updated.CompletedBooks)
	assert.Equal(t, 0.5, updated.ReadingProgress)
	assert.Equal(t, existing.DateAdded, updated.DateAdded)
}

/*
TestSeriesRoutes_Delete covers the destructive path and the repeated 404.
*/
func TestSeriesRoutes_Delete(t *testing.T) {
	repo := newSeriesRepoStub(sampleSeries("s-1", "Earthsea Cycle"))
	router := newSeriesRouter(t, repo)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodDelete, "/s-1", nil))
	require.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Empty(t, repo.items)

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodDelete, "/s-1", nil))
	require.Equal(t, http.StatusNotFound, recorder.Code)
}

/*
TestSeriesRoutes_AddMember exercises the membership endpoint with and
without the optional position body.
*/
func TestSeriesRoutes_AddMember(t *testing.T) {
	repo := newSeriesRepoStub(sampleSeries("s-1", "Earthsea Cycle"))
	router := newSeriesRouter(t, repo)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/s-1/books/b-1", nil))
	require.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/s-1/books/b-2", strings.NewReader(`{"position": 5}`)))
	require.Equal(t, http.StatusNoContent, recorder.Code)

	assert.Equal(t, []string{"s-1/b-1", "s-1/b-2@5"}, repo.added)

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/ghost/books/b-1", nil))
	require.Equal(t, http.StatusNotFound, recorder.Code)
}

/*
TestSeriesRoutes_RemoveMember covers the leave path.
*/
func TestSeriesRoutes_RemoveMember(t *testing.T) {
	repo := newSeriesRepoStub(sampleSeries("s-1", "Earthsea Cycle"))
	router := newSeriesRouter(t, repo)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodDelete, "/s-1/books/b-1", nil))

	require.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, []string{"s-1/b-1"}, repo.removed)
}

/*
TestSeriesRoutes_RefreshProgress verifies the recompute endpoint returns
the refreshed record.
*/
func TestSeriesRoutes_RefreshProgress(t *testing.T) {
	existing := sampleSeries("s-1", "Earthsea Cycle")
	existing.Books = []string{"b-1", "b-2"}

	repo := newSeriesRepoStub(existing)
	router := newSeriesRouter(t, repo)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/s-1/progress", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	var envelope seriesEnvelope
	decodeBody(t, recorder, &envelope)
	assert.Equal(t, 2, envelope.Data.CompletedBooks)
	assert.Equal(t, []string{"s-1"}, repo.refreshed)
}
