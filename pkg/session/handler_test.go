package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestPath = "/api/v1/session"

// failingStore fails every operation.
type failingStore struct{}

var errStoreDown = errors.New("database is down")

func (failingStore) Get(context.Context, string) (*State, error)  { return nil, errStoreDown }
func (failingStore) Put(context.Context, *State) error            { return errStoreDown }
func (failingStore) Delete(context.Context, string) error         { return errStoreDown }
func (failingStore) Cleanup(context.Context, time.Duration) error { return errStoreDown }
func (failingStore) Close() error                                 { return nil }

func newTestHandler(store Store) *Handler {
	return NewHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_GetUnseenClient(t *testing.T) {
	h := newTestHandler(NewMemoryStore())

	rec := do(h, http.MethodGet, handlerTestPath+"?client_id=abc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"client_id":"abc","history":[],"current_index":0,"cards":[]}`, rec.Body.String())
}

func TestHandler_GetWithoutClientID(t *testing.T) {
	h := newTestHandler(NewMemoryStore())

	for _, target := range []string{handlerTestPath, handlerTestPath + "?client_id=%20"} {
		rec := do(h, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"client_id required"}`, rec.Body.String())
	}
}

func TestHandler_PostThenGet(t *testing.T) {
	h := newTestHandler(NewMemoryStore())

	body := `{"client_id":"abc","history":[{"question":"Q1","answer":true}],"current_index":1,
		"cards":[{"id":0,"type":"question","question":"Q1","category":"screening"},
		         {"id":1,"type":"insight","question":"Итог","insight":"Ты держишься.","category":"summary: triggers"}]}`
	rec := do(h, http.MethodPost, handlerTestPath, body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = do(h, http.MethodGet, handlerTestPath+"?client_id=abc", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var st State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "abc", st.ClientID)
	assert.Equal(t, 1, st.CurrentIndex)
	require.Len(t, st.History, 1)
	assert.True(t, st.History[0].Answer)
	require.Len(t, st.Cards, 2)
	assert.Equal(t, "Ты держишься.", st.Cards[1].Insight)
	assert.False(t, st.UpdatedAt.IsZero())
}

func TestHandler_PostBadRequests(t *testing.T) {
	h := newTestHandler(NewMemoryStore())

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "missing client id", body: `{"history":[]}`, wantErr: "client_id required"},
		{name: "blank client id", body: `{"client_id":"  "}`, wantErr: "client_id required"},
		{name: "invalid json", body: `{"client_id":`, wantErr: "invalid request body"},
		{name: "negative index", body: `{"client_id":"a","current_index":-1}`, wantErr: "current_index"},
		{name: "bad card type", body: `{"client_id":"a","cards":[{"id":0,"type":"poll","question":"Q","category":"c"}]}`, wantErr: "invalid cards"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodPost, handlerTestPath, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantErr)
		})
	}
}

func TestHandler_DeleteIdempotent(t *testing.T) {
	store := NewMemoryStore()
	h := newTestHandler(store)
	require.NoError(t, store.Put(context.Background(), newTestState("abc")))

	for range 2 {
		rec := do(h, http.MethodDelete, handlerTestPath+"?client_id=abc", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	}

	rec := do(h, http.MethodGet, handlerTestPath+"?client_id=abc", "")
	assert.JSONEq(t, `{"client_id":"abc","history":[],"current_index":0,"cards":[]}`, rec.Body.String())
}

func TestHandler_DeleteWithoutClientID(t *testing.T) {
	rec := do(newTestHandler(NewMemoryStore()), http.MethodDelete, handlerTestPath, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_StoreFaults(t *testing.T) {
	h := newTestHandler(failingStore{})

	for _, tc := range []struct{ method, target, body string }{
		{http.MethodGet, handlerTestPath + "?client_id=abc", ""},
		{http.MethodPost, handlerTestPath, `{"client_id":"abc"}`},
		{http.MethodDelete, handlerTestPath + "?client_id=abc", ""},
	} {
		rec := do(h, tc.method, tc.target, tc.body)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, tc.method)
		assert.JSONEq(t, `{"error":"session store unavailable"}`, rec.Body.String(), tc.method)
	}
}

func TestHandler_Methods(t *testing.T) {
	h := newTestHandler(NewMemoryStore())

	rec := do(h, http.MethodOptions, handlerTestPath, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = do(h, http.MethodPut, handlerTestPath, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.JSONEq(t, `{"error":"Method not allowed"}`, rec.Body.String())
}
