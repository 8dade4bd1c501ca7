package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swipetherapy/swipe-therapy/pkg/cards"
	"github.com/swipetherapy/swipe-therapy/pkg/session"
)

const (
	testClientID = "client-abc"
	testHistory  = `[{"question":"Ты часто тревожишься?","answer":true}]`
	testCards    = `[{"id":0,"type":"question","question":"Ты часто тревожишься?","category":"screening"}]`
)

var (
	errTestDB     = errors.New("connection refused")
	testUpdatedAt = time.Date(2026, 4, 2, 9, 15, 0, 0, time.UTC)
	stateColumns  = []string{"client_id", "history", "current_index", "cards", "updated_at"}
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestGet_Found(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows(stateColumns).
		AddRow(testClientID, []byte(testHistory), 1, []byte(testCards), testUpdatedAt)
	mock.ExpectQuery(`SELECT client_id, history, current_index, cards, updated_at FROM therapy_sessions WHERE client_id = \$1`).
		WithArgs(testClientID).
		WillReturnRows(rows)

	st, err := store.Get(context.Background(), testClientID)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, testClientID, st.ClientID)
	assert.Equal(t, 1, st.CurrentIndex)
	assert.Equal(t, []cards.AnswerRecord{{Question: "Ты часто тревожишься?", Answer: true}}, st.History)
	require.Len(t, st.Cards, 1)
	assert.Equal(t, cards.TypeQuestion, st.Cards[0].Type)
	assert.Equal(t, testUpdatedAt, st.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT").WithArgs("nobody").WillReturnError(sql.ErrNoRows)

	st, err := store.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestGet_Errors(t *testing.T) {
	t.Run("query fails", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT").WillReturnError(errTestDB)
		_, err := store.Get(context.Background(), testClientID)
		assert.ErrorIs(t, err, errTestDB)
		assert.ErrorContains(t, err, "scanning session")
	})

	t.Run("corrupt history", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT").WillReturnRows(
			sqlmock.NewRows(stateColumns).AddRow(testClientID, []byte(`{`), 0, []byte(`[]`), testUpdatedAt))
		_, err := store.Get(context.Background(), testClientID)
		assert.ErrorContains(t, err, "decoding session history")
	})

	t.Run("corrupt cards", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT").WillReturnRows(
			sqlmock.NewRows(stateColumns).AddRow(testClientID, []byte(`[]`), 0, []byte(`"x"`), testUpdatedAt))
		_, err := store.Get(context.Background(), testClientID)
		assert.ErrorContains(t, err, "decoding session cards")
	})
}

func TestPut_Upserts(t *testing.T) {
	store, mock := newMockStore(t)

	st := &session.State{
		ClientID:     testClientID,
		History:      []cards.AnswerRecord{{Question: "Ты часто тревожишься?", Answer: true}},
		CurrentIndex: 1,
		Cards:        []cards.Card{{ID: 0, Type: cards.TypeQuestion, Question: "Ты часто тревожишься?", Category: "screening"}},
	}

	mock.ExpectQuery(`INSERT INTO therapy_sessions \(client_id,history,current_index,cards,updated_at\) VALUES \(\$1,\$2,\$3,\$4,NOW\(\)\) ON CONFLICT \(client_id\) DO UPDATE SET`).
		WithArgs(testClientID, []byte(testHistory), 1, []byte(testCards)).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(testUpdatedAt))

	require.NoError(t, store.Put(context.Background(), st))
	assert.Equal(t, testUpdatedAt, st.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPut_NilSlicesStoredAsEmptyArrays(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO therapy_sessions").
		WithArgs(testClientID, []byte("[]"), 0, []byte("[]")).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(testUpdatedAt))

	require.NoError(t, store.Put(context.Background(), &session.State{ClientID: testClientID}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPut_Error(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("INSERT INTO therapy_sessions").WillReturnError(errTestDB)

	err := store.Put(context.Background(), &session.State{ClientID: testClientID})
	assert.ErrorContains(t, err, "upserting session")
	assert.ErrorIs(t, err, errTestDB)
}

func TestDelete(t *testing.T) {
	store, mock := newMockStore(t)

	// A missing row affects nothing and still succeeds.
	mock.ExpectExec(`DELETE FROM therapy_sessions WHERE client_id = \$1`).
		WithArgs(testClientID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM therapy_sessions WHERE client_id = \$1`).
		WithArgs(testClientID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Delete(context.Background(), testClientID))
	require.NoError(t, store.Delete(context.Background(), testClientID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_Error(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("DELETE FROM therapy_sessions").WillReturnError(errTestDB)
	assert.ErrorContains(t, store.Delete(context.Background(), testClientID), "deleting session")
}

func TestCleanup(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`DELETE FROM therapy_sessions WHERE updated_at < \$1`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 4))

	require.NoError(t, store.Cleanup(context.Background(), 30*24*time.Hour))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanup_Error(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("DELETE FROM therapy_sessions").WillReturnError(errTestDB)
	assert.ErrorContains(t, store.Cleanup(context.Background(), time.Hour), "cleaning up sessions")
}

func TestCleanupRoutine_StopsOnClose(t *testing.T) {
	store, mock := newMockStore(t)
	mock.MatchExpectationsInOrder(false)
	for range 100 {
		mock.ExpectExec("DELETE FROM therapy_sessions").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	store.StartCleanupRoutine(5*time.Millisecond, time.Hour)
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, store.Close())
}

func TestClose_WithoutCleanupRoutine(t *testing.T) {
	store, _ := newMockStore(t)
	assert.NoError(t, store.Close())
}
