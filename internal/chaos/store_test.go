package chaos

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockshock-backend/internal/common/logger"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStore(db, logger.NewTestLogger(t)), mock, db
}

func TestStore_Get_UnknownUserReturnsAbsence(t *testing.T) {
	store, mock, _ := newTestStore(t)

	mock.ExpectQuery("SELECT chaos_json FROM ui_preferences").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	state, err := store.Get(context.Background(), "ghost")

	require.NoError(t, err)
	assert.Nil(t, state)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Get_ReturnsStoredState(t *testing.T) {
	store, mock, _ := newTestStore(t)

	rows := sqlmock.NewRows([]string{"chaos_json"}).
		AddRow(`{"rotation": 180, "theme": "matrix"}`)
	mock.ExpectQuery("SELECT chaos_json FROM ui_preferences").
		WithArgs("user-123").
		WillReturnRows(rows)

	state, err := store.Get(context.Background(), "user-123")

	require.NoError(t, err)
	assert.Equal(t, float64(180), state["rotation"])
	assert.Equal(t, "matrix", state["theme"])
}

func TestStore_Get_EmptyOrCorruptBlobIsAbsence(t *testing.T) {
	tests := []struct {
		name string
		blob interface{}
	}{
		{"empty string", ""},
		{"null column", nil},
		{"not json", "{{nope"},
		{"json array", `[1, 2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock, _ := newTestStore(t)

			rows := sqlmock.NewRows([]string{"chaos_json"}).AddRow(tt.blob)
			mock.ExpectQuery("SELECT chaos_json FROM ui_preferences").
				WithArgs("user-123").
				WillReturnRows(rows)

			state, err := store.Get(context.Background(), "user-123")

			require.NoError(t, err)
			assert.Nil(t, state)
		})
	}
}

func TestStore_Get_EmptyUserID(t *testing.T) {
	store, _, _ := newTestStore(t)

	state, err := store.Get(context.Background(), "")

	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestStore_Set_DeleteThenInsertInOneTransaction(t *testing.T) {
	store, mock, _ := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM ui_preferences").
		WithArgs("user-123").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO ui_preferences").
		WithArgs("user-123", `{"theme":"matrix"}`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := store.Set(context.Background(), "user-123", map[string]interface{}{"theme": "matrix"})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Set_NoOpOnEmptyUserOrNilState(t *testing.T) {
	store, mock, _ := newTestStore(t)

	require.NoError(t, store.Set(context.Background(), "", map[string]interface{}{"a": 1}))
	require.NoError(t, store.Set(context.Background(), "user-123", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Set_RollsBackOnInsertFailure(t *testing.T) {
	store, mock, _ := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM ui_preferences").
		WithArgs("user-123").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO ui_preferences").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := store.Set(context.Background(), "user-123", map[string]interface{}{"theme": "matrix"})

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_EnsureSchema(t *testing.T) {
	store, mock, _ := newTestStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS ui_preferences").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
