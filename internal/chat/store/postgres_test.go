package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "fleet-assistant/internal/common/errors"
	"fleet-assistant/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var conversationColumns = []string{"session_id", "messages", "user_context", "lead_score", "last_activity", "is_active"}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func newPostgres(db *sql.DB) *PostgresStore {
	s := NewPostgresStore(db, Options{})
	s.now = func() time.Time { return testNow }
	return s
}

func rowFor(t *testing.T, rec *models.ConversationRecord) *sqlmock.Rows {
	messages, err := json.Marshal(rec.Messages)
	require.NoError(t, err)
	userContext, err := json.Marshal(rec.UserContext)
	require.NoError(t, err)
	return sqlmock.NewRows(conversationColumns).
		AddRow(rec.SessionID, messages, userContext, rec.LeadScore, rec.LastActivity, rec.IsActive)
}

func TestPostgresStore_Load(t *testing.T) {
	db, mock := setupMockDB(t)
	s := newPostgres(db)
	rec := sampleRecord("session_1", testNow.Add(-time.Hour))

	mock.ExpectQuery(`SELECT session_id, messages, user_context, lead_score, last_activity, is_active\s+FROM chat_conversations`).
		WithArgs("session_1", testNow.Add(-DefaultRetention)).
		WillReturnRows(rowFor(t, rec))

	got, ok, err := s.Load(context.Background(), "session_1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadAbsentAndCorrupt(t *testing.T) {
	db, mock := setupMockDB(t)
	s := newPostgres(db)

	mock.ExpectQuery(`FROM chat_conversations`).WithArgs("missing", sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`FROM chat_conversations`).WithArgs("corrupt", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(conversationColumns).
			AddRow("corrupt", []byte("{bad"), []byte("{}"), 0, testNow, true))

	_, ok, err := s.Load(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.Load(context.Background(), "corrupt")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadQueryError(t *testing.T) {
	db, mock := setupMockDB(t)
	s := newPostgres(db)

	mock.ExpectQuery(`FROM chat_conversations`).WillReturnError(errors.New("connection reset"))

	_, _, err := s.Load(context.Background(), "session_1")
	require.Error(t, err)
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeQueryExecutionFailed, stdErr.Code)
}

func TestPostgresStore_AppendMessageUpserts(t *testing.T) {
	db, mock := setupMockDB(t)
	s := newPostgres(db)

	mock.ExpectQuery(`FROM chat_conversations`).WithArgs("session_1", sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO chat_conversations`).
		WithArgs("session_1", sqlmock.AnyArg(), sqlmock.AnyArg(), 0, testNow, true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	msg := models.NewMessage(models.MessageTypeUser, "hello", nil, testNow)
	require.NoError(t, s.AppendMessage(context.Background(), "session_1", msg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveError(t *testing.T) {
	db, mock := setupMockDB(t)
	s := newPostgres(db)

	mock.ExpectExec(`INSERT INTO chat_conversations`).WillReturnError(errors.New("disk full"))

	err := s.Save(context.Background(), sampleRecord("session_1", testNow))
	require.Error(t, err)
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeDatabaseInsertFailed, stdErr.Code)
}

func TestPostgresStore_Purge(t *testing.T) {
	db, mock := setupMockDB(t)
	s := newPostgres(db)
	cutoff := testNow.Add(-DefaultRetention)

	mock.ExpectExec(`DELETE FROM chat_conversations WHERE last_activity < \$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := s.Purge(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
