package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "fleet-assistant/internal/common/errors"
	"fleet-assistant/internal/models"
)

const (
	loadConversationQuery = `SELECT session_id, messages, user_context, lead_score, last_activity, is_active
		FROM chat_conversations WHERE session_id = $1 AND last_activity >= $2`

	upsertConversationQuery = `INSERT INTO chat_conversations
		(session_id, messages, user_context, lead_score, last_activity, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO UPDATE SET
			messages = EXCLUDED.messages,
			user_context = EXCLUDED.user_context,
			lead_score = EXCLUDED.lead_score,
			last_activity = EXCLUDED.last_activity,
			is_active = EXCLUDED.is_active`

	purgeConversationsQuery = `DELETE FROM chat_conversations WHERE last_activity < $1`
)

// PostgresStore keeps one row per session in chat_conversations.
type PostgresStore struct {
	db   *sql.DB
	opts Options
	now  func() time.Time
}

func NewPostgresStore(db *sql.DB, opts Options) *PostgresStore {
	return &PostgresStore{db: db, opts: opts.withDefaults(), now: time.Now}
}

func (s *PostgresStore) Load(ctx context.Context, sessionID string) (*models.ConversationRecord, bool, error) {
	var (
		rec          models.ConversationRecord
		messagesJSON []byte
		contextJSON  []byte
	)

	cutoff := s.now().Add(-s.opts.Retention)
	err := s.db.QueryRowContext(ctx, loadConversationQuery, sessionID, cutoff).Scan(
		&rec.SessionID, &messagesJSON, &contextJSON, &rec.LeadScore, &rec.LastActivity, &rec.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.NewQueryExecutionFailedError("load_conversation", err)
	}

	if err := json.Unmarshal(messagesJSON, &rec.Messages); err != nil {
		return nil, false, nil
	}
	if err := json.Unmarshal(contextJSON, &rec.UserContext); err != nil {
		return nil, false, nil
	}
	rec.LastActivity = rec.LastActivity.UTC()
	return &rec, true, nil
}

func (s *PostgresStore) Save(ctx context.Context, record *models.ConversationRecord) error {
	if record == nil || record.SessionID == "" {
		return fmt.Errorf("save: record has no session id")
	}

	messages := record.Messages
	if messages == nil {
		messages = []models.Message{}
	}
	messagesJSON, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}
	contextJSON, err := json.Marshal(record.UserContext)
	if err != nil {
		return fmt.Errorf("encode user context: %w", err)
	}

	_, err = s.db.ExecContext(ctx, upsertConversationQuery,
		record.SessionID, messagesJSON, contextJSON, record.LeadScore, record.LastActivity.UTC(), record.IsActive,
	)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

func (s *PostgresStore) AppendMessage(ctx context.Context, sessionID string, msg models.Message) error {
	return update(ctx, s, sessionID, s.now(), appendMessage(msg))
}

func (s *PostgresStore) SetUserContext(ctx context.Context, sessionID string, partial models.UserProfile) error {
	return update(ctx, s, sessionID, s.now(), mergeUserContext(partial))
}

func (s *PostgresStore) SetLeadScore(ctx context.Context, sessionID string, score int) error {
	return update(ctx, s, sessionID, s.now(), setLeadScore(score))
}

func (s *PostgresStore) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, purgeConversationsQuery, cutoff.UTC())
	if err != nil {
		return 0, apperrors.NewQueryExecutionFailedError("purge_conversations", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}
