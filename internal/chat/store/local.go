package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"fleet-assistant/internal/common/kv"
	"fleet-assistant/internal/common/logger"
	"fleet-assistant/internal/common/metrics"
	"fleet-assistant/internal/models"
)

const DefaultNamespace = "fleetchat_conversations"

type ownerKey struct{}

// WithOwner scopes local conversation storage to one visitor.
func WithOwner(ctx context.Context, visitorID string) context.Context {
	return context.WithValue(ctx, ownerKey{}, visitorID)
}

func OwnerFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ownerKey{}).(string)
	return id
}

// LocalStore keeps each visitor's records in one JSON array under
// "<namespace>:<visitor>", capped at Capacity per visitor. Sessions without a
// visitor get a key of their own. When the backend fails it keeps serving
// from the last in-memory snapshot of each key.
type LocalStore struct {
	mu        sync.Mutex
	backend   kv.Backend
	namespace string
	opts      Options
	memory    map[string]*boundedRecords
	logger    logger.Logger
	now       func() time.Time
}

func NewLocalStore(backend kv.Backend, namespace string, opts Options, log logger.Logger) *LocalStore {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &LocalStore{
		backend:   backend,
		namespace: namespace,
		opts:      opts.withDefaults(),
		memory:    make(map[string]*boundedRecords),
		logger:    log.WithFields(map[string]interface{}{"component": "local-store"}),
		now:       time.Now,
	}
}

func (s *LocalStore) scopeKey(ctx context.Context, sessionID string) string {
	if owner := OwnerFromContext(ctx); owner != "" {
		return s.namespace + ":" + owner
	}
	return s.namespace + ":session:" + sessionID
}

func (s *LocalStore) Load(ctx context.Context, sessionID string) (*models.ConversationRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lockedLocal{s}.Load(ctx, sessionID)
}

func (s *LocalStore) Save(ctx context.Context, record *models.ConversationRecord) error {
	if record == nil || record.SessionID == "" {
		return fmt.Errorf("save: record has no session id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx, record)
}

func (s *LocalStore) AppendMessage(ctx context.Context, sessionID string, msg models.Message) error {
	return s.mutate(ctx, sessionID, appendMessage(msg))
}

func (s *LocalStore) SetUserContext(ctx context.Context, sessionID string, partial models.UserProfile) error {
	return s.mutate(ctx, sessionID, mergeUserContext(partial))
}

func (s *LocalStore) SetLeadScore(ctx context.Context, sessionID string, score int) error {
	return s.mutate(ctx, sessionID, setLeadScore(score))
}

// Purge drops records inactive since before cutoff across every visitor key.
func (s *LocalStore) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.scopeKeys(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range keys {
		all := s.readAll(ctx, key)
		n := all.pruneBefore(cutoff)
		if n == 0 {
			continue
		}
		removed += n
		if err := s.writeAll(ctx, key, all); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// scopeKeys returns the persisted keys plus any held only in memory.
func (s *LocalStore) scopeKeys(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{}, len(s.memory))
	keys := make([]string, 0, len(s.memory))
	for key := range s.memory {
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	stored, err := s.backend.Keys(ctx, s.namespace+":*")
	if err != nil {
		metrics.StoreErrors.WithLabelValues("local", "scan").Inc()
		s.logger.Warn("conversation storage unavailable, purging memory only", map[string]interface{}{"error": err})
		return keys, nil
	}
	for _, key := range stored {
		if _, ok := seen[key]; !ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// mutate holds the lock for the whole read-modify-write so concurrent
// sessions sharing a visitor key do not overwrite each other.
func (s *LocalStore) mutate(ctx context.Context, sessionID string, fn func(*models.ConversationRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return update(ctx, lockedLocal{s}, sessionID, s.now(), fn)
}

type lockedLocal struct{ s *LocalStore }

func (l lockedLocal) Load(ctx context.Context, sessionID string) (*models.ConversationRecord, bool, error) {
	rec := l.s.readAll(ctx, l.s.scopeKey(ctx, sessionID)).get(sessionID)
	if rec == nil || expired(rec, l.s.now(), l.s.opts.Retention) {
		return nil, false, nil
	}
	return rec.Clone(), true, nil
}

func (l lockedLocal) Save(ctx context.Context, record *models.ConversationRecord) error {
	return l.s.saveLocked(ctx, record)
}

func (s *LocalStore) saveLocked(ctx context.Context, record *models.ConversationRecord) error {
	key := s.scopeKey(ctx, record.SessionID)
	all := s.readAll(ctx, key)
	all.pruneBefore(s.now().Add(-s.opts.Retention))
	if evicted := all.put(record.Clone()); len(evicted) > 0 {
		s.logger.Debug("evicted conversations over capacity", map[string]interface{}{
			"key":        key,
			"sessionIds": evicted,
		})
	}
	return s.writeAll(ctx, key, all)
}

// readAll returns a private copy of the records under key. Missing or corrupt
// data yields an empty set; an unreachable backend yields the memory snapshot.
func (s *LocalStore) readAll(ctx context.Context, key string) *boundedRecords {
	raw, err := s.backend.Get(ctx, key)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		return newBoundedRecords(s.opts.Capacity)
	case err != nil:
		metrics.StoreErrors.WithLabelValues("local", "read").Inc()
		s.logger.Warn("conversation storage unavailable, using memory", map[string]interface{}{"error": err})
		if mem, ok := s.memory[key]; ok {
			return mem.clone()
		}
		return newBoundedRecords(s.opts.Capacity)
	}

	records, err := decodeRecords(raw)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("local", "decode").Inc()
		s.logger.Warn("discarding corrupt conversation data", map[string]interface{}{"key": key, "error": err})
		if delErr := s.backend.Del(ctx, key); delErr != nil {
			s.logger.Debug("corrupt conversation data not removed", map[string]interface{}{"error": delErr})
		}
		return newBoundedRecords(s.opts.Capacity)
	}

	all := newBoundedRecords(s.opts.Capacity)
	for _, rec := range records {
		all.put(rec)
	}
	return all
}

func (s *LocalStore) writeAll(ctx context.Context, key string, all *boundedRecords) error {
	if all.len() == 0 {
		delete(s.memory, key)
		if err := s.backend.Del(ctx, key); err != nil {
			metrics.StoreErrors.WithLabelValues("local", "write").Inc()
			s.logger.Warn("conversation storage unavailable, empty key kept", map[string]interface{}{"error": err})
		}
		return nil
	}
	s.memory[key] = all.clone()

	data, err := json.Marshal(all.records())
	if err != nil {
		return fmt.Errorf("encode conversations: %w", err)
	}
	if err := s.backend.Set(ctx, key, string(data), 0); err != nil {
		metrics.StoreErrors.WithLabelValues("local", "write").Inc()
		s.logger.Warn("conversation storage unavailable, keeping memory copy", map[string]interface{}{"error": err})
	}
	return nil
}

// decodeRecords parses the namespace array. Entries that do not decode or
// carry no session id are skipped.
func decodeRecords(raw string) ([]*models.ConversationRecord, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, err
	}

	out := make([]*models.ConversationRecord, 0, len(entries))
	for _, entry := range entries {
		var rec models.ConversationRecord
		if err := json.Unmarshal(entry, &rec); err != nil || rec.SessionID == "" {
			continue
		}
		out = append(out, &rec)
	}
	return out, nil
}
