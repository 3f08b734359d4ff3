package main

import (
	"context"
	"time"

	"fleet-assistant/internal/chat/store"
	"fleet-assistant/internal/common/config"
	"fleet-assistant/internal/common/database"
	"fleet-assistant/internal/common/logger"

	"go.uber.org/zap"
)

// infra holds the connections shared by serve and purge. pg and es are nil
// when disabled.
type infra struct {
	redis *database.RedisClient
	pg    *database.PostgresClient
	es    *database.ElasticsearchClient
}

func connect(ctx context.Context, cfg *config.Config, zapLog *zap.Logger, withES bool) (*infra, error) {
	in := &infra{}

	err := retryWithBackoff(func() error {
		var err error
		in.redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return in.redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		return nil, err
	}
	zapLog.Info("Redis connected successfully")

	if cfg.Database.Postgres.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			in.pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return in.pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			in.close()
			return nil, err
		}
		if err := in.pg.EnsureSchema(ctx); err != nil {
			in.close()
			return nil, err
		}
		zapLog.Info("PostgreSQL connected successfully")
	}

	if withES && cfg.Database.Elasticsearch.GetURL() != "" {
		err = retryWithBackoff(func() error {
			var err error
			in.es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return in.es.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			in.close()
			return nil, err
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	return in, nil
}

func (in *infra) close() {
	if in.pg != nil {
		_ = in.pg.Close()
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
}

// conversationStore is the store plus its purge capability.
type conversationStore interface {
	store.Store
	store.Purger
}

// buildStore returns the Redis-backed local store, mirrored into Postgres
// when chat.mirror_to_postgres is set and Postgres is connected.
func buildStore(cfg *config.Config, in *infra, log logger.Logger) conversationStore {
	opts := store.Options{
		Retention: time.Duration(cfg.Chat.RetentionDays) * 24 * time.Hour,
		Capacity:  cfg.Chat.MaxConversations,
	}
	local := store.NewLocalStore(in.redis.Backend(), cfg.Chat.ConversationPrefix, opts, log)
	if !cfg.Chat.MirrorToPostgres {
		return local
	}
	if in.pg == nil {
		log.Warn("chat.mirror_to_postgres is set but postgres is disabled", nil)
		return local
	}
	return store.NewMirroredStore(local, store.NewPostgresStore(in.pg.DB, opts), log)
}
