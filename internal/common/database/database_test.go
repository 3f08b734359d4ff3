package database

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"fleet-assistant/internal/common/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS chat_conversations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_chat_conversations_last_activity").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS survey_responses").WillReturnResult(sqlmock.NewResult(0, 0))

	client := &PostgresClient{DB: db}
	require.NoError(t, client.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS chat_conversations").WillReturnError(fmt.Errorf("permission denied"))

	client := &PostgresClient{DB: db}
	err = client.EnsureSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()))

	_, err = NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}

func newTestElasticsearch(t *testing.T, handler http.HandlerFunc) *ElasticsearchClient {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := NewElasticsearch(config.ElasticsearchConfig{URL: srv.URL})
	require.NoError(t, err)
	return client
}

func TestEnsureIndex(t *testing.T) {
	tests := []struct {
		name        string
		existsCode  int
		createCode  int
		createBody  string
		wantCreated bool
		wantErr     bool
		wantCreate  bool
	}{
		{name: "exists", existsCode: http.StatusOK},
		{name: "created", existsCode: http.StatusNotFound, createCode: http.StatusOK,
			createBody: `{"acknowledged":true}`, wantCreated: true, wantCreate: true},
		{name: "lost race", existsCode: http.StatusNotFound, createCode: http.StatusBadRequest,
			createBody: `{"error":{"type":"resource_already_exists_exception"}}`, wantCreate: true},
		{name: "create rejected", existsCode: http.StatusNotFound, createCode: http.StatusBadRequest,
			createBody: `{"error":{"type":"mapper_parsing_exception"}}`, wantErr: true, wantCreate: true},
		{name: "cluster error", existsCode: http.StatusInternalServerError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var createCalled bool
			client := newTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/chat-transcripts", r.URL.Path)
				if r.Method == http.MethodHead {
					w.WriteHeader(tt.existsCode)
					return
				}
				createCalled = true
				assert.Equal(t, http.MethodPut, r.Method)
				w.WriteHeader(tt.createCode)
				_, _ = w.Write([]byte(tt.createBody))
			})

			created, err := client.EnsureIndex(context.Background(), "chat-transcripts", `{"mappings":{}}`)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCreated, created)
			assert.Equal(t, tt.wantCreate, createCalled)
		})
	}
}

func TestElasticsearchPing(t *testing.T) {
	client := newTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	assert.NoError(t, client.Ping())
}
