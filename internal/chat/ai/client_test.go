package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fleet-assistant/internal/common/logger"
	"fleet-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	outcome string
}

type testRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (r *testRecorder) RecordAICall(_ context.Context, _ time.Duration, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{outcome: outcome})
}

func newTestClient(t *testing.T, url string, retries int) (*Client, *testRecorder) {
	rec := &testRecorder{}
	c := NewClient(Config{
		BaseURL:    url,
		Path:       "/functions/v1/chat-ai",
		APIKey:     "test-key",
		Timeout:    2 * time.Second,
		MaxRetries: retries,
	}, rec, logger.NewTestLogger(t))
	return c, rec
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestGenerate_Success(t *testing.T) {
	var got Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/functions/v1/chat-ai", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, Response{Success: true, Response: "  Great, how many trucks?  ", Usage: &Usage{TotalTokens: 42}})
	}))
	defer server.Close()

	c, rec := newTestClient(t, server.URL, 0)
	profile := models.UserProfile{FleetSize: models.FleetSize20To50, Challenges: []string{models.ChallengeFuelCosts}}

	reply, err := c.Generate(context.Background(), "session_1", "we run 30 trucks", profile, nil)
	require.NoError(t, err)
	assert.Equal(t, "Great, how many trucks?", reply.Text)
	assert.True(t, reply.Success)
	assert.Equal(t, 42, reply.Usage.TotalTokens)

	assert.Equal(t, "session_1", got.SessionID)
	assert.Equal(t, "we run 30 trucks", got.Message)
	assert.Equal(t, models.FleetSize20To50, got.UserContext.FleetSize)
	assert.Empty(t, got.ConversationHistory)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, "success", rec.calls[0].outcome)
}

func TestGenerate_HistoryIsTruncated(t *testing.T) {
	var got Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, Response{Success: true, Response: "ok"})
	}))
	defer server.Close()

	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	var history []models.Message
	for i := 0; i < 30; i++ {
		typ := models.MessageTypeUser
		if i%2 == 1 {
			typ = models.MessageTypeBot
		}
		history = append(history, models.NewMessage(typ, fmt.Sprintf("m%d", i), nil, now))
	}
	history = append(history, models.NewMessage(models.MessageTypeAction, "clicked beta", nil, now))

	c, _ := newTestClient(t, server.URL, 0)
	_, err := c.Generate(context.Background(), "s", "hi", models.UserProfile{}, history)
	require.NoError(t, err)

	require.Len(t, got.ConversationHistory, DefaultHistoryTurns)
	assert.Equal(t, "m10", got.ConversationHistory[0].Content)
	assert.Equal(t, "user", got.ConversationHistory[0].Role)
	assert.Equal(t, "assistant", got.ConversationHistory[19].Role)
	assert.Equal(t, "m29", got.ConversationHistory[19].Content)
}

func TestGenerate_NonSuccessWithTextIsReturned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, Response{Success: false, Response: "Let me connect you with our team.", Error: "quota"})
	}))
	defer server.Close()

	c, rec := newTestClient(t, server.URL, 0)
	reply, err := c.Generate(context.Background(), "s", "hi", models.UserProfile{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Let me connect you with our team.", reply.Text)
	assert.False(t, reply.Success)
	assert.Equal(t, "fallback", rec.calls[0].outcome)
}

func TestGenerate_EmptyReply(t *testing.T) {
	tests := []struct {
		name    string
		resp    Response
		wantErr error
	}{
		{name: "success without text", resp: Response{Success: true, Response: "   "}, wantErr: ErrEmptyReply},
		{name: "failure without text", resp: Response{Success: false, Error: "model overloaded"}, wantErr: ErrAIReplyFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.resp)
			}))
			defer server.Close()

			c, _ := newTestClient(t, server.URL, 0)
			reply, err := c.Generate(context.Background(), "s", "hi", models.UserProfile{}, nil)
			assert.True(t, errors.Is(err, tt.wantErr))
			assert.Empty(t, reply.Text)
		})
	}
}

func TestGenerate_RetriesServerErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello again", req.Message)
		writeJSON(w, Response{Success: true, Response: "third time lucky"})
	}))
	defer server.Close()

	c, _ := newTestClient(t, server.URL, 2)
	reply, err := c.Generate(context.Background(), "s", "hello again", models.UserProfile{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", reply.Text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestGenerate_ExhaustedRetries(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c, rec := newTestClient(t, server.URL, 1)
	_, err := c.Generate(context.Background(), "s", "hi", models.UserProfile{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAIReplyFailed))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Equal(t, "error", rec.calls[0].outcome)
}

func TestGenerate_ContextTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c, _ := newTestClient(t, server.URL, 3)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Generate(ctx, "s", "hi", models.UserProfile{}, nil)
	assert.True(t, errors.Is(err, ErrAIReplyTimeout))
}

func TestGenerate_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer server.Close()

	c, _ := newTestClient(t, server.URL, 0)
	_, err := c.Generate(context.Background(), "s", "hi", models.UserProfile{}, nil)
	assert.True(t, errors.Is(err, ErrAIReplyFailed))
}
