package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	notifysales "fleet-assistant/internal/workers/leads/notify-sales"
	"fleet-assistant/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRetryWithBackoff(t *testing.T) {
	calls := 0
	err := retryWithBackoff(func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}, 5, time.Millisecond, zap.NewNop(), "test connection")

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_Exhausted(t *testing.T) {
	calls := 0
	err := retryWithBackoff(func() error {
		calls++
		return errors.New("connection refused")
	}, 3, time.Millisecond, zap.NewNop(), "test connection")

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "test connection failed after 3 attempts")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, splitList(" a@x.com, ,b@x.com "))
	assert.Nil(t, splitList(""))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["purge"])
	assert.True(t, names["workers"])
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}

func TestLeadActivities(t *testing.T) {
	reg := leadActivities()
	require.NoError(t, reg.Validate())

	for _, taskType := range []string{"lead-notify-sales", "lead-crm-create", "lead-index-transcript"} {
		a, ok := reg.Find(taskType)
		require.True(t, ok, taskType)
		assert.Equal(t, []string{"lead-qualification"}, a.Workflows)
	}
}

func TestRunWorkers_Check(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity-registry.json")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, leadActivities().WriteJSON(f))
	require.NoError(t, f.Close())

	checkRegistryPath = path
	t.Cleanup(func() { checkRegistryPath = "" })

	var out bytes.Buffer
	workersCmd.SetOut(&out)
	require.NoError(t, runWorkers(workersCmd, nil))
	assert.Contains(t, out.String(), "is up to date (3 activities)")

	stale := registry.New(registryVersion, notifysales.Activity())
	f, err = os.Create(path)
	require.NoError(t, err)
	require.NoError(t, stale.WriteJSON(f))
	require.NoError(t, f.Close())

	err = runWorkers(workersCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing from file: lead-crm-create, lead-index-transcript")
}
