package registry

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activity(id string) Activity {
	return Activity{ID: id, TaskType: id, Version: "1.0.0", Workflows: []string{"lead-qualification"}}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, New("1", activity("lead-crm-create"), activity("lead-notify-sales")).Validate())
	assert.ErrorContains(t, New("1", activity("a"), activity("a")).Validate(), "duplicate")
	assert.ErrorContains(t, New("1", Activity{ID: "a"}).Validate(), "no taskType")
	assert.ErrorContains(t, New("1", Activity{TaskType: "a"}).Validate(), "no id")
}

func TestDiff(t *testing.T) {
	built := New("1", activity("lead-crm-create"), activity("lead-notify-sales"))
	file := New("1", activity("lead-notify-sales"), activity("lead-score-legacy"))

	missing, extra := built.Diff(file)
	assert.Equal(t, []string{"lead-crm-create"}, missing)
	assert.Equal(t, []string{"lead-score-legacy"}, extra)
}

func TestWriteAndLoad(t *testing.T) {
	reg := New("2024.1", activity("lead-index-transcript"))

	var buf bytes.Buffer
	require.NoError(t, reg.WriteJSON(&buf))

	path := filepath.Join(t.TempDir(), "activity-registry.json")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, reg.Version, loaded.Version)
	a, ok := loaded.Find("lead-index-transcript")
	require.True(t, ok)
	assert.Equal(t, []string{"lead-qualification"}, a.Workflows)

	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err = LoadRegistry(path)
	assert.Error(t, err)
}
