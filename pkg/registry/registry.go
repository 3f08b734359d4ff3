// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &reg, nil
}

func New(version string, activities ...Activity) *ActivityRegistry {
	return &ActivityRegistry{Version: version, Activities: activities}
}

// Validate requires a unique id and a task type on every activity.
func (r *ActivityRegistry) Validate() error {
	seen := make(map[string]bool, len(r.Activities))
	for i, a := range r.Activities {
		if a.ID == "" {
			return fmt.Errorf("activity %d has no id", i)
		}
		if a.TaskType == "" {
			return fmt.Errorf("activity %s has no taskType", a.ID)
		}
		if seen[a.ID] {
			return fmt.Errorf("duplicate activity id %s", a.ID)
		}
		seen[a.ID] = true
	}
	return nil
}

func (r *ActivityRegistry) Find(taskType string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.TaskType == taskType {
			return a, true
		}
	}
	return Activity{}, false
}

// Diff compares task types: missing are in r but not in other, extra the reverse.
func (r *ActivityRegistry) Diff(other *ActivityRegistry) (missing, extra []string) {
	for _, a := range r.Activities {
		if _, ok := other.Find(a.TaskType); !ok {
			missing = append(missing, a.TaskType)
		}
	}
	for _, a := range other.Activities {
		if _, ok := r.Find(a.TaskType); !ok {
			extra = append(extra, a.TaskType)
		}
	}
	sort.Strings(missing)
	sort.Strings(extra)
	return missing, extra
}

func (r *ActivityRegistry) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
