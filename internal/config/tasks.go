package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Task is a named script definition from the task manifest. Tasks with a
// Schedule are run by the scheduler; all tasks can be launched by name via
// the execute endpoint.
type Task struct {
	Name      string `yaml:"name"`
	Command   string `yaml:"command"`
	Namespace string `yaml:"namespace,omitempty"`
	Prefix    string `yaml:"prefix"`
	Schedule  string `yaml:"schedule,omitempty"`
}

// Manifest is the parsed task manifest file.
type Manifest struct {
	Tasks []Task `yaml:"tasks"`
}

// LoadManifest reads and validates a YAML task manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	seen := make(map[string]bool, len(m.Tasks))
	for i, t := range m.Tasks {
		if t.Name == "" {
			return nil, fmt.Errorf("task %d: name is required", i)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("task %q: duplicate name", t.Name)
		}
		seen[t.Name] = true
		if t.Command == "" {
			return nil, fmt.Errorf("task %q: command is required", t.Name)
		}
		if t.Prefix == "" {
			return nil, fmt.Errorf("task %q: prefix is required", t.Name)
		}
	}
	return &m, nil
}

// Find returns the task with the given name.
func (m *Manifest) Find(name string) (Task, bool) {
	if m == nil {
		return Task{}, false
	}
	for _, t := range m.Tasks {
		if t.Name == name {
			return t, true
		}
	}
	return Task{}, false
}

// Scheduled returns the tasks carrying a cron schedule.
func (m *Manifest) Scheduled() []Task {
	if m == nil {
		return nil
	}
	var tasks []Task
	for _, t := range m.Tasks {
		if t.Schedule != "" {
			tasks = append(tasks, t)
		}
	}
	return tasks
}
