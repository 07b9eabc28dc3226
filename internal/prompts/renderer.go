// Package prompts renders the text sent to the tip generator. Built-in
// templates cover every prompt the engine produces; deployments can override
// any of them by dropping YAML files into a prompts directory.
package prompts

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/campus-pulse/load-engine/internal/models"
)

// Known template names
const (
	NameStudentTip          = "student_tip"
	NameProfessorSuggestion = "professor_suggestion"
	NameConflictWarning     = "conflict_warning"
)

// Template is one named prompt pair: a plain system message and a
// text/template body for the user message
type Template struct {
	Name   string `yaml:"name"`
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// StudentTipData feeds the student_tip template
type StudentTipData struct {
	StudentName string
	Days        []models.DailyLoad
}

// ProfessorSuggestionData feeds the professor_suggestion template
type ProfessorSuggestionData struct {
	CourseName     string
	OverloadedDays []models.ClassDayLoad
	Deadlines      []models.Deadline
	Conflicts      []models.Conflict
}

// ConflictWarningData feeds the conflict_warning template
type ConflictWarningData struct {
	Conflict models.Conflict
}

// Renderer holds parsed prompt templates
type Renderer struct {
	mu      sync.RWMutex
	systems map[string]string
	bodies  map[string]*template.Template
}

// NewRenderer creates a renderer seeded with the built-in templates
func NewRenderer() *Renderer {
	r := &Renderer{
		systems: make(map[string]string),
		bodies:  make(map[string]*template.Template),
	}

	for _, tmpl := range defaults {
		if err := r.set(tmpl); err != nil {
			// Built-ins are compile-time constants; a parse failure here is a bug
			panic(fmt.Sprintf("invalid built-in prompt template %q: %v", tmpl.Name, err))
		}
	}

	return r
}

// LoadFromDir overrides templates from YAML files in the given directory.
// Each file holds one template; files that fail to parse are skipped with a
// warning so one bad override can't take the engine down.
func (r *Renderer) LoadFromDir(dir string) error {
	slog.Info("loading prompt templates from directory", "dir", dir)

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}

	loaded := 0
	for _, file := range files {
		if err := r.LoadFromFile(file); err != nil {
			slog.Warn("failed to load prompt template", "file", file, "error", err)
			continue
		}
		loaded++
	}

	slog.Info("prompt templates loaded", "count", loaded, "total_files", len(files))
	return nil
}

// LoadFromFile loads a single template override from a YAML file
func (r *Renderer) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	if tmpl.Name == "" {
		return fmt.Errorf("template name is required")
	}
	if tmpl.User == "" {
		return fmt.Errorf("template user body is required")
	}

	return r.set(tmpl)
}

// Render produces the system and user messages for a named template
func (r *Renderer) Render(name string, data any) (system, user string, err error) {
	r.mu.RLock()
	body, ok := r.bodies[name]
	system = r.systems[name]
	r.mu.RUnlock()

	if !ok {
		return "", "", fmt.Errorf("unknown prompt template: %s", name)
	}

	var buf strings.Builder
	if err := body.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render prompt %s: %w", name, err)
	}

	return system, buf.String(), nil
}

// List returns the names of all registered templates
func (r *Renderer) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.bodies))
	for name := range r.bodies {
		names = append(names, name)
	}
	return names
}

func (r *Renderer) set(tmpl Template) error {
	body, err := template.New(tmpl.Name).Parse(tmpl.User)
	if err != nil {
		return fmt.Errorf("failed to parse user body: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.systems[tmpl.Name] = tmpl.System
	r.bodies[tmpl.Name] = body
	return nil
}
