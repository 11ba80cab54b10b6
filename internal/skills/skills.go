// Package skills loads skill documents: markdown files with YAML
// frontmatter whose body is the context string injected into prompts when
// the skill's mode activates. Built-in mode briefings ship embedded in the
// binary; project-local documents override them by name.
package skills

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the expected document name inside each skill directory.
const FileName = "SKILL.md"

var (
	// ErrMissingFrontmatter indicates the document did not start with a
	// YAML fence.
	ErrMissingFrontmatter = errors.New("skills: missing frontmatter")
	// ErrMalformedFrontmatter indicates the frontmatter block was not
	// terminated or could not be parsed.
	ErrMalformedFrontmatter = errors.New("skills: malformed frontmatter")
)

// Skill is one loaded skill document.
type Skill struct {
	// Name identifies the skill; project-local skills shadow built-ins
	// with the same name.
	Name string

	// Description is a one-line summary from the frontmatter.
	Description string

	// Triggers are optional trigger words associated with the skill.
	Triggers []string

	// Body is the markdown injected as context when the skill fires.
	Body string

	// Source records where the document was loaded from ("builtin" or a
	// file path), for status displays.
	Source string
}

// Inject returns the context string for this skill.
func (s *Skill) Inject() string {
	return strings.TrimSpace(s.Body)
}

type frontmatter struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Triggers    []string `yaml:"triggers"`
}

// Parse decodes a skill document. fallbackName is used when the
// frontmatter carries no name (conventionally the directory name).
func Parse(content []byte, fallbackName, source string) (*Skill, error) {
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return nil, ErrMissingFrontmatter
	}
	parts := bytes.SplitN(normalized[4:], []byte("\n---\n"), 2)
	if len(parts) < 2 {
		return nil, ErrMalformedFrontmatter
	}
	var fm frontmatter
	if err := yaml.Unmarshal(parts[0], &fm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrontmatter, err)
	}
	name := strings.TrimSpace(fm.Name)
	if name == "" {
		name = fallbackName
	}
	if name == "" {
		return nil, fmt.Errorf("skills: document has no name")
	}
	return &Skill{
		Name:        name,
		Description: strings.TrimSpace(fm.Description),
		Triggers:    fm.Triggers,
		Body:        string(parts[1]),
		Source:      source,
	}, nil
}

//go:embed builtin/*.md
var builtinFS embed.FS

// Registry holds loaded skills by name.
type Registry struct {
	skills map[string]*Skill
}

// LoadRegistry loads built-in skills, then overlays each directory in
// order: <dir>/<name>/SKILL.md and <dir>/<name>.md are both accepted.
// Unparseable documents are skipped, never fatal: a broken project skill
// must not take keyword detection down with it. The returned error is only
// for I/O failures walking an existing directory.
func LoadRegistry(dirs ...string) (*Registry, error) {
	r := &Registry{skills: make(map[string]*Skill)}

	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil, fmt.Errorf("skills: read builtin documents: %w", err)
	}
	for _, entry := range entries {
		data, err := builtinFS.ReadFile("builtin/" + entry.Name())
		if err != nil {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".md")
		skill, err := Parse(data, name, "builtin")
		if err != nil {
			continue
		}
		r.skills[skill.Name] = skill
	}

	for _, dir := range dirs {
		if err := r.overlayDir(dir); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) overlayDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("skills: read %s: %w", dir, err)
	}
	for _, entry := range entries {
		var path, fallback string
		switch {
		case entry.IsDir():
			path = filepath.Join(dir, entry.Name(), FileName)
			fallback = entry.Name()
		case strings.HasSuffix(entry.Name(), ".md"):
			path = filepath.Join(dir, entry.Name())
			fallback = strings.TrimSuffix(entry.Name(), ".md")
		default:
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		skill, err := Parse(data, fallback, path)
		if err != nil {
			continue
		}
		r.skills[skill.Name] = skill
	}
	return nil
}

// Get returns the skill with the given name, or nil.
func (r *Registry) Get(name string) *Skill {
	return r.skills[name]
}

// List returns all loaded skills sorted by name.
func (r *Registry) List() []*Skill {
	names := make([]string, 0, len(r.skills))
	for name := range r.skills {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*Skill, len(names))
	for i, name := range names {
		out[i] = r.skills[name]
	}
	return out
}
