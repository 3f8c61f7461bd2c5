package prompt

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader loads prompt specifications from some source
type Loader interface {
	// Load loads a spec by name/path
	Load(name string) (*Spec, error)
}

// FileLoader loads specs from files on disk
type FileLoader struct {
	baseDir string
}

// NewFileLoader creates a new file-based spec loader
func NewFileLoader(baseDir string) *FileLoader {
	return &FileLoader{baseDir: baseDir}
}

// Load reads and parses a spec file. The format follows the extension;
// anything other than .json is parsed as YAML.
func (f *FileLoader) Load(name string) (*Spec, error) {
	return loadFile(f.resolvePath(name))
}

// LoadAll loads every .yaml, .yml and .json spec in the base directory,
// sorted by file name
func (f *FileLoader) LoadAll() ([]*Spec, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml", "*.json"} {
		matches, err := filepath.Glob(filepath.Join(f.baseDir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	specs := make([]*Spec, 0, len(files))
	for _, file := range files {
		spec, err := loadFile(file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(file), err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func loadFile(p string) (*Spec, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}

	return ParseSpec(data, formatFor(p))
}

// resolvePath resolves the spec path
func (f *FileLoader) resolvePath(name string) string {
	if filepath.IsAbs(name) || f.baseDir == "" {
		return name
	}
	return filepath.Join(f.baseDir, name)
}

// FSLoader loads specs from an fs.FS such as an embed.FS
type FSLoader struct {
	fsys   fs.FS
	prefix string
}

// NewFSLoader creates a loader reading from fsys under prefix
func NewFSLoader(fsys fs.FS, prefix string) *FSLoader {
	return &FSLoader{
		fsys:   fsys,
		prefix: prefix,
	}
}

// Load loads a spec from the file system
func (e *FSLoader) Load(name string) (*Spec, error) {
	p := path.Join(e.prefix, name)

	data, err := fs.ReadFile(e.fsys, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded spec: %w", err)
	}

	return ParseSpec(data, formatFor(p))
}

// StringLoader serves specs held in memory
type StringLoader struct {
	specs map[string]string
}

// NewStringLoader creates a new string-based spec loader
func NewStringLoader() *StringLoader {
	return &StringLoader{specs: make(map[string]string)}
}

// AddSpec adds a YAML or JSON document under a name
func (s *StringLoader) AddSpec(name string, content string) {
	s.specs[name] = content
}

// Load parses the document stored under name
func (s *StringLoader) Load(name string) (*Spec, error) {
	content, exists := s.specs[name]
	if !exists {
		return nil, fmt.Errorf("spec %s not found", name)
	}

	format := "yaml"
	if strings.HasPrefix(strings.TrimSpace(content), "{") {
		format = "json"
	}
	return ParseSpec([]byte(content), format)
}

// ParseSpec decodes a spec document ("json" or "yaml") and validates it
func ParseSpec(data []byte, format string) (*Spec, error) {
	var spec Spec

	switch format {
	case "json":
		if err := json.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("failed to parse JSON spec: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("failed to parse YAML spec: %w", err)
		}
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks structural requirements of a spec
func (s *Spec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("invalid spec: name is required")
	}
	if s.Template == "" && len(s.Messages) == 0 {
		return fmt.Errorf("invalid spec %s: template or messages is required", s.Name)
	}

	seen := make(map[string]bool, len(s.Variables))
	for i, v := range s.Variables {
		if v.Name == "" {
			return fmt.Errorf("invalid spec %s: variable %d has no name", s.Name, i)
		}
		if seen[v.Name] {
			return fmt.Errorf("invalid spec %s: duplicate variable %q", s.Name, v.Name)
		}
		seen[v.Name] = true

		switch v.Type {
		case "", TypeString, TypeNumber, TypeBoolean, TypeObject, TypeArray:
		default:
			return fmt.Errorf("invalid spec %s: variable %q has unknown type %q", s.Name, v.Name, v.Type)
		}
	}

	for i, m := range s.Messages {
		if m.Role == "" {
			return fmt.Errorf("invalid spec %s: message %d has no role", s.Name, i)
		}
	}

	for i, g := range s.Guardrails {
		if strings.TrimSpace(g.Type) == "" {
			return fmt.Errorf("invalid spec %s: guardrail %d has no type", s.Name, i)
		}
	}

	return nil
}

func formatFor(p string) string {
	if strings.HasSuffix(strings.ToLower(p), ".json") {
		return "json"
	}
	return "yaml"
}
