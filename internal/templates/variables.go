// Package templates expands {name} placeholders in prompts with a randomly
// chosen candidate and manages the candidate lists on disk.
package templates

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the variables file relative to the project directory.
const DefaultFile = ".replyctl/variables.yaml"

var placeholder = regexp.MustCompile(`\{([^{}\s]+)\}`)

type fileFormat struct {
	Variables map[string][]string `yaml:"variables"`
}

// Store holds template variables and their candidates.
type Store struct {
	path string

	mu   sync.Mutex
	vars map[string][]string
	rand *rand.Rand
}

// Option configures a Store.
type Option func(*Store)

// WithRandSource makes candidate selection deterministic.
func WithRandSource(src rand.Source) Option {
	return func(s *Store) { s.rand = rand.New(src) }
}

// Open loads the variables file at path. A missing file yields an empty store.
func Open(path string, opts ...Option) (*Store, error) {
	seed := uint64(time.Now().UnixNano())
	s := &Store{
		path: path,
		vars: make(map[string][]string),
		rand: rand.New(rand.NewPCG(seed, seed>>1)),
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read variables file: %w", err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse variables file: %w", err)
	}
	for name, candidates := range f.Variables {
		if len(candidates) > 0 {
			s.vars[name] = candidates
		}
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Expand replaces every {name} with a random candidate of that variable.
// Unknown variables are left untouched.
func (s *Store) Expand(prompt string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return placeholder.ReplaceAllStringFunc(prompt, func(m string) string {
		name := m[1 : len(m)-1]
		candidates := s.vars[name]
		if len(candidates) == 0 {
			return m
		}
		return candidates[s.rand.IntN(len(candidates))]
	})
}

// Placeholders returns the distinct variable names referenced by prompt.
func Placeholders(prompt string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholder.FindAllStringSubmatch(prompt, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Add appends a candidate to name and saves. Candidates may span lines.
func (s *Store) Add(name, candidate string) error {
	name = strings.TrimSpace(name)
	candidate = strings.TrimSpace(candidate)
	if name == "" {
		return fmt.Errorf("variable name is required")
	}
	if strings.ContainsAny(name, "{} \t\n") {
		return fmt.Errorf("invalid variable name %q", name)
	}
	if candidate == "" {
		return fmt.Errorf("candidate for %s is empty", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[name] = append(s.vars[name], candidate)
	return s.saveLocked()
}

// Remove deletes the candidate at the 1-based index shown by Candidates and
// saves. Removing the last candidate removes the variable.
func (s *Store) Remove(name string, index int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates, ok := s.vars[name]
	if !ok {
		return "", fmt.Errorf("unknown variable %q", name)
	}
	if index < 1 || index > len(candidates) {
		return "", fmt.Errorf("index %d out of range (1-%d)", index, len(candidates))
	}

	removed := candidates[index-1]
	rest := append(candidates[:index-1:index-1], candidates[index:]...)
	if len(rest) == 0 {
		delete(s.vars, name)
	} else {
		s.vars[name] = rest
	}
	return removed, s.saveLocked()
}

// Candidates returns a copy of name's candidates.
func (s *Store) Candidates(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.vars[name]...)
}

// Names returns the variable names in sorted order.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.vars))
	for name := range s.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create variables directory: %w", err)
	}

	data, err := yaml.Marshal(fileFormat{Variables: s.vars})
	if err != nil {
		return fmt.Errorf("failed to marshal variables: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write variables file: %w", err)
	}
	return nil
}
