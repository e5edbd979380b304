// Package dictionary loads the token dictionaries used by natural commands.
//
// A built-in set is embedded in the binary. YAML files in an optional
// directory extend it: the file name (without extension) is the dictionary
// id, and a token listed in a file replaces the built-in aliases of that
// token.
package dictionary

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"

	"github.com/joshwoo0/gsa-bot/internal/command"
	logx "github.com/joshwoo0/gsa-bot/pkg/logx"
)

// DefaultID is the dictionary used when a command does not name one.
const DefaultID = "default"

var ErrUnknown = errors.New("unknown dictionary")

//go:embed default.yaml
var builtin []byte

type Store struct {
	mu    sync.RWMutex
	dicts map[string]command.Dictionary
}

// Builtin returns a store holding only the embedded dictionaries.
func Builtin() *Store {
	s := &Store{dicts: map[string]command.Dictionary{}}
	sets, err := Parse(builtin)
	if err != nil {
		panic("dictionary: embedded default.yaml: " + err.Error())
	}
	for id, d := range sets {
		s.merge(id, d)
	}
	return s
}

// Load returns the embedded dictionaries extended with every *.yaml / *.yml
// file in dir. An empty dir loads the built-in set only.
func Load(dir string, log logx.Logger) (*Store, error) {
	s := Builtin()
	if strings.TrimSpace(dir) == "" {
		return s, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("dictionary dir: %w", err)
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var d command.Dictionary
		if err := yaml.Unmarshal(b, &d); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		id := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		s.merge(id, d)
		if !log.IsZero() {
			log.Debug("dictionary loaded", logx.String("id", id), logx.String("path", path), logx.Int("tokens", len(d)))
		}
	}
	return s, nil
}

// Parse decodes a YAML document of dictionary id -> token -> aliases.
func Parse(data []byte) (map[string]command.Dictionary, error) {
	var sets map[string]command.Dictionary
	if err := yaml.Unmarshal(data, &sets); err != nil {
		return nil, err
	}
	return sets, nil
}

func (s *Store) merge(id string, d command.Dictionary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.dicts[id]
	if cur == nil {
		cur = command.Dictionary{}
		s.dicts[id] = cur
	}
	for tok, aliases := range d {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		clean := make([]string, 0, len(aliases))
		for _, a := range aliases {
			if a = strings.TrimSpace(a); a != "" {
				clean = append(clean, a)
			}
		}
		cur[tok] = clean
	}
}

// Get returns a copy of the dictionary so callers cannot mutate the store.
func (s *Store) Get(id string) (command.Dictionary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dicts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, id)
	}
	out := make(command.Dictionary, len(d))
	for tok, aliases := range d {
		out[tok] = append([]string(nil), aliases...)
	}
	return out, nil
}

func (s *Store) IDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.dicts))
	for id := range s.dicts {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
