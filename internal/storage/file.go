package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	logx "github.com/joshwoo0/gsa-bot/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.audit.jsonl    (append-only JSON Lines)
//   - <prefix>.channels.json  (snapshot, rewritten on change)
//   - <prefix>.events.json    (snapshot, rewritten on import)
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	auditFile *os.File
	recent    []AuditEntry // ring of the newest entries, oldest first
	keep      int

	channelsPath string
	channels     map[string]ChannelRecord

	eventsPath string
	events     []SchoolEvent
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	prefix := filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	keep := cfg.AuditKeep
	if keep <= 0 {
		keep = 200
	}
	s := &fileStore{
		log:          log,
		keep:         keep,
		channelsPath: prefix + ".channels.json",
		channels:     map[string]ChannelRecord{},
		eventsPath:   prefix + ".events.json",
	}

	auditPath := prefix + ".audit.jsonl"
	if err := s.replayAudit(auditPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("audit replay failed", logx.String("path", auditPath), logx.Err(err))
	}
	if err := readJSON(s.channelsPath, &s.channels); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err := readJSON(s.eventsPath, &s.events); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if s.channels == nil {
		s.channels = map[string]ChannelRecord{}
	}

	af, err := os.OpenFile(auditPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	s.auditFile = af
	return s, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return nil
	}
	err := s.auditFile.Close()
	s.auditFile = nil
	return err
}

func (s *fileStore) AppendAudit(_ context.Context, e AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return ErrClosed
	}
	if err := json.NewEncoder(s.auditFile).Encode(e); err != nil {
		return err
	}
	s.remember(e)
	return nil
}

func (s *fileStore) remember(e AuditEntry) {
	s.recent = append(s.recent, e)
	if over := len(s.recent) - s.keep; over > 0 {
		s.recent = append(s.recent[:0], s.recent[over:]...)
	}
}

func (s *fileStore) RecentAudit(_ context.Context, limit int) ([]AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.recent) {
		limit = len(s.recent)
	}
	out := make([]AuditEntry, 0, limit)
	for i := len(s.recent) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.recent[i])
	}
	return out, nil
}

func (s *fileStore) replayAudit(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		s.remember(e)
	}
	return sc.Err()
}

func (s *fileStore) UpsertChannel(_ context.Context, ch ChannelRecord) error {
	if strings.TrimSpace(ch.ID) == "" {
		return errors.New("channel id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return ErrClosed
	}
	prev, existed := s.channels[ch.ID]
	s.channels[ch.ID] = ch
	// Only a changed name or membership is worth a rewrite; last-seen alone is not.
	if existed && prev.Name == ch.Name && prev.Direct == ch.Direct && prev.Members == ch.Members {
		return nil
	}
	return writeJSON(s.channelsPath, s.channels)
}

func (s *fileStore) Channels(_ context.Context) ([]ChannelRecord, error) {
	s.mu.Lock()
	out := make([]ChannelRecord, 0, len(s.channels))
	for _, ch := range s.channels {
		out = append(out, ch)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fileStore) ChannelByName(_ context.Context, name string) (ChannelRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		best  ChannelRecord
		found bool
	)
	for _, ch := range s.channels {
		if ch.Name == name && (!found || ch.LastSeen.After(best.LastSeen)) {
			best, found = ch, true
		}
	}
	return best, found, nil
}

func (s *fileStore) ReplaceEvents(_ context.Context, events []SchoolEvent) error {
	cp := append([]SchoolEvent(nil), events...)
	sortEvents(cp)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return ErrClosed
	}
	if err := writeJSON(s.eventsPath, cp); err != nil {
		return err
	}
	s.events = cp
	return nil
}

func (s *fileStore) EventsBetween(_ context.Context, from, to string) ([]SchoolEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filterEvents(s.events, from, to), nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// writeJSON replaces path atomically via a temp file + rename.
func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
