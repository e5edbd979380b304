package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "github.com/joshwoo0/gsa-bot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()))
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit(at, rid, kind, command, channel_id, sender_id, sender_name, text, ok, err, took_ms)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		e.At.UTC().Format(time.RFC3339Nano), nullStr(e.RequestID), e.Kind, e.Command,
		nullStr(e.ChannelID), nullStr(e.SenderID), nullStr(e.SenderName), nullStr(e.Text),
		e.OK, nullStr(e.Error), e.TookMS,
	)
	return err
}

func (s *sqliteStore) RecentAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, rid, kind, command, channel_id, sender_id, sender_name, text, ok, err, took_ms
		 FROM audit ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var (
			e                                    AuditEntry
			at                                   string
			rid, chID, sID, sName, text, errText sql.NullString
		)
		if err := rows.Scan(&at, &rid, &e.Kind, &e.Command, &chID, &sID, &sName, &text, &e.OK, &errText, &e.TookMS); err != nil {
			return nil, err
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		e.RequestID, e.ChannelID, e.SenderID = rid.String, chID.String, sID.String
		e.SenderName, e.Text, e.Error = sName.String, text.String, errText.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *sqliteStore) UpsertChannel(ctx context.Context, ch ChannelRecord) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if strings.TrimSpace(ch.ID) == "" {
		return errors.New("channel id required")
	}
	if ch.LastSeen.IsZero() {
		ch.LastSeen = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO channels(id, name, direct, members, last_seen) VALUES(?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, direct=excluded.direct,
		   members=excluded.members, last_seen=excluded.last_seen`,
		ch.ID, ch.Name, ch.Direct, ch.Members, ch.LastSeen.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) Channels(ctx context.Context) ([]ChannelRecord, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, direct, members, last_seen FROM channels ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ChannelRecord
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (s *sqliteStore) ChannelByName(ctx context.Context, name string) (ChannelRecord, bool, error) {
	if s == nil || s.db == nil {
		return ChannelRecord{}, false, ErrDisabled
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, direct, members, last_seen FROM channels WHERE name = ? ORDER BY last_seen DESC LIMIT 1`, name)
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ChannelRecord{}, false, nil
	}
	if err != nil {
		return ChannelRecord{}, false, err
	}
	return ch, true, nil
}

type scanner interface{ Scan(dest ...any) error }

func scanChannel(r scanner) (ChannelRecord, error) {
	var (
		ch   ChannelRecord
		seen string
	)
	if err := r.Scan(&ch.ID, &ch.Name, &ch.Direct, &ch.Members, &seen); err != nil {
		return ChannelRecord{}, err
	}
	ch.LastSeen, _ = time.Parse(time.RFC3339Nano, seen)
	return ch, nil
}

func (s *sqliteStore) ReplaceEvents(ctx context.Context, events []SchoolEvent) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	cp := append([]SchoolEvent(nil), events...)
	sortEvents(cp)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO events(day, seq, title) VALUES(?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, e := range cp {
		if _, err := stmt.ExecContext(ctx, e.Day, i, e.Title); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) EventsBetween(ctx context.Context, from, to string) ([]SchoolEvent, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT day, title FROM events WHERE day >= ? AND day <= ? ORDER BY day, seq`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SchoolEvent
	for rows.Next() {
		var e SchoolEvent
		if err := rows.Scan(&e.Day, &e.Title); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
