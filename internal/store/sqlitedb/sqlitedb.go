package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"xpurge/internal/model"
)

// ErrNotFound is returned when no profile matches.
var ErrNotFound = errors.New("profile not found")

// DB wraps the SQLite database holding user profiles and the deletion log.
type DB struct {
	sql *sql.DB
	now func() time.Time
}

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one connection keeps :memory: databases shared and serializes writers
	d.SetMaxOpenConns(1)
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA busy_timeout=5000;`); err != nil {
		_ = d.Close()
		return nil, err
	}
	db := New(d)
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

// New wraps an already opened handle without running migrations.
func New(d *sql.DB) *DB { return &DB{sql: d, now: time.Now} }

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS profiles (
	  user_id TEXT PRIMARY KEY,
	  email TEXT NOT NULL DEFAULT '',
	  subscription_tier TEXT NOT NULL DEFAULT 'free',
	  subscription_status TEXT NOT NULL DEFAULT 'inactive',
	  tweets_deleted_today INTEGER NOT NULL DEFAULT 0,
	  last_deletion_date TEXT NOT NULL DEFAULT '',
	  gumroad_sale_id TEXT NOT NULL DEFAULT '',
	  created_at INTEGER NOT NULL,
	  updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_profiles_email ON profiles(email);
	CREATE TABLE IF NOT EXISTS events (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  ts INTEGER NOT NULL,
	  user_id TEXT NOT NULL,
	  batch_id TEXT NOT NULL,
	  deleted INTEGER NOT NULL,
	  failed INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_user_ts ON events(user_id, ts);
	`)
	return err
}

// EnsureProfile creates a free profile on first sight and fills in the email
// if one was not known yet.
func (d *DB) EnsureProfile(ctx context.Context, userID, email string) (model.Profile, error) {
	ts := d.now().Unix()
	_, err := d.sql.ExecContext(ctx, `INSERT INTO profiles(user_id, email, created_at, updated_at) VALUES(?,?,?,?)
	ON CONFLICT(user_id) DO UPDATE SET email=excluded.email, updated_at=excluded.updated_at
	WHERE profiles.email='' AND excluded.email<>''`, userID, normalizeEmail(email), ts, ts)
	if err != nil {
		return model.Profile{}, err
	}
	return d.GetProfile(ctx, userID)
}

const profileColumns = `user_id, email, subscription_tier, subscription_status, tweets_deleted_today, last_deletion_date, gumroad_sale_id`

func (d *DB) GetProfile(ctx context.Context, userID string) (model.Profile, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id=?`, userID)
	var p model.Profile
	var tier, status string
	if err := row.Scan(&p.UserID, &p.Email, &tier, &status, &p.DeletedToday, &p.LastDeletionDate, &p.SaleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Profile{}, ErrNotFound
		}
		return model.Profile{}, err
	}
	p.Tier = model.Tier(tier)
	p.Status = model.Status(status)
	return p, nil
}

// UpdateUsage overwrites the daily counter. It is a plain write: the caller
// computes the new values from a profile it read earlier.
func (d *DB) UpdateUsage(ctx context.Context, userID string, u model.Usage) error {
	res, err := d.sql.ExecContext(ctx, `UPDATE profiles SET tweets_deleted_today=?, last_deletion_date=?, updated_at=? WHERE user_id=?`,
		u.DeletedToday, u.LastDeletionDate, d.now().Unix(), userID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// SetSubscription updates tier and status of one user.
func (d *DB) SetSubscription(ctx context.Context, userID string, tier model.Tier, status model.Status, saleID string) error {
	res, err := d.sql.ExecContext(ctx, `UPDATE profiles SET subscription_tier=?, subscription_status=?, gumroad_sale_id=?, updated_at=? WHERE user_id=?`,
		string(tier), string(status), saleID, d.now().Unix(), userID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// FindUserByEmail returns the user id registered with email.
func (d *DB) FindUserByEmail(ctx context.Context, email string) (string, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT user_id FROM profiles WHERE email=? ORDER BY created_at LIMIT 1`, normalizeEmail(email))
	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return id, nil
}

// SetSubscriptionByEmail applies a subscription change to every profile with
// the given email. An empty saleID keeps the stored one.
func (d *DB) SetSubscriptionByEmail(ctx context.Context, email string, tier model.Tier, status model.Status, saleID string) error {
	res, err := d.sql.ExecContext(ctx, `UPDATE profiles SET subscription_tier=?, subscription_status=?,
	gumroad_sale_id=CASE WHEN ?='' THEN gumroad_sale_id ELSE ? END, updated_at=? WHERE email=?`,
		string(tier), string(status), saleID, saleID, d.now().Unix(), normalizeEmail(email))
	if err != nil {
		return err
	}
	return expectRow(res)
}

// PutDeletionEvent appends one batch to the deletion log.
func (d *DB) PutDeletionEvent(ctx context.Context, userID string, ev model.DeletionEvent) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO events(ts, user_id, batch_id, deleted, failed) VALUES(?,?,?,?,?)`,
		ev.Timestamp.Unix(), userID, ev.BatchID, ev.Deleted, ev.Failed)
	return err
}

// LoadDeletionEvents returns the user's batches in [start, end), oldest first.
func (d *DB) LoadDeletionEvents(ctx context.Context, userID string, start, end time.Time) ([]model.DeletionEvent, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT ts, batch_id, deleted, failed FROM events WHERE user_id=? AND ts>=? AND ts<? ORDER BY ts, id`,
		userID, start.Unix(), end.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.DeletionEvent
	for rows.Next() {
		var ts int64
		var ev model.DeletionEvent
		if err := rows.Scan(&ts, &ev.BatchID, &ev.Deleted, &ev.Failed); err != nil {
			return nil, err
		}
		ev.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
