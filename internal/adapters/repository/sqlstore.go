package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver
	_ "modernc.org/sqlite"             // sqlite driver

	"github.com/okian/wser/internal/domain/model"
	"github.com/okian/wser/internal/domain/types"
	"github.com/okian/wser/pkg/metrics"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runners (
		id         TEXT PRIMARY KEY,
		place      INTEGER NOT NULL DEFAULT 0,
		first_name TEXT NOT NULL DEFAULT '',
		last_name  TEXT NOT NULL DEFAULT '',
		gender     TEXT NOT NULL DEFAULT '',
		age        INTEGER NOT NULL DEFAULT 0,
		city       TEXT NOT NULL DEFAULT '',
		state      TEXT NOT NULL DEFAULT '',
		country    TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS splits (
		runner_id  TEXT NOT NULL REFERENCES runners(id),
		checkpoint TEXT NOT NULL,
		hours      INTEGER NOT NULL,
		minutes    INTEGER NOT NULL,
		seconds    INTEGER NOT NULL,
		position   INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (runner_id, checkpoint)
	)`,
	`CREATE INDEX IF NOT EXISTS splits_checkpoint_idx ON splits (checkpoint)`,
}

// elapsedSeconds is the split time of alias f in seconds.
const elapsedSeconds = "(f.hours * 3600 + f.minutes * 60 + f.seconds)"

const runnerColumns = "r.id, r.place, r.first_name, r.last_name, r.gender, r.age, r.city, r.state, r.country"

const runnerOrder = " ORDER BY CASE WHEN r.place = 0 THEN 1 ELSE 0 END, r.place, LENGTH(r.id), r.id"

// SQLStore is a Store over database/sql, backed by SQLite or Postgres.
type SQLStore struct {
	cfg    settings
	db     *sql.DB
	driver string

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewSQLStore opens dsn with the sqlite or postgres driver and ensures the
// tables exist.
func NewSQLStore(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	s := &SQLStore{cfg: defaultSettings(), stopChan: make(chan struct{})}
	for _, opt := range opts {
		opt(&s.cfg)
	}

	var driverName string
	switch strings.ToLower(driver) {
	case DriverSQLite:
		s.driver, driverName = DriverSQLite, "sqlite"
		if dsn == "" {
			dsn = ":memory:"
		}
		// every sqlite connection would otherwise see its own :memory: database
		if s.cfg.maxOpenConns == 0 {
			s.cfg.maxOpenConns = 1
		}
	case DriverPostgres:
		s.driver, driverName = DriverPostgres, "pgx"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.driver, err)
	}
	if s.cfg.maxOpenConns > 0 {
		db.SetMaxOpenConns(s.cfg.maxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", s.driver, err)
	}
	s.db = db

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	runPeriodically(ctx, &s.wg, s.stopChan, s.cfg.metricsUpdateInterval, func() {
		if n, err := s.Count(ctx); err == nil {
			metrics.UpdateStoreRunners(n)
		}
	})
	return s, nil
}

// Close stops background work and closes the database.
func (s *SQLStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return s.db.Close()
}

// Driver returns "sqlite" or "postgres".
func (s *SQLStore) Driver() string { return s.driver }

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(q string) string {
	if s.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) observe(op string, start time.Time, err error) {
	observe(s.driver, op, start)
	if err != nil && !errors.Is(err, ErrNotFound) {
		metrics.RecordErrorByComponent("store", op)
	}
}

func (s *SQLStore) Reset(ctx context.Context) (err error) {
	defer func(start time.Time) { s.observe("reset", start, err) }(time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err = tx.ExecContext(ctx, "DELETE FROM splits"); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM runners"); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	metrics.UpdateStoreRunners(0)
	return nil
}

func (s *SQLStore) SaveRunner(ctx context.Context, info model.RunnerInfo, splits []model.SplitRecord) (err error) {
	defer func(start time.Time) { s.observe("save_runner", start, err) }(time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, s.rebind("DELETE FROM splits WHERE runner_id = ?"), string(info.ID)); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, s.rebind("DELETE FROM runners WHERE id = ?"), string(info.ID)); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO runners
		(id, place, first_name, last_name, gender, age, city, state, country)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		string(info.ID), info.Place, info.FirstName, info.LastName, info.Gender.Code(),
		info.Age, info.City, info.State, info.Country)
	if err != nil {
		return fmt.Errorf("insert runner %s: %w", info.ID, err)
	}

	if len(splits) > 0 {
		stmt, perr := tx.PrepareContext(ctx, s.rebind(`INSERT INTO splits
			(runner_id, checkpoint, hours, minutes, seconds, position)
			VALUES (?, ?, ?, ?, ?, ?)`))
		if perr != nil {
			return perr
		}
		defer stmt.Close()
		for _, sp := range splits {
			if _, err = stmt.ExecContext(ctx, string(info.ID), sp.Checkpoint,
				sp.Time.Hours, sp.Time.Minutes, sp.Time.Seconds, sp.Place); err != nil {
				return fmt.Errorf("insert split %s/%s: %w", info.ID, sp.Checkpoint, err)
			}
		}
	}
	return tx.Commit()
}

func (s *SQLStore) Split(ctx context.Context, checkpoint string, id types.RunnerID) (t model.ClockTime, err error) {
	defer func(start time.Time) { s.observe("split", start, err) }(time.Now())
	err = s.db.QueryRowContext(ctx,
		s.rebind("SELECT hours, minutes, seconds FROM splits WHERE runner_id = ? AND checkpoint = ?"),
		string(id), checkpoint).Scan(&t.Hours, &t.Minutes, &t.Seconds)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ClockTime{}, ErrNotFound
	}
	return t, err
}

// where accumulates typed filter conditions.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func (s *SQLStore) RunnerIDs(ctx context.Context, filter model.RunnerFilter) (ids []types.RunnerID, err error) {
	defer func(start time.Time) { s.observe("runner_ids", start, err) }(time.Now())

	w := &where{args: []any{s.cfg.finish}}
	if filter.Gender != types.GenderAny {
		w.add("r.gender = ?", filter.Gender.Code())
	}
	if v, ok := filter.MinAge.Get(); ok {
		w.add("r.age >= ?", v)
	}
	if v, ok := filter.MaxAge.Get(); ok {
		w.add("r.age <= ?", v)
	}
	if filter.NeedsFinish() {
		w.add("f.runner_id IS NOT NULL")
	}
	if v, ok := filter.MinFinishHours.Get(); ok {
		w.add(elapsedSeconds+" >= CAST(? AS DOUBLE PRECISION)", v*3600)
	}
	if v, ok := filter.MaxFinishHours.Get(); ok {
		w.add(elapsedSeconds+" < CAST(? AS DOUBLE PRECISION)", v*3600)
	}
	if len(filter.Bibs) > 0 {
		marks := make([]string, len(filter.Bibs))
		args := make([]any, len(filter.Bibs))
		for i, b := range filter.Bibs {
			marks[i], args[i] = "?", string(b)
		}
		w.add("r.id IN ("+strings.Join(marks, ", ")+")", args...)
	}

	q := "SELECT r.id FROM runners r LEFT JOIN splits f ON f.runner_id = r.id AND f.checkpoint = ?" +
		w.String() + runnerOrder
	rows, err := s.db.QueryContext(ctx, s.rebind(q), w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, types.RunnerID(id))
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunner(row rowScanner) (model.RunnerInfo, error) {
	var (
		r      model.RunnerInfo
		id     string
		gender string
	)
	if err := row.Scan(&id, &r.Place, &r.FirstName, &r.LastName, &gender, &r.Age,
		&r.City, &r.State, &r.Country); err != nil {
		return model.RunnerInfo{}, err
	}
	r.ID = types.RunnerID(id)
	// anything but M or F stays GenderAny
	r.Gender, _ = types.ParseGender(gender)
	return r, nil
}

func (s *SQLStore) RunnerInfo(ctx context.Context, id types.RunnerID) (r model.RunnerInfo, err error) {
	defer func(start time.Time) { s.observe("runner_info", start, err) }(time.Now())
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+runnerColumns+" FROM runners r WHERE r.id = ?"), string(id))
	r, err = scanRunner(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunnerInfo{}, ErrNotFound
	}
	return r, err
}

func (s *SQLStore) AgeRange(ctx context.Context) (minAge, maxAge int, err error) {
	defer func(start time.Time) { s.observe("age_range", start, err) }(time.Now())
	var lo, hi sql.NullInt64
	if err = s.db.QueryRowContext(ctx, "SELECT MIN(age), MAX(age) FROM runners").Scan(&lo, &hi); err != nil {
		return 0, 0, err
	}
	if !lo.Valid || !hi.Valid {
		return 0, 0, ErrNotFound
	}
	return int(lo.Int64), int(hi.Int64), nil
}

func (s *SQLStore) CountInRange(ctx context.Context, g types.Gender, lower, upper float64) (n int, err error) {
	defer func(start time.Time) { s.observe("count_in_range", start, err) }(time.Now())
	w := &where{args: []any{s.cfg.finish}}
	if g != types.GenderAny {
		w.add("r.gender = ?", g.Code())
	}
	w.add(elapsedSeconds+" >= CAST(? AS DOUBLE PRECISION)", lower*3600)
	w.add(elapsedSeconds+" < CAST(? AS DOUBLE PRECISION)", upper*3600)
	q := "SELECT COUNT(*) FROM runners r JOIN splits f ON f.runner_id = r.id AND f.checkpoint = ?" + w.String()
	err = s.db.QueryRowContext(ctx, s.rebind(q), w.args...).Scan(&n)
	return n, err
}

func (s *SQLStore) Finishers(ctx context.Context, g types.Gender) (out []model.Finisher, err error) {
	defer func(start time.Time) { s.observe("finishers", start, err) }(time.Now())
	w := &where{args: []any{s.cfg.finish}}
	if g != types.GenderAny {
		w.add("r.gender = ?", g.Code())
	}
	q := "SELECT r.id, r.age, r.gender, f.hours, f.minutes, f.seconds FROM runners r " +
		"JOIN splits f ON f.runner_id = r.id AND f.checkpoint = ?" + w.String() +
		" ORDER BY " + elapsedSeconds + ", LENGTH(r.id), r.id"
	rows, err := s.db.QueryContext(ctx, s.rebind(q), w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			f      model.Finisher
			id     string
			gender string
			t      model.ClockTime
		)
		if err = rows.Scan(&id, &f.Age, &gender, &t.Hours, &t.Minutes, &t.Seconds); err != nil {
			return nil, err
		}
		f.ID = types.RunnerID(id)
		f.Gender, _ = types.ParseGender(gender)
		f.FinishHours = t.Fractional()
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLStore) Search(ctx context.Context, term string) (out []model.RunnerInfo, err error) {
	defer func(start time.Time) { s.observe("search", start, err) }(time.Now())
	q, err := parseSearch(term)
	if err != nil {
		return nil, err
	}
	w := &where{}
	switch {
	case q.bib != "":
		w.add("r.id = ?", string(q.bib))
	case q.name != "":
		w.add("(LOWER(r.first_name) = ? OR LOWER(r.last_name) = ?)", q.name, q.name)
	default:
		w.add("LOWER(r.first_name) = ?", q.first)
		w.add("LOWER(r.last_name) = ?", q.last)
	}
	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT "+runnerColumns+" FROM runners r"+w.String()+runnerOrder), w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		r, serr := scanRunner(rows)
		if serr != nil {
			return nil, serr
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) Count(ctx context.Context) (n int, err error) {
	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runners").Scan(&n)
	return n, err
}
