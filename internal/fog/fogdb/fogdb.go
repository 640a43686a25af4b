// Package fogdb persists fog response tables and simulation run records in
// SQLite. Tables are stored as compressed blobs keyed by their
// parameterisation digest, so a simulator asking for a parameterisation that
// was never built gets nothing rather than a silently mis-indexed grid.
package fogdb

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/fogsim/internal/fog"
	"github.com/banshee-data/fogsim/internal/monitoring"
)

//go:embed schema.sql
var schemaSQL string

// FogDB wraps the SQLite handle for fog table and run persistence.
type FogDB struct {
	*sql.DB
}

// NewFogDB opens (creating if necessary) the fog database at path and applies
// the schema.
func NewFogDB(path string) (*FogDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot apply fog schema: %w", err)
	}
	return &FogDB{db}, nil
}

// InsertTableSnapshot persists a table snapshot, replacing any previous
// snapshot stored under the same parameterisation key. Returns the new
// snapshot_id. Concurrent builders targeting the same key must be serialised
// by the caller.
func (fdb *FogDB) InsertTableSnapshot(s *fog.TableSnapshot) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("nil table snapshot")
	}
	stmt := `INSERT INTO fog_table_snapshot (param_key, params_json, built_unix_nanos, range_bins, alpha_bins, table_blob)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(param_key) DO UPDATE SET
				 params_json = excluded.params_json,
				 built_unix_nanos = excluded.built_unix_nanos,
				 range_bins = excluded.range_bins,
				 alpha_bins = excluded.alpha_bins,
				 table_blob = excluded.table_blob`
	res, err := fdb.Exec(stmt, s.Key, s.ParamsJSON, time.Now().UnixNano(), s.RangeBins, s.AlphaBins, s.Blob)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	monitoring.Logf("[FogDB] persisted table snapshot: key=%s, bins=%dx%d, blob=%d bytes",
		s.Key, s.RangeBins, s.AlphaBins, len(s.Blob))
	return id, nil
}

// GetTableSnapshot returns the snapshot stored under key, or nil when no
// table with that parameterisation has been built.
func (fdb *FogDB) GetTableSnapshot(key string) (*fog.TableSnapshot, error) {
	row := fdb.QueryRow(`SELECT snapshot_id, param_key, params_json, built_unix_nanos, range_bins, alpha_bins, table_blob
						 FROM fog_table_snapshot WHERE param_key = ?`, key)
	var s fog.TableSnapshot
	var id int64
	err := row.Scan(&id, &s.Key, &s.ParamsJSON, &s.BuiltUnixNanos, &s.RangeBins, &s.AlphaBins, &s.Blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.SnapshotID = &id
	return &s, nil
}

// LoadTable restores the table built for the given parameterisation. It
// fails with a *fog.TableMismatchError when the stored snapshot does not
// verify against its own key, and with a plain error when no snapshot exists.
func (fdb *FogDB) LoadTable(tp fog.TableParams) (*fog.Table, error) {
	key, err := tp.Key()
	if err != nil {
		return nil, err
	}
	snap, err := fdb.GetTableSnapshot(key)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("no fog table built for key %s; run fog-build first", key)
	}
	t, err := fog.RestoreTable(snap)
	if err != nil {
		return nil, err
	}
	if err := t.EnsureCompatible(tp); err != nil {
		return nil, err
	}
	return t, nil
}

// SimRun records one simulated scene for experiment tracking.
type SimRun struct {
	RunID            string
	ParamKey         string
	StartedUnixNanos int64
	Alpha            float64
	Seed             int64
	PointsTotal      int
	PointsUnchanged  int
	PointsAttenuated int
	PointsReplaced   int
	SourcePath       string
}

// NewSimRun builds a run record for a simulated cloud with a fresh run ID.
func NewSimRun(paramKey string, alpha float64, seed int64, c *fog.Cloud, sourcePath string) *SimRun {
	unchanged, attenuated, replaced := c.Counts()
	return &SimRun{
		RunID:            uuid.New().String(),
		ParamKey:         paramKey,
		StartedUnixNanos: time.Now().UnixNano(),
		Alpha:            alpha,
		Seed:             seed,
		PointsTotal:      c.Len(),
		PointsUnchanged:  unchanged,
		PointsAttenuated: attenuated,
		PointsReplaced:   replaced,
		SourcePath:       sourcePath,
	}
}

// InsertSimRun persists a run record.
func (fdb *FogDB) InsertSimRun(r *SimRun) error {
	if r == nil {
		return fmt.Errorf("nil sim run")
	}
	stmt := `INSERT INTO fog_sim_run (run_id, param_key, started_unix_nanos, alpha, seed, points_total, points_unchanged, points_attenuated, points_replaced, source_path)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := fdb.Exec(stmt, r.RunID, r.ParamKey, r.StartedUnixNanos, r.Alpha, r.Seed,
		r.PointsTotal, r.PointsUnchanged, r.PointsAttenuated, r.PointsReplaced, r.SourcePath)
	return err
}

// ListSimRuns returns all run records for a parameterisation key ordered by
// start time, or every run when key is empty.
func (fdb *FogDB) ListSimRuns(key string) ([]SimRun, error) {
	query := `SELECT run_id, param_key, started_unix_nanos, alpha, seed, points_total, points_unchanged, points_attenuated, points_replaced, COALESCE(source_path, '')
			  FROM fog_sim_run`
	args := []interface{}{}
	if key != "" {
		query += ` WHERE param_key = ?`
		args = append(args, key)
	}
	query += ` ORDER BY started_unix_nanos`

	rows, err := fdb.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []SimRun
	for rows.Next() {
		var r SimRun
		if err := rows.Scan(&r.RunID, &r.ParamKey, &r.StartedUnixNanos, &r.Alpha, &r.Seed,
			&r.PointsTotal, &r.PointsUnchanged, &r.PointsAttenuated, &r.PointsReplaced, &r.SourcePath); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
