package flowfile

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/ndconvert/internal/record"
)

//go:embed flow_schema.sql
var flowSchemaSQL string

// SQLite reads a relational flow export.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens an existing flow export read-only.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	dsn, err := flowDSN(path, "ro")
	if err != nil {
		return nil, fmt.Errorf("open flow export: %w", err)
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open flow export: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect flow export: %w", err)
	}

	var n int
	err = db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('events','hits','relations','refs')",
	).Scan(&n)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("inspect flow export: %w", err)
	}
	if n != 4 {
		db.Close()
		return nil, fmt.Errorf("%s is not a flow export (missing core tables)", path)
	}

	return &SQLite{db: db}, nil
}

// flowDSN returns a SQLite URI for path opened with the given mode. The
// path is made absolute and escaped so that '?' and '#' in file names stay
// part of the path.
func flowDSN(path, mode string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "mode=" + mode}
	return u.String(), nil
}

// Close closes the database handle.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) Events(ctx context.Context) ([]record.Event, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, ts_start, ts_end, unix_ts FROM events ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []record.Event
	for rows.Next() {
		var ev record.Event
		if err := rows.Scan(&ev.ID, &ev.TsStart, &ev.TsEnd, &ev.UnixTs); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *SQLite) Children(ctx context.Context, parent, child string, ids []int64) ([][]int64, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM relations WHERE parent = ? AND child = ?", parent, child,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &UnknownRelationError{Parent: parent, Child: child}
	}
	if err != nil {
		return nil, fmt.Errorf("lookup relation %s -> %s: %w", parent, child, err)
	}

	stmt, err := s.db.PrepareContext(ctx, `
		SELECT child_id FROM refs
		WHERE parent = ? AND child = ? AND parent_id = ?
		ORDER BY ord ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare refs: %w", err)
	}
	defer stmt.Close()

	out := make([][]int64, len(ids))
	for i, id := range ids {
		children, err := queryInt64s(ctx, stmt, parent, child, id)
		if err != nil {
			return nil, fmt.Errorf("refs %s -> %s for %d: %w", parent, child, id, err)
		}
		out[i] = children
	}
	return out, nil
}

func queryInt64s(ctx context.Context, stmt *sql.Stmt, args ...any) ([]int64, error) {
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []int64{}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLite) Hits(ctx context.Context, table string, ids []int64) ([]record.Hit, error) {
	stmt, err := s.db.PrepareContext(ctx,
		"SELECT id, x, y, z, q, e, ts_pps FROM hits WHERE tbl = ? AND id = ?")
	if err != nil {
		return nil, fmt.Errorf("prepare hits: %w", err)
	}
	defer stmt.Close()

	out := make([]record.Hit, len(ids))
	for i, id := range ids {
		h := &out[i]
		err := stmt.QueryRowContext(ctx, table, id).Scan(&h.ID, &h.X, &h.Y, &h.Z, &h.Q, &h.E, &h.TsPPS)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s id %d: %w", table, id, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("scan hit %d: %w", id, err)
		}
	}
	return out, nil
}

func (s *SQLite) Segments(ctx context.Context, ids []int64) ([]record.Segment, error) {
	stmt, err := s.db.PrepareContext(ctx, `
		SELECT id, segment_id, event_id, pdg_id, file_traj_id, traj_id, vertex_id
		FROM segments WHERE id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare segments: %w", err)
	}
	defer stmt.Close()

	out := make([]record.Segment, len(ids))
	for i, id := range ids {
		sg := &out[i]
		err := stmt.QueryRowContext(ctx, id).Scan(
			&sg.ID, &sg.SegmentID, &sg.EventID, &sg.PDG, &sg.FileTrajID, &sg.TrajID, &sg.VertexID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s id %d: %w", record.SegmentsTable, id, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("scan segment %d: %w", id, err)
		}
	}
	return out, nil
}

func (s *SQLite) Fractions(ctx context.Context, table string, ids []int64) ([]FractionRow, error) {
	stmt, err := s.db.PrepareContext(ctx,
		"SELECT id, segment_ids, fraction FROM fractions WHERE tbl = ? AND id = ?")
	if err != nil {
		return nil, fmt.Errorf("prepare fractions: %w", err)
	}
	defer stmt.Close()

	out := make([]FractionRow, len(ids))
	for i, id := range ids {
		var segJSON, fracJSON string
		err := stmt.QueryRowContext(ctx, table, id).Scan(&out[i].ID, &segJSON, &fracJSON)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s id %d: %w", table, id, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("scan fraction row %d: %w", id, err)
		}
		if err := json.Unmarshal([]byte(segJSON), &out[i].SegmentIDs); err != nil {
			return nil, fmt.Errorf("decode segment_ids of %s id %d: %w", table, id, err)
		}
		if err := json.Unmarshal([]byte(fracJSON), &out[i].Fractions); err != nil {
			return nil, fmt.Errorf("decode fraction of %s id %d: %w", table, id, err)
		}
	}
	return out, nil
}

func (s *SQLite) Trajectories(ctx context.Context) ([]record.Trajectory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, file_traj_id, traj_id, pdg_id, vertex_id, parent_id,
		       x_start, y_start, z_start, x_end, y_end, z_end,
		       px_start, py_start, pz_start, e_start
		FROM trajectories ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("query trajectories: %w", err)
	}
	defer rows.Close()

	var out []record.Trajectory
	for rows.Next() {
		var t record.Trajectory
		err := rows.Scan(&t.EventID, &t.FileTrajID, &t.TrajID, &t.PDG, &t.VertexID, &t.ParentID,
			&t.XYZStart[0], &t.XYZStart[1], &t.XYZStart[2],
			&t.XYZEnd[0], &t.XYZEnd[1], &t.XYZEnd[2],
			&t.PXYZStart[0], &t.PXYZStart[1], &t.PXYZStart[2],
			&t.EStart)
		if err != nil {
			return nil, fmt.Errorf("scan trajectory: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLite) Interactions(ctx context.Context) ([]record.Vertex, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, vertex_id, x_vert, y_vert, z_vert, enu, nu_pdg,
		       nu_px, nu_py, nu_pz, nu_e,
		       is_cc, is_qes, is_res, is_dis, is_mec, is_coh
		FROM interactions ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	var out []record.Vertex
	for rows.Next() {
		var v record.Vertex
		err := rows.Scan(&v.EventID, &v.VertexID, &v.X, &v.Y, &v.Z, &v.Enu, &v.NuPDG,
			&v.Nu4Mom[0], &v.Nu4Mom[1], &v.Nu4Mom[2], &v.Nu4Mom[3],
			&v.IsCC, &v.IsQES, &v.IsRES, &v.IsDIS, &v.IsMEC, &v.IsCOH)
		if err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
