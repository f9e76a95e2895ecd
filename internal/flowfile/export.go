package flowfile

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// WriteSQLite exports a Memory store into a new SQLite flow file at path.
// The write runs in one transaction; a failed export leaves no partial rows.
func WriteSQLite(ctx context.Context, path string, m *Memory) (err error) {
	dsn, err := flowDSN(path, "rwc")
	if err != nil {
		return fmt.Errorf("create flow export: %w", err)
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("create flow export: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close flow export: %w", cerr)
		}
	}()
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, flowSchemaSQL); err != nil {
		return fmt.Errorf("apply flow schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("export: begin tx: %w", err)
	}
	defer tx.Rollback()

	for i, ev := range m.events {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO events (seq, id, ts_start, ts_end, unix_ts) VALUES (?, ?, ?, ?, ?)",
			i, ev.ID, ev.TsStart, ev.TsEnd, ev.UnixTs,
		); err != nil {
			return fmt.Errorf("export event %d: %w", ev.ID, err)
		}
	}

	for table, ids := range m.hitOrder {
		for _, id := range ids {
			h := m.hits[table][id]
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO hits (tbl, id, x, y, z, q, e, ts_pps) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
				table, h.ID, h.X, h.Y, h.Z, h.Q, h.E, h.TsPPS,
			); err != nil {
				return fmt.Errorf("export hit %s/%d: %w", table, id, err)
			}
		}
	}

	for k, links := range m.relations {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO relations (parent, child) VALUES (?, ?)", k.parent, k.child,
		); err != nil {
			return fmt.Errorf("export relation %s -> %s: %w", k.parent, k.child, err)
		}
		for parentID, children := range links {
			for ord, childID := range children {
				if _, err := tx.ExecContext(ctx,
					"INSERT INTO refs (parent, child, parent_id, ord, child_id) VALUES (?, ?, ?, ?, ?)",
					k.parent, k.child, parentID, ord, childID,
				); err != nil {
					return fmt.Errorf("export ref %s -> %s: %w", k.parent, k.child, err)
				}
			}
		}
	}

	for _, id := range m.segOrder {
		s := m.segments[id]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO segments (id, segment_id, event_id, pdg_id, file_traj_id, traj_id, vertex_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, s.ID, s.SegmentID, s.EventID, s.PDG, s.FileTrajID, s.TrajID, s.VertexID); err != nil {
			return fmt.Errorf("export segment %d: %w", id, err)
		}
	}

	for table, ids := range m.fracOrder {
		for _, id := range ids {
			r := m.fractions[table][id]
			segJSON, err := json.Marshal(nonNil(r.SegmentIDs))
			if err != nil {
				return fmt.Errorf("export fraction row %d: %w", id, err)
			}
			fracJSON, err := json.Marshal(nonNil(r.Fractions))
			if err != nil {
				return fmt.Errorf("export fraction row %d: %w", id, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO fractions (tbl, id, segment_ids, fraction) VALUES (?, ?, ?, ?)",
				table, id, string(segJSON), string(fracJSON),
			); err != nil {
				return fmt.Errorf("export fraction row %s/%d: %w", table, id, err)
			}
		}
	}

	for _, t := range m.trajectories {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO trajectories (event_id, file_traj_id, traj_id, pdg_id, vertex_id, parent_id,
				x_start, y_start, z_start, x_end, y_end, z_end, px_start, py_start, pz_start, e_start)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, t.EventID, t.FileTrajID, t.TrajID, t.PDG, t.VertexID, t.ParentID,
			t.XYZStart[0], t.XYZStart[1], t.XYZStart[2],
			t.XYZEnd[0], t.XYZEnd[1], t.XYZEnd[2],
			t.PXYZStart[0], t.PXYZStart[1], t.PXYZStart[2], t.EStart,
		); err != nil {
			return fmt.Errorf("export trajectory %d: %w", t.FileTrajID, err)
		}
	}

	for _, v := range m.interactions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO interactions (event_id, vertex_id, x_vert, y_vert, z_vert, enu, nu_pdg,
				nu_px, nu_py, nu_pz, nu_e, is_cc, is_qes, is_res, is_dis, is_mec, is_coh)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, v.EventID, v.VertexID, v.X, v.Y, v.Z, v.Enu, v.NuPDG,
			v.Nu4Mom[0], v.Nu4Mom[1], v.Nu4Mom[2], v.Nu4Mom[3],
			v.IsCC, v.IsQES, v.IsRES, v.IsDIS, v.IsMEC, v.IsCOH,
		); err != nil {
			return fmt.Errorf("export interaction %d: %w", v.VertexID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("export: commit: %w", err)
	}
	return nil
}

func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}
