package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fleetward/fleetward/pkg/match"
)

// ---- Persistence ----

func (s *AppServer) upsertMinion(ctx context.Context, snap *match.Snapshot) error {
	grains, _ := json.Marshal(snap.Grains)
	pillar, _ := json.Marshal(snap.Pillar)
	data, _ := json.Marshal(snap.Data)
	addrs, _ := json.Marshal(snap.Addrs)
	_, err := s.db.ExecContext(ctx, `INSERT INTO minions(minion_id, grains, pillar, data, addresses, last_seen)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (minion_id) DO UPDATE SET grains=EXCLUDED.grains, pillar=EXCLUDED.pillar, data=EXCLUDED.data, addresses=EXCLUDED.addresses, last_seen=EXCLUDED.last_seen`,
		snap.ID, string(grains), string(pillar), string(data), string(addrs), time.Now().UTC(),
	)
	return err
}

type minionRec struct {
	MinionID string    `json:"minion_id"`
	LastSeen time.Time `json:"last_seen"`
}

func (s *AppServer) listMinions(ctx context.Context) ([]minionRec, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT minion_id, last_seen FROM minions ORDER BY minion_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []minionRec{}
	for rows.Next() {
		var m minionRec
		if err := rows.Scan(&m.MinionID, &m.LastSeen); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// insertJob records one dispatch and its matched set.
func (s *AppServer) insertJob(ctx context.Context, tgt, command string, minions []string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `INSERT INTO jobs(created_at, target, command, matched) VALUES ($1,$2,$3,$4) RETURNING id`,
		time.Now().UTC(), tgt, command, len(minions)).Scan(&id)
	if err != nil {
		return 0, err
	}
	for _, m := range minions {
		if _, err := s.db.ExecContext(ctx, `INSERT INTO job_targets(job_id, minion_id) VALUES ($1,$2)`, id, m); err != nil {
			return 0, err
		}
	}
	return id, nil
}

type jobRec struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Target    string    `json:"target"`
	Command   string    `json:"command"`
	Matched   int       `json:"matched"`
}

func (s *AppServer) listJobs(ctx context.Context, limit int) ([]jobRec, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, target, command, matched FROM jobs ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []jobRec{}
	for rows.Next() {
		var j jobRec
		if err := rows.Scan(&j.ID, &j.CreatedAt, &j.Target, &j.Command, &j.Matched); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
