package db

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// marshalJSONB renders a value for a nullable jsonb column. Empty maps and
// nil pointers become NULL rather than '{}' so absence stays queryable.
func marshalJSONB(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch typed := v.(type) {
	case map[string]interface{}:
		if len(typed) == 0 {
			return nil, nil
		}
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(payload), nil
}

func (s *Store) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var rfps int
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM rfps").Scan(&rfps)
	stats["rfps"] = rfps

	var vendors int
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM vendors").Scan(&vendors)
	stats["vendors"] = vendors

	var proposals int
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM proposals").Scan(&proposals)
	stats["proposals"] = proposals

	emailCounts := map[string]int{}
	rows, err := s.pool.Query(ctx, "SELECT status, COUNT(*) FROM email_messages GROUP BY status")
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var status string
			var count int
			if scanErr := rows.Scan(&status, &count); scanErr == nil {
				emailCounts[status] = count
			}
		}
	}
	stats["email_status_counts"] = emailCounts

	return stats, nil
}
