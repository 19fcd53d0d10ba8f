package index

import (
	"context"
	"os"
)

// Stats holds index statistics.
type Stats struct {
	DBPath      string `json:"db_path"`
	DBSizeBytes int64  `json:"db_size_bytes"`
	Documents   int    `json:"documents"`
	LastIndexed string `json:"last_indexed,omitempty"`
}

// Stats returns index statistics.
func (x *SQLiteIndex) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{DBPath: x.path}

	if info, err := os.Stat(x.path); err == nil {
		st.DBSizeBytes = info.Size()
	}

	if err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&st.Documents); err != nil {
		return st, err
	}
	x.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(indexed_at), '') FROM documents`).Scan(&st.LastIndexed)

	return st, nil
}
