package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/denchik37/Copy-of-Effektif/pkg/api"
)

// SQLiteInstanceStore is an InstanceStore backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
//
// The instance tree is stored as an opaque gob blob next to the columns the
// store needs for filtering and optimistic concurrency.
type SQLiteInstanceStore struct {
	db *sql.DB
}

// Ensure SQLiteInstanceStore implements InstanceStore.
var _ InstanceStore = (*SQLiteInstanceStore)(nil)

// NewSQLiteInstanceStore initializes the required schema in the given
// database and returns a new SQLiteInstanceStore.
func NewSQLiteInstanceStore(db *sql.DB) (*SQLiteInstanceStore, error) {
	s := &SQLiteInstanceStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteInstanceStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS workflow_instances (
			id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL,
			status TEXT NOT NULL,
			rev INTEGER NOT NULL,
			tree BLOB NOT NULL
		);`,
	)
	return err
}

func (s *SQLiteInstanceStore) CreateInstance(ctx context.Context, inst *api.WorkflowInstance) error {
	inst.Rev = 1
	tree, err := EncodeValue(inst)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflow_instances (id, workflow_id, status, rev, tree)
		VALUES (?, ?, ?, ?, ?)`,
		inst.ID,
		inst.WorkflowID,
		string(inst.Status),
		inst.Rev,
		tree,
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint") {
		return ErrInstanceExists
	}
	return err
}

func (s *SQLiteInstanceStore) UpdateInstance(ctx context.Context, inst *api.WorkflowInstance, expectedRev int64) error {
	inst.Rev = expectedRev + 1
	tree, err := EncodeValue(inst)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE workflow_instances
		SET workflow_id = ?, status = ?, rev = ?, tree = ?
		WHERE id = ? AND rev = ?`,
		inst.WorkflowID,
		string(inst.Status),
		inst.Rev,
		tree,
		inst.ID,
		expectedRev,
	)
	if err != nil {
		inst.Rev = expectedRev
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		inst.Rev = expectedRev
		// Distinguish a missing row from a revision clash.
		var exists int
		if scanErr := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM workflow_instances WHERE id = ?`, inst.ID,
		).Scan(&exists); scanErr != nil {
			if errors.Is(scanErr, sql.ErrNoRows) {
				return ErrInstanceNotFound
			}
			return scanErr
		}
		return ErrRevConflict
	}
	return nil
}

func (s *SQLiteInstanceStore) GetInstance(ctx context.Context, id string) (*api.WorkflowInstance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT tree FROM workflow_instances WHERE id = ?`, id)

	var tree []byte
	if err := row.Scan(&tree); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInstanceNotFound
		}
		return nil, err
	}

	return DecodeValue[*api.WorkflowInstance](tree)
}

func (s *SQLiteInstanceStore) ListInstances(ctx context.Context, q api.InstanceQuery) ([]*api.WorkflowInstance, error) {
	query := `SELECT tree FROM workflow_instances`
	var args []any
	var clauses []string

	if q.WorkflowID != "" {
		clauses = append(clauses, "workflow_id = ?")
		args = append(args, q.WorkflowID)
	}
	if q.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(q.Status))
	}
	if len(clauses) > 0 {
		query = query + " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instances []*api.WorkflowInstance
	for rows.Next() {
		var tree []byte
		if err := rows.Scan(&tree); err != nil {
			return nil, err
		}
		inst, err := DecodeValue[*api.WorkflowInstance](tree)
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	return instances, rows.Err()
}

func (s *SQLiteInstanceStore) DeleteInstances(ctx context.Context, q api.InstanceQuery) (int, error) {
	query := `DELETE FROM workflow_instances`
	var args []any
	var clauses []string

	if q.WorkflowID != "" {
		clauses = append(clauses, "workflow_id = ?")
		args = append(args, q.WorkflowID)
	}
	if q.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(q.Status))
	}
	if len(clauses) > 0 {
		query = query + " WHERE " + strings.Join(clauses, " AND ")
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}
