package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/roster-import-api/internal/database"
)

// querier is satisfied by *sql.Tx and *sql.DB
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// pgStore opens one dedicated connection per unit of work
type pgStore struct {
	db *database.DB
}

// NewStore creates a Postgres backed Store
func NewStore(db *database.DB) Store {
	return &pgStore{db: db}
}

// Begin reserves a connection and opens a transaction on it
func (s *pgStore) Begin(ctx context.Context) (Tx, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve connection: %w", err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return newPgTx(tx, conn), nil
}

// pgTx implements Tx over a single *sql.Tx
type pgTx struct {
	tx   *sql.Tx
	conn *sql.Conn
	done bool

	orgs          *organizationRepo
	users         *userRepo
	memberships   *membershipRepo
	roles         *roleRepo
	schools       *schoolRepo
	classes       *classRepo
	grades        *gradeRepo
	programs      *programRepo
	ageRanges     *ageRangeRepo
	categories    *categoryRepo
	subcategories *subcategoryRepo
	subjects      *subjectRepo
}

func newPgTx(tx *sql.Tx, conn *sql.Conn) *pgTx {
	return &pgTx{
		tx:            tx,
		conn:          conn,
		orgs:          &organizationRepo{q: tx},
		users:         &userRepo{q: tx},
		memberships:   &membershipRepo{q: tx},
		roles:         &roleRepo{q: tx},
		schools:       &schoolRepo{q: tx},
		classes:       &classRepo{q: tx},
		grades:        &gradeRepo{q: tx},
		programs:      &programRepo{q: tx},
		ageRanges:     &ageRangeRepo{q: tx},
		categories:    &categoryRepo{q: tx},
		subcategories: &subcategoryRepo{q: tx},
		subjects:      &subjectRepo{q: tx},
	}
}

func (t *pgTx) Organizations() OrganizationRepository { return t.orgs }
func (t *pgTx) Users() UserRepository                 { return t.users }
func (t *pgTx) Memberships() MembershipRepository     { return t.memberships }
func (t *pgTx) Roles() RoleRepository                 { return t.roles }
func (t *pgTx) Schools() SchoolRepository             { return t.schools }
func (t *pgTx) Classes() ClassRepository              { return t.classes }
func (t *pgTx) Grades() GradeRepository               { return t.grades }
func (t *pgTx) Programs() ProgramRepository           { return t.programs }
func (t *pgTx) AgeRanges() AgeRangeRepository         { return t.ageRanges }
func (t *pgTx) Categories() CategoryRepository        { return t.categories }
func (t *pgTx) Subcategories() SubcategoryRepository  { return t.subcategories }
func (t *pgTx) Subjects() SubjectRepository           { return t.subjects }

func (t *pgTx) Commit(_ context.Context) error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	return t.tx.Commit()
}

func (t *pgTx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}

// Release returns the connection to the pool
func (t *pgTx) Release() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// ErrConflict is returned when a write violates a uniqueness constraint
var ErrConflict = errors.New("conflicting record")

// mapWriteError turns unique violations into ErrConflict
func mapWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrConflict, pqErr.Constraint)
	}
	return err
}

// replaceLinks rewrites the rows of a join table owned by ownerID
func replaceLinks(ctx context.Context, q querier, table, ownerCol, itemCol, ownerID string, ids []string) error {
	if _, err := q.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, table, ownerCol), ownerID); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s, %s) SELECT $1, unnest($2::uuid[])`, table, ownerCol, itemCol)
	_, err := q.ExecContext(ctx, query, ownerID, pq.Array(ids))
	return err
}

// addLink inserts one join table row, keeping an existing one
func addLink(ctx context.Context, q querier, table, ownerCol, itemCol, ownerID, itemID string) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES ($1, $2) ON CONFLICT DO NOTHING`, table, ownerCol, itemCol)
	_, err := q.ExecContext(ctx, query, ownerID, itemID)
	return err
}

// linkedIDs is a select expression loading the join table items of owner
func linkedIDs(table, ownerCol, itemCol, owner string) string {
	return fmt.Sprintf(`ARRAY(SELECT %s::text FROM %s WHERE %s = %s ORDER BY %s)`, itemCol, table, ownerCol, owner, itemCol)
}

// nullString converts an empty string to NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// ownerFilter is the WHERE fragment restricting the owner organization.
// arg is the placeholder holding the organization id.
func ownerFilter(vis Visibility, arg string) string {
	if vis == OwnedOrSystem {
		return fmt.Sprintf(`(organization_id = %s OR system = TRUE)`, arg)
	}
	return fmt.Sprintf(`organization_id = %s`, arg)
}

// ownedFirst orders owned records before system ones
const ownedFirst = ` ORDER BY system ASC, id LIMIT 1`
