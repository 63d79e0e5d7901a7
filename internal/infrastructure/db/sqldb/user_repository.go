package sqldb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

const (
	selectUser = "SELECT id, username, password_hash, role, created_at FROM users"

	mysqlDuplicateEntry = 1062
)

// UserRepository implements ports.UserRepository with portable SQL that runs
// unchanged on SQLite and MySQL.
type UserRepository struct{}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u         domain.User
		role      string
		createdAt int64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &createdAt); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	u.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &u, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, ex ports.Executor, username string) (*domain.User, error) {
	rows, err := ex.QueryContext(ctx, selectUser+" WHERE username = ? LIMIT 1", username)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("find user: %w", err)
		}
		return nil, domain.ErrUserNotFound
	}
	u, err := scanUser(rows)
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// Create inserts user. A uniqueness violation on username is reported as
// domain.ErrConflict wrapping the driver error.
func (r *UserRepository) Create(ctx context.Context, ex ports.Executor, user *domain.User) (*domain.User, error) {
	created := *user
	if created.Role == "" {
		created.Role = domain.RoleUser
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	created.CreatedAt = created.CreatedAt.Truncate(time.Millisecond)

	res, err := ex.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)",
		created.Username, created.PasswordHash, string(created.Role), created.CreatedAt.UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert user: %w", domain.Wrap(domain.KindConflict, err))
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert user id: %w", err)
	}
	created.ID = id
	return &created, nil
}

// List returns at most limit users ordered by creation sequence. A limit <= 0
// returns every user.
func (r *UserRepository) List(ctx context.Context, ex ports.Executor, limit int, order domain.SortOrder) ([]*domain.User, error) {
	query := selectUser + " ORDER BY id ASC"
	if order == domain.SortDesc {
		query = selectUser + " ORDER BY id DESC"
	}
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateRole sets the role of username and returns the updated record.
func (r *UserRepository) UpdateRole(ctx context.Context, ex ports.Executor, username string, role domain.Role) (*domain.User, error) {
	// MySQL reports zero affected rows when the value is unchanged, so
	// existence is decided by reading the row back.
	if _, err := ex.ExecContext(ctx, "UPDATE users SET role = ? WHERE username = ?", string(role), username); err != nil {
		return nil, fmt.Errorf("update user role: %w", err)
	}
	return r.FindByUsername(ctx, ex, username)
}

// UpdatePasswordHash replaces the stored digest of username.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, ex ports.Executor, username, digest string) error {
	res, err := ex.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE username = ?", digest, username)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, ex ports.Executor, username string) error {
	res, err := ex.ExecContext(ctx, "DELETE FROM users WHERE username = ?", username)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	return false
}
