package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/go-while/go-newsroom/internal/models"
)

// --- User Queries ---
const query_userColumns = `id, firstname, lastname, email, password_hash, session_id, last_login_ip,
	session_expires_at, login_attempts, created_at, updated_at`

const query_InsertUser = `INSERT INTO users (firstname, lastname, email, password_hash, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?) RETURNING id`

const query_InsertUserRole = `INSERT INTO user_roles (user_id, role) VALUES (?, ?) ON CONFLICT (user_id, role) DO NOTHING`

// SaveUser inserts u and its role set in one transaction and returns the generated id.
// u.Password must already hold the digest.
func (db *Database) SaveUser(ctx context.Context, u *models.User) (int64, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = utcNow()
	}
	u.UpdatedAt = u.CreatedAt
	email := normalizeEmail(u.Email)

	var id int64
	err := retryableTransactionExec(ctx, db.mainDB, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, db.rebind(query_InsertUser),
			u.FirstName, u.LastName, email, u.Password, u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
		).Scan(&id); err != nil {
			return err
		}
		for _, role := range u.Roles {
			if _, err := tx.ExecContext(ctx, db.rebind(query_InsertUserRole), id, role); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateEmail
		}
		return 0, fmt.Errorf("failed to save user %s: %w", email, err)
	}
	u.ID = id
	u.Email = email
	return id, nil
}

// EmailExists reports whether a user with this email is registered
func (db *Database) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int
	err := retryableQueryRowScan(ctx, db.mainDB, db.rebind(`SELECT COUNT(*) FROM users WHERE email = ?`),
		[]interface{}{normalizeEmail(email)}, &n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// scanUser scans one row selected with query_userColumns
func scanUser(scan func(dest ...interface{}) error) (*models.User, error) {
	var u models.User
	var expires sql.NullTime
	if err := scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Password, &u.SessionID, &u.LastLoginIP,
		&expires, &u.LoginAttempts, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if expires.Valid {
		t := expires.Time
		u.SessionExpiresAt = &t
	}
	return &u, nil
}

// getUserWhere loads a single user plus roles; cond is a trusted column predicate
func (db *Database) getUserWhere(ctx context.Context, cond string, args ...interface{}) (*models.User, error) {
	row := db.mainDB.QueryRowContext(ctx, db.rebind(`SELECT `+query_userColumns+` FROM users WHERE `+cond), args...)
	u, err := scanUser(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if u.Roles, err = db.GetUserRoles(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByEmail loads a user by email
func (db *Database) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.getUserWhere(ctx, "email = ?", normalizeEmail(email))
}

// GetUserByID loads a user by id
func (db *Database) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return db.getUserWhere(ctx, "id = ?", id)
}

// GetAllUsers retrieves all users from the database
func (db *Database) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := retryableQuery(ctx, db.mainDB, `SELECT `+query_userColumns+` FROM users ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, u := range users {
		if u.Roles, err = db.GetUserRoles(ctx, u.ID); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// UpdateUserPassword updates a user's password hash
func (db *Database) UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := retryableExec(ctx, db.mainDB, db.rebind(`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`),
		passwordHash, utcNow(), userID)
	return err
}

// DeleteUser removes a user, its roles and its articles
func (db *Database) DeleteUser(ctx context.Context, userID int64) error {
	res, err := retryableExec(ctx, db.mainDB, db.rebind(`DELETE FROM users WHERE id = ?`), userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Role Queries ---

// GetUserRoles returns the sorted role set of a user
func (db *Database) GetUserRoles(ctx context.Context, userID int64) ([]string, error) {
	rows, err := retryableQuery(ctx, db.mainDB, db.rebind(`SELECT role FROM user_roles WHERE user_id = ?`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles, rows.Err()
}

// GrantRole adds role to the user's role set
func (db *Database) GrantRole(ctx context.Context, userID int64, role string) error {
	_, err := retryableExec(ctx, db.mainDB, db.rebind(query_InsertUserRole), userID, role)
	return err
}

// RevokeRole removes role from the user's role set
func (db *Database) RevokeRole(ctx context.Context, userID int64, role string) error {
	_, err := retryableExec(ctx, db.mainDB, db.rebind(`DELETE FROM user_roles WHERE user_id = ? AND role = ?`), userID, role)
	return err
}
