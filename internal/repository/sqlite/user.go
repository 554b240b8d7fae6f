package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/devtrack/devtrack-server/internal/apperror"
	"github.com/devtrack/devtrack-server/internal/model"
	"github.com/devtrack/devtrack-server/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, github_id, username, name, email, password_hash, access_token,
	avatar_url, last_synced, created_at, updated_at`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Create inserts a new account. ID and timestamps are set on user in place.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	return db.insert(ctx, db.conn, user)
}

func (db *DB) insert(ctx context.Context, q querier, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.Email = normalizeEmail(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now

	sealed, err := db.seal(user.AccessToken)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		nullableGitHubID(user.GitHubID),
		user.Username,
		user.Name,
		user.Email,
		user.PasswordHash,
		sealed,
		user.AvatarURL,
		nullableTime(user.LastSynced),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}

	return nil
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return db.getOne(ctx, db.conn, "id", id)
}

// GetByEmail matches case-insensitively.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getOne(ctx, db.conn, "email", normalizeEmail(email))
}

func (db *DB) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return db.getOne(ctx, db.conn, "github_id", githubID)
}

// getOne loads the single row where column = value. column is always one of
// the constants above, never user input.
func (db *DB) getOne(ctx context.Context, q querier, column string, value any) (*model.User, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)

	u, err := db.scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", fmt.Sprint(value))
		}
		return nil, fmt.Errorf("sqlite: getting user by %s: %w", column, err)
	}
	return u, nil
}

// UpsertGitHub inserts or refreshes the account behind a GitHub login.
//
// Lookup order: github_id, then e-mail when matchEmail is set. A match by
// e-mail is an existing password account logging in with GitHub for the
// first time; it is linked rather than duplicated. Callers pass matchEmail
// only for addresses GitHub has verified. The whole resolution runs in one
// transaction so two concurrent callbacks for the same GitHub user cannot
// both insert.
func (db *DB) UpsertGitHub(ctx context.Context, user *model.User, matchEmail bool) error {
	if user.GitHubID == nil {
		return fmt.Errorf("sqlite: UpsertGitHub requires a GitHub ID")
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := db.getOne(ctx, tx, "github_id", *user.GitHubID)
	if matchEmail && errors.Is(err, apperror.ErrNotFound) {
		existing, err = db.getOne(ctx, tx, "email", normalizeEmail(user.Email))
	}

	switch {
	case err == nil:
		existing.GitHubID = user.GitHubID
		existing.Username = user.Username
		if user.Name != "" {
			existing.Name = user.Name
		}
		existing.AvatarURL = user.AvatarURL
		existing.AccessToken = user.AccessToken
		existing.LastSynced = user.LastSynced
		if err := db.update(ctx, tx, existing); err != nil {
			return err
		}
		*user = *existing
	case errors.Is(err, apperror.ErrNotFound):
		if err := db.insert(ctx, tx, user); err != nil {
			return err
		}
	default:
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing upsert: %w", err)
	}
	return nil
}

// Update writes every mutable column of user.
// Returns apperror.ErrNotFound if the row is gone.
func (db *DB) Update(ctx context.Context, user *model.User) error {
	return db.update(ctx, db.conn, user)
}

func (db *DB) update(ctx context.Context, q querier, user *model.User) error {
	user.Email = normalizeEmail(user.Email)
	user.UpdatedAt = time.Now().UTC()

	sealed, err := db.seal(user.AccessToken)
	if err != nil {
		return err
	}

	res, err := q.ExecContext(ctx,
		`UPDATE users SET github_id = ?, username = ?, name = ?, email = ?,
		        password_hash = ?, access_token = ?, avatar_url = ?,
		        last_synced = ?, updated_at = ?
		 WHERE id = ?`,
		nullableGitHubID(user.GitHubID),
		user.Username,
		user.Name,
		user.Email,
		user.PasswordHash,
		sealed,
		user.AvatarURL,
		nullableTime(user.LastSynced),
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.ID)
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	return requireOneRow(res, user.ID)
}

// ClearAccessToken removes the stored GitHub credential. The GitHub ID is
// kept so a later OAuth login resolves to the same account.
func (db *DB) ClearAccessToken(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET access_token = '', updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: clearing token for user %s: %w", id, err)
	}
	return requireOneRow(res, id)
}

func (db *DB) scanUser(row *sql.Row) (*model.User, error) {
	var (
		u          model.User
		githubID   sql.NullInt64
		lastSynced sql.NullTime
		sealed     string
	)

	err := row.Scan(
		&u.ID,
		&githubID,
		&u.Username,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&sealed,
		&u.AvatarURL,
		&lastSynced,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if githubID.Valid {
		id := githubID.Int64
		u.GitHubID = &id
	}
	if lastSynced.Valid {
		u.LastSynced = lastSynced.Time
	}

	// A token sealed under a previous key reads as absent, so the account
	// shows as not connected and the user can re-link GitHub.
	if u.AccessToken, err = db.open(sealed); err != nil {
		db.logger.Warn("stored GitHub token cannot be opened; treating account as disconnected",
			slog.String("userID", u.ID),
			slog.String("error", err.Error()),
		)
		u.AccessToken = ""
	}

	return &u, nil
}

func (db *DB) seal(token string) (string, error) {
	if db.sealer == nil || token == "" {
		return token, nil
	}
	sealed, err := db.sealer.Seal(token)
	if err != nil {
		return "", fmt.Errorf("sqlite: sealing access token: %w", err)
	}
	return sealed, nil
}

func (db *DB) open(sealed string) (string, error) {
	if db.sealer == nil || sealed == "" {
		return sealed, nil
	}
	return db.sealer.Open(sealed)
}

func requireOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se *moderncsqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func nullableGitHubID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
