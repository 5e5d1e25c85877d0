package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/cenkalti/backoff/v4"

	"github.com/clickgame/backend/internal/apierrors"
	"github.com/clickgame/backend/internal/id"
)

// PGRepository implements Repository over a database/sql handle backed by
// the pgx stdlib driver.
type PGRepository struct {
	db *sql.DB
}

// Open opens a connection pool against dsn using the pgx driver.
func Open(dsn string) (*PGRepository, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.Database, "opening database", err)
	}
	return &PGRepository{db: db}, nil
}

// NewPGRepository wraps an already-opened handle, used by tests that manage
// their own pool lifecycle.
func NewPGRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

func (r *PGRepository) Close() error {
	return r.db.Close()
}

func (r *PGRepository) CreateUser(ctx context.Context, externalID int64, username id.Username) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, external_id, username, total_clicks, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, $2, 0, now(), now())
		RETURNING id, external_id, username, total_clicks, created_at, updated_at
	`, externalID, username.String())

	u, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apierrors.Wrap(apierrors.UserAlreadyExists, fmt.Sprintf("external id %d already registered", externalID), err)
		}
		return nil, apierrors.Wrap(apierrors.Database, "creating user", err)
	}
	return u, nil
}

func (r *PGRepository) GetUserByExternalID(ctx context.Context, externalID int64) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, external_id, username, total_clicks, created_at, updated_at
		FROM users WHERE external_id = $1
	`, externalID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierrors.New(apierrors.UserNotFound, fmt.Sprintf("no user with external id %d", externalID))
	}
	if err != nil {
		return nil, apierrors.Wrap(apierrors.Database, "looking up user by external id", err)
	}
	return u, nil
}

func (r *PGRepository) GetUserByID(ctx context.Context, userID id.UserID) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, external_id, username, total_clicks, created_at, updated_at
		FROM users WHERE id = $1
	`, userID.String())
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierrors.New(apierrors.UserNotFound, fmt.Sprintf("no user with id %s", userID))
	}
	if err != nil {
		return nil, apierrors.Wrap(apierrors.Database, "looking up user by id", err)
	}
	return u, nil
}

func (r *PGRepository) UpdateUsername(ctx context.Context, userID id.UserID, username id.Username) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE users SET username = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, external_id, username, total_clicks, created_at, updated_at
	`, userID.String(), username.String())
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierrors.New(apierrors.UserNotFound, fmt.Sprintf("no user with id %s", userID))
	}
	if err != nil {
		return nil, apierrors.Wrap(apierrors.Database, "updating username", err)
	}
	return u, nil
}

// BulkIncrement applies every increment inside one transaction, sorted by
// user id to minimize deadlock probability, retrying on
// deadlock up to 3 times with 100/200/400ms backoff. Each user is a
// separate UPDATE statement, so a batch costs one round trip per user
// rather than a single round trip.
func (r *PGRepository) BulkIncrement(ctx context.Context, increments map[id.UserID]Increment) (map[id.UserID]int64, error) {
	if len(increments) == 0 {
		return map[id.UserID]int64{}, nil
	}

	users := make([]id.UserID, 0, len(increments))
	for u := range increments {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].String() < users[j].String() })

	retryPolicy := backoff.WithContext(deadlockBackoff(), ctx)
	result, err := backoff.RetryNotifyWithData(
		func() (map[id.UserID]int64, error) {
			res, err := r.bulkIncrementOnce(ctx, users, increments)
			if err != nil && !isDeadlock(err) {
				return nil, backoff.Permanent(err)
			}
			return res, err
		},
		retryPolicy,
		nil,
	)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.Database, "bulk increment failed", err)
	}
	return result, nil
}

// deadlockBackoff yields the 100/200/400ms schedule used when a bulk
// increment collides with another transaction.
func deadlockBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, 3)
}

func (r *PGRepository) bulkIncrementOnce(ctx context.Context, users []id.UserID, increments map[id.UserID]Increment) (map[id.UserID]int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	result := make(map[id.UserID]int64, len(users))
	for _, u := range users {
		inc := increments[u]
		row := tx.QueryRowContext(ctx, `
			UPDATE users SET total_clicks = total_clicks + $2, updated_at = now()
			WHERE id = $1
			RETURNING total_clicks
		`, u.String(), inc.Count)

		var total int64
		if err := row.Scan(&total); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// user deleted concurrently: non-fatal, simply absent from result
				continue
			}
			return nil, err
		}
		result[u] = total
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PGRepository) CreateSession(ctx context.Context, userID id.UserID, chatID int64, messageID *int32) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO sessions (id, user_id, chat_id, message_id, started_at, last_heartbeat, is_active)
		VALUES (gen_random_uuid(), $1, $2, $3, now(), now(), true)
		RETURNING id, user_id, chat_id, message_id, started_at, last_heartbeat, ended_at, is_active
	`, userID.String(), chatID, messageID)
	s, err := scanSession(row)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.Database, "creating session", err)
	}
	return s, nil
}

func (r *PGRepository) Heartbeat(ctx context.Context, sessionID id.SessionID) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE sessions SET last_heartbeat = now()
		WHERE id = $1 AND is_active = true
		RETURNING id, user_id, chat_id, message_id, started_at, last_heartbeat, ended_at, is_active
	`, sessionID.String())
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierrors.New(apierrors.SessionNotFound, fmt.Sprintf("no active session %s", sessionID))
	}
	if err != nil {
		return nil, apierrors.Wrap(apierrors.Database, "heartbeat", err)
	}
	return s, nil
}

func (r *PGRepository) EndSession(ctx context.Context, sessionID id.SessionID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET is_active = false, ended_at = now()
		WHERE id = $1
	`, sessionID.String())
	if err != nil {
		return apierrors.Wrap(apierrors.Database, "ending session", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apierrors.New(apierrors.SessionNotFound, fmt.Sprintf("no session %s", sessionID))
	}
	return nil
}

func (r *PGRepository) GetSession(ctx context.Context, sessionID id.SessionID) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, chat_id, message_id, started_at, last_heartbeat, ended_at, is_active
		FROM sessions WHERE id = $1
	`, sessionID.String())
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierrors.New(apierrors.SessionNotFound, fmt.Sprintf("no session %s", sessionID))
	}
	if err != nil {
		return nil, apierrors.Wrap(apierrors.Database, "looking up session", err)
	}
	return s, nil
}

func (r *PGRepository) GetActiveSessionForUser(ctx context.Context, userID id.UserID, timeout time.Duration) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, chat_id, message_id, started_at, last_heartbeat, ended_at, is_active
		FROM sessions
		WHERE user_id = $1 AND is_active = true AND last_heartbeat > now() - $2::interval
		ORDER BY last_heartbeat DESC
		LIMIT 1
	`, userID.String(), fmt.Sprintf("%d seconds", int64(timeout.Seconds())))
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apierrors.Wrap(apierrors.Database, "looking up active session", err)
	}
	return s, nil
}

func (r *PGRepository) CleanupExpiredSessions(ctx context.Context, timeout time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET is_active = false, ended_at = now()
		WHERE is_active = true AND last_heartbeat <= now() - $1::interval
	`, fmt.Sprintf("%d seconds", int64(timeout.Seconds())))
	if err != nil {
		return 0, apierrors.Wrap(apierrors.Database, "reaping expired sessions", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *PGRepository) TopN(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DENSE_RANK() OVER (ORDER BY total_clicks DESC) AS rank, id, username, total_clicks
		FROM users
		WHERE total_clicks > 0
		ORDER BY total_clicks DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.Database, "querying top-N", err)
	}
	defer rows.Close()

	var out []LeaderboardRow
	for rows.Next() {
		var (
			row      LeaderboardRow
			rawID    string
			username string
		)
		if err := rows.Scan(&row.Rank, &rawID, &username, &row.TotalClicks); err != nil {
			return nil, apierrors.Wrap(apierrors.Database, "scanning top-N row", err)
		}
		uid, err := id.ParseUserID(rawID)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.Database, "parsing top-N user id", err)
		}
		uname, err := id.ParseUsername(username)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.Database, "parsing top-N username", err)
		}
		row.UserID = uid
		row.Username = uname
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *PGRepository) GlobalStats(ctx context.Context) (int64, int64, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_clicks), 0), COUNT(*) FROM users
	`)
	var totalClicks, totalUsers int64
	if err := row.Scan(&totalClicks, &totalUsers); err != nil {
		return 0, 0, apierrors.Wrap(apierrors.Database, "querying global stats", err)
	}
	return totalClicks, totalUsers, nil
}

func (r *PGRepository) ActiveSessionCount(ctx context.Context) (int64, error) {
	row := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE is_active = true`)
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, apierrors.Wrap(apierrors.Database, "counting active sessions", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		rawID, username string
		u               User
	)
	if err := row.Scan(&rawID, &u.ExternalID, &username, &u.TotalClicks, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	parsedID, err := id.ParseUserID(rawID)
	if err != nil {
		return nil, err
	}
	parsedUsername, err := id.ParseUsername(username)
	if err != nil {
		return nil, err
	}
	u.ID = parsedID
	u.Username = parsedUsername
	return &u, nil
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		rawID, rawUserID string
		s                Session
	)
	if err := row.Scan(&rawID, &rawUserID, &s.ChatID, &s.MessageID, &s.StartedAt, &s.LastHeartbeat, &s.EndedAt, &s.IsActive); err != nil {
		return nil, err
	}
	sid, err := id.ParseSessionID(rawID)
	if err != nil {
		return nil, err
	}
	uid, err := id.ParseUserID(rawUserID)
	if err != nil {
		return nil, err
	}
	s.ID = sid
	s.UserID = uid
	return &s, nil
}

// isDeadlock reports whether err represents a Postgres deadlock (SQLSTATE
// 40P01), which callers should retry.
func isDeadlock(err error) bool {
	return containsSQLState(err, "40P01")
}

func isUniqueViolation(err error) bool {
	return containsSQLState(err, "23505")
}

// containsSQLState does a string-level check on the wrapped driver error so
// this package doesn't need to import pgconn's error type directly in the
// hot retry path — every pgx driver error's Error() includes "(SQLSTATE nnnnn)".
func containsSQLState(err error, code string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), code)
}
