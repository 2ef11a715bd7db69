package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

const userColumns = `id, username, email, fullname, avatar, cover_image, password_hash, refresh_token, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// writeError maps constraint violations onto the repository sentinels.
func writeError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrConflict
		case "23503":
			return ErrNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// readError maps a missing row onto ErrNotFound.
func readError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func scanUser(row rowScanner) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Fullname, &user.Avatar, &user.CoverImage,
		&user.Password, &user.RefreshToken, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, fullname, avatar, cover_image, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, user.ID, user.Username, user.Email, user.Fullname, user.Avatar, user.CoverImage, user.Password, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return writeError("insert user", err)
	}

	return nil
}

// FindByID fetches a user by identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return models.User{}, readError("select user by id", err)
	}

	return user, nil
}

// FindByLogin fetches a user whose username or email matches.
func (r *PostgresUserRepository) FindByLogin(ctx context.Context, username, email string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)
        LIMIT 1
    `, username, email))
	if err != nil {
		return models.User{}, readError("select user by login", err)
	}

	return user, nil
}

// UpdateAccount applies the supplied profile fields.
func (r *PostgresUserRepository) UpdateAccount(ctx context.Context, id string, update models.AccountUpdate, at time.Time) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `
        UPDATE users
        SET username = COALESCE($2, username),
            email = COALESCE($3, email),
            fullname = COALESCE($4, fullname),
            updated_at = $5
        WHERE id = $1
        RETURNING `+userColumns,
		id, update.Username, update.Email, update.Fullname, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, writeError("update user account", err)
	}

	return user, nil
}

// UpdatePassword stores a new password hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET password_hash = $2, updated_at = $3
        WHERE id = $1
    `, id, passwordHash, at)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateAvatar replaces the avatar URL.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, id, url string, at time.Time) (models.User, error) {
	return r.updateImage(ctx, "avatar", id, url, at)
}

// UpdateCoverImage replaces the cover image URL.
func (r *PostgresUserRepository) UpdateCoverImage(ctx context.Context, id, url string, at time.Time) (models.User, error) {
	return r.updateImage(ctx, "cover_image", id, url, at)
}

func (r *PostgresUserRepository) updateImage(ctx context.Context, column, id, url string, at time.Time) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	// column is one of two constants above, never caller input.
	user, err := scanUser(conn.QueryRow(ctx, `
        UPDATE users
        SET `+column+` = $2, updated_at = $3
        WHERE id = $1
        RETURNING `+userColumns,
		id, url, at))
	if err != nil {
		return models.User{}, readError("update user "+column, err)
	}

	return user, nil
}

// ChannelProfile loads the public channel view of username, flagging whether
// viewerID subscribes to it.
func (r *PostgresUserRepository) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var profile models.ChannelProfile
	err = conn.QueryRow(ctx, `
        SELECT u.id, u.username, u.email, u.fullname, u.avatar, u.cover_image,
               (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id),
               (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id),
               EXISTS (SELECT 1 FROM subscriptions s WHERE s.channel_id = u.id AND s.subscriber_id::TEXT = $2)
        FROM users u
        WHERE u.username = $1
    `, username, viewerID).Scan(&profile.ID, &profile.Username, &profile.Email, &profile.Fullname, &profile.Avatar,
		&profile.CoverImage, &profile.SubscribersCount, &profile.SubscribedToCount, &profile.IsSubscribed)
	if err != nil {
		return models.ChannelProfile{}, readError("select channel profile", err)
	}

	return profile, nil
}

// WatchHistory returns the videos the user watched, most recent first.
func (r *PostgresUserRepository) WatchHistory(ctx context.Context, userID string) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoWithOwnerColumns+`
        FROM users u
        CROSS JOIN LATERAL unnest(u.watch_history) WITH ORDINALITY AS h(video_id, pos)
        JOIN videos v ON v.id = h.video_id
        JOIN users o ON o.id = v.owner_id
        WHERE u.id = $1
        ORDER BY h.pos DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}

	return collectVideosWithOwner(rows, "watch history")
}

// AddToWatchHistory moves videoID to the end of the user's history.
func (r *PostgresUserRepository) AddToWatchHistory(ctx context.Context, userID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET watch_history = array_append(array_remove(watch_history, $2::UUID), $2::UUID)
        WHERE id = $1
    `, userID, videoID)
	if err != nil {
		return fmt.Errorf("update watch history: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

var (
	_ UserRepository         = (*PostgresUserRepository)(nil)
	_ VideoRepository        = (*PostgresVideoRepository)(nil)
	_ CommentRepository      = (*PostgresCommentRepository)(nil)
	_ TweetRepository        = (*PostgresTweetRepository)(nil)
	_ PlaylistRepository     = (*PostgresPlaylistRepository)(nil)
	_ LikeRepository         = (*PostgresLikeRepository)(nil)
	_ SubscriptionRepository = (*PostgresSubscriptionRepository)(nil)
	_ DashboardRepository    = (*PostgresDashboardRepository)(nil)
)
