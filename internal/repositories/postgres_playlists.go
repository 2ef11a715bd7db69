package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

const playlistColumns = `p.id, p.owner_id, p.name, p.description, p.videos, p.created_at, p.updated_at`

func scanPlaylist(row rowScanner) (models.Playlist, error) {
	var playlist models.Playlist
	err := row.Scan(&playlist.ID, &playlist.OwnerID, &playlist.Name, &playlist.Description, &playlist.Videos,
		&playlist.CreatedAt, &playlist.UpdatedAt)
	if playlist.Videos == nil {
		playlist.Videos = []string{}
	}
	return playlist, err
}

// PostgresPlaylistRepository provides PostgreSQL-backed persistence for playlists.
type PostgresPlaylistRepository struct {
	pool db.Pool
}

// NewPostgresPlaylistRepository constructs a playlist repository backed by PostgreSQL.
func NewPostgresPlaylistRepository(pool db.Pool) *PostgresPlaylistRepository {
	return &PostgresPlaylistRepository{pool: pool}
}

// Create persists a new playlist.
func (r *PostgresPlaylistRepository) Create(ctx context.Context, playlist models.Playlist) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	videos := playlist.Videos
	if videos == nil {
		videos = []string{}
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO playlists (id, owner_id, name, description, videos, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5::UUID[], $6, $7)
    `, playlist.ID, playlist.OwnerID, playlist.Name, playlist.Description, videos, playlist.CreatedAt, playlist.UpdatedAt)
	if err != nil {
		return writeError("insert playlist", err)
	}

	return nil
}

// FindByID fetches a playlist by identifier.
func (r *PostgresPlaylistRepository) FindByID(ctx context.Context, id string) (models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	playlist, err := scanPlaylist(conn.QueryRow(ctx, `SELECT `+playlistColumns+` FROM playlists p WHERE p.id = $1`, id))
	if err != nil {
		return models.Playlist{}, readError("select playlist", err)
	}

	return playlist, nil
}

// ListByOwner returns the owner's playlists, newest first.
func (r *PostgresPlaylistRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+playlistColumns+`
        FROM playlists p
        WHERE p.owner_id = $1
        ORDER BY p.created_at DESC, p.id DESC
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query playlists: %w", err)
	}
	defer rows.Close()

	playlists := make([]models.Playlist, 0)
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		playlists = append(playlists, playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}

	return playlists, nil
}

// Update applies the supplied name and description.
func (r *PostgresPlaylistRepository) Update(ctx context.Context, id string, update models.PlaylistUpdate, at time.Time) (models.Playlist, error) {
	return r.update(ctx, "update playlist", `
        UPDATE playlists AS p
        SET name = COALESCE($2, name),
            description = COALESCE($3, description),
            updated_at = $4
        WHERE p.id = $1
        RETURNING `+playlistColumns, id, update.Name, update.Description, at)
}

// AddVideo appends videoID unless it is already listed.
func (r *PostgresPlaylistRepository) AddVideo(ctx context.Context, id, videoID string, at time.Time) (models.Playlist, error) {
	return r.update(ctx, "add playlist video", `
        UPDATE playlists AS p
        SET videos = CASE WHEN $2::UUID = ANY(videos) THEN videos ELSE array_append(videos, $2::UUID) END,
            updated_at = $3
        WHERE p.id = $1
        RETURNING `+playlistColumns, id, videoID, at)
}

// RemoveVideo drops videoID from the playlist.
func (r *PostgresPlaylistRepository) RemoveVideo(ctx context.Context, id, videoID string, at time.Time) (models.Playlist, error) {
	return r.update(ctx, "remove playlist video", `
        UPDATE playlists AS p
        SET videos = array_remove(videos, $2::UUID),
            updated_at = $3
        WHERE p.id = $1
        RETURNING `+playlistColumns, id, videoID, at)
}

func (r *PostgresPlaylistRepository) update(ctx context.Context, op, sql string, args ...any) (models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	playlist, err := scanPlaylist(conn.QueryRow(ctx, sql, args...))
	if err != nil {
		return models.Playlist{}, readError(op, err)
	}

	return playlist, nil
}

// Delete removes the playlist.
func (r *PostgresPlaylistRepository) Delete(ctx context.Context, id string) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete playlist: %w", err)
	}

	return tag.RowsAffected(), nil
}
