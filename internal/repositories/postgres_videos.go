package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

const (
	videoColumns          = `v.id, v.owner_id, v.video_file, v.thumbnail, v.title, v.description, v.duration, v.views, v.is_published, v.created_at, v.updated_at`
	videoWithOwnerColumns = videoColumns + `, o.id, o.username, o.fullname, o.avatar`
)

func scanVideo(row rowScanner) (models.Video, error) {
	var video models.Video
	err := row.Scan(&video.ID, &video.OwnerID, &video.VideoFile, &video.Thumbnail, &video.Title, &video.Description,
		&video.Duration, &video.Views, &video.IsPublished, &video.CreatedAt, &video.UpdatedAt)
	return video, err
}

func scanVideoWithOwner(row rowScanner) (models.Video, error) {
	var (
		video models.Video
		owner models.UserSummary
	)
	err := row.Scan(&video.ID, &video.OwnerID, &video.VideoFile, &video.Thumbnail, &video.Title, &video.Description,
		&video.Duration, &video.Views, &video.IsPublished, &video.CreatedAt, &video.UpdatedAt,
		&owner.ID, &owner.Username, &owner.Fullname, &owner.Avatar)
	if err != nil {
		return models.Video{}, err
	}
	video.Owner = &owner
	return video, nil
}

func collectVideosWithOwner(rows pgx.Rows, what string) ([]models.Video, error) {
	defer rows.Close()

	videos := make([]models.Video, 0)
	for rows.Next() {
		video, err := scanVideoWithOwner(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}

	return videos, nil
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, video_file, thumbnail, title, description, duration, views, is_published, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, video.ID, video.OwnerID, video.VideoFile, video.Thumbnail, video.Title, video.Description, video.Duration,
		video.Views, video.IsPublished, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		return writeError("insert video", err)
	}

	return nil
}

// FindByID fetches a single video with its owner summary.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	video, err := scanVideoWithOwner(conn.QueryRow(ctx, `
        SELECT `+videoWithOwnerColumns+`
        FROM videos v
        JOIN users o ON o.id = v.owner_id
        WHERE v.id = $1
    `, id))
	if err != nil {
		return models.Video{}, readError("select video", err)
	}

	return video, nil
}

// List returns one page of published videos matching the query.
func (r *PostgresVideoRepository) List(ctx context.Context, query models.VideoQuery) (models.Page[models.Video], error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Page[models.Video]{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	where := []string{"v.is_published"}
	var args []any
	if search := strings.TrimSpace(query.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		where = append(where, fmt.Sprintf("(v.title ILIKE $%d OR v.description ILIKE $%d)", len(args), len(args)))
	}
	if query.OwnerID != "" {
		args = append(args, query.OwnerID)
		where = append(where, fmt.Sprintf("v.owner_id = $%d", len(args)))
	}
	filter := strings.Join(where, " AND ")

	var total int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM videos v WHERE `+filter, args...).Scan(&total); err != nil {
		return models.Page[models.Video]{}, fmt.Errorf("count videos: %w", err)
	}

	column, ok := VideoSortColumns[query.Sort.Field]
	if !ok {
		column = "v.created_at"
	}
	direction := "ASC"
	if query.Sort.Descending {
		direction = "DESC"
	}

	args = append(args, query.Limit, query.Offset())
	rows, err := conn.Query(ctx, fmt.Sprintf(`
        SELECT %s
        FROM videos v
        JOIN users o ON o.id = v.owner_id
        WHERE %s
        ORDER BY %s %s, v.id %s
        LIMIT $%d OFFSET $%d
    `, videoWithOwnerColumns, filter, column, direction, direction, len(args)-1, len(args)), args...)
	if err != nil {
		return models.Page[models.Video]{}, fmt.Errorf("query videos: %w", err)
	}

	videos, err := collectVideosWithOwner(rows, "videos")
	if err != nil {
		return models.Page[models.Video]{}, err
	}

	return models.Page[models.Video]{Items: videos, Total: total, Page: query.Page, Limit: query.Limit}, nil
}

// ListByOwner returns every video uploaded by the owner, newest first.
func (r *PostgresVideoRepository) ListByOwner(ctx context.Context, ownerID string, includeUnpublished bool) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoWithOwnerColumns+`
        FROM videos v
        JOIN users o ON o.id = v.owner_id
        WHERE v.owner_id = $1 AND (v.is_published OR $2)
        ORDER BY v.created_at DESC, v.id DESC
    `, ownerID, includeUnpublished)
	if err != nil {
		return nil, fmt.Errorf("query channel videos: %w", err)
	}

	return collectVideosWithOwner(rows, "channel videos")
}

// UpdateDetails applies the supplied title and description.
func (r *PostgresVideoRepository) UpdateDetails(ctx context.Context, id string, update models.VideoUpdate, at time.Time) (models.Video, error) {
	return r.update(ctx, "update video details", `
        UPDATE videos AS v
        SET title = COALESCE($2, title),
            description = COALESCE($3, description),
            updated_at = $4
        WHERE v.id = $1
        RETURNING `+videoColumns, id, update.Title, update.Description, at)
}

// UpdateThumbnail replaces the thumbnail URL.
func (r *PostgresVideoRepository) UpdateThumbnail(ctx context.Context, id, url string, at time.Time) (models.Video, error) {
	return r.update(ctx, "update video thumbnail", `
        UPDATE videos AS v
        SET thumbnail = $2, updated_at = $3
        WHERE v.id = $1
        RETURNING `+videoColumns, id, url, at)
}

// SetPublished sets the visibility flag.
func (r *PostgresVideoRepository) SetPublished(ctx context.Context, id string, published bool, at time.Time) (models.Video, error) {
	return r.update(ctx, "update video publish status", `
        UPDATE videos AS v
        SET is_published = $2, updated_at = $3
        WHERE v.id = $1
        RETURNING `+videoColumns, id, published, at)
}

// IncrementViews counts one view of the video.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, id string) (models.Video, error) {
	return r.update(ctx, "increment video views", `
        UPDATE videos AS v
        SET views = views + 1
        WHERE v.id = $1
        RETURNING `+videoColumns, id)
}

func (r *PostgresVideoRepository) update(ctx context.Context, op, sql string, args ...any) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	video, err := scanVideo(conn.QueryRow(ctx, sql, args...))
	if err != nil {
		return models.Video{}, readError(op, err)
	}

	return video, nil
}

// Delete removes the video and everything that references it in one transaction.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin video delete: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cleanup := []struct {
		op  string
		sql string
	}{
		{"delete comment likes", `DELETE FROM likes WHERE target = 'comment' AND target_id IN (SELECT id FROM comments WHERE video_id = $1)`},
		{"delete comments", `DELETE FROM comments WHERE video_id = $1`},
		{"delete video likes", `DELETE FROM likes WHERE target = 'video' AND target_id = $1`},
		{"remove playlist entries", `UPDATE playlists SET videos = array_remove(videos, $1::UUID) WHERE $1::UUID = ANY(videos)`},
		{"remove watch history entries", `UPDATE users SET watch_history = array_remove(watch_history, $1::UUID) WHERE $1::UUID = ANY(watch_history)`},
	}
	for _, step := range cleanup {
		if _, err := tx.Exec(ctx, step.sql, id); err != nil {
			return 0, fmt.Errorf("%s: %w", step.op, err)
		}
	}

	tag, err := tx.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete video: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit video delete: %w", err)
	}

	return tag.RowsAffected(), nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
