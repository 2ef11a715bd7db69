package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

const commentColumns = `c.id, c.video_id, c.owner_id, c.content, c.created_at, c.updated_at`

func scanComment(row rowScanner) (models.Comment, error) {
	var comment models.Comment
	err := row.Scan(&comment.ID, &comment.VideoID, &comment.OwnerID, &comment.Content, &comment.CreatedAt, &comment.UpdatedAt)
	return comment, err
}

// PostgresCommentRepository provides PostgreSQL-backed persistence for comments.
type PostgresCommentRepository struct {
	pool db.Pool
}

// NewPostgresCommentRepository constructs a comment repository backed by PostgreSQL.
func NewPostgresCommentRepository(pool db.Pool) *PostgresCommentRepository {
	return &PostgresCommentRepository{pool: pool}
}

// Create persists a new comment. A missing video surfaces as ErrNotFound.
func (r *PostgresCommentRepository) Create(ctx context.Context, comment models.Comment) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO comments (id, video_id, owner_id, content, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, comment.ID, comment.VideoID, comment.OwnerID, comment.Content, comment.CreatedAt, comment.UpdatedAt)
	if err != nil {
		return writeError("insert comment", err)
	}

	return nil
}

// FindByID fetches a comment by identifier.
func (r *PostgresCommentRepository) FindByID(ctx context.Context, id string) (models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Comment{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	comment, err := scanComment(conn.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments c WHERE c.id = $1`, id))
	if err != nil {
		return models.Comment{}, readError("select comment", err)
	}

	return comment, nil
}

// ListByVideo returns one page of a video's comments, newest first.
func (r *PostgresCommentRepository) ListByVideo(ctx context.Context, videoID string, page models.PageRequest) (models.Page[models.Comment], error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Page[models.Comment]{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var total int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM comments WHERE video_id = $1`, videoID).Scan(&total); err != nil {
		return models.Page[models.Comment]{}, fmt.Errorf("count comments: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT `+commentColumns+`, o.id, o.username, o.fullname, o.avatar
        FROM comments c
        JOIN users o ON o.id = c.owner_id
        WHERE c.video_id = $1
        ORDER BY c.created_at DESC, c.id DESC
        LIMIT $2 OFFSET $3
    `, videoID, page.Limit, page.Offset())
	if err != nil {
		return models.Page[models.Comment]{}, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		var (
			comment models.Comment
			owner   models.UserSummary
		)
		if err := rows.Scan(&comment.ID, &comment.VideoID, &comment.OwnerID, &comment.Content, &comment.CreatedAt,
			&comment.UpdatedAt, &owner.ID, &owner.Username, &owner.Fullname, &owner.Avatar); err != nil {
			return models.Page[models.Comment]{}, fmt.Errorf("scan comment: %w", err)
		}
		comment.Owner = &owner
		comments = append(comments, comment)
	}

	if err := rows.Err(); err != nil {
		return models.Page[models.Comment]{}, fmt.Errorf("iterate comments: %w", err)
	}

	return models.Page[models.Comment]{Items: comments, Total: total, Page: page.Page, Limit: page.Limit}, nil
}

// Update replaces the comment content.
func (r *PostgresCommentRepository) Update(ctx context.Context, id, content string, at time.Time) (models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Comment{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	comment, err := scanComment(conn.QueryRow(ctx, `
        UPDATE comments AS c
        SET content = $2, updated_at = $3
        WHERE c.id = $1
        RETURNING `+commentColumns, id, content, at))
	if err != nil {
		return models.Comment{}, readError("update comment", err)
	}

	return comment, nil
}

// Delete removes the comment and its likes.
func (r *PostgresCommentRepository) Delete(ctx context.Context, id string) (int64, error) {
	return deleteWithLikes(ctx, r.pool, models.LikeTargetComment, "comments", id)
}

// deleteWithLikes removes a liked row and its likes in one transaction.
func deleteWithLikes(ctx context.Context, pool db.Pool, target models.LikeTarget, table, id string) (int64, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin %s delete: %w", table, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM likes WHERE target = $1 AND target_id = $2`, string(target), id); err != nil {
		return 0, fmt.Errorf("delete %s likes: %w", target, err)
	}

	// table is a package constant, never caller input.
	tag, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit %s delete: %w", table, err)
	}

	return tag.RowsAffected(), nil
}
