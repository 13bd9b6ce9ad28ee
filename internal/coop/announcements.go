// internal/coop/announcements.go
package coop

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "agrimarket-notifications/internal/common/errors"
	"agrimarket-notifications/internal/common/logger"
	"agrimarket-notifications/internal/models"
)

const announcementColumns = `id, title, content, type, author, author_role, status,
	visibility, created_at, updated_at, expires_at, attachments, read_count,
	comments, read_by`

// AnnouncementInput carries the caller-supplied fields of a new
// announcement. Status may be draft or published at creation.
type AnnouncementInput struct {
	Title       string
	Content     string
	Type        models.AnnouncementType
	Author      string
	AuthorRole  string
	Status      models.AnnouncementStatus
	Visibility  models.Visibility
	ExpiresAt   *time.Time
	Attachments []models.Attachment
}

// AnnouncementUpdate is a partial update; nil fields are left
// untouched. UpdatedAt is refreshed regardless.
type AnnouncementUpdate struct {
	Title       *string
	Content     *string
	Type        *models.AnnouncementType
	Visibility  *models.Visibility
	ExpiresAt   *time.Time
	Attachments *[]models.Attachment
}

// AnnouncementRegistry is the durable store for cooperative-wide
// announcements, their publish/archive lifecycle and per-member read
// tracking.
type AnnouncementRegistry struct {
	db  *sql.DB
	log logger.Logger
	now func() time.Time
}

func NewAnnouncementRegistry(db *sql.DB, log logger.Logger) *AnnouncementRegistry {
	return &AnnouncementRegistry{
		db:  db,
		log: log.WithFields(map[string]interface{}{"component": "announcement-registry"}),
		now: time.Now,
	}
}

// Create inserts a new announcement with readCount zero.
func (r *AnnouncementRegistry) Create(ctx context.Context, input AnnouncementInput) (*models.Announcement, error) {
	if input.Status == "" {
		input.Status = models.AnnouncementDraft
	}
	if input.Status != models.AnnouncementDraft && input.Status != models.AnnouncementPublished {
		return nil, apperrors.NewValidationFailedError(
			fmt.Sprintf("announcement cannot be created with status %q", input.Status))
	}
	if input.Visibility == "" {
		input.Visibility = models.VisibilityAll
	}

	now := r.now().UTC()
	ann := models.Announcement{
		ID:          uuid.New().String(),
		Title:       input.Title,
		Content:     input.Content,
		Type:        input.Type,
		Author:      input.Author,
		AuthorRole:  input.AuthorRole,
		Status:      input.Status,
		Visibility:  input.Visibility,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   input.ExpiresAt,
		Attachments: input.Attachments,
		ReadCount:   0,
	}

	attachments, _ := json.Marshal(ann.Attachments)
	comments, _ := json.Marshal([]models.Comment{})
	readBy, _ := json.Marshal([]models.ReadReceipt{})

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO coop_announcements (`+announcementColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		ann.ID, ann.Title, ann.Content, ann.Type, ann.Author, ann.AuthorRole,
		ann.Status, ann.Visibility, ann.CreatedAt, ann.UpdatedAt, ann.ExpiresAt,
		attachments, ann.ReadCount, comments, readBy,
	)
	if err != nil {
		return nil, apperrors.NewDatabaseInsertFailedError(err)
	}

	r.log.Info("announcement created", map[string]interface{}{
		"id":     ann.ID,
		"type":   ann.Type,
		"status": ann.Status,
	})
	return &ann, nil
}

// Get fetches one announcement by id.
func (r *AnnouncementRegistry) Get(ctx context.Context, id string) (*models.Announcement, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+announcementColumns+`
		FROM coop_announcements
		WHERE id = $1`, id)

	ann, err := scanAnnouncement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewAnnouncementNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get announcement", err)
	}
	return ann, nil
}

// List returns every announcement, newest first.
func (r *AnnouncementRegistry) List(ctx context.Context) ([]models.Announcement, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+announcementColumns+`
		FROM coop_announcements
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list announcements", err)
	}
	defer rows.Close()

	var list []models.Announcement
	for rows.Next() {
		ann, err := scanAnnouncement(rows)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("scan announcement", err)
		}
		list = append(list, *ann)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list announcements", err)
	}
	return list, nil
}

// Update applies a partial merge and refreshes updatedAt.
func (r *AnnouncementRegistry) Update(ctx context.Context, id string, update AnnouncementUpdate) (*models.Announcement, error) {
	ann, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		ann.Title = *update.Title
	}
	if update.Content != nil {
		ann.Content = *update.Content
	}
	if update.Type != nil {
		ann.Type = *update.Type
	}
	if update.Visibility != nil {
		ann.Visibility = *update.Visibility
	}
	if update.ExpiresAt != nil {
		ann.ExpiresAt = update.ExpiresAt
	}
	if update.Attachments != nil {
		ann.Attachments = *update.Attachments
	}
	ann.UpdatedAt = r.now().UTC()

	attachments, _ := json.Marshal(ann.Attachments)

	_, err = r.db.ExecContext(ctx, `
		UPDATE coop_announcements
		SET title = $2, content = $3, type = $4, visibility = $5,
		    expires_at = $6, attachments = $7, updated_at = $8
		WHERE id = $1`,
		ann.ID, ann.Title, ann.Content, ann.Type, ann.Visibility,
		ann.ExpiresAt, attachments, ann.UpdatedAt,
	)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("update announcement", err)
	}
	return ann, nil
}

// Delete removes an announcement.
func (r *AnnouncementRegistry) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM coop_announcements WHERE id = $1`, id)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("delete announcement", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("delete announcement", err)
	}
	if affected == 0 {
		return apperrors.NewAnnouncementNotFoundError(id)
	}
	return nil
}

// Publish transitions a draft announcement to published.
func (r *AnnouncementRegistry) Publish(ctx context.Context, id string) (*models.Announcement, error) {
	return r.transition(ctx, id, models.AnnouncementDraft, models.AnnouncementPublished)
}

// Archive transitions a draft or published announcement to archived.
func (r *AnnouncementRegistry) Archive(ctx context.Context, id string) (*models.Announcement, error) {
	ann, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ann.Status == models.AnnouncementArchived {
		return nil, apperrors.NewInvalidTransitionError(string(ann.Status), string(models.AnnouncementArchived))
	}
	return r.setStatus(ctx, ann, models.AnnouncementArchived)
}

func (r *AnnouncementRegistry) transition(ctx context.Context, id string, from, to models.AnnouncementStatus) (*models.Announcement, error) {
	ann, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ann.Status != from {
		return nil, apperrors.NewInvalidTransitionError(string(ann.Status), string(to))
	}
	return r.setStatus(ctx, ann, to)
}

func (r *AnnouncementRegistry) setStatus(ctx context.Context, ann *models.Announcement, to models.AnnouncementStatus) (*models.Announcement, error) {
	ann.Status = to
	ann.UpdatedAt = r.now().UTC()

	_, err := r.db.ExecContext(ctx, `
		UPDATE coop_announcements
		SET status = $2, updated_at = $3
		WHERE id = $1`,
		ann.ID, ann.Status, ann.UpdatedAt,
	)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("transition announcement", err)
	}

	r.log.Info("announcement status changed", map[string]interface{}{
		"id":     ann.ID,
		"status": ann.Status,
	})
	return ann, nil
}

// MarkAsRead appends a read receipt for the member and increments
// readCount, unless the member has read the announcement before, in
// which case nothing changes. ReadCount always equals len(ReadBy).
func (r *AnnouncementRegistry) MarkAsRead(ctx context.Context, id, memberID, memberName string) (*models.Announcement, error) {
	ann, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, receipt := range ann.ReadBy {
		if receipt.MemberID == memberID {
			return ann, nil
		}
	}

	ann.ReadBy = append(ann.ReadBy, models.ReadReceipt{
		MemberID:   memberID,
		MemberName: memberName,
		ReadAt:     r.now().UTC(),
	})
	ann.ReadCount = len(ann.ReadBy)
	ann.UpdatedAt = r.now().UTC()

	readBy, _ := json.Marshal(ann.ReadBy)

	_, err = r.db.ExecContext(ctx, `
		UPDATE coop_announcements
		SET read_by = $2, read_count = $3, updated_at = $4
		WHERE id = $1`,
		ann.ID, readBy, ann.ReadCount, ann.UpdatedAt,
	)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("mark announcement read", err)
	}
	return ann, nil
}

// AddComment appends a member comment and refreshes updatedAt.
func (r *AnnouncementRegistry) AddComment(ctx context.Context, id, author, authorRole, content string) (*models.Announcement, error) {
	ann, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ann.Comments = append(ann.Comments, models.Comment{
		ID:         uuid.New().String(),
		Author:     author,
		AuthorRole: authorRole,
		Content:    content,
		CreatedAt:  r.now().UTC(),
	})
	ann.UpdatedAt = r.now().UTC()

	comments, _ := json.Marshal(ann.Comments)

	_, err = r.db.ExecContext(ctx, `
		UPDATE coop_announcements
		SET comments = $2, updated_at = $3
		WHERE id = $1`,
		ann.ID, comments, ann.UpdatedAt,
	)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("add comment", err)
	}
	return ann, nil
}

func scanAnnouncement(row rowScanner) (*models.Announcement, error) {
	var ann models.Announcement
	var attachments, comments, readBy []byte

	err := row.Scan(
		&ann.ID, &ann.Title, &ann.Content, &ann.Type, &ann.Author, &ann.AuthorRole,
		&ann.Status, &ann.Visibility, &ann.CreatedAt, &ann.UpdatedAt, &ann.ExpiresAt,
		&attachments, &ann.ReadCount, &comments, &readBy,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalColumn(attachments, &ann.Attachments); err != nil {
		return nil, fmt.Errorf("decode attachments: %w", err)
	}
	if err := unmarshalColumn(comments, &ann.Comments); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	if err := unmarshalColumn(readBy, &ann.ReadBy); err != nil {
		return nil, fmt.Errorf("decode read receipts: %w", err)
	}
	return &ann, nil
}
