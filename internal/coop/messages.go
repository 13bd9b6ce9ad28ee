// internal/coop/messages.go
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

const messageColumns = `id, subject, content, type, priority, sender, sender_role,
	recipients, target_groups, status, created_at, scheduled_at, delivered_at,
	read_at, attachments, read_by`

// MessageInput carries the caller-supplied fields of a new message.
type MessageInput struct {
	Subject      string
	Content      string
	Type         models.MessageType
	Priority     models.Priority
	Sender       string
	SenderRole   string
	Recipients   []string
	TargetGroups []string
	ScheduledAt  *time.Time
	Attachments  []models.Attachment
}

// MessageUpdate is a partial update; nil fields are left untouched.
type MessageUpdate struct {
	Subject      *string
	Content      *string
	Type         *models.MessageType
	Priority     *models.Priority
	Recipients   *[]string
	TargetGroups *[]string
	ScheduledAt  *time.Time
	Attachments  *[]models.Attachment
}

// MessageRegistry is the durable store for cooperative-internal
// messages and their draft/sent/delivered/read lifecycle.
type MessageRegistry struct {
	db  *sql.DB
	log logger.Logger
	now func() time.Time
}

func NewMessageRegistry(db *sql.DB, log logger.Logger) *MessageRegistry {
	return &MessageRegistry{
		db:  db,
		log: log.WithFields(map[string]interface{}{"component": "message-registry"}),
		now: time.Now,
	}
}

// Create inserts a new message in draft status.
func (r *MessageRegistry) Create(ctx context.Context, input MessageInput) (*models.Message, error) {
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}

	msg := models.Message{
		ID:           uuid.New().String(),
		Subject:      input.Subject,
		Content:      input.Content,
		Type:         input.Type,
		Priority:     input.Priority,
		Sender:       input.Sender,
		SenderRole:   input.SenderRole,
		Recipients:   input.Recipients,
		TargetGroups: input.TargetGroups,
		Status:       models.MessageDraft,
		CreatedAt:    r.now().UTC(),
		ScheduledAt:  input.ScheduledAt,
		Attachments:  input.Attachments,
	}

	recipients, _ := json.Marshal(msg.Recipients)
	targetGroups, _ := json.Marshal(msg.TargetGroups)
	attachments, _ := json.Marshal(msg.Attachments)
	readBy, _ := json.Marshal([]models.ReadReceipt{})

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO coop_messages (`+messageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		msg.ID, msg.Subject, msg.Content, msg.Type, msg.Priority,
		msg.Sender, msg.SenderRole, recipients, targetGroups, msg.Status,
		msg.CreatedAt, msg.ScheduledAt, nil, nil, attachments, readBy,
	)
	if err != nil {
		return nil, apperrors.NewDatabaseInsertFailedError(err)
	}

	r.log.Info("message created", map[string]interface{}{
		"id":   msg.ID,
		"type": msg.Type,
	})
	return &msg, nil
}

// Get fetches one message by id.
func (r *MessageRegistry) Get(ctx context.Context, id string) (*models.Message, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM coop_messages
		WHERE id = $1`, id)

	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewMessageNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get message", err)
	}
	return msg, nil
}

// List returns every message, newest first.
func (r *MessageRegistry) List(ctx context.Context) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM coop_messages
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list messages", err)
	}
	defer rows.Close()

	var list []models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("scan message", err)
		}
		list = append(list, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list messages", err)
	}
	return list, nil
}

// Update applies a partial merge over the stored message.
func (r *MessageRegistry) Update(ctx context.Context, id string, update MessageUpdate) (*models.Message, error) {
	msg, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Subject != nil {
		msg.Subject = *update.Subject
	}
	if update.Content != nil {
		msg.Content = *update.Content
	}
	if update.Type != nil {
		msg.Type = *update.Type
	}
	if update.Priority != nil {
		msg.Priority = *update.Priority
	}
	if update.Recipients != nil {
		msg.Recipients = *update.Recipients
	}
	if update.TargetGroups != nil {
		msg.TargetGroups = *update.TargetGroups
	}
	if update.ScheduledAt != nil {
		msg.ScheduledAt = update.ScheduledAt
	}
	if update.Attachments != nil {
		msg.Attachments = *update.Attachments
	}

	recipients, _ := json.Marshal(msg.Recipients)
	targetGroups, _ := json.Marshal(msg.TargetGroups)
	attachments, _ := json.Marshal(msg.Attachments)

	_, err = r.db.ExecContext(ctx, `
		UPDATE coop_messages
		SET subject = $2, content = $3, type = $4, priority = $5,
		    recipients = $6, target_groups = $7, scheduled_at = $8, attachments = $9
		WHERE id = $1`,
		msg.ID, msg.Subject, msg.Content, msg.Type, msg.Priority,
		recipients, targetGroups, msg.ScheduledAt, attachments,
	)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("update message", err)
	}
	return msg, nil
}

// Delete removes a message.
func (r *MessageRegistry) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM coop_messages WHERE id = $1`, id)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("delete message", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("delete message", err)
	}
	if affected == 0 {
		return apperrors.NewMessageNotFoundError(id)
	}
	return nil
}

// Send transitions a draft message to sent and stamps deliveredAt.
func (r *MessageRegistry) Send(ctx context.Context, id string) (*models.Message, error) {
	msg, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg.Status != models.MessageDraft {
		return nil, apperrors.NewInvalidTransitionError(string(msg.Status), string(models.MessageSent))
	}

	deliveredAt := r.now().UTC()
	msg.Status = models.MessageSent
	msg.DeliveredAt = &deliveredAt

	_, err = r.db.ExecContext(ctx, `
		UPDATE coop_messages
		SET status = $2, delivered_at = $3
		WHERE id = $1`,
		msg.ID, msg.Status, msg.DeliveredAt,
	)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("send message", err)
	}

	r.log.Info("message sent", map[string]interface{}{"id": msg.ID})
	return msg, nil
}

// MarkAsRead transitions a sent or delivered message to read and stamps
// readAt. Marking an already-read message again is a no-op. The status
// here is a single aggregate field, not per-recipient state.
func (r *MessageRegistry) MarkAsRead(ctx context.Context, id string) (*models.Message, error) {
	msg, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch msg.Status {
	case models.MessageRead:
		return msg, nil
	case models.MessageSent, models.MessageDelivered:
		// valid
	default:
		return nil, apperrors.NewInvalidTransitionError(string(msg.Status), string(models.MessageRead))
	}

	readAt := r.now().UTC()
	msg.Status = models.MessageRead
	msg.ReadAt = &readAt

	_, err = r.db.ExecContext(ctx, `
		UPDATE coop_messages
		SET status = $2, read_at = $3
		WHERE id = $1`,
		msg.ID, msg.Status, msg.ReadAt,
	)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("mark message read", err)
	}
	return msg, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var msg models.Message
	var recipients, targetGroups, attachments, readBy []byte

	err := row.Scan(
		&msg.ID, &msg.Subject, &msg.Content, &msg.Type, &msg.Priority,
		&msg.Sender, &msg.SenderRole, &recipients, &targetGroups, &msg.Status,
		&msg.CreatedAt, &msg.ScheduledAt, &msg.DeliveredAt, &msg.ReadAt,
		&attachments, &readBy,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalColumn(recipients, &msg.Recipients); err != nil {
		return nil, fmt.Errorf("decode recipients: %w", err)
	}
	if err := unmarshalColumn(targetGroups, &msg.TargetGroups); err != nil {
		return nil, fmt.Errorf("decode target groups: %w", err)
	}
	if err := unmarshalColumn(attachments, &msg.Attachments); err != nil {
		return nil, fmt.Errorf("decode attachments: %w", err)
	}
	if err := unmarshalColumn(readBy, &msg.ReadBy); err != nil {
		return nil, fmt.Errorf("decode read receipts: %w", err)
	}
	return &msg, nil
}

func unmarshalColumn(data []byte, dest interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}
