package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dukex/automation/pkg/models"
	"github.com/dukex/automation/pkg/persistence"
	"github.com/lib/pq"
)

type MessageRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewMessageRepository(db *sql.DB, logger *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, logger: logger}
}

const messageColumns = `
	id
  , tenant_id
  , rule_id
  , action_id
  , client_id
  , user_id
  , incase_id
  , recipient
  , channel
  , status
  , subject
  , content
  , provider
  , provider_message_id
  , error_message
  , sent_at
  , delivered_at
  , created_at
  , updated_at
`

const uniqueViolation = "23505"

func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO automation_messages (`+messageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`, messageArgs(msg)...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return persistence.ErrMessageAlreadyExists
		}

		return fmt.Errorf("failed to insert message %s: %w", msg.ID, err)
	}

	return nil
}

func (r *MessageRepository) Update(ctx context.Context, msg *models.Message) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE automation_messages SET
			channel = $2
		  , status = $3
		  , provider = $4
		  , provider_message_id = $5
		  , error_message = $6
		  , sent_at = $7
		  , delivered_at = $8
		  , updated_at = $9
		WHERE id = $1
	`, msg.ID, msg.Channel, msg.Status, nullString(msg.Provider), nullString(msg.ProviderMessageID),
		nullString(msg.ErrorMessage), msg.SentAt, msg.DeliveredAt, msg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update message %s: %w", msg.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update message %s: %w", msg.ID, err)
	}

	if affected == 0 {
		return persistence.ErrMessageNotFound
	}

	return nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	msg, err := scanMessage(r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM automation_messages WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrMessageNotFound
		}

		return nil, fmt.Errorf("failed to query message %s: %w", id, err)
	}

	return msg, nil
}

func (r *MessageRepository) List(ctx context.Context, opts persistence.ListMessagesOptions) (*persistence.MessageListResult, error) {
	opts = persistence.NormalizeListOptions(opts)

	conditions := []string{"tenant_id = $1"}
	args := []any{opts.TenantID}

	if opts.Status != "" {
		args = append(args, opts.Status)
		conditions = append(conditions, "status = $"+strconv.Itoa(len(args)))
	}

	if opts.RuleID != "" {
		args = append(args, opts.RuleID)
		conditions = append(conditions, "rule_id = $"+strconv.Itoa(len(args)))
	}

	where := strings.Join(conditions, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM automation_messages WHERE `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}

	args = append(args, opts.Limit, opts.Offset)
	query := fmt.Sprintf(`SELECT %s FROM automation_messages WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		messageColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	messages := make([]*models.Message, 0, opts.Limit)

	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return &persistence.MessageListResult{
		Messages:    messages,
		TotalCount:  total,
		HasNextPage: int64(opts.Offset+len(messages)) < total,
	}, nil
}

func messageArgs(msg *models.Message) []any {
	return []any{
		msg.ID,
		msg.TenantID,
		nullString(msg.RuleID),
		nullString(msg.ActionID),
		nullString(msg.ClientID),
		nullString(msg.UserID),
		nullString(msg.IncaseID),
		msg.Recipient,
		msg.Channel,
		msg.Status,
		msg.Subject,
		msg.Content,
		nullString(msg.Provider),
		nullString(msg.ProviderMessageID),
		nullString(msg.ErrorMessage),
		msg.SentAt,
		msg.DeliveredAt,
		msg.CreatedAt,
		msg.UpdatedAt,
	}
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var (
		msg                                        models.Message
		ruleID, actionID, clientID, userID, incase sql.NullString
		provider, providerMessageID, errorMessage  sql.NullString
		sentAt, deliveredAt                        sql.NullTime
	)

	err := row.Scan(
		&msg.ID,
		&msg.TenantID,
		&ruleID,
		&actionID,
		&clientID,
		&userID,
		&incase,
		&msg.Recipient,
		&msg.Channel,
		&msg.Status,
		&msg.Subject,
		&msg.Content,
		&provider,
		&providerMessageID,
		&errorMessage,
		&sentAt,
		&deliveredAt,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	msg.RuleID = ruleID.String
	msg.ActionID = actionID.String
	msg.ClientID = clientID.String
	msg.UserID = userID.String
	msg.IncaseID = incase.String
	msg.Provider = provider.String
	msg.ProviderMessageID = providerMessageID.String
	msg.ErrorMessage = errorMessage.String

	if sentAt.Valid {
		msg.SentAt = &sentAt.Time
	}

	if deliveredAt.Valid {
		msg.DeliveredAt = &deliveredAt.Time
	}

	return &msg, nil
}
