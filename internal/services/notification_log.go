package services

import (
	"context"

	"kharcha/internal/amqp"
	"kharcha/internal/log"
)

// NotificationLog consumes ledger events and writes them to the log, which
// is where EMI reminders are delivered.
type NotificationLog struct {
	logger *log.Logger
}

var _ amqp.Handler = (*NotificationLog)(nil)

func NewNotificationLog(logger *log.Logger) *NotificationLog {
	return &NotificationLog{logger: componentLogger(logger, log.ComponentReminder)}
}

func (n *NotificationLog) LedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	n.logger.InfoContext(ctx, "Ledger changed",
		log.FieldEntity, msg.Entity,
		log.FieldID, msg.ID,
		log.FieldOperation, msg.Op)
	return nil
}

func (n *NotificationLog) EMIDue(ctx context.Context, msg *amqp.EMIDueMessage) error {
	n.logger.WarnContext(ctx, "EMI installment due",
		log.FieldID, msg.ID,
		log.FieldEMIName, msg.Name,
		log.FieldDueDate, msg.DueDate.String(),
		log.FieldAmount, msg.Amount.String())
	return nil
}
