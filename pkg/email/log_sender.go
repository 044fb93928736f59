package email

import (
	"context"

	"github.com/angelmondragon/eventhub-backend/pkg/logger"
)

// LogSender writes messages to the log instead of delivering them. Used when
// no SMTP relay is configured.
type LogSender struct {
	logg *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"to": msg.To, "subject": msg.Subject})
	s.logg.Info(ctx, "email delivery skipped (smtp disabled)")
	return nil
}
