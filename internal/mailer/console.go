package mailer

import (
	"context"

	"go.uber.org/zap"
)

// ConsoleSender logs messages instead of delivering them. Default in
// development and in the memory-backed preview mode.
type ConsoleSender struct {
	logger *zap.Logger
}

// NewConsoleSender constructs a console sender.
func NewConsoleSender(logger *zap.Logger) *ConsoleSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleSender{logger: logger}
}

// Send writes the message to the log.
func (s *ConsoleSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}
