package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/enginow/enginow-api/internal/mailer"
	"github.com/enginow/enginow-api/internal/models"
	"github.com/enginow/enginow-api/pkg/jobs"
)

const jobTypeConfirmationEmail = "enrollment_confirmation"

// NotificationService renders confirmation emails and dispatches them through
// the background queue so a slow mail provider never blocks a submission.
type NotificationService struct {
	sender mailer.Sender
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs the service and its dispatch queue.
func NewNotificationService(sender mailer.Sender, queueCfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{sender: sender, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.handle, queueCfg)
	return s
}

// Start begins queue consumption.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop waits for in-flight deliveries.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// EnrollmentCreated queues a confirmation email for an accepted enrollment.
func (s *NotificationService) EnrollmentCreated(enrollment models.Enrollment, programTitle string) {
	msg := renderConfirmation(enrollment, programTitle)
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeConfirmationEmail,
		Payload: msg,
	})
	if err != nil {
		s.logger.Warn("confirmation email not queued",
			zap.String("enrollment_id", enrollment.ID),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mailer.Message)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.sender.Send(ctx, msg)
}

func renderConfirmation(enrollment models.Enrollment, programTitle string) mailer.Message {
	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\n", enrollment.FirstName)
	fmt.Fprintf(&body, "We received your application for %s.\n", programTitle)
	fmt.Fprintf(&body, "Application ID: %s\n", enrollment.ID)
	if enrollment.DiscountApplied > 0 {
		fmt.Fprintf(&body, "Referral code %s applied: %d%% discount.\n", enrollment.ReferralCode, enrollment.DiscountApplied)
	}
	body.WriteString("\nOur counsellors will reach out within 2 working days.\n\nTeam Enginow")

	return mailer.Message{
		To:      enrollment.Email,
		Subject: fmt.Sprintf("Your Enginow application for %s", programTitle),
		Body:    body.String(),
	}
}
