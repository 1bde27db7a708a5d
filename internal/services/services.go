package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"resell/internal/errs"
	"resell/internal/models"

	"github.com/go-playground/validator/v10"
)

// Caller is the authenticated identity on whose behalf an operation runs.
type Caller struct {
	UserID string
	Admin  bool
}

// AdminCaller is used by scheduled jobs and operator tooling.
var AdminCaller = Caller{UserID: "system", Admin: true}

func (c Caller) owns(userID string) bool {
	return c.Admin || (c.UserID != "" && c.UserID == userID)
}

func (c Caller) requireAdmin(entity, id string) error {
	if !c.Admin {
		return errs.Forbidden(entity, id)
	}
	return nil
}

// EventPublisher enqueues payment events.
type EventPublisher interface {
	PublishPayment(ctx context.Context, evt *models.PaymentEvent) error
	PublishPaymentRetry(ctx context.Context, evt *models.PaymentEvent, delay time.Duration) error
}

// NotificationPublisher delivers fire-and-forget notifications.
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, n models.Notification) error
}

var validate = validator.New()

// validateInput runs struct validation and reports failures as invalid_request.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.Invalid("%s", err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed on the '%s' tag", e.Field(), e.Tag()))
	}
	return errs.Invalid("%s", strings.Join(msgs, "; "))
}
