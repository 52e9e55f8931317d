package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"portfolio/internal/domain"
	"portfolio/internal/metrics"
	"portfolio/internal/repository"
	apperrors "portfolio/pkg/errors"
)

// User-facing feedback for each outcome.
const (
	MessageSuccess    = "Thank you for your message! I will get back to you soon."
	MessageNotifyWarn = "Your message was saved, but the email notification failed."
	MessageValidation = "All fields are required!"
	MessageGeneric    = "Something went wrong. Please try again later."
)

// Outcome is the terminal state of one submission.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeValidationFailed
	OutcomePersistenceFailed
	OutcomeNotifyFailed
	OutcomeUnexpected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeValidationFailed:
		return "validation_failed"
	case OutcomePersistenceFailed:
		return "persistence_failed"
	case OutcomeNotifyFailed:
		return "notify_failed"
	default:
		return "unexpected"
	}
}

// Severity is the level of the feedback shown to the visitor.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ContactForm holds the raw form values as posted.
type ContactForm struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// Notifier sends the owner alert and the acknowledgment as one unit.
type Notifier interface {
	SendPair(ctx context.Context, n ContactNotice) error
}

// SubmitResult is what the pipeline reports back to the HTTP layer.
type SubmitResult struct {
	Outcome      Outcome
	SubmissionID uint
	ReferenceID  string
	Err          error
}

// Saved reports whether a record was written.
func (r SubmitResult) Saved() bool {
	return r.Outcome == OutcomeOK || r.Outcome == OutcomeNotifyFailed
}

// Severity maps the outcome to the feedback level; only a failed
// notification is a warning.
func (r SubmitResult) Severity() Severity {
	switch r.Outcome {
	case OutcomeOK:
		return SeveritySuccess
	case OutcomeNotifyFailed:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// Message is the text shown to the visitor for the outcome.
func (r SubmitResult) Message() string {
	switch r.Outcome {
	case OutcomeOK:
		return MessageSuccess
	case OutcomeNotifyFailed:
		return MessageNotifyWarn
	case OutcomeValidationFailed:
		return MessageValidation
	default:
		return MessageGeneric
	}
}

// ContactService runs a submission through validate, persist and notify.
type ContactService struct {
	repo     repository.ContactRepository
	notifier Notifier
	log      *slog.Logger
	tracer   trace.Tracer
}

// NewContactService creates a new contact service
func NewContactService(repo repository.ContactRepository, notifier Notifier, log *slog.Logger) *ContactService {
	return &ContactService{
		repo:     repo,
		notifier: notifier,
		log:      log.With("component", "contact"),
		tracer:   otel.Tracer("portfolio/services/contact"),
	}
}

// Submit never returns without a result. Each stage short-circuits the next;
// a notification failure leaves the stored record in place. Cancellation of
// ctx is ignored: the send timeout is the only bound on a submission.
func (s *ContactService) Submit(ctx context.Context, form ContactForm) (res SubmitResult) {
	ctx, span := s.tracer.Start(context.WithoutCancel(ctx), "contact.submit")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic in contact pipeline: %v", r)
			s.log.Error("contact submission panicked", "panic", r, "stack", string(debug.Stack()))
			res = SubmitResult{Outcome: OutcomeUnexpected, Err: apperrors.Wrap(apperrors.ErrCodeInternalError, "unexpected error", err)}
		}
		span.SetAttributes(attribute.String("contact.outcome", res.Outcome.String()))
		if res.Err != nil {
			span.SetAttributes(attribute.String("error.code", string(apperrors.CodeOf(res.Err))))
		}
		if res.Severity() == SeverityError {
			span.SetStatus(codes.Error, res.Outcome.String())
		}
		metrics.RecordContactSubmission(res.Outcome.String())
	}()

	form = form.trimmed()
	if err := s.validate(ctx, form); err != nil {
		s.log.Info("contact submission rejected", "code", apperrors.CodeOf(err), "reason", err.Error())
		return SubmitResult{Outcome: OutcomeValidationFailed, Err: err}
	}

	sub, err := s.persist(ctx, form)
	if err != nil {
		s.log.Error("contact submission not saved", "code", apperrors.CodeOf(err), "error", err)
		return SubmitResult{Outcome: OutcomePersistenceFailed, Err: err}
	}
	s.log.Info("contact submission saved", "id", sub.ID, "reference_id", sub.ReferenceID, "email", sub.Email)

	res = SubmitResult{Outcome: OutcomeOK, SubmissionID: sub.ID, ReferenceID: sub.ReferenceID}
	if err := s.notify(ctx, sub); err != nil {
		s.log.Warn("contact notification failed", "code", apperrors.CodeOf(err), "reference_id", sub.ReferenceID, "error", err)
		res.Outcome = OutcomeNotifyFailed
		res.Err = err
	}
	return res
}

func (f ContactForm) trimmed() ContactForm {
	return ContactForm{
		Name:    strings.TrimSpace(f.Name),
		Email:   strings.TrimSpace(f.Email),
		Subject: strings.TrimSpace(f.Subject),
		Message: strings.TrimSpace(f.Message),
	}
}

func (s *ContactService) validate(ctx context.Context, form ContactForm) error {
	_, span := s.tracer.Start(ctx, "contact.validate")
	defer span.End()

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"name", form.Name},
		{"email", form.Email},
		{"subject", form.Subject},
		{"message", form.Message},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		span.SetAttributes(attribute.StringSlice("contact.missing_fields", missing))
		return apperrors.Validation("missing required fields: " + strings.Join(missing, ", "))
	}
	return nil
}

func (s *ContactService) persist(ctx context.Context, form ContactForm) (*domain.ContactSubmission, error) {
	ctx, span := s.tracer.Start(ctx, "contact.persist")
	defer span.End()

	sub := &domain.ContactSubmission{
		Name:    form.Name,
		Email:   form.Email,
		Subject: form.Subject,
		Message: form.Message,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return nil, apperrors.Persistence("failed to save contact submission", err)
	}
	span.SetAttributes(attribute.String("contact.reference_id", sub.ReferenceID))
	return sub, nil
}

func (s *ContactService) notify(ctx context.Context, sub *domain.ContactSubmission) error {
	ctx, span := s.tracer.Start(ctx, "contact.notify")
	defer span.End()

	err := s.notifier.SendPair(ctx, ContactNotice{
		Name:        sub.Name,
		Email:       sub.Email,
		Subject:     sub.Subject,
		Message:     sub.Message,
		ReferenceID: sub.ReferenceID,
		SubmittedAt: sub.SubmittedAt,
	})
	if err != nil {
		span.RecordError(err)
		if !apperrors.IsTransport(err) {
			err = apperrors.Transport("notification failed", err)
		}
	}
	return err
}
