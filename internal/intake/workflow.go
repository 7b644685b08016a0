// Package intake runs the shared submission workflow: validate, persist,
// notify, publish. Booking, contact and chatbot submissions are plans over it.
package intake

import (
	"context"
	"errors"

	"github.com/dohanimedicare/medicare-platform/internal/events"
	"github.com/dohanimedicare/medicare-platform/internal/notify"
	"github.com/dohanimedicare/medicare-platform/internal/observability/metrics"
	"github.com/dohanimedicare/medicare-platform/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("dohani.internal.intake")

// Kind names a submission type.
type Kind string

const (
	KindAppointment Kind = "appointment"
	KindContact     Kind = "contact"
	KindChatbot     Kind = "chatbot"
)

// Plan describes one submission kind. Validate and Notifications must be
// free of side effects; Persist is the single source-of-truth write.
type Plan[In, Out any] struct {
	Kind          Kind
	Validate      func(In) error
	Persist       func(context.Context, In) (Out, error)
	Notifications func(Out) []notify.EmailMessage
	Event         func(Out) (events.Event, error)
}

// Runner carries the infrastructure shared by every plan.
type Runner struct {
	dispatcher *notify.Dispatcher
	publisher  events.Publisher
	metrics    *metrics.WorkflowMetrics
	logger     *logging.Logger
}

func NewRunner(dispatcher *notify.Dispatcher, publisher events.Publisher, m *metrics.WorkflowMetrics, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Default()
	}
	if dispatcher == nil {
		dispatcher = notify.NewDispatcher(nil, 0, logger, m)
	}
	return &Runner{dispatcher: dispatcher, publisher: publisher, metrics: m, logger: logger}
}

// Run executes plan for in. Validation and persistence failures abort the run
// and are returned unchanged; notification and event failures are logged only.
func Run[In, Out any](ctx context.Context, r *Runner, plan Plan[In, Out], in In) (Out, error) {
	ctx, span := tracer.Start(ctx, "intake."+string(plan.Kind))
	defer span.End()
	span.SetAttributes(attribute.String("intake.kind", string(plan.Kind)))

	var zero Out
	if plan.Validate != nil {
		if err := plan.Validate(in); err != nil {
			r.metrics.ObserveIntake(string(plan.Kind), "validation_error")
			span.SetStatus(codes.Error, "validation")
			return zero, err
		}
	}

	out, err := plan.Persist(ctx, in)
	if err != nil {
		r.metrics.ObserveIntake(string(plan.Kind), "persistence_error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence")
		r.logger.Error("intake: persist failed", "kind", plan.Kind, "error", err)
		return zero, err
	}

	if plan.Notifications != nil {
		results := r.Notify(ctx, plan.Notifications(out)...)
		span.SetAttributes(attribute.Int("intake.notifications_failed", notify.Failed(results)))
	}
	if plan.Event != nil {
		r.PublishFrom(ctx, func() (events.Event, error) { return plan.Event(out) })
	}

	r.metrics.ObserveIntake(string(plan.Kind), "success")
	return out, nil
}

// Notify dispatches messages through the shared dispatcher.
func (r *Runner) Notify(ctx context.Context, msgs ...notify.EmailMessage) []notify.Result {
	if len(msgs) == 0 {
		return nil
	}
	return r.dispatcher.Dispatch(ctx, msgs...)
}

// PublishFrom builds and publishes an event, logging any failure.
func (r *Runner) PublishFrom(ctx context.Context, build func() (events.Event, error)) {
	if r.publisher == nil {
		return
	}
	evt, err := build()
	if err != nil {
		r.logger.Warn("intake: build event failed", "error", err)
		return
	}
	if err := r.publisher.Publish(ctx, evt); err != nil {
		r.logger.Warn("intake: publish event failed", "error", err, "type", evt.Type, "aggregate_id", evt.AggregateID)
	}
}

// Metrics exposes the workflow metrics for callers recording their own steps.
func (r *Runner) Metrics() *metrics.WorkflowMetrics {
	return r.metrics
}

// Logger exposes the runner's logger.
func (r *Runner) Logger() *logging.Logger {
	return r.logger
}

// IsValidation reports whether err is a caller-correctable rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
