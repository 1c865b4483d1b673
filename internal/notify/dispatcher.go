package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wellspringhq/foundation/internal/config"
	"github.com/wellspringhq/foundation/internal/observability/metrics"
	"github.com/wellspringhq/foundation/internal/providers/email"
	"github.com/wellspringhq/foundation/internal/providers/slack"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const deliverTimeout = 15 * time.Second

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Email   email.Provider
	Slack   slack.Provider
	Metrics *metrics.Metrics `optional:"true"`
}

type dispatcher struct {
	log     *zap.Logger
	metrics *metrics.Metrics
	sinks   []Sink
}

func NewDispatcher(p Params) Dispatcher {
	log := p.Log.Named("notify.dispatcher")

	sinks := []Sink{&logSink{log: log}}
	if len(p.Cfg.NotifyEmails) > 0 {
		sinks = append(sinks, &emailSink{provider: p.Email, recipients: p.Cfg.NotifyEmails})
	}
	if p.Cfg.SlackWebhook != "" {
		sinks = append(sinks, &slackSink{provider: p.Slack})
	}

	return &dispatcher{
		log:     log,
		metrics: p.Metrics,
		sinks:   sinks,
	}
}

// Dispatch hands the event to every sink in a detached goroutine. The
// request context is not reused so an already-finished request cannot cancel
// delivery mid-flight.
func (d *dispatcher) Dispatch(ctx context.Context, event ChangeEvent) {
	d.metrics.RecordNotifyEvent(ctx, string(event.Kind))

	go func() {
		deliverCtx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
		defer cancel()

		for _, sink := range d.sinks {
			if err := sink.Deliver(deliverCtx, event); err != nil {
				d.log.Warn("notification delivery failed",
					zap.String("sink", sink.Name()),
					zap.String("event_id", event.ID),
					zap.String("kind", string(event.Kind)),
					zap.Error(err),
				)
			}
		}
	}()
}

type logSink struct {
	log *zap.Logger
}

func (s *logSink) Name() string { return "log" }

func (s *logSink) Deliver(ctx context.Context, event ChangeEvent) error {
	s.log.Info("hierarchy changed",
		zap.String("event_id", event.ID),
		zap.String("kind", string(event.Kind)),
		zap.String("member", event.MemberName),
		zap.String("detail", event.Detail),
		zap.String("actor", event.ActorEmail),
	)
	return nil
}

type emailSink struct {
	provider   email.Provider
	recipients []string
}

func (s *emailSink) Name() string { return "email" }

func (s *emailSink) Deliver(ctx context.Context, event ChangeEvent) error {
	subject := event.Summary()
	body := fmt.Sprintf("<p>%s</p><p>Changed by %s at %s.</p>",
		event.Summary(), event.ActorEmail, event.OccurredAt.Format(time.RFC1123))
	return s.provider.Send(ctx, s.recipients, subject, body)
}

type slackSink struct {
	provider slack.Provider
}

func (s *slackSink) Name() string { return "slack" }

func (s *slackSink) Deliver(ctx context.Context, event ChangeEvent) error {
	return s.provider.PostMessage(ctx, event.Summary())
}
