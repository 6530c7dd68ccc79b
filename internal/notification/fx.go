package notification

import (
	"context"
	"time"

	"github.com/smallbiznis/slotwise/internal/config"
	"github.com/smallbiznis/slotwise/internal/notification/domain"
	"github.com/smallbiznis/slotwise/internal/notification/email"
	"github.com/smallbiznis/slotwise/internal/notification/events"
	"github.com/smallbiznis/slotwise/internal/notification/service"
	obsmetrics "github.com/smallbiznis/slotwise/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notification",
	fx.Provide(email.NewRenderer),
	fx.Provide(newPublisher),
	fx.Provide(newDispatcher),
)

// newPublisher falls back to logging when the broker is missing or
// unreachable so notifications never block startup.
func newPublisher(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) events.Publisher {
	log = log.Named("notification.events")
	if cfg.AMQPURL == "" {
		return events.NewLogPublisher(log)
	}
	pub, err := events.NewAMQPPublisher(cfg.AMQPURL)
	if err != nil {
		log.Warn("rabbitmq unavailable, using log publisher", zap.Error(err))
		return events.NewLogPublisher(log)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pub.Close()
			return nil
		},
	})
	return pub
}

func newDispatcher(cfg config.Config, log *zap.Logger, metrics *obsmetrics.Metrics, renderer *email.Renderer, publisher events.Publisher) domain.Dispatcher {
	eventsCh := events.NewChannel(publisher, cfg.AMQPExchange)
	if !cfg.Email.Enabled {
		return service.NewDispatcher(log, metrics, eventsCh)
	}
	emailCh := email.NewChannel(email.Config{
		Enabled:  true,
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
		Username: cfg.Email.SMTPUsername,
		Password: cfg.Email.SMTPPassword,
		From:     cfg.Email.SMTPFrom,
		UseTLS:   cfg.Email.SMTPUseTLS,
		Timeout:  15 * time.Second,
	}, renderer)
	return service.NewDispatcher(log, metrics, emailCh, eventsCh)
}
