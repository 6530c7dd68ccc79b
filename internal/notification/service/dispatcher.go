package service

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/slotwise/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/slotwise/internal/observability/metrics"
	"go.uber.org/zap"
)

const deliverTimeout = 20 * time.Second

// Dispatcher delivers through a primary channel, whose outcome Send reports,
// and any number of secondary channels that are best-effort.
type Dispatcher struct {
	log       *zap.Logger
	metrics   *obsmetrics.Metrics
	primary   domain.Channel
	secondary []domain.Channel
}

func NewDispatcher(log *zap.Logger, metrics *obsmetrics.Metrics, primary domain.Channel, secondary ...domain.Channel) *Dispatcher {
	return &Dispatcher{
		log:       log.Named("notification.dispatcher"),
		metrics:   metrics,
		primary:   primary,
		secondary: secondary,
	}
}

func (d *Dispatcher) Notify(ctx context.Context, msg domain.Message) {
	if err := d.Send(ctx, msg); err != nil {
		d.log.Warn("notification failed",
			zap.String("template", string(msg.Template)),
			zap.String("recipient_id", msg.Recipient.UserID.String()),
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) Send(ctx context.Context, msg domain.Message) error {
	if msg.Recipient.UserID == 0 && msg.Recipient.Email == "" {
		return domain.ErrNoRecipient
	}

	// Delivery must not inherit an already-expired request deadline; the
	// state it reports has been committed.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliverTimeout)
	defer cancel()

	err := d.deliver(ctx, d.primary, msg)
	for _, ch := range d.secondary {
		if serr := d.deliver(ctx, ch, msg); serr != nil && !errors.Is(serr, domain.ErrDisabled) {
			d.log.Debug("secondary channel failed",
				zap.String("channel", ch.Name()),
				zap.String("template", string(msg.Template)),
				zap.Error(serr),
			)
		}
	}
	return err
}

func (d *Dispatcher) deliver(ctx context.Context, ch domain.Channel, msg domain.Message) error {
	if ch == nil {
		return domain.ErrDisabled
	}
	err := ch.Deliver(ctx, msg)
	d.metrics.RecordNotification(ctx, string(msg.Template), ch.Name(), err == nil)
	if err == nil {
		d.log.Info("notification delivered",
			zap.String("channel", ch.Name()),
			zap.String("template", string(msg.Template)),
			zap.String("recipient_id", msg.Recipient.UserID.String()),
		)
	}
	return err
}

var _ domain.Dispatcher = (*Dispatcher)(nil)
