package email

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"time"

	"github.com/smallbiznis/slotwise/internal/notification/domain"
	"gopkg.in/gomail.v2"
)

const defaultSendTimeout = 15 * time.Second

type Config struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
	Timeout  time.Duration
}

// Channel sends rendered notifications over SMTP.
type Channel struct {
	cfg      Config
	renderer *Renderer
	send     func(*gomail.Message) error
}

func NewChannel(cfg Config, renderer *Renderer) *Channel {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSendTimeout
	}
	c := &Channel{cfg: cfg, renderer: renderer}
	c.send = func(m *gomail.Message) error {
		return c.newDialer().DialAndSend(m)
	}
	return c
}

func (c *Channel) Name() string { return "email" }

func (c *Channel) Deliver(ctx context.Context, msg domain.Message) error {
	if !c.cfg.Enabled {
		return domain.ErrDisabled
	}
	to := strings.TrimSpace(msg.Recipient.Email)
	if to == "" {
		return domain.ErrNoRecipient
	}

	subject, body, err := c.renderer.Render(msg)
	if err != nil {
		return err
	}

	from := strings.TrimSpace(c.cfg.From)
	if from == "" {
		return errors.New("email from address is required")
	}
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	done := make(chan error, 1)
	go func() {
		done <- c.send(m)
	}()

	wait := c.cfg.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < wait {
			wait = d
		}
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return context.DeadlineExceeded
	}
}

func (c *Channel) newDialer() *gomail.Dialer {
	d := gomail.NewDialer(c.cfg.Host, c.cfg.Port, c.cfg.Username, c.cfg.Password)
	d.SSL = c.cfg.UseTLS
	if c.cfg.UseTLS {
		d.TLSConfig = &tls.Config{ServerName: c.cfg.Host}
	}
	return d
}
