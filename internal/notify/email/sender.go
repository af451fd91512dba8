package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// Options configures the SMTP connection.
type Options struct {
	Server      string
	Port        int
	Username    string
	Password    string
	FromAddress string
	// Timeout bounds connecting and sending one message.
	Timeout time.Duration
}

var (
	// errServerRequired is returned when no SMTP server is configured.
	errServerRequired = errors.New("smtp server must be provided")
	// errFromRequired is returned when no sender address is configured.
	errFromRequired = errors.New("from address must be provided")
)

// Sender delivers plain-text mail through an SMTP server.
type Sender struct {
	client *mail.Client
	from   string
}

// NewSender validates opts and prepares an SMTP client. No connection is made
// until the first Send.
func NewSender(opts Options) (*Sender, error) {
	if opts.Server == "" {
		return nil, errServerRequired
	}

	if opts.FromAddress == "" {
		return nil, errFromRequired
	}

	clientOptions := []mail.Option{
		mail.WithPort(opts.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}

	if opts.Timeout > 0 {
		clientOptions = append(clientOptions, mail.WithTimeout(opts.Timeout))
	}

	if opts.Username != "" {
		clientOptions = append(clientOptions,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(opts.Username),
			mail.WithPassword(opts.Password),
		)
	}

	client, err := mail.NewClient(opts.Server, clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &Sender{
		client: client,
		from:   opts.FromAddress,
	}, nil
}

// Send delivers one message to address.
func (s *Sender) Send(ctx context.Context, address, subject, body string) error {
	msg, err := s.compose(address, subject, body)
	if err != nil {
		return err
	}

	if err = s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", address, err)
	}

	return nil
}

// compose builds a plain-text message.
func (s *Sender) compose(address, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if err := msg.From(s.from); err != nil {
		return nil, fmt.Errorf("set from address: %w", err)
	}

	if err := msg.To(address); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	return msg, nil
}
