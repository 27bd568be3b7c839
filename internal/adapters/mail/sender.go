/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package mail

import (
	"context"
	"fmt"

	"github.com/dfliao/redmine-report/internal/config"
	"github.com/rs/zerolog"
	gomail "github.com/wneessen/go-mail"
)

// Sender delivers rendered reports over SMTP. Servers in the field are
// configured inconsistently, so delivery walks an ordered chain of
// transport configurations and succeeds on the first that completes.
type Sender struct {
	cfg config.Config
	log zerolog.Logger
}

func NewSender(cfg config.Config, log zerolog.Logger) *Sender {
	return &Sender{cfg: cfg, log: log}
}

type transport struct {
	name string
	opts []gomail.Option
}

// transports is the fallback order: STARTTLS with auth, implicit TLS with
// auth, then unencrypted. Auth options are attached only when credentials
// are configured.
func (s *Sender) transports() []transport {
	auth := []gomail.Option{}
	if s.cfg.SMTPUsername != "" {
		auth = append(auth,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.SMTPUsername),
			gomail.WithPassword(s.cfg.SMTPPassword),
		)
	}
	base := []gomail.Option{
		gomail.WithPort(s.cfg.SMTPPort),
		gomail.WithTimeout(s.cfg.EmailTimeout),
	}
	starttls := append(append([]gomail.Option{}, base...), gomail.WithTLSPolicy(gomail.TLSMandatory))
	starttls = append(starttls, auth...)
	ssl := append(append([]gomail.Option{}, base...), gomail.WithSSL())
	ssl = append(ssl, auth...)
	plain := append(append([]gomail.Option{}, base...), gomail.WithTLSPolicy(gomail.NoTLS))
	plain = append(plain, auth...)
	return []transport{
		{name: "starttls", opts: starttls},
		{name: "ssl", opts: ssl},
		{name: "plain", opts: plain},
	}
}

// Send delivers one fully rendered HTML body to all recipients. It returns
// nil on the first transport that completes and an error only after the
// whole chain is exhausted. Credentials never reach the log.
func (s *Sender) Send(ctx context.Context, subject, html string, recipients []string) error {
	if len(recipients) == 0 { return fmt.Errorf("mail: no recipients") }
	if s.cfg.SMTPHost == "" { return fmt.Errorf("mail: missing SMTP host") }

	msg := gomail.NewMsg(gomail.WithCharset(gomail.CharsetUTF8))
	if err := msg.From(s.cfg.EmailFrom); err != nil {
		return fmt.Errorf("mail: invalid sender %q: %w", s.cfg.EmailFrom, err)
	}
	if err := msg.To(recipients...); err != nil {
		return fmt.Errorf("mail: invalid recipient list: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, html)

	var lastErr error
	for _, t := range s.transports() {
		client, err := gomail.NewClient(s.cfg.SMTPHost, t.opts...)
		if err != nil {
			lastErr = err
			s.log.Warn().Err(err).Str("transport", t.name).Msg("mail: client setup failed")
			continue
		}
		if err := client.DialAndSendWithContext(ctx, msg); err != nil {
			lastErr = err
			s.log.Warn().Err(err).Str("transport", t.name).Str("host", s.cfg.SMTPHost).Msg("mail: send attempt failed")
			continue
		}
		s.log.Info().Str("transport", t.name).Int("recipients", len(recipients)).Str("subject", subject).Msg("mail: sent")
		return nil
	}
	return fmt.Errorf("mail: all transports failed: %w", lastErr)
}
