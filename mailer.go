package main

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"github.com/sirupsen/logrus"
)

// codeSender delivers login codes.
type codeSender interface {
	SendCode(ctx context.Context, email, code string) error
}

var sender codeSender = logSender{log: logger}

const loginCodeSubject = "Company Inventory Login Code"

func newCodeSender(c appConfig) codeSender {
	if c.SMTP.Host == "" {
		return logSender{log: logger}
	}
	return smtpSender{cfg: c.SMTP}
}

// logSender only logs that a code was issued. Used when no SMTP host is set.
type logSender struct {
	log logrus.FieldLogger
}

func (s logSender) SendCode(_ context.Context, email, _ string) error {
	s.log.WithField("email", email).Info("login code issued (no SMTP host configured, not mailed)")
	return nil
}

type smtpSender struct {
	cfg smtpConfig
}

func (s smtpSender) SendCode(_ context.Context, email, code string) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", s.cfg.From, email, loginCodeSubject, code)
	return smtp.SendMail(addr, auth, s.cfg.From, []string{email}, []byte(msg))
}
