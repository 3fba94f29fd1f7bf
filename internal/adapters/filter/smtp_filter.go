// Package filter provides the analysis entry points: an SMTP content
// filter for mail-flow deployments and a CLI filter for one-off checks.
package filter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/llm-phishing-detector/internal/analysis"
	"github.com/mikey/llm-phishing-detector/internal/core"
)

// SMTPFilter sits in the mail flow as a content filter: it analyzes each
// message, stamps verdict headers, and relays the message upstream.
type SMTPFilter struct {
	service       *analysis.Service
	logger        *zap.Logger
	listenAddr    string
	server        *smtp.Server
	blockHighRisk bool
	scoreHeader   string
	tierHeader    string
	flagsHeader   string
	statusHeader  string
	relayAddr     string
	relayPort     int
	relayEnabled  bool
}

// NewSMTPFilter creates the content filter.
func NewSMTPFilter(
	service *analysis.Service,
	logger *zap.Logger,
	listenAddr string,
	blockHighRisk bool,
	scoreHeader string,
	tierHeader string,
	flagsHeader string,
	statusHeader string,
	relayAddr string,
	relayPort int,
	relayEnabled bool,
) *SMTPFilter {
	return &SMTPFilter{
		service:       service,
		logger:        logger,
		listenAddr:    listenAddr,
		blockHighRisk: blockHighRisk,
		scoreHeader:   scoreHeader,
		tierHeader:    tierHeader,
		flagsHeader:   flagsHeader,
		statusHeader:  statusHeader,
		relayAddr:     relayAddr,
		relayPort:     relayPort,
		relayEnabled:  relayEnabled,
	}
}

// Start starts the SMTP server.
func (f *SMTPFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})

	f.server.Addr = f.listenAddr
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024 // 30MB
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	f.logger.Info("SMTP filter starting", zap.String("address", f.listenAddr))

	go func() {
		if err := f.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				f.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the SMTP server.
func (f *SMTPFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// AnalyzeRaw analyzes raw email input directly, bypassing the SMTP flow.
func (f *SMTPFilter) AnalyzeRaw(ctx context.Context, raw string) (*core.Verdict, error) {
	return f.service.Analyze(ctx, raw)
}

// relay sends the stamped message to the upstream listener.
func (f *SMTPFilter) relay(sender string, recipients []string, data []byte) error {
	addr := fmt.Sprintf("%s:%d", f.relayAddr, f.relayPort)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
		} else {
			recipientOK = true
		}
	}
	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}

type smtpBackend struct {
	filter *SMTPFilter
}

func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{
		filter:     b.filter,
		recipients: make([]string, 0),
	}, nil
}

type smtpSession struct {
	filter     *SMTPFilter
	sender     string
	recipients []string
}

func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = make([]string, 0)
}

func (s *smtpSession) AuthPlain(_ []byte) error {
	return smtp.ErrAuthUnsupported
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data analyzes the message, stamps verdict headers, and relays it. An
// analysis failure never bounces mail: the message passes through with an
// error header instead.
func (s *smtpSession) Data(r io.Reader) error {
	rawData, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	verdict, analysisErr := s.filter.service.Analyze(ctx, string(rawData))
	if analysisErr != nil {
		s.filter.logger.Error("Failed to analyze email",
			zap.Error(analysisErr),
			zap.String("sender", s.sender))
		verdict = nil
	}

	if verdict != nil && s.filter.blockHighRisk && verdict.Tier == core.TierHigh && !verdict.UsedFallback {
		s.filter.logger.Info("Rejecting high-risk email",
			zap.String("sender", s.sender),
			zap.Int("score", verdict.Score),
			zap.String("analysis_id", verdict.AnalysisID))
		return fmt.Errorf("550 Rejected as likely phishing (score: %d)", verdict.Score)
	}

	stamped := s.stampHeaders(rawData, verdict, analysisErr)
	if s.filter.relayEnabled {
		if err := s.filter.relay(s.sender, s.recipients, stamped); err != nil {
			s.filter.logger.Error("Failed to relay email",
				zap.Error(err),
				zap.String("sender", s.sender))
			return err
		}
	} else {
		s.filter.logger.Warn("relay disabled, message dropped after analysis")
	}

	if verdict != nil {
		s.filter.logger.Info("Processed email",
			zap.String("sender", s.sender),
			zap.Int("score", verdict.Score),
			zap.String("tier", string(verdict.Tier)),
			zap.Bool("fallback", verdict.UsedFallback))
	}
	return nil
}

// stampHeaders prepends the verdict headers to the original message bytes,
// leaving the body untouched so MIME parts and attachments survive.
func (s *smtpSession) stampHeaders(rawData []byte, verdict *core.Verdict, analysisErr error) []byte {
	var stamped bytes.Buffer

	if verdict != nil {
		fmt.Fprintf(&stamped, "%s: %d\r\n", s.filter.scoreHeader, verdict.Score)
		fmt.Fprintf(&stamped, "%s: %s\r\n", s.filter.tierHeader, verdict.Tier)
		fmt.Fprintf(&stamped, "%s: %s\r\n", s.filter.statusHeader, verdict.Recommendation)
		if len(verdict.RedFlags) > 0 {
			labels := make([]string, 0, len(verdict.RedFlags))
			for _, f := range verdict.RedFlags {
				labels = append(labels, f.Label)
			}
			fmt.Fprintf(&stamped, "%s: %s\r\n", s.filter.flagsHeader, strings.Join(labels, "; "))
		}
		if verdict.DegradationReason != "" {
			fmt.Fprintf(&stamped, "X-Phishing-Degraded: %s\r\n", verdict.DegradationReason)
		}
	}
	if analysisErr != nil {
		fmt.Fprintf(&stamped, "X-Phishing-Analysis-Error: %s\r\n", analysisErr.Error())
	}

	stamped.Write(rawData)
	return stamped.Bytes()
}

func (s *smtpSession) Logout() error {
	return nil
}
