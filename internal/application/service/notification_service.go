package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/expense-reports/internal/application/port"
)

// NotificationService posts audit digests to a chat
type NotificationService struct {
	sender port.MessageSender
	logger *zap.Logger
}

// NewNotificationService creates a new NotificationService. A nil sender
// disables notifications.
func NewNotificationService(sender port.MessageSender, logger *zap.Logger) *NotificationService {
	return &NotificationService{sender: sender, logger: logger}
}

// Enabled reports whether a sender is configured
func (s *NotificationService) Enabled() bool {
	return s.sender != nil
}

// NotifyAudit sends the audit digest of snap and returns the message id
func (s *NotificationService) NotifyAudit(ctx context.Context, snap *Snapshot) (string, error) {
	if !s.Enabled() {
		return "", ErrNotifierDisabled
	}
	if snap == nil {
		return "", ErrNoDocument
	}

	messageID, err := s.sender.SendText(ctx, BuildAuditDigest(snap))
	if err != nil {
		s.logger.Error("Failed to send audit digest",
			zap.String("fingerprint", snap.Fingerprint),
			zap.Error(err))
		return "", fmt.Errorf("failed to send audit digest: %w", err)
	}

	s.logger.Info("Audit digest sent",
		zap.String("fingerprint", snap.Fingerprint),
		zap.String("message_id", messageID),
		zap.Int("findings", snap.Audit.Count()))
	return messageID, nil
}

// BuildAuditDigest formats the audit report of snap as plain text
func BuildAuditDigest(snap *Snapshot) string {
	var b strings.Builder
	short := snap.Fingerprint
	if len(short) > 12 {
		short = short[:12]
	}
	fmt.Fprintf(&b, "Audit de configuration (empreinte %s)\n", short)
	fmt.Fprintf(&b, "Profils : %d, natures : %d, plans comptables : %d\n",
		len(snap.Document.Profiles), len(snap.Document.Natures), len(snap.Document.ChartsOfAccounts))

	if snap.Audit.Clean() {
		b.WriteString("Aucune anomalie détectée.")
		return b.String()
	}
	fmt.Fprintf(&b, "%d anomalie(s) :", snap.Audit.Count())
	for _, msg := range snap.Audit.Messages() {
		b.WriteString("\n- ")
		b.WriteString(msg)
	}
	return b.String()
}
