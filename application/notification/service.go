package notification

import (
	"context"
	"strings"

	"vidflow/domain/export"
	"vidflow/domain/notification"

	"github.com/sirupsen/logrus"
)

// Service delivers an artifact and then emails its shareable link
type Service struct {
	downloader export.Downloader
	sender     notification.EmailSender
	to         []notification.Recipient
	senderName string
	log        *logrus.Entry
}

var _ export.Downloader = (*Service)(nil)

// NewService wraps downloader so each delivery is announced to the recipients
func NewService(downloader export.Downloader, sender notification.EmailSender, to []notification.Recipient, senderName string) *Service {
	return &Service{
		downloader: downloader,
		sender:     sender,
		to:         to,
		senderName: senderName,
		log:        logrus.WithField("component", "notification"),
	}
}

// Deliver hands the artifact to the wrapped downloader. A failed email is
// logged and does not fail the delivery.
func (s *Service) Deliver(ctx context.Context, artifact export.Artifact) (string, error) {
	location, err := s.downloader.Deliver(ctx, artifact)
	if err != nil {
		return location, err
	}
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		s.log.WithField("location", location).Debug("delivery has no shareable link, skipping email")
		return location, nil
	}

	req := &notification.ShareRequest{
		To:         s.to,
		Filename:   artifact.Filename,
		Link:       location,
		SenderName: s.senderName,
	}
	if err := s.sender.Send(ctx, req); err != nil {
		s.log.WithError(err).WithField("file", artifact.Filename).Warn("export delivered but the email was not sent")
		return location, nil
	}
	s.log.WithFields(logrus.Fields{
		"file":       artifact.Filename,
		"recipients": len(s.to),
	}).Info("export link emailed")
	return location, nil
}
