package inbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/markozagar94/paycheck-tracker/constants"
	"github.com/markozagar94/paycheck-tracker/internal/common"
)

// GmailSource reads payslip emails through the Gmail API using an
// authorized-user credentials file.
type GmailSource struct {
	svc    *gmail.Service
	logger *slog.Logger
}

var _ Source = (*GmailSource)(nil)

func NewGmailSource(ctx context.Context, credentialsFile string, logger *slog.Logger) (*GmailSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	raw, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, common.NewAppError("INBOX_ERROR", fmt.Sprintf("reading gmail credentials %s", credentialsFile), err)
	}
	creds, err := google.CredentialsFromJSON(ctx, raw, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, common.NewAppError("INBOX_ERROR", "parsing gmail credentials", err)
	}
	svc, err := gmail.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, common.NewAppError("INBOX_ERROR", "building gmail service", err)
	}
	return &GmailSource{svc: svc, logger: logger}, nil
}

// ListCandidates searches the mailbox by label and subject. Gmail returns
// messages newest first, which is exactly the ordering incremental mode needs.
func (s *GmailSource) ListCandidates(ctx context.Context, label, subject string) ([]MessageRef, error) {
	query := fmt.Sprintf("label:%s subject:%q", label, subject)
	s.logger.Info("inbox.list", "query", query)

	resp, err := s.svc.Users.Messages.List("me").Q(query).Context(ctx).Do()
	if err != nil {
		return nil, common.WrapError(err, "listing messages")
	}
	refs := make([]MessageRef, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		refs = append(refs, MessageRef{ID: m.Id})
	}
	return refs, nil
}

// FetchAttachments downloads every PDF part of the message.
func (s *GmailSource) FetchAttachments(ctx context.Context, ref MessageRef) ([]Attachment, error) {
	msg, err := s.svc.Users.Messages.Get("me", ref.ID).Context(ctx).Do()
	if err != nil {
		return nil, common.WrapError(err, fmt.Sprintf("fetching message %s", ref.ID))
	}
	if msg.Payload == nil {
		return nil, nil
	}

	var atts []Attachment
	for _, part := range msg.Payload.Parts {
		if part.MimeType != constants.PDFMimeType || part.Body == nil || part.Body.AttachmentId == "" {
			continue
		}
		body, err := s.svc.Users.Messages.Attachments.Get("me", ref.ID, part.Body.AttachmentId).Context(ctx).Do()
		if err != nil {
			return nil, common.WrapError(err, fmt.Sprintf("fetching attachment for message %s", ref.ID))
		}
		data, err := decodeBody(body.Data)
		if err != nil {
			return nil, common.WrapError(err, "decoding attachment body")
		}
		s.logger.Info("inbox.attachment", "message_id", ref.ID, "filename", part.Filename, "bytes", len(data))
		atts = append(atts, Attachment{Filename: part.Filename, Data: data})
	}
	return atts, nil
}

// decodeBody handles Gmail's url-safe base64, padded or not.
func decodeBody(s string) ([]byte, error) {
	if b, err := base64.URLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(s)
}
