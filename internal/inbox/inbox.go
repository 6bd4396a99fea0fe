// Package inbox is the boundary to the mailbox holding payslip emails. The
// pipeline only depends on the Source contract; Gmail is the one real
// implementation.
package inbox

import "context"

// MessageRef identifies one candidate email.
type MessageRef struct {
	ID string
}

// Attachment is one raw PDF pulled out of a message.
type Attachment struct {
	Filename string
	Data     []byte
}

// Source yields candidate messages and their PDF attachments.
//
// ListCandidates must order results most-recent-first; incremental mode takes
// the head of the list as "the latest payslip". FetchAttachments returns only
// PDF parts.
type Source interface {
	ListCandidates(ctx context.Context, label, subject string) ([]MessageRef, error)
	FetchAttachments(ctx context.Context, ref MessageRef) ([]Attachment, error)
}
