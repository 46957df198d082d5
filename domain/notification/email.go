package notification

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
)

// Recipient represents an email recipient with name and address
type Recipient struct {
	Name    string
	Address string
}

// String formats the recipient for a mail header
func (r Recipient) String() string {
	if r.Name == "" {
		return r.Address
	}
	return fmt.Sprintf("%s <%s>", r.Name, r.Address)
}

// ParseRecipients parses entries like "Jane Doe <jane@example.com>" or
// "jane@example.com". Blank entries are skipped.
func ParseRecipients(entries []string) ([]Recipient, error) {
	var out []Recipient
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		addr, err := mail.ParseAddress(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRecipient, entry)
		}
		out = append(out, Recipient{Name: addr.Name, Address: addr.Address})
	}
	return out, nil
}

// ShareRequest announces one delivered export
type ShareRequest struct {
	To         []Recipient
	Filename   string // Name of the exported file
	Link       string // Shareable link to the export
	SenderName string // Name to sign the email with
}

// Validate checks that the request has all required fields
func (r *ShareRequest) Validate() error {
	if len(r.To) == 0 {
		return ErrNoRecipients
	}
	for _, to := range r.To {
		if to.Address == "" {
			return ErrInvalidRecipient
		}
	}
	if r.Link == "" {
		return ErrNoLink
	}
	return nil
}

// EmailSender defines the interface for sending emails
type EmailSender interface {
	Send(ctx context.Context, req *ShareRequest) error
}
