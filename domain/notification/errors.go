package notification

import "errors"

var (
	// ErrNoRecipients is returned when no To recipients are provided
	ErrNoRecipients = errors.New("at least one recipient is required")

	// ErrInvalidRecipient is returned when a recipient has no usable email address
	ErrInvalidRecipient = errors.New("recipient must have an email address")

	// ErrNoLink is returned when there is no shareable link to announce
	ErrNoLink = errors.New("a shareable link is required")

	// ErrSendFailed is returned when the email fails to send
	ErrSendFailed = errors.New("failed to send email")
)
