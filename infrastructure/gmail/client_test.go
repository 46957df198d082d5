package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"vidflow/domain/notification"

	"google.golang.org/api/gmail/v1"
)

// mockGmailService is a mock implementation for testing
type mockGmailService struct {
	sentMessages []*gmail.Message
	shouldFail   bool
	failError    error
}

func (m *mockGmailService) SendMessage(ctx context.Context, userID string, message *gmail.Message) (*gmail.Message, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	m.sentMessages = append(m.sentMessages, message)
	return &gmail.Message{Id: "test-message-id"}, nil
}

func TestClient_Send(t *testing.T) {
	mock := &mockGmailService{}
	from := notification.Recipient{Name: "Media Team", Address: "media@example.com"}

	client := NewClient(from, WithGmailService(mock))

	req := &notification.ShareRequest{
		To:         []notification.Recipient{{Name: "John Doe", Address: "john@example.com"}},
		Filename:   "talk_speech.wav",
		Link:       "https://drive.google.com/file/d/abc/view",
		SenderName: "Jonathan",
	}

	if err := client.Send(context.Background(), req); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if len(mock.sentMessages) != 1 {
		t.Fatalf("expected 1 message sent, got %d", len(mock.sentMessages))
	}

	rawBytes, err := base64.URLEncoding.DecodeString(mock.sentMessages[0].Raw)
	if err != nil {
		t.Fatalf("failed to decode message: %v", err)
	}
	raw := string(rawBytes)

	checks := []string{
		"From: Media Team <media@example.com>",
		"To: John Doe <john@example.com>",
		"Subject: Cleaned-up audio: talk_speech.wav",
		"Dear John,",
		"https://drive.google.com/file/d/abc/view",
		"~Jonathan",
	}

	for _, check := range checks {
		if !strings.Contains(raw, check) {
			t.Errorf("message missing %q in:\n%s", check, raw)
		}
	}
}

func TestClient_Send_MultipleRecipients(t *testing.T) {
	mock := &mockGmailService{}
	client := NewClient(notification.Recipient{Address: "media@example.com"}, WithGmailService(mock))

	req := &notification.ShareRequest{
		To: []notification.Recipient{
			{Name: "John Doe", Address: "john@example.com"},
			{Address: "alice@example.com"},
		},
		Filename: "talk_music.mp4",
		Link:     "https://drive.google.com/file/d/xyz/view",
	}

	if err := client.Send(context.Background(), req); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	rawBytes, _ := base64.URLEncoding.DecodeString(mock.sentMessages[0].Raw)
	raw := string(rawBytes)

	if !strings.Contains(raw, "From: media@example.com\r\n") {
		t.Errorf("bare sender address not used:\n%s", raw)
	}
	if !strings.Contains(raw, "To: John Doe <john@example.com>, alice@example.com") {
		t.Errorf("message missing multiple recipients in To header:\n%s", raw)
	}
	if !strings.Contains(raw, "Dear John & Friend,") {
		t.Errorf("message should greet both recipients:\n%s", raw)
	}
}

func TestClient_Send_Errors(t *testing.T) {
	from := notification.Recipient{Address: "media@example.com"}

	client := NewClient(from, WithGmailService(&mockGmailService{}))
	err := client.Send(context.Background(), &notification.ShareRequest{Link: "https://example.com"})
	if err == nil || !strings.Contains(err.Error(), "invalid email request") {
		t.Errorf("Send() error = %v, want invalid email request error", err)
	}

	failing := NewClient(from, WithGmailService(&mockGmailService{shouldFail: true, failError: errors.New("403")}))
	err = failing.Send(context.Background(), &notification.ShareRequest{
		To:   []notification.Recipient{{Address: "john@example.com"}},
		Link: "https://example.com",
	})
	if !errors.Is(err, notification.ErrSendFailed) {
		t.Errorf("Send() error = %v, want ErrSendFailed", err)
	}
}
