package notification

import (
	"context"
	"errors"
	"testing"

	"vidflow/domain/export"
	"vidflow/domain/notification"
)

type mockDownloader struct {
	location string
	err      error
}

func (m *mockDownloader) Deliver(ctx context.Context, artifact export.Artifact) (string, error) {
	return m.location, m.err
}

type mockSender struct {
	sent []*notification.ShareRequest
	err  error
}

func (m *mockSender) Send(ctx context.Context, req *notification.ShareRequest) error {
	m.sent = append(m.sent, req)
	return m.err
}

func TestService_Deliver(t *testing.T) {
	to := []notification.Recipient{{Name: "John", Address: "john@example.com"}}
	artifact := export.Artifact{Filename: "talk_speech.wav"}

	tests := []struct {
		name       string
		location   string
		deliverErr error
		sendErr    error
		wantSent   int
		wantErr    bool
	}{
		{"emails a shareable link", "https://drive.google.com/file/d/abc/view", nil, nil, 1, false},
		{"local file is not emailed", "/srv/exports/talk_speech.wav", nil, nil, 0, false},
		{"failed delivery is not emailed", "", errors.New("upload failed"), nil, 0, true},
		{"failed email keeps the delivery", "https://drive.google.com/file/d/abc/view", nil, notification.ErrSendFailed, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &mockSender{err: tt.sendErr}
			svc := NewService(&mockDownloader{location: tt.location, err: tt.deliverErr}, sender, to, "Jonathan")

			location, err := svc.Deliver(context.Background(), artifact)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Deliver() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && location != tt.location {
				t.Errorf("Deliver() location = %q, want %q", location, tt.location)
			}
			if len(sender.sent) != tt.wantSent {
				t.Fatalf("sent %d emails, want %d", len(sender.sent), tt.wantSent)
			}
			if tt.wantSent == 1 {
				req := sender.sent[0]
				if req.Link != tt.location || req.Filename != "talk_speech.wav" || req.SenderName != "Jonathan" {
					t.Errorf("request = %+v", req)
				}
			}
		})
	}
}
