package notification

import (
	"strings"
	"testing"
)

func TestEmailTemplate_RenderSubject(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"talk_speech.wav", "Cleaned-up audio: talk_speech.wav"},
		{"talk_music.mp4", "Cleaned-up video: talk_music.mp4"},
		{"talk_speech.ogg", "Cleaned-up audio: talk_speech.ogg"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			data := NewTemplateData(&ShareRequest{Filename: tt.filename})
			subject, err := DefaultTemplate.RenderSubject(data)
			if err != nil {
				t.Fatalf("RenderSubject() error = %v", err)
			}
			if subject != tt.want {
				t.Errorf("RenderSubject() = %q, want %q", subject, tt.want)
			}
		})
	}
}

func TestEmailTemplate_RenderPlainText(t *testing.T) {
	data := NewTemplateData(&ShareRequest{
		To:         []Recipient{{Name: "John Doe", Address: "john@example.com"}},
		Filename:   "talk_speech.wav",
		Link:       "https://drive.google.com/file/d/abc/view",
		SenderName: "Jonathan",
	})

	body, err := DefaultTemplate.RenderPlainText(data)
	if err != nil {
		t.Fatalf("RenderPlainText() error = %v", err)
	}

	checks := []string{
		"Dear John,",
		"Here is the audio",
		"talk_speech.wav: https://drive.google.com/file/d/abc/view",
		"Thanks!\n~Jonathan",
	}

	for _, check := range checks {
		if !strings.Contains(body, check) {
			t.Errorf("RenderPlainText() missing %q in:\n%s", check, body)
		}
	}
}

func TestEmailTemplate_RenderHTML(t *testing.T) {
	data := NewTemplateData(&ShareRequest{
		To:       []Recipient{{Name: "John"}, {Name: "Jane"}},
		Filename: "talk_music.mp4",
		Link:     "https://drive.google.com/file/d/xyz/view",
	})

	html, err := DefaultTemplate.RenderHTML(data)
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
	if !strings.Contains(html, `<a href="https://drive.google.com/file/d/xyz/view">video</a>`) {
		t.Errorf("RenderHTML() missing link in:\n%s", html)
	}
	if !strings.Contains(html, "Dear John & Jane,") {
		t.Errorf("RenderHTML() missing greeting in:\n%s", html)
	}
}

func TestFormatGreeting(t *testing.T) {
	tests := []struct {
		name       string
		recipients []Recipient
		want       string
	}{
		{
			name:       "no recipients",
			recipients: nil,
			want:       "Hello,",
		},
		{
			name:       "one recipient",
			recipients: []Recipient{{Name: "John Doe", Address: "john@example.com"}},
			want:       "Dear John,",
		},
		{
			name:       "two recipients",
			recipients: []Recipient{{Name: "John Doe"}, {Name: "Jane Smith"}},
			want:       "Dear John & Jane,",
		},
		{
			name:       "three recipients",
			recipients: []Recipient{{Name: "John"}, {Name: "Jane"}, {Name: "Alice"}},
			want:       "Hey Everyone!",
		},
		{
			name:       "recipient with no name",
			recipients: []Recipient{{Address: "john@example.com"}},
			want:       "Dear Friend,",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatGreeting(tt.recipients)
			if got != tt.want {
				t.Errorf("FormatGreeting() = %q, want %q", got, tt.want)
			}
		})
	}
}
