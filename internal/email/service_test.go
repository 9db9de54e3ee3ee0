package email

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"
)

func TestServiceIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{
			name:     "empty config",
			config:   Config{},
			expected: false,
		},
		{
			name:     "missing host",
			config:   Config{Port: "587", From: "test@example.com"},
			expected: false,
		},
		{
			name:     "missing port",
			config:   Config{Host: "smtp.example.com", From: "test@example.com"},
			expected: false,
		},
		{
			name:     "missing from",
			config:   Config{Host: "smtp.example.com", Port: "587"},
			expected: false,
		},
		{
			name:     "fully configured",
			config:   Config{Host: "smtp.example.com", Port: "587", From: "test@example.com"},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.config)
			if svc.IsConfigured() != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", svc.IsConfigured(), tt.expected)
			}
		})
	}
}

func TestRenderShareTemplate(t *testing.T) {
	html, err := renderTemplate(shareTemplate, ShareData{
		AppName:       "Sharelist",
		RecipientName: "bob",
		SharedBy:      "alice",
		ListName:      "Groceries <weekly>",
		Level:         "view",
		ListURL:       "https://example.com/lists/7",
	})
	if err != nil {
		t.Fatalf("renderTemplate failed: %v", err)
	}

	for _, want := range []string{"Hi bob", "alice", "Groceries &lt;weekly&gt;", "view", "https://example.com/lists/7"} {
		if !strings.Contains(html, want) {
			t.Errorf("template should contain %q", want)
		}
	}
}

func TestSendShareNotification(t *testing.T) {
	svc := NewService(Config{Host: "smtp.example.com", Port: "587", From: "noreply@example.com", FromName: "Sharelist"})

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	svc.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := svc.SendShareNotification("bob@example.com", ShareData{
		RecipientName: "bob",
		SharedBy:      "alice",
		ListName:      "Trip\r\nBcc: evil@example.com",
		Level:         "update",
		ListURL:       "https://example.com/lists/7",
	})
	if err != nil {
		t.Fatalf("SendShareNotification: %v", err)
	}
	if gotAddr != "smtp.example.com:587" || gotFrom != "noreply@example.com" {
		t.Fatalf("unexpected envelope %s %s", gotAddr, gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "bob@example.com" {
		t.Fatalf("unexpected recipients %v", gotTo)
	}
	msg := string(gotMsg)
	headers, _, _ := strings.Cut(msg, "\r\n\r\n")
	if !strings.Contains(headers, "From: Sharelist <noreply@example.com>") {
		t.Errorf("missing from header: %s", msg)
	}
	if strings.Contains(headers, "\r\nBcc:") {
		t.Errorf("subject allowed header injection: %s", msg)
	}
	if !strings.Contains(msg, "multipart/alternative") || !strings.Contains(msg, "text/html") {
		t.Errorf("expected multipart html message")
	}
}

func TestSendRequiresConfiguration(t *testing.T) {
	svc := NewService(Config{})
	err := svc.SendShareNotification("bob@example.com", ShareData{ListName: "Trip"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
