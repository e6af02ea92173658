package ytdlpx

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestValidateSourceURL(t *testing.T) {
	t.Parallel()

	valid := []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtube.com/watch?v=abc",
		"https://m.youtube.com/watch?v=abc",
		"https://youtu.be/abc",
		"http://YOUTU.BE/abc",
	}
	for _, u := range valid {
		if err := validateSourceURL(u); err != nil {
			t.Errorf("validateSourceURL(%q) = %v, want nil", u, err)
		}
	}

	invalid := []string{
		"https://vimeo.com/12345",
		"https://example.com/watch?v=abc",
		"https://notyoutube.com/watch?v=abc",
		"ftp://youtube.com.evil.test/watch",
		"",
	}
	for _, u := range invalid {
		if err := validateSourceURL(u); err == nil {
			t.Errorf("validateSourceURL(%q) = nil, want error", u)
		}
	}
}

func TestDownloadRejectsBadURLWithoutRunning(t *testing.T) {
	t.Parallel()

	r := New(Config{Binary: "/definitely/not/a/binary", Timeout: time.Second})

	_, err := r.Download(context.Background(), "https://vimeo.com/12345")
	if err == nil || !strings.Contains(err.Error(), "unsupported video host") {
		t.Fatalf("expected host validation error, got %v", err)
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	t.Parallel()

	r := New(Config{})
	if r.cfg.Binary != "yt-dlp" {
		t.Fatalf("unexpected binary %q", r.cfg.Binary)
	}
	if r.cfg.Format != defaultFormat {
		t.Fatalf("unexpected format %q", r.cfg.Format)
	}
	if r.cfg.Timeout != 600*time.Second {
		t.Fatalf("unexpected timeout %s", r.cfg.Timeout)
	}
}
