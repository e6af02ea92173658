package ytdlpx

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const defaultFormat = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/bestvideo+bestaudio/best[ext=mp4]/best"

type Config struct {
	Binary  string        `envconfig:"BINARY" split_words:"true" default:"yt-dlp"`
	Format  string        `envconfig:"FORMAT" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"600s"`
}

// Resolver downloads source videos through the yt-dlp binary.
type Resolver struct {
	cfg Config
}

func New(cfg Config) *Resolver {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = "yt-dlp"
	}
	if strings.TrimSpace(cfg.Format) == "" {
		cfg.Format = defaultFormat
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 600 * time.Second
	}
	return &Resolver{cfg: cfg}
}

// Download fetches a YouTube video into a temp file and returns its path.
// The caller owns the file and is expected to remove it.
func (r *Resolver) Download(ctx context.Context, rawURL string) (string, error) {
	if err := validateSourceURL(rawURL); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	dest := filepath.Join(os.TempDir(), fmt.Sprintf("brandguard-%d.mp4", time.Now().UnixNano()))
	args := []string{
		"-f", r.cfg.Format,
		"--merge-output-format", "mp4",
		"--no-playlist",
		"-o", dest,
		rawURL,
	}

	cmd := exec.CommandContext(ctx, r.cfg.Binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("yt-dlp download: %w: %s", err, strings.TrimSpace(string(output)))
	}

	if _, err := os.Stat(dest); err != nil {
		return "", fmt.Errorf("yt-dlp download: output file missing: %w", err)
	}
	return dest, nil
}

// validateSourceURL accepts YouTube URLs only; other hosts are not supported
// by the audit pipeline.
func validateSourceURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("yt-dlp: parse url %q: %w", rawURL, err)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "youtu.be":
		return nil
	default:
		return fmt.Errorf("yt-dlp: unsupported video host %q, expected a YouTube URL", u.Hostname())
	}
}
