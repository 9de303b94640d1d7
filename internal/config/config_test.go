package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Default()
	if cfg.Server.Addr != want.Server.Addr {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, want.Server.Addr)
	}
	if cfg.Transition.Delay != 5*time.Second {
		t.Errorf("Transition.Delay = %v, want 5s", cfg.Transition.Delay)
	}
	if cfg.Mood.Default != "happy" || cfg.Features.DCT != "unnormalized" {
		t.Errorf("Mood.Default = %q, Features.DCT = %q", cfg.Mood.Default, cfg.Features.DCT)
	}
	if cfg.Models.Image.Enabled() || cfg.Models.Audio.Enabled() {
		t.Error("models should be disabled by default")
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moodify.yaml")
	content := `
server:
  addr: 0.0.0.0:9000
transition:
  delay: 2s
models:
  audio:
    manifest: models/voice.yaml
    backend: prototype
media:
  concurrency: 8
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MOODIFY_SERVER_ADDR", "127.0.0.1:7000")
	t.Setenv("MOODIFY_MODELS_IMAGE_MANIFEST", "/srv/fer.yaml")
	t.Setenv("MOODIFY_MEDIA_YOUTUBE_KEY", "yt-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"env overrides file", cfg.Server.Addr, "127.0.0.1:7000"},
		{"file duration", cfg.Transition.Delay, 2 * time.Second},
		{"file nested", cfg.Models.Audio.Manifest, "models/voice.yaml"},
		{"file backend", cfg.Models.Audio.Backend, "prototype"},
		{"env nested", cfg.Models.Image.Manifest, "/srv/fer.yaml"},
		{"env underscore key", cfg.Media.YouTubeKey, "yt-key"},
		{"file int", cfg.Media.Concurrency, 8},
		{"default kept", cfg.Mood.Default, "happy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoad_SearchPath(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config", "moodify.yaml"), []byte("mood:\n  default: sad\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Mood.Default != "sad" {
		t.Errorf("Mood.Default = %q, want sad", cfg.Mood.Default)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}
