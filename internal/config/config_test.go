package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Jobs.Store != "memory" {
		t.Fatalf("expected default jobs store memory, got %q", cfg.Jobs.Store)
	}
	if cfg.Audio.SpeakerGapMS != 400 {
		t.Fatalf("expected default speaker gap 400, got %d", cfg.Audio.SpeakerGapMS)
	}
	if cfg.TTS.Voices["doug"] == "" || cfg.TTS.Voices["claire"] == "" {
		t.Fatalf("expected default voices for both speakers, got %v", cfg.TTS.Voices)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CASTFORGE_HTTP_PORT", "9999")
	t.Setenv("CASTFORGE_STORAGE_ROOT", "/tmp/objects")
	t.Setenv("CASTFORGE_JOBS_STORE", "sqlite")
	t.Setenv("CASTFORGE_JOBS_PATH", "./tmp-jobs.db")
	t.Setenv("CASTFORGE_TTS_MODE", "exec")
	t.Setenv("CASTFORGE_TTS_COMMAND", "piper --stdin")
	t.Setenv("CASTFORGE_AUDIO_ENCODER", "wav")
	t.Setenv("CASTFORGE_AUDIO_SPEAKER_GAP_MS", "250")
	t.Setenv("CASTFORGE_PRODUCTION_RENDER_CONCURRENCY", "2")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9999 {
		t.Fatalf("expected http port override, got %d", cfg.HTTP.Port)
	}
	if cfg.Storage.Root != "/tmp/objects" {
		t.Fatalf("expected storage root override, got %q", cfg.Storage.Root)
	}
	if cfg.Jobs.Store != "sqlite" || cfg.Jobs.Path != "./tmp-jobs.db" {
		t.Fatalf("expected jobs store override, got %q %q", cfg.Jobs.Store, cfg.Jobs.Path)
	}
	if cfg.TTS.Mode != "exec" || cfg.TTS.Command != "piper --stdin" {
		t.Fatalf("expected tts override, got %q %q", cfg.TTS.Mode, cfg.TTS.Command)
	}
	if cfg.Audio.Encoder != "wav" {
		t.Fatalf("expected encoder override, got %q", cfg.Audio.Encoder)
	}
	if cfg.Audio.SpeakerGapMS != 250 {
		t.Fatalf("expected speaker gap override, got %d", cfg.Audio.SpeakerGapMS)
	}
	if cfg.Production.RenderConcurrency != 2 {
		t.Fatalf("expected render concurrency override, got %d", cfg.Production.RenderConcurrency)
	}
}

func TestValidateRejectsUnknownModes(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"jobs store", func(c *Config) { c.Jobs.Store = "redis" }},
		{"llm mode", func(c *Config) { c.LLM.Mode = "bard" }},
		{"tts mode", func(c *Config) { c.TTS.Mode = "carrier-pigeon" }},
		{"encoder", func(c *Config) { c.Audio.Encoder = "flac" }},
		{"exec without command", func(c *Config) { c.TTS.Mode = "exec"; c.TTS.Command = "" }},
	}
	for _, tc := range cases {
		cfg := Default()
		tc.mutate(&cfg)
		if err := validate(cfg); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}
