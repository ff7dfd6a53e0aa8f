package config

import "testing"

func getenvFrom(env map[string]string) func(string) string {
	return func(key string) string { return env[key] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadWith(getenvFrom(nil))
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 4100 {
		t.Errorf("port = %d, want 4100", cfg.Server.Port)
	}
	if cfg.Speech.BaseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("base url = %s", cfg.Speech.BaseURL)
	}
	if cfg.Speech.TranscribeModel != "whisper-large-v3" {
		t.Errorf("transcribe model = %s", cfg.Speech.TranscribeModel)
	}
	if cfg.Speech.ExtractModel != "llama-3.3-70b-versatile" {
		t.Errorf("extract model = %s", cfg.Speech.ExtractModel)
	}
	if cfg.Owner != "local" {
		t.Errorf("owner = %s, want local", cfg.Owner)
	}
	if cfg.Server.APIToken != "" {
		t.Error("expected no API token by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	env := map[string]string{
		"RECONNECT_SERVER_PORT":    "9999",
		"RECONNECT_SPEECH_API_KEY": "sk-test",
		"RECONNECT_DATA_DIR":       "/tmp/rc",
		"RECONNECT_OWNER":          "petra",
		"RECONNECT_API_TOKEN":      "secret",
	}
	cfg, err := loadWith(getenvFrom(env))
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Speech.APIKey != "sk-test" {
		t.Errorf("api key = %s", cfg.Speech.APIKey)
	}
	if cfg.Storage.DataDir != "/tmp/rc" {
		t.Errorf("data dir = %s", cfg.Storage.DataDir)
	}
	if cfg.Owner != "petra" {
		t.Errorf("owner = %s", cfg.Owner)
	}
	if cfg.Server.APIToken != "secret" {
		t.Errorf("token = %s", cfg.Server.APIToken)
	}
}

func TestGroqKeyFallback(t *testing.T) {
	cfg, err := loadWith(getenvFrom(map[string]string{"GROQ_API_KEY": "gsk-abc"}))
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Speech.APIKey != "gsk-abc" {
		t.Errorf("api key = %s, want gsk-abc", cfg.Speech.APIKey)
	}

	// Explicit setting wins over the conventional variable.
	cfg, err = loadWith(getenvFrom(map[string]string{
		"GROQ_API_KEY":             "gsk-abc",
		"RECONNECT_SPEECH_API_KEY": "sk-explicit",
	}))
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Speech.APIKey != "sk-explicit" {
		t.Errorf("api key = %s, want sk-explicit", cfg.Speech.APIKey)
	}
}

func TestInvalidPort(t *testing.T) {
	if _, err := loadWith(getenvFrom(map[string]string{"RECONNECT_SERVER_PORT": "nope"})); err == nil {
		t.Fatal("expected error for invalid port")
	}
}
