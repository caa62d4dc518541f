package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TIMEZONE", "Europe/Ljubljana")
	t.Setenv("OCR_LANGUAGES", "")
	t.Setenv("MAIL_PROVIDER", "IMAP")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MailProvider != "imap" {
		t.Fatalf("provider=%q", cfg.MailProvider)
	}
	if len(cfg.OCRLanguages) != 2 || cfg.OCRLanguages[0] != "eng" || cfg.OCRLanguages[1] != "slv" {
		t.Fatalf("languages=%v", cfg.OCRLanguages)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "Europe/Ljubljana" {
		t.Fatalf("loc=%v err=%v", loc, err)
	}
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("TIMEZONE", "Mars/Olympus")
	if _, err := Load(); err == nil {
		t.Fatal("expected error")
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("OCR_LANGUAGES", "eng+deu, slv")
	got := getEnvList("OCR_LANGUAGES", nil)
	if len(got) != 3 || got[1] != "deu" || got[2] != "slv" {
		t.Fatalf("got %v", got)
	}
}

func TestRequire(t *testing.T) {
	if err := (Config{}).Require("GCS_BUCKET", "  "); err == nil {
		t.Fatal("expected error")
	}
	if err := (Config{}).Require("GCS_BUCKET", "reports"); err != nil {
		t.Fatal(err)
	}
}
