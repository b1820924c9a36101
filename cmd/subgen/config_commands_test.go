package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigShowResolvesLanguageName(t *testing.T) {
	dir := t.TempDir()
	content := fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q

[whisper]
language = "fr"
`, filepath.Join(dir, "state"), filepath.Join(dir, "logs"))
	path := filepath.Join(dir, "subgen.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := newRootCommand()
	cmd.SetArgs([]string{"config", "show", "--config", path})
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(stdout.String(), "fr (French)") {
		t.Fatalf("language hint not resolved:\n%s", stdout.String())
	}
}

func TestLanguageLabel(t *testing.T) {
	if got := languageLabel(""); got != "-" {
		t.Fatalf("empty label = %q", got)
	}
	if got := languageLabel("jpn"); got != "jpn (Japanese)" {
		t.Fatalf("label = %q", got)
	}
}
