package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relforge.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMinimal(t *testing.T) {
	path := writeConfig(t, `
version: 1
project: widget
repository: https://example.com/widget/widget
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Project != "widget" {
		t.Errorf("Project = %q", cfg.Project)
	}
	if cfg.Builder.Dir != "gitian-builder" {
		t.Errorf("default builder dir = %q", cfg.Builder.Dir)
	}
	if cfg.ReleasesDir != "widget-binaries" {
		t.Errorf("default releases dir = %q", cfg.ReleasesDir)
	}
	if cfg.Descriptors.WindowsSigner != "../gitian-descriptors/gitian-win-signer.yml" {
		t.Errorf("default windows signer descriptor = %q", cfg.Descriptors.WindowsSigner)
	}
	if cfg.DetachedSigs.Dir != "widget-detached-sigs" {
		t.Errorf("default detached sigs dir = %q", cfg.DetachedSigs.Dir)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
version: 1
project: widget
repository: https://example.com/widget/widget
ledger:
  dir: widget.sigs
  repo: https://example.com/widget/widget.sigs
descriptors:
  linux: ../descriptors/linux.yml
macos_sdk:
  file: SDK.tar.gz
  url: https://example.com/SDK.tar.gz
  sha256: be17f48fd0b08fb4dcd229f55a6ae48d9f781d210839b4ea313ef17dd12d6ea5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ledger.Dir != "widget.sigs" {
		t.Errorf("ledger dir = %q", cfg.Ledger.Dir)
	}
	if cfg.Descriptors.Linux != "../descriptors/linux.yml" {
		t.Errorf("linux descriptor override lost: %q", cfg.Descriptors.Linux)
	}
	// Other descriptors still defaulted.
	if cfg.Descriptors.MacOS != "../gitian-descriptors/gitian-osx.yml" {
		t.Errorf("macos descriptor default = %q", cfg.Descriptors.MacOS)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantSub string
	}{
		{
			"missing project",
			"version: 1\nrepository: https://example.com/r\n",
			"'project' is required",
		},
		{
			"missing repository",
			"version: 1\nproject: widget\n",
			"'repository' is required",
		},
		{
			"bad version",
			"version: 2\nproject: widget\nrepository: https://example.com/r\n",
			"unsupported version",
		},
		{
			"unpinned download",
			"version: 1\nproject: widget\nrepository: https://example.com/r\nmacos_sdk:\n  file: SDK.tar.gz\n  url: https://example.com/SDK.tar.gz\n",
			"'sha256' is required",
		},
	}

	for _, tt := range tests {
		path := writeConfig(t, tt.content)
		_, err := Load(path)
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.wantSub) {
			t.Errorf("%s: error %q does not mention %q", tt.name, err, tt.wantSub)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "version: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}
