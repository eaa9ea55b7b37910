package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads, defaults, and validates a relforge.yaml configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return &cfg, nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// ApplyDefaults fills unset fields with the conventional layout: a builder
// checkout, a sigs ledger, and a detached-sigs repo as siblings of the
// working directory, descriptor files inside a descriptors directory next
// to the builder.
func ApplyDefaults(cfg *Config) {
	def := func(field *string, value string) {
		if *field == "" {
			*field = value
		}
	}

	def(&cfg.Builder.Dir, "gitian-builder")
	def(&cfg.Builder.Repo, "https://github.com/devrandom/gitian-builder.git")
	def(&cfg.Ledger.Dir, "gitian.sigs")
	def(&cfg.DetachedSigs.Dir, cfg.Project+"-detached-sigs")

	if cfg.Project != "" {
		def(&cfg.ReleasesDir, cfg.Project+"-binaries")
	}

	prefix := "../gitian-descriptors/gitian-"
	def(&cfg.Descriptors.Linux, prefix+"linux.yml")
	def(&cfg.Descriptors.Windows, prefix+"win.yml")
	def(&cfg.Descriptors.MacOS, prefix+"osx.yml")
	def(&cfg.Descriptors.WindowsSigner, prefix+"win-signer.yml")
	def(&cfg.Descriptors.MacOSSigner, prefix+"osx-signer.yml")

	def(&cfg.BaseImage.Suite, "bionic")
	def(&cfg.BaseImage.Arch, "amd64")

	def(&cfg.Codesign.MaintainerDir, "maintainer")
	def(&cfg.Codesign.Script, "./win-codesign-create.sh")
	def(&cfg.Codesign.PKCS12, "secrets/windows.p12")
	def(&cfg.Codesign.PassFile, "secrets/windows.p12.pass.txt")

	def(&cfg.CommitName, "relforge")
	def(&cfg.CommitEmail, "relforge@localhost")
}

// Validate checks a Config for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(cfg *Config) []string {
	var errs []string

	if cfg.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d — only version 1 is supported", cfg.Version))
	}
	if cfg.Project == "" {
		errs = append(errs, "'project' is required")
	}
	if cfg.Repository == "" {
		errs = append(errs, "'repository' is required")
	}

	for _, dl := range []struct {
		name string
		d    Download
	}{
		{"macos_sdk", cfg.MacOSSDK},
		{"osslsigncode", cfg.Osslsigncode},
	} {
		if dl.d.URL == "" {
			continue
		}
		if dl.d.File == "" {
			errs = append(errs, fmt.Sprintf("%s: 'file' is required when 'url' is set", dl.name))
		}
		if dl.d.SHA256 == "" {
			errs = append(errs, fmt.Sprintf("%s: 'sha256' is required when 'url' is set — downloads must be pinned", dl.name))
		}
	}

	return errs
}
