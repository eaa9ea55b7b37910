package config

// Config represents the relforge.yaml configuration file. Paths are
// relative to the working directory the pipeline runs in unless absolute.
type Config struct {
	Version int `yaml:"version"`

	// Project is the artifact filename prefix and the name of the source
	// checkout inside the builder's inputs directory.
	Project string `yaml:"project"`

	// Repository is the default source repository URL passed to the builder.
	Repository string `yaml:"repository"`

	Builder      Builder     `yaml:"builder"`
	Ledger       Repo        `yaml:"ledger"`
	DetachedSigs Repo        `yaml:"detached_sigs"`
	Descriptors  Descriptors `yaml:"descriptors,omitempty"`

	// ReleasesDir collects per-version release directories.
	ReleasesDir string `yaml:"releases_dir,omitempty"`

	BaseImage    BaseImage `yaml:"base_image,omitempty"`
	MacOSSDK     Download  `yaml:"macos_sdk,omitempty"`
	Osslsigncode Download  `yaml:"osslsigncode,omitempty"`
	Codesign     Codesign  `yaml:"codesign,omitempty"`

	// Committer identity used for ledger commits made in-process.
	CommitName  string `yaml:"commit_name,omitempty"`
	CommitEmail string `yaml:"commit_email,omitempty"`
}

// Builder locates the deterministic build toolchain checkout.
type Builder struct {
	Dir  string `yaml:"dir,omitempty"`
	Repo string `yaml:"repo,omitempty"`
}

// Repo is a git-backed collaborator directory plus its clone URL.
type Repo struct {
	Dir  string `yaml:"dir"`
	Repo string `yaml:"repo,omitempty"`
}

// Descriptors maps each (target, phase) the pipeline can reach to the
// builder descriptor file describing it. Paths are relative to the builder
// directory.
type Descriptors struct {
	Linux         string `yaml:"linux,omitempty"`
	Windows       string `yaml:"windows,omitempty"`
	MacOS         string `yaml:"macos,omitempty"`
	WindowsSigner string `yaml:"windows_signer,omitempty"`
	MacOSSigner   string `yaml:"macos_signer,omitempty"`
}

// BaseImage configures the builder's base image construction during setup.
type BaseImage struct {
	Suite string `yaml:"suite,omitempty"`
	Arch  string `yaml:"arch,omitempty"`
}

// Download is a checksum-pinned file fetched into the builder's inputs
// directory during setup.
type Download struct {
	File   string `yaml:"file,omitempty"`
	URL    string `yaml:"url,omitempty"`
	SHA256 string `yaml:"sha256,omitempty"`
}

// Codesign configures the detached code-signing step for Windows binaries.
type Codesign struct {
	// MaintainerDir holds the codesign scripts copied into the signing
	// staging area.
	MaintainerDir string `yaml:"maintainer_dir,omitempty"`

	// Script is the detached-signature creation tool, run from the
	// per-version signing directory.
	Script string `yaml:"script,omitempty"`

	PKCS12   string `yaml:"pkcs12,omitempty"`
	PassFile string `yaml:"pass_file,omitempty"`
}
