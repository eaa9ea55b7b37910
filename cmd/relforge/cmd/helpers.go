package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bianoble/relforge/internal/artifact"
	"github.com/bianoble/relforge/internal/builder"
	"github.com/bianoble/relforge/internal/config"
	"github.com/bianoble/relforge/internal/gpg"
	"github.com/bianoble/relforge/internal/ledger"
	"github.com/bianoble/relforge/internal/pipeline"
	"github.com/bianoble/relforge/internal/request"
	"github.com/bianoble/relforge/internal/shell"
)

// Stage flags shared by every stage subcommand.
var (
	flagOS          string
	flagJobs        int
	flagMemory      int
	flagURL         string
	flagCommit      bool
	flagPull        bool
	flagKVM         bool
	flagDocker      bool
	flagNoCommit    bool
	flagDetachSign  bool
	flagGPGPassword string
)

// registerStageFlags attaches the shared release flags to a stage command.
func registerStageFlags(c *cobra.Command) {
	c.Flags().StringVar(&flagOS, "os", "lwm", "build targets: l=linux, w=windows, m=macos")
	c.Flags().IntVarP(&flagJobs, "jobs", "j", 2, "number of build processes")
	c.Flags().IntVarP(&flagMemory, "memory", "m", 2000, "guest memory in MiB")
	c.Flags().StringVarP(&flagURL, "url", "u", "", "source repository URL (default from config)")
	c.Flags().BoolVarP(&flagCommit, "commit", "c", false, "version is a commit or branch, not a tag")
	c.Flags().BoolVar(&flagPull, "pull", false, "version is a pull request number")
	c.Flags().BoolVarP(&flagKVM, "kvm", "K", false, "use kvm isolation instead of lxc")
	c.Flags().BoolVarP(&flagDocker, "docker", "D", false, "use docker isolation instead of lxc")
	c.Flags().BoolVar(&flagNoCommit, "no-commit", false, "do not commit attestations to the ledger")
	c.Flags().BoolVar(&flagDetachSign, "detach-sign", false, "produce unsigned manifests for later signing")
	c.Flags().StringVar(&flagGPGPassword, "gpg-password", "", "gpg passphrase (prompted when omitted)")
}

// loadConfig reads and validates the config file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", configPath, err)
	}
	return cfg, nil
}

// isolation derives the isolation mode from the mutually exclusive flags.
func isolation() (request.Isolation, error) {
	if flagKVM && flagDocker {
		return "", fmt.Errorf("cannot have both kvm and docker")
	}
	switch {
	case flagKVM:
		return request.IsolationKVM, nil
	case flagDocker:
		return request.IsolationDocker, nil
	}
	return request.IsolationLXC, nil
}

// newRequest builds the release request from the positional arguments
// (signer, version) and the shared stage flags.
func newRequest(cfg *config.Config, args []string, stages request.Stages) (*request.Release, error) {
	mode, err := isolation()
	if err != nil {
		return nil, err
	}

	url := flagURL
	if url == "" {
		url = cfg.Repository
	}

	return request.New(request.Options{
		Signer:        args[0],
		Version:       args[1],
		IsCommitRef:   flagCommit,
		IsPullRequest: flagPull,
		RepositoryURL: url,
		OSSelector:    flagOS,
		Stages:        stages,
		CommitLedger:  !flagNoCommit,
		DetachSign:    flagDetachSign,
		Jobs:          flagJobs,
		MemoryMiB:     flagMemory,
		Isolation:     mode,
	})
}

// newPipeline wires the stage executors to the real collaborators.
func newPipeline(cfg *config.Config) (*pipeline.Pipeline, error) {
	workdir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}

	runner := &shell.ExecRunner{}

	var pass gpg.PassphraseSource
	if flagGPGPassword != "" {
		pass = gpg.Static(flagGPGPassword)
	} else {
		pass = &gpg.TerminalPrompt{}
	}

	return &pipeline.Pipeline{
		Config:  cfg,
		Workdir: workdir,
		Builder: &builder.CLI{
			Dir: filepath.Join(workdir, cfg.Builder.Dir),
			Run: runner,
		},
		Ledger: &ledger.Client{
			Dir:         filepath.Join(workdir, cfg.Ledger.Dir),
			AuthorName:  cfg.CommitName,
			AuthorEmail: cfg.CommitEmail,
		},
		Sigs: &ledger.DetachedClient{
			Dir:         filepath.Join(workdir, cfg.DetachedSigs.Dir),
			AuthorName:  cfg.CommitName,
			AuthorEmail: cfg.CommitEmail,
			Run:         runner,
		},
		Creds: &gpg.SessionManager{
			Run:        runner,
			RuntimeDir: gpg.DefaultRuntimeDir(),
			Out:        os.Stderr,
		},
		Passphrase: pass,
		Run:        runner,
		Resolver:   &artifact.Resolver{Project: cfg.Project},
		Out:        progressWriter(),
	}, nil
}

// runStages is the common body of every stage subcommand.
func runStages(c *cobra.Command, args []string, stages request.Stages) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	detail("config %s: project %s", configPath, cfg.Project)

	rel, err := newRequest(cfg, args, stages)
	if err != nil {
		return err
	}
	detail("request: %s", rel)
	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	return p.Execute(c.Context(), rel)
}

// progressWriter returns the destination for pipeline progress lines.
func progressWriter() io.Writer {
	if quiet {
		return io.Discard
	}
	return os.Stdout
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// detail prints a line only in verbose mode.
func detail(format string, args ...any) {
	if verbose {
		fmt.Printf("  "+format+"\n", args...)
	}
}

// errorf prints an error message to stderr.
func errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
