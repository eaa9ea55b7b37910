package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bianoble/relforge/internal/config"
	"github.com/bianoble/relforge/internal/fetch"
	"github.com/bianoble/relforge/internal/ledger"
	"github.com/bianoble/relforge/internal/request"
	"github.com/bianoble/relforge/internal/shell"
)

const defaultDockerServiceFile = "/lib/systemd/system/docker.service"

// Setup prepares the build host: installs the host packages the chosen
// isolation mode needs, clones the collaborator repositories that are not
// yet present, constructs the builder's base image, and fetches the
// checksum-pinned toolchain inputs. Every step is safe to re-run.
func (p *Pipeline) Setup(ctx context.Context, req *request.Release) error {
	p.printf("\nPreparing the build host\n")

	if err := p.installPrograms(ctx, req.Isolation); err != nil {
		return err
	}
	if err := p.cloneRepositories(ctx); err != nil {
		return err
	}
	if err := p.makeBaseImage(ctx, req.Isolation); err != nil {
		return err
	}
	if err := p.fetchInputs(ctx, req); err != nil {
		return err
	}

	if req.Isolation == request.IsolationLXC && p.Config.BaseImage.Suite == "bionic" {
		// The stock lxc bridge name collides with the builder's network
		// expectations on bionic hosts.
		err := p.Run.Run(ctx, shell.Cmd{
			Name: "sudo",
			Args: []string{"sed", "-i", `s/LXC_BRIDGE="lxcbr0"/LXC_BRIDGE="br0"/`, "/etc/default/lxc-net"},
		})
		if err != nil {
			return fmt.Errorf("renaming lxc bridge: %w", err)
		}
		p.printf("Reboot is required\n")
	}

	return nil
}

// installPrograms installs the host packages for an isolation mode. Docker
// installs are skipped entirely when the host already runs a managed
// docker service; otherwise docker.io is tried first with docker-ce as the
// fallback for hosts on the vendor repository.
func (p *Pipeline) installPrograms(ctx context.Context, mode request.Isolation) error {
	programs := []string{"ruby", "git", "make", "wget", "curl"}
	switch mode {
	case request.IsolationLXC:
		programs = append(programs, "apt-cacher-ng", "lxc", "debootstrap")
	case request.IsolationKVM:
		programs = append(programs, "apt-cacher-ng", "python-vm-builder", "qemu-kvm", "qemu-utils")
	case request.IsolationDocker:
		serviceFile := p.DockerServiceFile
		if serviceFile == "" {
			serviceFile = defaultDockerServiceFile
		}
		if _, err := os.Stat(serviceFile); err == nil {
			break
		}
		if err := p.aptInstall(ctx, append(programs, "docker.io")); err == nil {
			return nil
		}
		programs = append(programs, "docker-ce")
	}
	return p.aptInstall(ctx, programs)
}

func (p *Pipeline) aptInstall(ctx context.Context, programs []string) error {
	err := p.Run.Run(ctx, shell.Cmd{
		Name: "sudo",
		Args: append([]string{"apt-get", "install", "-y"}, programs...),
	})
	if err != nil {
		return fmt.Errorf("installing host packages: %w", err)
	}
	return nil
}

// cloneRepositories brings in the ledger, the detached-sigs repository, and
// the builder toolchain. Directories that already hold a repository are
// left alone.
func (p *Pipeline) cloneRepositories(ctx context.Context) error {
	clone := p.Clone
	if clone == nil {
		clone = ledger.CloneTree
	}

	repos := []struct {
		url string
		dir string
	}{
		{p.Config.Ledger.Repo, p.ledgerDir()},
		{p.Config.DetachedSigs.Repo, filepath.Join(p.Workdir, p.Config.DetachedSigs.Dir)},
		{p.Config.Builder.Repo, p.builderDir()},
	}
	for _, r := range repos {
		if r.url == "" {
			continue
		}
		if err := clone(ctx, r.url, r.dir); err != nil {
			return err
		}
	}
	return nil
}

// makeBaseImage constructs the builder's base image for the isolation mode.
func (p *Pipeline) makeBaseImage(ctx context.Context, mode request.Isolation) error {
	img := p.Config.BaseImage
	args := []string{"--suite", img.Suite, "--arch", img.Arch}
	switch mode {
	case request.IsolationLXC:
		args = append(args, "--lxc")
	case request.IsolationDocker:
		args = append(args, "--docker")
	}

	err := p.Run.Run(ctx, shell.Cmd{
		Dir:  p.builderDir(),
		Name: "bin/make-base-vm",
		Args: args,
	})
	if err != nil {
		return fmt.Errorf("constructing base image: %w", err)
	}
	return nil
}

// fetchInputs downloads the pinned toolchain inputs into the builder's
// inputs directory. The macOS SDK is only needed when the macos target is
// enabled.
func (p *Pipeline) fetchInputs(ctx context.Context, req *request.Release) error {
	get := p.Fetch
	if get == nil {
		get = (&fetch.Fetcher{}).Fetch
	}

	downloads := []config.Download{p.Config.Osslsigncode}
	if req.Targets.MacOS {
		downloads = append(downloads, p.Config.MacOSSDK)
	}
	for _, d := range downloads {
		if d.URL == "" {
			continue
		}
		if err := get(ctx, d.URL, filepath.Join(p.inputsDir(), d.File), d.SHA256); err != nil {
			return err
		}
	}
	return nil
}
