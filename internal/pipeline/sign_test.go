package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bianoble/relforge/internal/request"
)

func TestSignStagesUnsignedArchiveUnderFixedName(t *testing.T) {
	tp := newTestPipeline(t)
	rel := testRelease(t, func(o *request.Options) {
		o.OSSelector = "w"
		o.Stages = request.Stages{Sign: true}
	})

	inputs := tp.inputsDir()
	if err := os.MkdirAll(inputs, 0755); err != nil {
		t.Fatal(err)
	}
	versioned := filepath.Join(inputs, "corecoin-1.0-win-unsigned.tar.gz")
	if err := os.WriteFile(versioned, []byte("archive"), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := tp.Sign(context.Background(), rel)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	fixed, err := os.ReadFile(filepath.Join(inputs, "corecoin-win-unsigned.tar.gz"))
	if err != nil {
		t.Fatalf("fixed-name archive: %v", err)
	}
	if string(fixed) != "archive" {
		t.Errorf("staged archive content = %q", fixed)
	}

	b := tp.invoker.builds[0]
	if !b.SkipImage || !b.Upgrade {
		t.Errorf("signature-apply build flags = %+v, want SkipImage and Upgrade", b)
	}
	if b.Descriptor != tp.Config.Descriptors.WindowsSigner {
		t.Errorf("descriptor = %q, want signer descriptor", b.Descriptor)
	}
	if len(b.Commits) != 1 || b.Commits[0].Name != "signature" || b.Commits[0].Value != "v1.0" {
		t.Errorf("commit binding = %+v, want signature=v1.0", b.Commits)
	}

	if got := tp.invoker.attests[0].Release; got != "1.0-win-signed" {
		t.Errorf("attest release = %q, want 1.0-win-signed", got)
	}

	if len(tp.ledger.commits) != 1 {
		t.Fatalf("got %d ledger commits, want 1", len(tp.ledger.commits))
	}
	c := tp.ledger.commits[0]
	if c.message != "Add 1.0 signed binary sigs for alice" {
		t.Errorf("commit message = %q", c.message)
	}
	if len(c.entries) != 1 || c.entries[0].Phase != "win-signed" {
		t.Errorf("commit entries = %+v", c.entries)
	}
	if result.LedgerCommit == "" {
		t.Error("result missing ledger commit hash")
	}
}

func TestSignBothTargetsOneCommit(t *testing.T) {
	tp := newTestPipeline(t)
	rel := testRelease(t, func(o *request.Options) {
		o.OSSelector = "wm"
		o.Stages = request.Stages{Sign: true}
	})

	inputs := tp.inputsDir()
	if err := os.MkdirAll(inputs, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"corecoin-1.0-win-unsigned.tar.gz", "corecoin-1.0-osx-unsigned.tar.gz"} {
		if err := os.WriteFile(filepath.Join(inputs, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := tp.Sign(context.Background(), rel); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if len(tp.invoker.builds) != 2 {
		t.Fatalf("got %d builds, want 2", len(tp.invoker.builds))
	}
	if len(tp.ledger.commits) != 1 {
		t.Fatalf("got %d ledger commits, want exactly 1", len(tp.ledger.commits))
	}
	entries := tp.ledger.commits[0].entries
	if len(entries) != 2 || entries[0].Phase != "win-signed" || entries[1].Phase != "osx-signed" {
		t.Errorf("commit entries = %+v", entries)
	}
}

func TestSignMissingUnsignedArchiveIsFatal(t *testing.T) {
	tp := newTestPipeline(t)
	rel := testRelease(t, func(o *request.Options) {
		o.OSSelector = "w"
		o.Stages = request.Stages{Sign: true}
	})

	_, err := tp.Sign(context.Background(), rel)
	if err == nil {
		t.Fatal("expected error for missing unsigned archive")
	}
	if len(tp.invoker.builds) != 0 {
		t.Error("builder invoked without a staged archive")
	}
	if len(tp.ledger.commits) != 0 {
		t.Error("ledger committed after a fatal signing failure")
	}
}

func TestSignSkipsLinux(t *testing.T) {
	tp := newTestPipeline(t)
	rel := testRelease(t, func(o *request.Options) {
		o.OSSelector = "l"
		o.Stages = request.Stages{Sign: true}
	})

	if _, err := tp.Sign(context.Background(), rel); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(tp.invoker.builds) != 0 {
		t.Error("linux has no signature-apply phase")
	}
	if len(tp.ledger.commits) != 0 {
		t.Error("nothing to commit for a linux-only sign request")
	}
}
