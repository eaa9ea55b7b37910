package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/bianoble/relforge/internal/request"
)

func TestVerifyRunsAllProbes(t *testing.T) {
	tp := newTestPipeline(t)
	rel := testRelease(t, func(o *request.Options) {
		o.Stages = request.Stages{Verify: true}
	})

	result, err := tp.Verify(context.Background(), rel)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !result.OK() {
		t.Error("all probes passed but aggregate failed")
	}
	if tp.ledger.pulls != 1 {
		t.Errorf("ledger pulled %d times, want 1", tp.ledger.pulls)
	}

	want := []string{"1.0-linux", "1.0-win-unsigned", "1.0-osx-unsigned", "1.0-win-signed", "1.0-osx-signed"}
	if len(tp.invoker.verifies) != len(want) {
		t.Fatalf("got %d probes, want %d", len(tp.invoker.verifies), len(want))
	}
	for i, release := range want {
		if got := tp.invoker.verifies[i].Release; got != release {
			t.Errorf("probe %d = %q, want %q", i, got, release)
		}
	}
}

func TestVerifyFailingProbeDoesNotShortCircuit(t *testing.T) {
	tp := newTestPipeline(t)
	tp.invoker.failVerify = map[string]error{
		"1.0-win-unsigned": fmt.Errorf("mismatch"),
	}
	rel := testRelease(t, func(o *request.Options) {
		o.Stages = request.Stages{Verify: true}
	})

	result, err := tp.Verify(context.Background(), rel)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.OK() {
		t.Error("aggregate OK despite a failed probe")
	}
	if len(tp.invoker.verifies) != 5 {
		t.Errorf("got %d probes, want all 5 despite the failure", len(tp.invoker.verifies))
	}

	var failed int
	for _, probe := range result.Probes {
		if !probe.OK {
			failed++
			if probe.Release != "1.0-win-unsigned" {
				t.Errorf("unexpected failed probe %q", probe.Release)
			}
		}
	}
	if failed != 1 {
		t.Errorf("got %d failed probes, want 1", failed)
	}
}

func TestVerifyProbesIgnoreTargetMatrix(t *testing.T) {
	tp := newTestPipeline(t)
	rel := testRelease(t, func(o *request.Options) {
		o.OSSelector = "l"
		o.Stages = request.Stages{Verify: true}
	})

	if _, err := tp.Verify(context.Background(), rel); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(tp.invoker.verifies) != 5 {
		t.Errorf("got %d probes for a linux-only request, want the full 5", len(tp.invoker.verifies))
	}
}
