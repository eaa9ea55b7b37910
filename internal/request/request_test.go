package request

import (
	"reflect"
	"testing"
)

func TestParseTargets(t *testing.T) {
	tests := []struct {
		selector string
		want     Targets
		wantErr  bool
	}{
		{"lwm", Targets{Linux: true, Windows: true, MacOS: true}, false},
		{"l", Targets{Linux: true}, false},
		{"wm", Targets{Windows: true, MacOS: true}, false},
		{"mlw", Targets{Linux: true, Windows: true, MacOS: true}, false},
		{"", Targets{}, false},
		{"lx", Targets{}, true},
	}

	for _, tt := range tests {
		got, err := ParseTargets(tt.selector)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTargets(%q) error = %v, wantErr %v", tt.selector, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseTargets(%q) = %+v, want %+v", tt.selector, got, tt.want)
		}
	}
}

func TestEnabledOrder(t *testing.T) {
	all := Targets{Linux: true, Windows: true, MacOS: true}
	want := []Target{TargetLinux, TargetWindows, TargetMacOS}
	if got := all.Enabled(); !reflect.DeepEqual(got, want) {
		t.Errorf("Enabled() = %v, want fixed order %v", got, want)
	}
}

func TestCommitRef(t *testing.T) {
	tests := []struct {
		version     string
		isCommitRef bool
		want        string
	}{
		{"1.2.3", false, "v1.2.3"},
		{"0.21.0rc1", false, "v0.21.0rc1"},
		{"deadbeef", true, "deadbeef"},
		{"feature/branch", true, "feature/branch"},
	}

	for _, tt := range tests {
		r, err := New(Options{
			Signer:      "alice",
			Version:     tt.version,
			IsCommitRef: tt.isCommitRef,
			OSSelector:  "l",
		})
		if err != nil {
			t.Fatalf("New(%q): %v", tt.version, err)
		}
		if r.CommitRef != tt.want {
			t.Errorf("CommitRef for %q (commit=%v) = %q, want %q",
				tt.version, tt.isCommitRef, r.CommitRef, tt.want)
		}
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"missing signer", Options{Version: "1.0", OSSelector: "l"}},
		{"missing version", Options{Signer: "alice", OSSelector: "l"}},
		{"commit and pull conflict", Options{Signer: "alice", Version: "42", IsCommitRef: true, IsPullRequest: true, OSSelector: "l"}},
		{"bad isolation", Options{Signer: "alice", Version: "1.0", OSSelector: "l", Isolation: "vbox"}},
	}

	for _, tt := range tests {
		if _, err := New(tt.opts); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestDefaultIsolation(t *testing.T) {
	r, err := New(Options{Signer: "alice", Version: "1.0", OSSelector: "l"})
	if err != nil {
		t.Fatal(err)
	}
	if r.Isolation != IsolationLXC {
		t.Errorf("default isolation = %q, want lxc", r.Isolation)
	}
}

func TestResolvePullRequest(t *testing.T) {
	r, err := New(Options{
		Signer:        "alice",
		Version:       "42",
		IsPullRequest: true,
		OSSelector:    "lwm",
	})
	if err != nil {
		t.Fatal(err)
	}
	// Before resolution the tag rule still applies.
	if r.CommitRef != "v42" {
		t.Fatalf("pre-resolution CommitRef = %q, want v42", r.CommitRef)
	}

	if err := r.ResolvePullRequest("0123456789abcdef0123456789abcdef01234567"); err != nil {
		t.Fatalf("ResolvePullRequest: %v", err)
	}
	if r.Version != "pull-42" {
		t.Errorf("Version = %q, want pull-42", r.Version)
	}
	if r.CommitRef != "0123456789abcdef0123456789abcdef01234567" {
		t.Errorf("CommitRef = %q, want merge head hash", r.CommitRef)
	}

	// A non-PR request refuses resolution.
	plain, _ := New(Options{Signer: "alice", Version: "1.0", OSSelector: "l"})
	if err := plain.ResolvePullRequest("abc"); err == nil {
		t.Error("ResolvePullRequest on non-PR request: expected error")
	}
}

func TestSignProgram(t *testing.T) {
	r, _ := New(Options{Signer: "alice", Version: "1.0", OSSelector: "l"})
	if got := r.SignProgram(); got != "gpg --batch --yes --detach-sign" {
		t.Errorf("SignProgram() = %q", got)
	}
	r.DetachSign = true
	if got := r.SignProgram(); got != "true" {
		t.Errorf("detached SignProgram() = %q, want no-op", got)
	}
}

func TestIsolationEnv(t *testing.T) {
	noEnv := func(string) (string, bool) { return "", false }

	tests := []struct {
		mode Isolation
		want map[string]string
	}{
		{IsolationLXC, map[string]string{
			EnvUseLXC: "1", EnvUseVBox: "", EnvUseDocker: "",
			EnvHostIP: "10.0.3.1", EnvGuestIP: "10.0.3.5",
		}},
		{IsolationKVM, map[string]string{
			EnvUseLXC: "", EnvUseVBox: "", EnvUseDocker: "",
		}},
		{IsolationDocker, map[string]string{
			EnvUseLXC: "", EnvUseVBox: "", EnvUseDocker: "1",
		}},
	}

	for _, tt := range tests {
		got := IsolationEnv(tt.mode, noEnv)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("IsolationEnv(%s) = %v, want %v", tt.mode, got, tt.want)
		}

		// Exactly one indicator may be non-empty.
		active := 0
		for _, key := range []string{EnvUseLXC, EnvUseVBox, EnvUseDocker} {
			if got[key] != "" {
				active++
			}
		}
		if active > 1 {
			t.Errorf("IsolationEnv(%s): %d indicators active, want at most 1", tt.mode, active)
		}
	}
}

func TestIsolationEnvKeepsExistingNetworkHints(t *testing.T) {
	lookup := func(key string) (string, bool) {
		if key == EnvHostIP {
			return "192.168.1.1", true
		}
		return "", false
	}
	got := IsolationEnv(IsolationLXC, lookup)
	if _, ok := got[EnvHostIP]; ok {
		t.Error("IsolationEnv overrode an existing host IP hint")
	}
	if got[EnvGuestIP] != "10.0.3.5" {
		t.Error("IsolationEnv did not default the unset guest IP hint")
	}
}
