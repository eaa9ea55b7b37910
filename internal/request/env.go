package request

// Builder environment indicators. The builder inspects all three, and a
// stale one shadows the others, so normalization always writes all three.
const (
	EnvUseLXC    = "USE_LXC"
	EnvUseVBox   = "USE_VBOX"
	EnvUseDocker = "USE_DOCKER"

	EnvHostIP  = "GITIAN_HOST_IP"
	EnvGuestIP = "LXC_GUEST_IP"

	defaultHostIP  = "10.0.3.1"
	defaultGuestIP = "10.0.3.5"
)

// IsolationEnv computes the environment assignments that select exactly one
// isolation mode. All three indicators are always present in the result —
// two cleared, at most one set — so previously exported values cannot leak
// through. In LXC mode the two networking hints are defaulted unless the
// caller's environment already provides them (lookup follows os.LookupEnv's
// contract).
func IsolationEnv(mode Isolation, lookup func(string) (string, bool)) map[string]string {
	env := map[string]string{
		EnvUseLXC:    "",
		EnvUseVBox:   "",
		EnvUseDocker: "",
	}

	switch mode {
	case IsolationDocker:
		env[EnvUseDocker] = "1"
	case IsolationKVM:
		// KVM is the builder's default when no indicator is set.
	default:
		env[EnvUseLXC] = "1"
		if _, ok := lookup(EnvHostIP); !ok {
			env[EnvHostIP] = defaultHostIP
		}
		if _, ok := lookup(EnvGuestIP); !ok {
			env[EnvGuestIP] = defaultGuestIP
		}
	}

	return env
}
