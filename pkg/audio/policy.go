package audio

// Policy decides what happens to microphone frames captured while the
// assistant is speaking. It never changes frame timing: a suppressed
// frame is replaced with silence of the same length so the upstream
// stream keeps its cadence.
type Policy int

const (
	// PolicyAlways forwards every frame unmodified. Use when the remote
	// endpoint runs its own echo cancellation.
	PolicyAlways Policy = iota

	// PolicyGated substitutes silence for frames whose peak amplitude
	// stays below the configured gate threshold while the assistant is
	// speaking. Loud frames pass through so barge-in still works.
	PolicyGated

	// PolicyEchoSuppressed substitutes silence for frames that
	// correlate with recently played assistant audio.
	PolicyEchoSuppressed
)

func (p Policy) String() string {
	switch p {
	case PolicyAlways:
		return "always"
	case PolicyGated:
		return "gated"
	case PolicyEchoSuppressed:
		return "echo_suppressed"
	default:
		return "unknown"
	}
}
