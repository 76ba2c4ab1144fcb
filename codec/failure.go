package codec

// FailureHint is the type hint carried by serialized task failures.
const FailureHint = "failure"

func init() {
	Register(FailureHint, (*Failure)(nil))
}

// Failure describes a task-body failure shipped as a result payload.
// It is a plain description (message plus optional cause chain), not a
// language-level error value: it crosses the event bus and the store and
// must round-trip through the codec on any process.
type Failure struct {
	Message string   `json:"message"`
	Cause   *Failure `json:"cause,omitempty"`
}

// Error implements the error interface so a rebuilt Failure can flow
// through ordinary error handling on the reader side.
func (f *Failure) Error() string {
	if f.Cause != nil {
		return f.Message + ": " + f.Cause.Error()
	}
	return f.Message
}

// FailureFrom converts an error chain into a serializable Failure.
// Returns nil for a nil error.
func FailureFrom(err error) *Failure {
	if err == nil {
		return nil
	}

	f := &Failure{Message: err.Error()}
	if cause := unwrapErr(err); cause != nil {
		f.Message = headMessage(err, cause)
		f.Cause = FailureFrom(cause)
	}
	return f
}

// unwrapErr returns the next error in the chain, if any.
func unwrapErr(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}

// headMessage strips the cause's text from a wrapped error's message, so
// the chain does not repeat itself at every level.
func headMessage(err, cause error) string {
	msg, causeMsg := err.Error(), cause.Error()
	if n := len(msg) - len(causeMsg); n > 2 && msg[n:] == causeMsg {
		trimmed := msg[:n]
		for len(trimmed) > 0 && (trimmed[len(trimmed)-1] == ' ' || trimmed[len(trimmed)-1] == ':') {
			trimmed = trimmed[:len(trimmed)-1]
		}
		if trimmed != "" {
			return trimmed
		}
	}
	return msg
}
