package handshake

// State is a node of the handshake state machine
type State string

const (
	StateIdle                State = "idle"
	StateAwaitingServerHello State = "awaiting_server_hello"
	StateAwaitingCompletion  State = "awaiting_completion"
	StateRegistered          State = "registered"
	StateFailed              State = "failed"
)

// Session is the transient, single-use context of one handshake attempt
type Session struct {
	ID              string
	ServerPublicKey string
	NextStep        string
}

// transition is the tagged result of a typed transition function:
// either the next state or the error that drove the machine to Failed
type transition struct {
	next State
	err  error
}

func advance(next State) transition {
	return transition{next: next}
}

func fail(err error) transition {
	return transition{next: StateFailed, err: err}
}
