package hub

// Frame types written to and read from the wire.
const (
	TypeInvoke     = "invoke"
	TypeCompletion = "completion"
	TypeEvent      = "event"
	TypePing       = "ping"
	TypePong       = "pong"
	TypeError      = "error"
)

// Message is a single server->client frame. Events carry Target and Arguments, completions
// carry ID plus either Result or Error.
type Message struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Target    string `json:"target,omitempty"`
	Arguments []any  `json:"arguments,omitempty"`
	Result    any    `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Event builds an event frame for target with positional arguments.
func Event(target string, args ...any) Message {
	return Message{Type: TypeEvent, Target: target, Arguments: args}
}

// Completion builds the reply to the invocation with the given id.
func Completion(id string, result any) Message {
	return Message{Type: TypeCompletion, ID: id, Result: result}
}

// CompletionError builds a failed reply for invocations that could not be dispatched at all.
func CompletionError(id, errMsg string) Message {
	return Message{Type: TypeCompletion, ID: id, Error: errMsg}
}
