package handlers

// Failure messages returned to clients. The wording is part of the wire contract.
const (
	MsgAuthUnavailable    = "Authentication context is not available."
	MsgLobbyNotFound      = "Lobby does not exist."
	MsgLobbyFull          = "Lobby is full"
	MsgAlreadyInLobby     = "Already in a lobby."
	MsgNotHost            = "Only the host can start the game."
	MsgLobbyInGame        = "Game already started."
	MsgGameAlreadyStarted = "Game lobby already exists, and started."
	MsgLobbyNotInGame     = "Lobby is not in game."
	MsgNotYourTurn        = "Not the users turn!"
	MsgRoundOver          = "Round is over."
	MsgEmptyQueue         = "Turn queue is empty."
)

// Server->client event names.
const (
	EventUserJoinedLobby = "UserJoinedLobby"
	EventUserLeftLobby   = "UserLeftLobby"
	EventGameStarted     = "GameStarted"
	EventLobbyClosed     = "LobbyClosed"
	EventGuessResult     = "GuessResult"
	EventGameOver        = "GameOver"
)

// Result is the reply to every remote call. A nil Message is written as null.
type Result struct {
	Success bool    `json:"success"`
	Message *string `json:"message"`
}

// ValueResult is a Result that also carries a payload.
type ValueResult[T any] struct {
	Result
	Value T `json:"value"`
}

func ok(message string) Result {
	return Result{Success: true, Message: &message}
}

func okEmpty() Result {
	return Result{Success: true}
}

func fail(message string) Result {
	return Result{Success: false, Message: &message}
}

func okValue[T any](v T) ValueResult[T] {
	return ValueResult[T]{Result: okEmpty(), Value: v}
}

func failValue[T any](message string) ValueResult[T] {
	return ValueResult[T]{Result: fail(message)}
}

// Text returns the message or "" when it is null.
func (r Result) Text() string {
	if r.Message == nil {
		return ""
	}
	return *r.Message
}
