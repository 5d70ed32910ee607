package game

// Error is a game failure with a stable code for the wire.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	// ErrGameNotFound is returned when no game exists for the id.
	ErrGameNotFound = &Error{Code: "GameNotFound", Message: "Game Not Found"}

	// ErrGameFinished is returned when a guess is submitted to a game that is
	// already won or lost.
	ErrGameFinished = &Error{Code: "GameFinished", Message: "Game Already Finished"}

	// ErrGameInvalid is returned when the stored guesses are not a filled
	// prefix followed by empty slots.
	ErrGameInvalid = &Error{Code: "GameInvalid", Message: "Game Invalid"}

	// ErrUnknownRequest is returned by Process for a nil or foreign ActorEvent.
	ErrUnknownRequest = &Error{Code: "UnknownRequest", Message: "Unknown Request"}
)

// Errors lists every sentinel, used to map wire codes back to errors.
var Errors = []*Error{ErrGameNotFound, ErrGameFinished, ErrGameInvalid, ErrUnknownRequest}

// ErrorByCode returns the sentinel error with the given code.
func ErrorByCode(code string) (*Error, bool) {
	for _, e := range Errors {
		if e.Code == code {
			return e, true
		}
	}
	return nil, false
}
