package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a join code does not match a live session.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrNotInSession is returned when a connection acts before joining or creating a session.
	ErrNotInSession = errors.New("not in a session")
	// ErrAlreadyInSession is returned when a mapped connection tries to join or create again.
	ErrAlreadyInSession = errors.New("connection already belongs to a session")
	// ErrNotHost is returned when a participant sends a host command.
	ErrNotHost = errors.New("only the host can do that")
	// ErrHostCannotAnswer is returned when the host submits an answer.
	ErrHostCannotAnswer = errors.New("the host cannot answer")
	// ErrJoinClosed is returned when joining a session that already left the lobby.
	ErrJoinClosed = errors.New("quiz has already started")
	// ErrNoParticipants is returned when starting a session nobody joined.
	ErrNoParticipants = errors.New("no players in the session")
	// ErrAlreadyStarted is returned when starting a session outside the lobby.
	ErrAlreadyStarted = errors.New("quiz is not in the lobby")
	// ErrNotAdvanceable is returned when advancing outside the question or results phase.
	ErrNotAdvanceable = errors.New("cannot advance in the current phase")
	// ErrInvalidQuiz wraps every quiz validation failure.
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrInvalidChoice is returned for a choice index outside the question's choices.
	ErrInvalidChoice = errors.New("invalid choice index")
	// ErrInvalidName is returned when joining with an empty display name.
	ErrInvalidName = errors.New("name is required")
	// ErrMalformedMessage is returned when an inbound payload cannot be decoded.
	ErrMalformedMessage = errors.New("malformed message")
	// ErrUnknownMessage is returned for an unsupported message type.
	ErrUnknownMessage = errors.New("unknown message type")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrCodeExhausted is returned when no free join code could be generated.
	ErrCodeExhausted = errors.New("could not allocate a unique join code")
)
