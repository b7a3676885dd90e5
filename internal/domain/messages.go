package domain

// Inbound message types.
const (
	MsgJoin       = "join"
	MsgAnswer     = "answer"
	MsgHostCreate = "host:create"
	MsgHostStart  = "host:start"
	MsgHostNext   = "host:next"
	MsgHostEnd    = "host:end"
)

// Outbound message types.
const (
	MsgSync        = "sync"
	MsgJoined      = "joined"
	MsgQuestion    = "question"
	MsgTick        = "tick"
	MsgResults     = "results"
	MsgLeaderboard = "leaderboard"
	MsgEnded       = "ended"
	MsgError       = "error"
)

// InboundMessage is the flat union of every client message.
type InboundMessage struct {
	Type        string     `json:"type"`
	QuizCode    string     `json:"quizCode,omitempty"`
	Name        string     `json:"name,omitempty"`
	QuestionID  string     `json:"questionId,omitempty"`
	ChoiceIndex *int       `json:"choiceIndex,omitempty"`
	Title       string     `json:"title,omitempty"`
	Questions   []Question `json:"questions,omitempty"`
	QuizID      string     `json:"quizId,omitempty"`
}

type SyncData struct {
	QuizCode string `json:"quizCode"`
}

type SyncMessage struct {
	Type  string   `json:"type"`
	Phase Phase    `json:"phase"`
	Data  SyncData `json:"data"`
}

type JoinedMessage struct {
	Type     string   `json:"type"`
	PlayerID string   `json:"playerId"`
	Players  []string `json:"players"`
}

type QuestionMessage struct {
	Type     string         `json:"type"`
	Question PublicQuestion `json:"question"`
	Index    int            `json:"index"`
	Total    int            `json:"total"`
}

type TickMessage struct {
	Type      string `json:"type"`
	Remaining int    `json:"remaining"`
}

type ResultsMessage struct {
	Type         string         `json:"type"`
	CorrectIndex int            `json:"correctIndex"`
	Distribution []int          `json:"distribution"`
	Scores       map[string]int `json:"scores"`
}

type LeaderboardMessage struct {
	Type     string    `json:"type"`
	Rankings []Ranking `json:"rankings"`
}

type EndedMessage struct {
	Type string `json:"type"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewError builds the error reply sent to a single connection.
func NewError(err error) ErrorMessage {
	return ErrorMessage{Type: MsgError, Message: err.Error()}
}
