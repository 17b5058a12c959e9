package web

// PlayerItem is one row of the player list.
type PlayerItem struct {
	Name   string
	Color  string
	Avatar string
	IsHost bool
	Team   string
	IsYou  bool
}

type ChatItem struct {
	Name    string
	Color   string
	Message string
	Time    string
}

// StepTime is one line of the finale's time table.
type StepTime struct {
	Label    string
	Duration string
}

// PageData carries everything a gated page renders. Room fields are empty
// on the home page when the visitor has no session.
type PageData struct {
	Path        string
	Flash       string
	Code        string
	RoomID      string
	RoomCode    string
	Status      string
	PlayerName  string
	PlayerColor string
	Team        string
	IsHost      bool
	CanStart    bool
	MinPlayers  int
	MaxPlayers  int
	Step        int
	Elapsed     string
	StartedAt   int64
	Encoded     string
	JoinURL     string
	Players     []PlayerItem
	Messages    []ChatItem
	Times       []StepTime
	TotalTime   string
}

func (d PageData) InRoom() bool {
	return d.RoomID != ""
}
