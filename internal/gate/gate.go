// Package gate decides whether a page may render for the current room
// state or where the visitor should be sent instead.
package gate

import "escape-rose/internal/db"

const (
	Home      = "/"
	AuthLogin = "/auth/login"
	Lobby     = "/lobby"
	Briefing  = "/briefing"
	Enigma1   = "/enigme-1"
	Book      = "/enigme-1/livre"
	Enigma2   = "/enigme-2"
	Lab       = "/enigme-2/labo"
	Oncopole  = "/enigme-2/oncopole"
	Meeting   = "/enigme-2/reunion"
	Enigma3   = "/enigme-3"
	Enigma4   = "/enigme-4"
	Finale    = "/finale"
)

type phase int

const (
	// open pages render for anyone.
	open phase = iota
	// lobby pages belong to the waiting room.
	lobby
	// play pages render only while the game is running.
	play
	// finale renders once the game started, and after it ended.
	finale
)

var routes = map[string]phase{
	Home:      open,
	AuthLogin: lobby,
	Lobby:     lobby,
	Briefing:  play,
	Enigma1:   play,
	Book:      play,
	Enigma2:   play,
	Lab:       play,
	Oncopole:  play,
	Meeting:   play,
	Enigma3:   play,
	Enigma4:   play,
	Finale:    finale,
}

// Routes lists every gated page path.
func Routes() []string {
	return []string{Home, AuthLogin, Lobby, Briefing, Enigma1, Book, Enigma2, Lab, Oncopole, Meeting, Enigma3, Enigma4, Finale}
}

// Decision is either Render or a redirect to Redirect.
type Decision struct {
	Render   bool
	Redirect string
}

func render() Decision {
	return Decision{Render: true}
}

func redirect(to string) Decision {
	return Decision{Redirect: to}
}

// Check applies the page rules for path. room and player are nil when the
// session has none.
func Check(path string, room *db.Room, player *db.Player) Decision {
	kind, ok := routes[path]
	if !ok || kind == open {
		return render()
	}
	if room == nil || player == nil {
		return redirect(Home)
	}
	switch kind {
	case lobby:
		switch room.Status {
		case db.RoomStatusPlaying:
			return redirect(Briefing)
		case db.RoomStatusCompleted:
			return redirect(Finale)
		}
	case play:
		switch room.Status {
		case db.RoomStatusWaiting:
			return redirect(Lobby)
		case db.RoomStatusCompleted:
			return redirect(Finale)
		}
	case finale:
		if room.Status == db.RoomStatusWaiting {
			return redirect(Lobby)
		}
	}
	return render()
}
