package entity

import "time"

// Player is the durable record of a username and its counters.
type Player struct {
	Username    string    `json:"username"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	Draws       int       `json:"draws"`
	GamesPlayed int       `json:"gamesPlayed"`
	CreatedAt   time.Time `json:"createdAt"`
	LastActive  time.Time `json:"lastActive"`
}

type LeaderboardEntry struct {
	Username string `json:"username"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Rank     int    `json:"rank"`
}
