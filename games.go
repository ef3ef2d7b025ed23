/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

// Game describes a mini-game a screen can start. The relay passes game ids
// through without checking them against this list.
type Game struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Category   string `json:"category"`
	MinPlayers int    `json:"minPlayers"`
	MaxPlayers int    `json:"maxPlayers"`
}

var catalog = []Game{
	{ID: "pong", Title: "NEON PONG", Category: "Arcade", MinPlayers: 2, MaxPlayers: 2},
	{ID: "racing", Title: "SPACE RACE", Category: "Racing", MinPlayers: 1, MaxPlayers: 4},
	{ID: "snake", Title: "SNAKE BATTLE", Category: "Arcade", MinPlayers: 1, MaxPlayers: 4},
	{ID: "reflex", Title: "REFLEX MASTER", Category: "Arcade", MinPlayers: 1, MaxPlayers: 4},
	{ID: "cardodge", Title: "CAR DODGE", Category: "Racing", MinPlayers: 1, MaxPlayers: 4},
	{ID: "puzzle", Title: "SPEED PUZZLE", Category: "Puzzle", MinPlayers: 1, MaxPlayers: 4},
	{ID: "duel", Title: "DUEL ARENA", Category: "Action", MinPlayers: 2, MaxPlayers: 2},
}

func serveGames(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		if _, err := writeJSON(w, http.StatusOK, catalog); err != nil {
			errs <- err

			return
		}
	}
}
