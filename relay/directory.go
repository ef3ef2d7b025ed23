/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package relay

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

const (
	minCode   = 1000
	codeSpace = 9000 // 1000-9999
)

// Directory maps open room codes to rooms. It is not safe for concurrent use.
type Directory struct {
	rooms map[string]*Room
	intn  func(n int) int
}

// NewDirectory returns an empty directory drawing codes from crypto/rand.
func NewDirectory() *Directory {
	return NewDirectoryWithSource(cryptoIntn)
}

// NewDirectoryWithSource returns an empty directory whose codes are
// minCode+intn(codeSpace). intn must return values in [0, n).
func NewDirectoryWithSource(intn func(n int) int) *Directory {
	return &Directory{
		rooms: make(map[string]*Room),
		intn:  intn,
	}
}

func cryptoIntn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	return int(v.Int64())
}

// Create opens a room owned by screen under a fresh code.
func (d *Directory) Create(screen string) (*Room, error) {
	if len(d.rooms) >= codeSpace {
		return nil, ErrRoomSpaceExhausted
	}

	for {
		code := strconv.Itoa(minCode + d.intn(codeSpace))
		if _, exists := d.rooms[code]; exists {
			continue
		}

		room := newRoom(code, screen)
		d.rooms[code] = room

		return room, nil
	}
}

// Get looks up an open room.
func (d *Directory) Get(code string) (*Room, bool) {
	room, ok := d.rooms[code]
	return room, ok
}

// Delete removes a room. Deleting an unknown code is a no-op.
func (d *Directory) Delete(code string) {
	delete(d.rooms, code)
}

// Len reports the number of open rooms.
func (d *Directory) Len() int {
	return len(d.rooms)
}
