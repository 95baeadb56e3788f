package session

import (
	"fmt"
	"sort"
)

// DefaultStartLife is the life total every player starts with.
const DefaultStartLife = 20

// Player is one participant with their hand and board.
type Player struct {
	ID     string
	Name   string
	IsSelf bool
	Hand   *HandList
	Board  *ZoneGrid
	Life   int
	Lost   bool
	Won    bool
}

// Options shapes the session and the containers created for new players.
type Options struct {
	// SelfName identifies the local player by display name.
	SelfName  string
	Rows      int
	Columns   int
	Hand      HandLayout
	StartLife int
}

// Directory maps player ids to players.
type Directory struct {
	opts    Options
	players map[string]*Player
	selfID  string
}

// NewDirectory creates an empty directory.
func NewDirectory(opts Options) *Directory {
	if opts.Rows <= 0 {
		opts.Rows = 2
	}
	if opts.Columns <= 0 {
		opts.Columns = 5
	}
	if opts.Hand.Radius == 0 {
		opts.Hand = DefaultHandLayout
	}
	if opts.StartLife <= 0 {
		opts.StartLife = DefaultStartLife
	}
	return &Directory{
		opts:    opts,
		players: make(map[string]*Player),
	}
}

// Upsert creates the player if needed and sets the display name. It reports whether the
// player was created. The first player whose name matches SelfName becomes self, and
// their hand moves to the self anchor if it was built for an opponent.
func (d *Directory) Upsert(id, name string) (*Player, bool) {
	p, ok := d.players[id]
	created := !ok
	if created {
		p = &Player{ID: id, Life: d.opts.StartLife}
		d.players[id] = p
	}
	p.Name = name

	becameSelf := false
	if d.selfID == "" && name == d.opts.SelfName {
		d.selfID = id
		p.IsSelf = true
		becameSelf = true
	}

	switch {
	case created:
		p.Hand = NewHandList(id, d.handLayout(p.IsSelf))
		p.Board = NewZoneGrid(id, d.opts.Rows, d.opts.Columns)
	case becameSelf:
		p.Hand.SetLayout(d.handLayout(true))
	}
	return p, created
}

func (d *Directory) handLayout(self bool) HandLayout {
	layout := d.opts.Hand
	if !self {
		// opponents fan from the top edge
		layout.CenterY = 0
	}
	return layout
}

// Get returns the player with id.
func (d *Directory) Get(id string) (*Player, error) {
	p, ok := d.players[id]
	if !ok {
		return nil, fmt.Errorf("player %s: %w", id, ErrUnknownPlayer)
	}
	return p, nil
}

// Lookup returns the player with id without building an error.
func (d *Directory) Lookup(id string) (*Player, bool) {
	p, ok := d.players[id]
	return p, ok
}

// Self returns the local player once known.
func (d *Directory) Self() (*Player, bool) {
	if d.selfID == "" {
		return nil, false
	}
	return d.players[d.selfID], true
}

// SelfID returns the local player's id, or "" before it is known.
func (d *Directory) SelfID() string { return d.selfID }

// Players returns all players sorted by id.
func (d *Directory) Players() []*Player {
	out := make([]*Player, 0, len(d.players))
	for _, p := range d.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of players.
func (d *Directory) Len() int { return len(d.players) }
