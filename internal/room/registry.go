package room

import (
	crand "crypto/rand"
	"math/rand/v2"

	"github.com/google/uuid"

	"nvivas/backend/bingo-go-server/internal/errors"
	"nvivas/backend/bingo-go-server/internal/game"
	"nvivas/backend/bingo-go-server/internal/logger"
)

// DefaultPublicCapacity is the player limit for matchmade rooms.
const DefaultPublicCapacity = 10

const (
	roomCodeLength = 6
	roomCodeChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Registry maps room ids to rooms. It has no lock: the hub goroutine is
// its only user.
type Registry struct {
	rooms          map[string]*Room
	order          []string // creation order, used by public matchmaking
	publicCapacity int

	// Source for new pools; nil uses the global source.
	NewRand func() *rand.Rand
}

// NewRegistry crea un registro vacío
func NewRegistry(publicCapacity int) *Registry {
	if publicCapacity <= 0 {
		publicCapacity = DefaultPublicCapacity
	}
	return &Registry{
		rooms:          make(map[string]*Room),
		publicCapacity: publicCapacity,
	}
}

// PublicCapacity returns the configured public room size.
func (reg *Registry) PublicCapacity() int {
	return reg.publicCapacity
}

// Get returns the room with id.
func (reg *Registry) Get(id string) (*Room, bool) {
	r, ok := reg.rooms[id]
	return r, ok
}

// Len returns the number of live rooms.
func (reg *Registry) Len() int {
	return len(reg.rooms)
}

// Rooms returns live rooms in creation order.
func (reg *Registry) Rooms() []*Room {
	out := make([]*Room, 0, len(reg.order))
	for _, id := range reg.order {
		out = append(out, reg.rooms[id])
	}
	return out
}

// Join places p in a room and reports whether the room was created.
//
//   - private with requestedID: that room, created when absent
//   - private without id: a new room under a fresh code
//   - public: the first public room under capacity, else a new one
func (reg *Registry) Join(p *Player, visibility Visibility, requestedID string) (*Room, bool, error) {
	var (
		r       *Room
		created bool
	)

	switch {
	case visibility == Private && requestedID != "":
		existing, ok := reg.rooms[requestedID]
		if ok {
			if existing.Visibility == Public && len(existing.Players) >= reg.publicCapacity {
				return nil, false, errors.ErrRoomFull
			}
			r = existing
		} else {
			r = reg.create(requestedID, Private)
			created = true
		}

	case visibility == Private:
		r = reg.create(reg.newCode(), Private)
		created = true

	default:
		for _, id := range reg.order {
			candidate := reg.rooms[id]
			if candidate.Visibility == Public && len(candidate.Players) < reg.publicCapacity {
				r = candidate
				break
			}
		}
		if r == nil {
			r = reg.create(reg.newPublicID(), Public)
			created = true
		}
	}

	if _, already := r.Player(p.ID()); !already {
		r.AddPlayer(p)
	}
	return r, created, nil
}

// LeaveResult describes what a departure did to the room.
type LeaveResult struct {
	Room         *Room
	Player       *Player
	Destroyed    bool    // last player left, room removed
	NewHost      *Player // set when the host left and someone was promoted
	TimerStopped bool
}

// Leave removes connID from roomID. When the host leaves, the earliest
// joined remaining player is promoted and the draw is halted until the new
// host starts it again. An empty room is stopped and deleted.
func (reg *Registry) Leave(roomID, connID string) (LeaveResult, error) {
	r, ok := reg.rooms[roomID]
	if !ok {
		return LeaveResult{}, errors.ErrRoomNotFound
	}

	p, ok := r.RemovePlayer(connID)
	if !ok {
		return LeaveResult{Room: r}, errors.ErrNotInRoom
	}

	res := LeaveResult{Room: r, Player: p}

	if r.IsEmpty() {
		res.TimerStopped = r.StopTimer()
		reg.remove(roomID)
		res.Destroyed = true
		logger.Info("Empty room removed", logger.Fields{"roomID": roomID})
		return res, nil
	}

	if r.HostID == connID {
		r.HostID = r.Players[0].ID()
		res.NewHost = r.Players[0]
		res.TimerStopped = r.StopTimer()
		if err := r.Apply(game.ActionHalt); err != nil {
			logger.Warn("Could not halt draw after host left", logger.Fields{
				"roomID": roomID,
				"error":  err.Error(),
			})
		}
	}

	return res, nil
}

// Close stops every timer and forgets all rooms.
func (reg *Registry) Close() {
	for _, r := range reg.rooms {
		r.StopTimer()
	}
	reg.rooms = make(map[string]*Room)
	reg.order = nil
}

func (reg *Registry) create(id string, visibility Visibility) *Room {
	var rng *rand.Rand
	if reg.NewRand != nil {
		rng = reg.NewRand()
	}
	r := NewRoom(id, visibility, rng)
	reg.rooms[id] = r
	reg.order = append(reg.order, id)

	logger.Info("Room created", logger.Fields{
		"roomID":     id,
		"visibility": string(visibility),
	})
	return r
}

func (reg *Registry) remove(id string) {
	delete(reg.rooms, id)
	for i, other := range reg.order {
		if other == id {
			reg.order = append(reg.order[:i], reg.order[i+1:]...)
			break
		}
	}
}

// newCode generates a short crypto-random private room code that is not in use.
func (reg *Registry) newCode() string {
	for {
		buf := make([]byte, roomCodeLength)
		if _, err := crand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, roomCodeLength)
		for i := range out {
			out[i] = roomCodeChars[int(buf[i])%len(roomCodeChars)]
		}
		if _, exists := reg.rooms[string(out)]; !exists {
			return string(out)
		}
	}
}

func (reg *Registry) newPublicID() string {
	for {
		id := "pub-" + uuid.NewString()
		if _, exists := reg.rooms[id]; !exists {
			return id
		}
	}
}
