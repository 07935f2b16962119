package room

import (
	"encoding/json"
	"math/rand/v2"
	"time"

	"nvivas/backend/bingo-go-server/internal/errors"
	"nvivas/backend/bingo-go-server/internal/game"
	"nvivas/backend/bingo-go-server/internal/interfaces"
	"nvivas/backend/bingo-go-server/internal/logger"
	"nvivas/backend/bingo-go-server/pkg/models"
)

// Visibility decides how a room is found: by matchmaking or by code.
type Visibility string

const (
	Public  Visibility = models.VisibilityPublic
	Private Visibility = models.VisibilityPrivate
)

// ParseVisibility accepts "public" and "private"; anything else is public.
func ParseVisibility(s string) Visibility {
	if s == models.VisibilityPrivate {
		return Private
	}
	return Public
}

// Player status strings shown on the scoreboard
const (
	StatusPlaying = "Playing"
	StatusWinner  = "WINNER: BINGO!"
)

// Player es un jugador conectado a una sala
type Player struct {
	Client   interfaces.Client
	Name     string
	IsWinner bool
	JoinedAt time.Time
}

// NewPlayer binds a display name to a connection.
func NewPlayer(client interfaces.Client, name string) *Player {
	return &Player{
		Client:   client,
		Name:     name,
		JoinedAt: time.Now(),
	}
}

// ID returns the connection id of the player.
func (p *Player) ID() string {
	return p.Client.GetID()
}

// Status returns the scoreboard status text.
func (p *Player) Status() string {
	if p.IsWinner {
		return StatusWinner
	}
	return StatusPlaying
}

// Timer is a cancellable recurring draw. Stop must be idempotent.
type Timer interface {
	Stop()
}

// Room representa una sala de bingo
type Room struct {
	ID          string
	Visibility  Visibility
	Pool        *game.NumberPool
	Players     []*Player // join order, used for host failover
	HostID      string
	Phase       game.Phase
	WinnerCount int
	CreatedAt   time.Time

	timer    Timer
	timerGen uint64
}

// NewRoom crea una nueva sala vacía
func NewRoom(id string, visibility Visibility, rng *rand.Rand) *Room {
	return &Room{
		ID:         id,
		Visibility: visibility,
		Pool:       game.NewNumberPool(rng),
		Players:    make([]*Player, 0),
		Phase:      game.PhaseIdle,
		CreatedAt:  time.Now(),
	}
}

// AddPlayer appends p to the roster. The first player becomes host.
func (r *Room) AddPlayer(p *Player) {
	r.Players = append(r.Players, p)
	if len(r.Players) == 1 {
		r.HostID = p.ID()
	}
}

// RemovePlayer drops the player with connID and reports whether it was present.
// Host reassignment is the registry's job.
func (r *Room) RemovePlayer(connID string) (*Player, bool) {
	for i, p := range r.Players {
		if p.ID() == connID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return p, true
		}
	}
	return nil, false
}

// Player looks up a member by connection id.
func (r *Room) Player(connID string) (*Player, bool) {
	for _, p := range r.Players {
		if p.ID() == connID {
			return p, true
		}
	}
	return nil, false
}

// Host returns the current host, if the room has players.
func (r *Room) Host() (*Player, bool) {
	return r.Player(r.HostID)
}

// IsHost reports whether connID is the host.
func (r *Room) IsHost(connID string) bool {
	return connID != "" && r.HostID == connID
}

// IsEmpty reports whether the roster is empty.
func (r *Room) IsEmpty() bool {
	return len(r.Players) == 0
}

// Paused reports whether draws are suspended.
func (r *Room) Paused() bool {
	return r.Phase == game.PhasePaused
}

// TimerActive reports whether a draw timer is attached.
func (r *Room) TimerActive() bool {
	return r.timer != nil
}

// Apply moves the room to the phase that follows from action.
func (r *Room) Apply(action game.Action) error {
	next, err := game.Transition(r.Phase, action)
	if err != nil {
		return err
	}
	r.Phase = next
	return nil
}

// StartTimer stops any previous timer and attaches the one returned by
// start. start receives the generation that ticks from the new timer must
// carry to be accepted by CurrentTick.
func (r *Room) StartTimer(start func(gen uint64) Timer) uint64 {
	r.StopTimer()
	gen := r.timerGen
	r.timer = start(gen)
	return gen
}

// StopTimer cancels the draw timer. It is safe to call repeatedly and
// reports whether a timer was running.
func (r *Room) StopTimer() bool {
	r.timerGen++
	if r.timer == nil {
		return false
	}
	r.timer.Stop()
	r.timer = nil
	return true
}

// CurrentTick reports whether gen belongs to the attached timer.
func (r *Room) CurrentTick(gen uint64) bool {
	return r.timer != nil && gen == r.timerGen
}

// Draw takes the next number while drawing. The 75th number finishes the
// game and stops the timer in the same step.
func (r *Room) Draw() (n int, finished bool, err error) {
	if r.Phase != game.PhaseDrawing {
		return 0, false, errors.ErrGameNotRunning
	}

	n, ok := r.Pool.Draw()
	if !ok {
		r.finish()
		return 0, true, errors.ErrPoolExhausted
	}

	if r.Pool.Exhausted() {
		r.finish()
		return n, true, nil
	}
	return n, false, nil
}

// Claim validates a win claim for connID against the draw history.
// A valid claim marks the winner and finishes the game.
func (r *Room) Claim(connID string, numbers []int) (*Player, error) {
	p, ok := r.Player(connID)
	if !ok {
		return nil, errors.ErrNotInRoom
	}
	if !r.Phase.TimerActive() {
		return p, errors.ErrGameNotRunning
	}
	if err := r.Pool.ValidateClaim(numbers); err != nil {
		return p, err
	}

	p.IsWinner = true
	r.WinnerCount++
	r.finish()
	return p, nil
}

func (r *Room) finish() {
	if err := r.Apply(game.ActionFinish); err != nil {
		logger.Debug("Finish on a room that was not drawing", logger.Fields{
			"roomID": r.ID,
			"phase":  r.Phase.String(),
		})
	}
	r.StopTimer()
}

// Broadcast sends msg to every player without blocking on slow clients.
func (r *Room) Broadcast(msg []byte) {
	for _, p := range r.Players {
		if !errors.Send(p.Client.GetSendChannel(), msg) {
			logger.Warn("Could not send broadcast, channel possibly full", logger.Fields{
				"clientID": p.ID(),
				"roomID":   r.ID,
			})
		}
	}
}

// BroadcastJSON marshals v and broadcasts it.
func (r *Room) BroadcastJSON(v any) {
	msgBytes, err := json.Marshal(v)
	if err != nil {
		logger.Error("Failed to marshal broadcast", logger.Fields{
			"error":  err.Error(),
			"roomID": r.ID,
		})
		return
	}
	r.Broadcast(msgBytes)
}

// Scoreboard lists players in join order.
func (r *Room) Scoreboard() models.ScoreboardResponse {
	entries := make([]models.ScoreEntry, 0, len(r.Players))
	for _, p := range r.Players {
		entries = append(entries, models.ScoreEntry{
			ID:     p.ID(),
			Name:   p.Name,
			Status: p.Status(),
			IsHost: r.IsHost(p.ID()),
		})
	}
	return models.ScoreboardResponse{
		Type:    models.TypeScoreboard,
		Players: entries,
	}
}

// StateFor builds the snapshot sent to connID right after it joins.
func (r *Room) StateFor(connID string) models.StateSnapshotResponse {
	last, _ := r.Pool.LastDrawn()
	return models.StateSnapshotResponse{
		Type:         models.TypeStateSnapshot,
		RoomID:       r.ID,
		Visibility:   string(r.Visibility),
		DrawnNumbers: r.Pool.Drawn(),
		LastNumber:   last,
		Paused:       r.Paused(),
		Phase:        r.Phase.String(),
		IsHost:       r.IsHost(connID),
	}
}

// Info is an immutable summary of the room.
func (r *Room) Info(capacity int) models.RoomInfo {
	names := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		names = append(names, p.Name)
	}
	return models.RoomInfo{
		RoomID:     r.ID,
		Visibility: string(r.Visibility),
		Phase:      r.Phase.String(),
		Players:    names,
		Drawn:      r.Pool.Len(),
		IsFull:     r.Visibility == Public && len(r.Players) >= capacity,
	}
}
