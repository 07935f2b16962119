package hub

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"nvivas/backend/bingo-go-server/internal/errors"
	"nvivas/backend/bingo-go-server/internal/game"
	"nvivas/backend/bingo-go-server/internal/interfaces"
	"nvivas/backend/bingo-go-server/internal/logger"
	"nvivas/backend/bingo-go-server/internal/room"
	"nvivas/backend/bingo-go-server/pkg/models"
)

const (
	maxNameLength   = 32
	maxRoomIDLength = 64
)

func (h *Hub) handleRegister(client interfaces.Client) {
	if client == nil {
		return
	}
	h.clients[client.GetID()] = client
	logger.Debug("Client registered", logger.Fields{"clientID": client.GetID()})
}

func (h *Hub) handleUnregister(client interfaces.Client) {
	if client == nil {
		return
	}
	id := client.GetID()

	h.leaveCurrentRoom(client)

	if _, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(client.GetSendChannel())
		logger.Debug("Client unregistered", logger.Fields{"clientID": id})
	}
}

func (h *Hub) handleJoin(client interfaces.Client, payload models.JoinRoomPayload) {
	if client == nil {
		return
	}
	id := client.GetID()
	if _, ok := h.clients[id]; !ok {
		logger.Debug("Join from unknown client ignored", logger.Fields{"clientID": id})
		return
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		errors.InvalidPayload(client.GetSendChannel(), "a display name is required", id)
		return
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		errors.InvalidPayload(client.GetSendChannel(), fmt.Sprintf("name longer than %d characters", maxNameLength), id)
		return
	}

	switch payload.Visibility {
	case "", models.VisibilityPublic, models.VisibilityPrivate:
	default:
		errors.InvalidPayload(client.GetSendChannel(), "unknown visibility "+payload.Visibility, id)
		return
	}

	requestedID := strings.TrimSpace(payload.RoomID)
	if len(requestedID) > maxRoomIDLength {
		errors.InvalidPayload(client.GetSendChannel(), "room code too long", id)
		return
	}

	// Repetir el join de la sala actual solo reenvía el estado
	if current, ok := h.roomOf(id); ok && sameRoom(current, payload.Visibility, requestedID) {
		h.sendJSON(client, current.StateFor(id))
		logger.Debug("Repeated join for current room", logger.Fields{"roomID": current.ID, "clientID": id})
		return
	}

	// A second join moves the player out of the previous room first.
	h.leaveCurrentRoom(client)

	player := room.NewPlayer(client, name)
	r, created, err := h.registry.Join(player, room.ParseVisibility(payload.Visibility), requestedID)
	if err != nil {
		if errors.Is(err, errors.ErrRoomFull) {
			errors.RoomFull(client.GetSendChannel(), id)
			return
		}
		logger.Error("Join failed", logger.Fields{"clientID": id, "error": err.Error()})
		errors.Internal(client.GetSendChannel(), id)
		return
	}

	h.membership[id] = r.ID

	h.sendJSON(client, r.StateFor(id))
	h.broadcastNotice(r, name+" joined the room!")
	r.BroadcastJSON(r.Scoreboard())

	logger.Info("Player joined room", logger.Fields{
		"roomID":   r.ID,
		"clientID": id,
		"name":     name,
		"created":  created,
		"isHost":   r.IsHost(id),
	})
}

// sameRoom reports whether a join request resolves to r: the same room
// code, or public matchmaking while already seated in a public room.
func sameRoom(r *room.Room, visibility, requestedID string) bool {
	if room.ParseVisibility(visibility) == room.Private {
		return requestedID != "" && r.ID == requestedID
	}
	return r.Visibility == room.Public
}

func (h *Hub) handleLeave(client interfaces.Client) {
	if client == nil {
		return
	}
	if !h.leaveCurrentRoom(client) {
		logger.Debug("Leave from client without room ignored", logger.Fields{"clientID": client.GetID()})
	}
}

// leaveCurrentRoom removes client from its room, if any. Timer
// cancellation happens in the same step as the roster change.
func (h *Hub) leaveCurrentRoom(client interfaces.Client) bool {
	id := client.GetID()
	roomID, ok := h.membership[id]
	if !ok {
		return false
	}
	delete(h.membership, id)

	res, err := h.registry.Leave(roomID, id)
	if err != nil {
		logger.Debug("Leave ignored", logger.Fields{
			"roomID":   roomID,
			"clientID": id,
			"error":    err.Error(),
		})
		return false
	}

	fields := logger.Fields{
		"roomID":   roomID,
		"clientID": id,
		"name":     res.Player.Name,
	}
	if res.Destroyed {
		logger.Info("Last player left, room destroyed", fields)
		return true
	}
	logger.Info("Player left room", fields)

	r := res.Room
	h.broadcastNotice(r, res.Player.Name+" left the room.")

	if res.NewHost != nil {
		if res.TimerStopped {
			logger.Info("Draw timer stopped, host disconnected", fields)
			h.broadcastNotice(r, "The host left. The draw was stopped until the new host starts it again.")
		}
		errors.SendNotice(res.NewHost.Client.GetSendChannel(), models.TimerNoticeResponse{
			Message: "You are the new host. Start the draw!",
		}, res.NewHost.ID())
	}

	r.BroadcastJSON(r.Scoreboard())
	return true
}

// hostRoom returns the room client hosts. Requests from anyone else are
// ignored without telling the sender.
func (h *Hub) hostRoom(client interfaces.Client, action string) (*room.Room, bool) {
	if client == nil {
		return nil, false
	}
	id := client.GetID()

	r, ok := h.roomOf(id)
	if !ok {
		logger.Debug("Action on missing room ignored", logger.Fields{"clientID": id, "action": action})
		return nil, false
	}
	if !r.IsHost(id) {
		logger.Debug("Action from non-host ignored", logger.Fields{
			"clientID": id,
			"roomID":   r.ID,
			"action":   action,
			"error":    errors.ErrNotHost.Error(),
		})
		return nil, false
	}
	return r, true
}

func (h *Hub) roomOf(clientID string) (*room.Room, bool) {
	roomID, ok := h.membership[clientID]
	if !ok {
		return nil, false
	}
	return h.registry.Get(roomID)
}

func (h *Hub) handleStart(client interfaces.Client) {
	r, ok := h.hostRoom(client, "start-draw")
	if !ok {
		return
	}

	if err := r.Apply(game.ActionStart); err != nil {
		logger.Debug("Start ignored", logger.Fields{"roomID": r.ID, "error": err.Error()})
		return
	}

	roomID := r.ID
	r.StartTimer(func(gen uint64) room.Timer {
		return h.scheduler.Every(h.interval, func() {
			h.tryEnqueue(event{kind: evTick, roomID: roomID, gen: gen})
		})
	})

	logger.Info("Automatic draw started", logger.Fields{
		"roomID":   roomID,
		"interval": h.interval.String(),
	})

	h.drawNext(r)
	if r.Phase == game.PhaseDrawing {
		h.broadcastNotice(r, fmt.Sprintf("Draw started! A number every %s.", humanInterval(h.interval)))
	}
}

func (h *Hub) handlePause(client interfaces.Client) {
	r, ok := h.hostRoom(client, "pause-draw")
	if !ok {
		return
	}
	if err := r.Apply(game.ActionPause); err != nil {
		logger.Debug("Pause ignored", logger.Fields{"roomID": r.ID, "error": err.Error()})
		return
	}

	r.BroadcastJSON(models.BaseMessage{Type: models.TypeDrawPaused})
	h.broadcastNotice(r, "The host paused the draw.")
	logger.Info("Draw paused", logger.Fields{"roomID": r.ID})
}

func (h *Hub) handleResume(client interfaces.Client) {
	r, ok := h.hostRoom(client, "resume-draw")
	if !ok {
		return
	}
	if err := r.Apply(game.ActionResume); err != nil {
		logger.Debug("Resume ignored", logger.Fields{"roomID": r.ID, "error": err.Error()})
		return
	}

	r.BroadcastJSON(models.BaseMessage{Type: models.TypeDrawResumed})
	h.broadcastNotice(r, "The host resumed the draw.")
	logger.Info("Draw resumed", logger.Fields{"roomID": r.ID})
}

func (h *Hub) handleTick(roomID string, gen uint64) {
	r, ok := h.registry.Get(roomID)
	if !ok || !r.CurrentTick(gen) {
		logger.Debug("Stale tick ignored", logger.Fields{"roomID": roomID})
		return
	}
	if r.Paused() {
		return
	}

	h.drawNext(r)
	if r.Phase == game.PhaseDrawing {
		h.broadcastNotice(r, fmt.Sprintf("Next number in %s!", humanInterval(h.interval)))
	}
}

// drawNext draws one number and broadcasts it. When the pool runs out the
// room is already finished and the timer stopped by room.Draw.
func (h *Hub) drawNext(r *room.Room) {
	n, finished, err := r.Draw()
	if err != nil && !errors.Is(err, errors.ErrPoolExhausted) {
		logger.Debug("Draw skipped", logger.Fields{"roomID": r.ID, "error": err.Error()})
		return
	}

	if err == nil {
		letter, lerr := game.LetterFor(n)
		if lerr != nil {
			logger.Error("Drawn number has no letter", logger.Fields{"roomID": r.ID, "number": n})
		}

		r.BroadcastJSON(models.NumberDrawnResponse{
			Type:       models.TypeNumberDrawn,
			Number:     n,
			Letter:     letter,
			DrawnSoFar: r.Pool.Drawn(),
		})
		r.BroadcastJSON(r.Scoreboard())

		logger.Debug("Number drawn", logger.Fields{
			"roomID": r.ID,
			"number": n,
			"letter": letter,
			"count":  r.Pool.Len(),
		})
	}

	if finished {
		r.BroadcastJSON(models.GameFinishedResponse{
			Type:    models.TypeGameFinished,
			Message: fmt.Sprintf("GAME OVER! All %d balls have been drawn.", game.Capacity),
		})
		logger.Info("Pool exhausted, game finished", logger.Fields{"roomID": r.ID})
	}
}

func (h *Hub) handleClaim(client interfaces.Client, numbers []int) {
	if client == nil {
		return
	}
	id := client.GetID()

	r, ok := h.roomOf(id)
	if !ok {
		logger.Debug("Claim from client without room ignored", logger.Fields{"clientID": id})
		return
	}

	winner, err := r.Claim(id, numbers)
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrNotInRoom):
		return
	case errors.Is(err, errors.ErrGameNotRunning):
		errors.GameNotRunning(client.GetSendChannel(), id)
		return
	case errors.Is(err, errors.ErrEmptyClaim):
		errors.InvalidClaim(client.GetSendChannel(), "no numbers marked", id)
		return
	default:
		errors.InvalidClaim(client.GetSendChannel(), err.Error(), id)
		return
	}

	r.BroadcastJSON(models.GameFinishedResponse{
		Type:    models.TypeGameFinished,
		Message: winner.Name + " WON THE BINGO!",
		Winner:  winner.Name,
	})
	r.BroadcastJSON(r.Scoreboard())

	logger.Info("Game finished with a winner", logger.Fields{
		"roomID":   r.ID,
		"clientID": id,
		"winner":   winner.Name,
		"drawn":    r.Pool.Len(),
	})
}

func (h *Hub) handleListRooms(reply chan<- roomQuery) {
	if reply == nil {
		return
	}
	rooms := h.registry.Rooms()
	infos := make([]models.RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		infos = append(infos, r.Info(h.registry.PublicCapacity()))
	}
	reply <- roomQuery{rooms: infos, found: true}
}

func (h *Hub) handleRoomInfo(roomID string, reply chan<- roomQuery) {
	if reply == nil {
		return
	}
	r, ok := h.registry.Get(roomID)
	if !ok {
		reply <- roomQuery{}
		return
	}
	reply <- roomQuery{rooms: []models.RoomInfo{r.Info(h.registry.PublicCapacity())}, found: true}
}

func (h *Hub) sendJSON(client interfaces.Client, v any) {
	msgBytes, err := json.Marshal(v)
	if err != nil {
		logger.Error("Failed to marshal message", logger.Fields{
			"error":    err.Error(),
			"clientID": client.GetID(),
		})
		return
	}
	if !errors.Send(client.GetSendChannel(), msgBytes) {
		logger.Warn("Could not send message, channel possibly full", logger.Fields{
			"clientID": client.GetID(),
		})
	}
}

func (h *Hub) broadcastNotice(r *room.Room, message string) {
	r.BroadcastJSON(models.TimerNoticeResponse{
		Type:    models.TypeTimerNotice,
		Message: message,
	})
}

// humanInterval renders whole seconds as "5 seconds" and anything else
// with time.Duration formatting.
func humanInterval(d time.Duration) string {
	if d%time.Second == 0 {
		secs := int(d / time.Second)
		if secs == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", secs)
	}
	return d.String()
}
