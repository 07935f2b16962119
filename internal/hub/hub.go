package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nvivas/backend/bingo-go-server/internal/interfaces"
	"nvivas/backend/bingo-go-server/internal/logger"
	"nvivas/backend/bingo-go-server/internal/room"
	"nvivas/backend/bingo-go-server/pkg/models"
)

// DefaultDrawInterval is the pause between automatic draws.
const DefaultDrawInterval = 5 * time.Second

const defaultQueueSize = 256

type eventKind int

const (
	evRegister eventKind = iota
	evUnregister
	evJoin
	evLeave
	evStart
	evPause
	evResume
	evClaim
	evTick
	evListRooms
	evRoomInfo
)

func (k eventKind) String() string {
	switch k {
	case evRegister:
		return "register"
	case evUnregister:
		return "unregister"
	case evJoin:
		return "join-room"
	case evLeave:
		return "leave-room"
	case evStart:
		return "start-draw"
	case evPause:
		return "pause-draw"
	case evResume:
		return "resume-draw"
	case evClaim:
		return "claim-win"
	case evTick:
		return "tick"
	case evListRooms:
		return "list-rooms"
	case evRoomInfo:
		return "room-info"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// event is one unit of work for the hub loop.
type event struct {
	kind    eventKind
	client  interfaces.Client
	join    models.JoinRoomPayload
	numbers []int
	roomID  string
	gen     uint64
	reply   chan<- roomQuery
}

type roomQuery struct {
	rooms []models.RoomInfo
	found bool
}

// Options configures a Hub.
type Options struct {
	Interval  time.Duration
	Scheduler Scheduler
	QueueSize int
}

// Hub coordina las salas de bingo. Todas las mutaciones de salas ocurren en
// la goroutine de Run, un evento a la vez, así que las salas no usan locks.
type Hub struct {
	registry  *room.Registry
	scheduler Scheduler
	interval  time.Duration

	// Clientes conectados, por ID
	clients map[string]interfaces.Client

	// Sala actual de cada cliente
	membership map[string]string

	events    chan event
	done      chan struct{}
	closeOnce sync.Once
}

// NewHub crea una nueva instancia de Hub sobre el registro dado
func NewHub(registry *room.Registry, opts Options) *Hub {
	if opts.Interval <= 0 {
		opts.Interval = DefaultDrawInterval
	}
	if opts.Scheduler == nil {
		opts.Scheduler = TickerScheduler{}
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}

	return &Hub{
		registry:   registry,
		scheduler:  opts.Scheduler,
		interval:   opts.Interval,
		clients:    make(map[string]interfaces.Client),
		membership: make(map[string]string),
		events:     make(chan event, opts.QueueSize),
		done:       make(chan struct{}),
	}
}

// Run inicia el bucle principal del Hub. Returns when ctx is cancelled or
// Close is called.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Context cancelled, stopping hub", nil)
			return
		case <-h.done:
			return
		case ev := <-h.events:
			h.handle(ev)
		}
	}
}

// Close stops the hub loop. It is safe to call more than once.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *Hub) shutdown() {
	h.Close()
	h.registry.Close()
	logger.Info("Hub stopped, all draw timers cancelled", nil)
}

// enqueue blocks until the event is queued or the hub stops.
func (h *Hub) enqueue(ev event) {
	select {
	case h.events <- ev:
	case <-h.done:
	}
}

// tryEnqueue drops the event when the queue is full. Used by timers so a
// stalled hub never piles up ticker goroutines.
func (h *Hub) tryEnqueue(ev event) {
	select {
	case h.events <- ev:
	default:
		logger.Warn("Hub queue full, dropping event", logger.Fields{
			"event":  ev.kind.String(),
			"roomID": ev.roomID,
		})
	}
}

// RegisterClient implements interfaces.Hub
func (h *Hub) RegisterClient(client interfaces.Client) {
	h.enqueue(event{kind: evRegister, client: client})
}

// UnregisterClient implements interfaces.Hub
func (h *Hub) UnregisterClient(client interfaces.Client) {
	h.enqueue(event{kind: evUnregister, client: client})
}

// JoinRoom implements interfaces.Hub
func (h *Hub) JoinRoom(client interfaces.Client, payload models.JoinRoomPayload) {
	h.enqueue(event{kind: evJoin, client: client, join: payload})
}

// LeaveRoom implements interfaces.Hub
func (h *Hub) LeaveRoom(client interfaces.Client) {
	h.enqueue(event{kind: evLeave, client: client})
}

// StartDraw implements interfaces.Hub
func (h *Hub) StartDraw(client interfaces.Client) {
	h.enqueue(event{kind: evStart, client: client})
}

// PauseDraw implements interfaces.Hub
func (h *Hub) PauseDraw(client interfaces.Client) {
	h.enqueue(event{kind: evPause, client: client})
}

// ResumeDraw implements interfaces.Hub
func (h *Hub) ResumeDraw(client interfaces.Client) {
	h.enqueue(event{kind: evResume, client: client})
}

// ClaimWin implements interfaces.Hub
func (h *Hub) ClaimWin(client interfaces.Client, numbers []int) {
	h.enqueue(event{kind: evClaim, client: client, numbers: numbers})
}

// ListRooms returns a summary of every live room.
func (h *Hub) ListRooms(ctx context.Context) ([]models.RoomInfo, error) {
	q, err := h.query(ctx, event{kind: evListRooms})
	if err != nil {
		return nil, err
	}
	return q.rooms, nil
}

// RoomInfo returns a summary of one room.
func (h *Hub) RoomInfo(ctx context.Context, roomID string) (models.RoomInfo, bool, error) {
	q, err := h.query(ctx, event{kind: evRoomInfo, roomID: roomID})
	if err != nil || !q.found {
		return models.RoomInfo{}, false, err
	}
	return q.rooms[0], true, nil
}

func (h *Hub) query(ctx context.Context, ev event) (roomQuery, error) {
	reply := make(chan roomQuery, 1)
	ev.reply = reply

	select {
	case h.events <- ev:
	case <-h.done:
		return roomQuery{}, context.Canceled
	case <-ctx.Done():
		return roomQuery{}, ctx.Err()
	}

	select {
	case q := <-reply:
		return q, nil
	case <-h.done:
		return roomQuery{}, context.Canceled
	case <-ctx.Done():
		return roomQuery{}, ctx.Err()
	}
}

// handle runs one event to completion. A panic is contained to the event.
func (h *Hub) handle(ev event) {
	defer func() {
		if rec := recover(); rec != nil {
			fields := logger.Fields{
				"event": ev.kind.String(),
				"panic": fmt.Sprint(rec),
			}
			if ev.client != nil {
				fields["clientID"] = ev.client.GetID()
			}
			logger.Error("Recovered from panic while handling event", fields)
		}
	}()

	switch ev.kind {
	case evRegister:
		h.handleRegister(ev.client)
	case evUnregister:
		h.handleUnregister(ev.client)
	case evJoin:
		h.handleJoin(ev.client, ev.join)
	case evLeave:
		h.handleLeave(ev.client)
	case evStart:
		h.handleStart(ev.client)
	case evPause:
		h.handlePause(ev.client)
	case evResume:
		h.handleResume(ev.client)
	case evClaim:
		h.handleClaim(ev.client, ev.numbers)
	case evTick:
		h.handleTick(ev.roomID, ev.gen)
	case evListRooms:
		h.handleListRooms(ev.reply)
	case evRoomInfo:
		h.handleRoomInfo(ev.roomID, ev.reply)
	}
}
