package room

import (
	"encoding/json"
	"math/rand/v2"
	"testing"

	"nvivas/backend/bingo-go-server/internal/errors"
	"nvivas/backend/bingo-go-server/internal/game"
	"nvivas/backend/bingo-go-server/pkg/models"
)

type stubClient struct {
	id   string
	send chan []byte
}

func (c *stubClient) GetID() string               { return c.id }
func (c *stubClient) GetSendChannel() chan []byte { return c.send }

func newStubPlayer(id, name string) *Player {
	return NewPlayer(&stubClient{id: id, send: make(chan []byte, 16)}, name)
}

type stubTimer struct {
	stops int
}

func (t *stubTimer) Stop() { t.stops++ }

func newTestRoom() *Room {
	return NewRoom("test-room", Private, rand.New(rand.NewPCG(3, 4)))
}

// TestNewRoom verifica que la creación de una sala inicialice correctamente sus campos
func TestNewRoom(t *testing.T) {
	r := newTestRoom()

	if r.ID != "test-room" {
		t.Errorf("Wrong room ID, expected 'test-room', got '%s'", r.ID)
	}
	if !r.IsEmpty() {
		t.Errorf("Expected no players, got %d", len(r.Players))
	}
	if r.Pool == nil {
		t.Fatal("Pool should not be nil")
	}
	if r.Phase != game.PhaseIdle {
		t.Errorf("Expected idle, got %s", r.Phase)
	}
	if r.TimerActive() {
		t.Error("A new room has no timer")
	}
}

func TestAddRemovePlayer(t *testing.T) {
	r := newTestRoom()
	a, b := newStubPlayer("a", "Ana"), newStubPlayer("b", "Beto")

	r.AddPlayer(a)
	r.AddPlayer(b)

	if !r.IsHost("a") || r.IsHost("b") {
		t.Error("First player should be host")
	}
	if host, ok := r.Host(); !ok || host != a {
		t.Error("Host lookup failed")
	}

	if _, ok := r.RemovePlayer("missing"); ok {
		t.Error("Removing an unknown player should fail")
	}
	if p, ok := r.RemovePlayer("b"); !ok || p != b {
		t.Error("Expected to remove b")
	}
	if len(r.Players) != 1 {
		t.Errorf("Expected 1 player, got %d", len(r.Players))
	}
}

func TestTimerGenerations(t *testing.T) {
	r := newTestRoom()
	first := &stubTimer{}

	gen := r.StartTimer(func(uint64) Timer { return first })
	if !r.CurrentTick(gen) {
		t.Fatal("Tick from the attached timer should be current")
	}

	second := &stubTimer{}
	gen2 := r.StartTimer(func(uint64) Timer { return second })
	if first.stops != 1 {
		t.Errorf("Previous timer should be stopped once, got %d", first.stops)
	}
	if r.CurrentTick(gen) {
		t.Error("Tick from a replaced timer must be stale")
	}
	if !r.CurrentTick(gen2) {
		t.Error("Tick from the new timer should be current")
	}

	if !r.StopTimer() {
		t.Error("StopTimer should report a running timer")
	}
	if r.StopTimer() {
		t.Error("Second StopTimer should be a no-op")
	}
	if second.stops != 1 {
		t.Errorf("Timer stopped %d times, expected 1", second.stops)
	}
	if r.CurrentTick(gen2) {
		t.Error("No tick is current after stop")
	}
}

func TestDrawLifecycle(t *testing.T) {
	r := newTestRoom()
	r.AddPlayer(newStubPlayer("a", "Ana"))

	if _, _, err := r.Draw(); !errors.Is(err, errors.ErrGameNotRunning) {
		t.Errorf("Draw while idle should fail, got %v", err)
	}

	if err := r.Apply(game.ActionStart); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	timer := &stubTimer{}
	r.StartTimer(func(uint64) Timer { return timer })

	for i := 1; i < game.Capacity; i++ {
		if _, finished, err := r.Draw(); err != nil || finished {
			t.Fatalf("Draw %d: finished=%v err=%v", i, finished, err)
		}
	}

	n, finished, err := r.Draw()
	if err != nil || !finished || n == 0 {
		t.Fatalf("75th draw should finish the game, got n=%d finished=%v err=%v", n, finished, err)
	}
	if r.Phase != game.PhaseFinished {
		t.Errorf("Expected finished, got %s", r.Phase)
	}
	if timer.stops != 1 || r.TimerActive() {
		t.Error("Timer should be stopped when the pool is exhausted")
	}

	if _, _, err := r.Draw(); err == nil {
		t.Error("A 76th draw must be rejected")
	}
	if r.Pool.Len() != game.Capacity {
		t.Errorf("Expected %d numbers, got %d", game.Capacity, r.Pool.Len())
	}
}

func TestClaim(t *testing.T) {
	r := newTestRoom()
	r.AddPlayer(newStubPlayer("a", "Ana"))
	r.AddPlayer(newStubPlayer("b", "Beto"))

	t.Run("Before start", func(t *testing.T) {
		if _, err := r.Claim("a", []int{1}); !errors.Is(err, errors.ErrGameNotRunning) {
			t.Errorf("Expected ErrGameNotRunning, got %v", err)
		}
	})

	r.Apply(game.ActionStart)
	timer := &stubTimer{}
	r.StartTimer(func(uint64) Timer { return timer })
	n, _, _ := r.Draw()

	t.Run("Unknown player", func(t *testing.T) {
		if _, err := r.Claim("zzz", []int{n}); !errors.Is(err, errors.ErrNotInRoom) {
			t.Errorf("Expected ErrNotInRoom, got %v", err)
		}
	})

	t.Run("Undrawn number", func(t *testing.T) {
		other := 1
		if other == n {
			other = 2
		}
		_, err := r.Claim("b", []int{n, other})
		if !errors.Is(err, errors.ErrInvalidClaim) {
			t.Errorf("Expected ErrInvalidClaim, got %v", err)
		}
		if r.Phase != game.PhaseDrawing {
			t.Error("Invalid claim must not change the phase")
		}
	})

	t.Run("Valid while paused", func(t *testing.T) {
		r.Apply(game.ActionPause)

		p, err := r.Claim("b", []int{n})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !p.IsWinner || p.Status() != StatusWinner {
			t.Error("Claimant should be marked as winner")
		}
		if r.WinnerCount != 1 {
			t.Errorf("Expected one winner, got %d", r.WinnerCount)
		}
		if r.Phase != game.PhaseFinished || timer.stops != 1 {
			t.Error("Valid claim should finish the game and stop the timer")
		}
	})
}

func TestScoreboardAndSnapshot(t *testing.T) {
	r := newTestRoom()
	a := newStubPlayer("a", "Ana")
	r.AddPlayer(a)
	r.AddPlayer(newStubPlayer("b", "Beto"))
	a.IsWinner = true

	board := r.Scoreboard()
	if board.Type != models.TypeScoreboard || len(board.Players) != 2 {
		t.Fatalf("Unexpected scoreboard %+v", board)
	}
	if board.Players[0].Status != StatusWinner || !board.Players[0].IsHost {
		t.Errorf("Unexpected first entry %+v", board.Players[0])
	}
	if board.Players[1].Status != StatusPlaying || board.Players[1].IsHost {
		t.Errorf("Unexpected second entry %+v", board.Players[1])
	}

	snap := r.StateFor("b")
	if snap.IsHost || snap.RoomID != "test-room" || snap.Paused {
		t.Errorf("Unexpected snapshot %+v", snap)
	}
	if snap.DrawnNumbers == nil {
		t.Error("Drawn numbers should encode as an empty list, not null")
	}
}

func TestBroadcast(t *testing.T) {
	r := newTestRoom()
	a, b := newStubPlayer("a", "Ana"), newStubPlayer("b", "Beto")
	r.AddPlayer(a)
	r.AddPlayer(b)

	r.BroadcastJSON(models.BaseMessage{Type: models.TypeDrawPaused})

	for _, p := range []*Player{a, b} {
		select {
		case msg := <-p.Client.GetSendChannel():
			var base models.BaseMessage
			if err := json.Unmarshal(msg, &base); err != nil || base.Type != models.TypeDrawPaused {
				t.Errorf("Unexpected frame %s", msg)
			}
		default:
			t.Errorf("Player %s got nothing", p.Name)
		}
	}

	// A full channel does not block the others
	full := &stubClient{id: "c", send: make(chan []byte)}
	r.AddPlayer(NewPlayer(full, "Carla"))
	r.Broadcast([]byte(`{}`))
	if len(a.Client.GetSendChannel()) != 1 {
		t.Error("Broadcast should still reach other players")
	}
}
