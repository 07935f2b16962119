package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"nvivas/backend/bingo-go-server/internal/errors"
	"nvivas/backend/bingo-go-server/internal/interfaces"
	"nvivas/backend/bingo-go-server/pkg/models"
)

type call struct {
	name    string
	join    models.JoinRoomPayload
	numbers []int
}

// recordingHub records every call made by a client.
type recordingHub struct {
	mu    sync.Mutex
	calls []call
	got   chan struct{}
}

func newRecordingHub() *recordingHub {
	return &recordingHub{got: make(chan struct{}, 64)}
}

func (h *recordingHub) record(c call) {
	h.mu.Lock()
	h.calls = append(h.calls, c)
	h.mu.Unlock()
	h.got <- struct{}{}
}

func (h *recordingHub) wait(t *testing.T) call {
	t.Helper()
	select {
	case <-h.got:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for a hub call")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[len(h.calls)-1]
}

func (h *recordingHub) RegisterClient(interfaces.Client)   { h.record(call{name: "register"}) }
func (h *recordingHub) UnregisterClient(interfaces.Client) { h.record(call{name: "unregister"}) }
func (h *recordingHub) LeaveRoom(interfaces.Client)        { h.record(call{name: "leave"}) }
func (h *recordingHub) StartDraw(interfaces.Client)        { h.record(call{name: "start"}) }
func (h *recordingHub) PauseDraw(interfaces.Client)        { h.record(call{name: "pause"}) }
func (h *recordingHub) ResumeDraw(interfaces.Client)       { h.record(call{name: "resume"}) }

func (h *recordingHub) JoinRoom(_ interfaces.Client, p models.JoinRoomPayload) {
	h.record(call{name: "join", join: p})
}

func (h *recordingHub) ClaimWin(_ interfaces.Client, numbers []int) {
	h.record(call{name: "claim", numbers: numbers})
}

// dial starts a websocket server backed by a Client and returns the far end.
func dial(t *testing.T, hub interfaces.Hub) (*websocket.Conn, chan *Client) {
	t.Helper()
	clients := make(chan *Client, 1)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade failed: %v", err)
			return
		}
		c := NewClient("conn-1", hub, conn, context.Background())
		clients <- c
		go c.WritePump()
		c.ReadPump()
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, clients
}

func readNotice(t *testing.T, conn *websocket.Conn) models.TimerNoticeResponse {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var notice models.TimerNoticeResponse
	if err := conn.ReadJSON(&notice); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	return notice
}

func TestReadPumpDispatch(t *testing.T) {
	hub := newRecordingHub()
	conn, _ := dial(t, hub)

	tests := []struct {
		name  string
		frame string
		want  string
		check func(t *testing.T, c call)
	}{
		{"Join", `{"type":"join-room","payload":{"name":"Ana","visibility":"private","roomId":"ABCD"}}`, "join", func(t *testing.T, c call) {
			if c.join.Name != "Ana" || c.join.RoomID != "ABCD" || c.join.Visibility != models.VisibilityPrivate {
				t.Errorf("Unexpected join payload %+v", c.join)
			}
		}},
		{"Start", `{"type":"start-draw"}`, "start", nil},
		{"Pause", `{"type":"pause-draw"}`, "pause", nil},
		{"Resume", `{"type":"resume-draw"}`, "resume", nil},
		{"Leave", `{"type":"leave-room"}`, "leave", nil},
		{"Claim object", `{"type":"claim-win","payload":{"claimedNumbers":[3,14,15]}}`, "claim", func(t *testing.T, c call) {
			if len(c.numbers) != 3 || c.numbers[1] != 14 {
				t.Errorf("Unexpected numbers %v", c.numbers)
			}
		}},
		{"Claim array", `{"type":"claim-win","payload":[7]}`, "claim", func(t *testing.T, c call) {
			if len(c.numbers) != 1 || c.numbers[0] != 7 {
				t.Errorf("Unexpected numbers %v", c.numbers)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.frame)); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			got := hub.wait(t)
			if got.name != tt.want {
				t.Fatalf("Expected %s, got %s", tt.want, got.name)
			}
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}
}

func TestReadPumpErrors(t *testing.T) {
	hub := newRecordingHub()
	conn, _ := dial(t, hub)

	tests := []struct {
		name     string
		frame    string
		code     string
		reEnable bool
	}{
		{"Not JSON", `hello`, errors.ErrorInvalidMessage, false},
		{"Unknown type", `{"type":"shout"}`, errors.ErrorUnknownMessageType, false},
		{"Bad join payload", `{"type":"join-room","payload":"Ana"}`, errors.ErrorInvalidPayload, false},
		{"Bad claim payload", `{"type":"claim-win","payload":"bingo"}`, errors.ErrorInvalidPayload, true},
		{"Claim with string numbers", `{"type":"claim-win","payload":{"claimedNumbers":["7"]}}`, errors.ErrorInvalidPayload, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.frame)); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			notice := readNotice(t, conn)
			if notice.Type != models.TypeTimerNotice || notice.Code != tt.code {
				t.Errorf("Expected %s notice, got %+v", tt.code, notice)
			}
			if notice.ReEnableControls != tt.reEnable {
				t.Errorf("Expected reEnableControls=%v, got %v", tt.reEnable, notice.ReEnableControls)
			}
		})
	}
}

func TestWritePumpAndDisconnect(t *testing.T) {
	hub := newRecordingHub()
	conn, clients := dial(t, hub)
	c := <-clients

	msg, _ := json.Marshal(models.BaseMessage{Type: models.TypeDrawPaused})
	c.Send <- msg

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got models.BaseMessage
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.Type != models.TypeDrawPaused {
		t.Errorf("Expected %s, got %s", models.TypeDrawPaused, got.Type)
	}

	conn.Close()
	if call := hub.wait(t); call.name != "unregister" {
		t.Errorf("Expected unregister on disconnect, got %s", call.name)
	}
}
