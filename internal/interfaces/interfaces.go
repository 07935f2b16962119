package interfaces

import "nvivas/backend/bingo-go-server/pkg/models"

// Hub defines the interface for hub operations needed by clients.
// Every call only enqueues an event; the hub processes them one at a time.
type Hub interface {
	// RegisterClient tracks a new connection
	RegisterClient(client Client)

	// UnregisterClient removes a client from the hub and from its room
	UnregisterClient(client Client)

	// JoinRoom places the client in a public or private room
	JoinRoom(client Client, payload models.JoinRoomPayload)

	// LeaveRoom removes the client from its current room
	LeaveRoom(client Client)

	// StartDraw starts the automatic draw (host only)
	StartDraw(client Client)

	// PauseDraw pauses the automatic draw (host only)
	PauseDraw(client Client)

	// ResumeDraw resumes a paused draw (host only)
	ResumeDraw(client Client)

	// ClaimWin submits the numbers marked on the client's card
	ClaimWin(client Client, numbers []int)
}

// Client defines the interface for client operations needed by the hub
type Client interface {
	// GetID returns the client's unique identifier
	GetID() string

	// GetSendChannel returns the client's message sending channel
	GetSendChannel() chan []byte
}
