package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"nvivas/backend/bingo-go-server/internal/errors"
	"nvivas/backend/bingo-go-server/internal/interfaces"
	"nvivas/backend/bingo-go-server/internal/logger"
	"nvivas/backend/bingo-go-server/pkg/models"
)

const (
	// Tiempo permitido para escribir un mensaje
	writeWait = 10 * time.Second

	// Tiempo máximo sin recibir pong
	pongWait = 60 * time.Second

	// Intervalo de ping, debe ser menor que pongWait
	pingPeriod = 50 * time.Second

	// Límite de tamaño de mensaje
	maxMessageSize = 4096

	sendBufferSize = 256
)

// Client representa una conexión de cliente WebSocket
type Client struct {
	ID   string
	Hub  interfaces.Hub
	Conn *websocket.Conn
	Send chan []byte

	ctx context.Context
}

// NewClient crea un cliente para una conexión ya actualizada
func NewClient(id string, hub interfaces.Hub, conn *websocket.Conn, ctx context.Context) *Client {
	return &Client{
		ID:   id,
		Hub:  hub,
		Conn: conn,
		Send: make(chan []byte, sendBufferSize),
		ctx:  ctx,
	}
}

// GetID implements interfaces.Client
func (c *Client) GetID() string {
	return c.ID
}

// GetSendChannel implements interfaces.Client
func (c *Client) GetSendChannel() chan []byte {
	return c.Send
}

// ReadPump maneja la lectura de mensajes desde el WebSocket. The hub
// closes Send once it processes the unregister queued on exit.
func (c *Client) ReadPump() {
	defer func() {
		if c.Hub != nil {
			c.Hub.UnregisterClient(c)
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				logger.Warn("Unexpected websocket close", logger.Fields{
					"clientID": c.ID,
					"error":    err.Error(),
				})
			}
			return
		}

		if c.ctx != nil && c.ctx.Err() != nil {
			return
		}

		c.dispatch(message)
	}
}

// dispatch decodes one frame and forwards it to the hub.
func (c *Client) dispatch(message []byte) {
	var envelope models.Envelope
	if err := json.Unmarshal(message, &envelope); err != nil {
		logger.Debug("Failed to decode message", logger.Fields{
			"clientID": c.ID,
			"error":    err.Error(),
		})
		errors.InvalidMessage(c.Send, c.ID)
		return
	}

	if c.Hub == nil {
		errors.Internal(c.Send, c.ID)
		return
	}

	switch envelope.Type {
	case models.TypeJoinRoom:
		var payload models.JoinRoomPayload
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			errors.InvalidPayload(c.Send, "join-room", c.ID)
			return
		}
		c.Hub.JoinRoom(c, payload)

	case models.TypeLeaveRoom:
		c.Hub.LeaveRoom(c)

	case models.TypeStartDraw:
		c.Hub.StartDraw(c)

	case models.TypePauseDraw:
		c.Hub.PauseDraw(c)

	case models.TypeResumeDraw:
		c.Hub.ResumeDraw(c)

	case models.TypeClaimWin:
		numbers, err := decodeClaim(envelope.Payload)
		if err != nil {
			errors.InvalidClaimPayload(c.Send, c.ID)
			return
		}
		c.Hub.ClaimWin(c, numbers)

	default:
		errors.UnknownMessageType(c.Send, envelope.Type, c.ID)
	}
}

// decodeClaim accepts {"claimedNumbers": [...]} or a bare array of numbers.
func decodeClaim(raw json.RawMessage) ([]int, error) {
	var payload models.ClaimWinPayload
	if err := json.Unmarshal(raw, &payload); err == nil {
		return payload.ClaimedNumbers, nil
	}

	var numbers []int
	if err := json.Unmarshal(raw, &numbers); err != nil {
		return nil, err
	}
	return numbers, nil
}

// WritePump maneja el envío de mensajes al WebSocket
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// El canal Send está cerrado
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
