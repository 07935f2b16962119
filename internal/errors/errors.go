package errors

import (
	"encoding/json"
	stderrors "errors"

	"nvivas/backend/bingo-go-server/internal/logger"
	"nvivas/backend/bingo-go-server/pkg/models"
)

// Error types
const (
	ErrorRoomFull           = "ERROR_ROOM_FULL"
	ErrorInvalidClaim       = "ERROR_INVALID_CLAIM"
	ErrorGameNotRunning     = "ERROR_GAME_NOT_RUNNING"
	ErrorInvalidMessage     = "ERROR_INVALID_MESSAGE"
	ErrorInvalidPayload     = "ERROR_INVALID_PAYLOAD"
	ErrorInternal           = "ERROR_INTERNAL"
	ErrorUnknownMessageType = "ERROR_UNKNOWN_MESSAGE_TYPE"
)

// Sentinel errors returned by the room and game packages.
var (
	ErrNotHost           = stderrors.New("only the host can control the draw")
	ErrRoomNotFound      = stderrors.New("room not found")
	ErrNotInRoom         = stderrors.New("player is not in a room")
	ErrRoomFull          = stderrors.New("room is full")
	ErrInvalidClaim      = stderrors.New("claim contains numbers that were not drawn")
	ErrEmptyClaim        = stderrors.New("claim is empty")
	ErrPoolExhausted     = stderrors.New("all numbers have been drawn")
	ErrTimerActive       = stderrors.New("draw timer already running")
	ErrInvalidTransition = stderrors.New("invalid phase transition")
	ErrGameNotRunning    = stderrors.New("no draw in progress")
	ErrOutOfRange        = stderrors.New("number out of range")
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// Send delivers an already encoded message without blocking. It reports
// false when the channel is full.
func Send(channel chan []byte, msg []byte) bool {
	select {
	case channel <- msg:
		return true
	default:
		return false
	}
}

// SendNotice sends a timer-notice to a single client
func SendNotice(channel chan []byte, notice models.TimerNoticeResponse, clientID string) {
	notice.Type = models.TypeTimerNotice

	msgBytes, err := json.Marshal(notice)
	if err != nil {
		logger.Error("Failed to marshal notice", logger.Fields{
			"error":     err.Error(),
			"errorType": notice.Code,
			"clientID":  clientID,
		})
		return
	}

	if !Send(channel, msgBytes) {
		logger.Warn("Could not deliver notice, channel full", logger.Fields{
			"errorType": notice.Code,
			"clientID":  clientID,
		})
	}
}

// SendError sends a structured error notice to the client
func SendError(channel chan []byte, errorType, message string, clientID string) {
	logger.Warn(message, logger.Fields{
		"errorType": errorType,
		"clientID":  clientID,
	})

	SendNotice(channel, models.TimerNoticeResponse{
		Message: message,
		Code:    errorType,
	}, clientID)
}

// InvalidClaim tells the claimant the bingo was rejected and that the game goes on
func InvalidClaim(channel chan []byte, reason string, clientID string) {
	logger.Info("Claim rejected", logger.Fields{
		"clientID": clientID,
		"reason":   reason,
	})

	SendNotice(channel, models.TimerNoticeResponse{
		Message:          "ERROR! The Bingo is not valid (" + reason + "). Check your card and keep playing.",
		Code:             ErrorInvalidClaim,
		ReEnableControls: true,
	}, clientID)
}

// InvalidClaimPayload rejects a claim-win frame that could not be decoded.
// The claimant's controls are re-enabled like any other rejected claim.
func InvalidClaimPayload(channel chan []byte, clientID string) {
	SendNotice(channel, models.TimerNoticeResponse{
		Message:          "Invalid payload for claim-win. Check your card and try again.",
		Code:             ErrorInvalidPayload,
		ReEnableControls: true,
	}, clientID)
}

// RoomFull creates a room full error
func RoomFull(channel chan []byte, clientID string) {
	SendError(channel, ErrorRoomFull, "The room is already full", clientID)
}

// GameNotRunning tells a claimant that there is no draw to claim against
func GameNotRunning(channel chan []byte, clientID string) {
	SendNotice(channel, models.TimerNoticeResponse{
		Message:          "There is no draw in progress",
		Code:             ErrorGameNotRunning,
		ReEnableControls: true,
	}, clientID)
}

// InvalidMessage creates an invalid message error
func InvalidMessage(channel chan []byte, clientID string) {
	SendError(channel, ErrorInvalidMessage, "Invalid message format", clientID)
}

// InvalidPayload creates an invalid payload error
func InvalidPayload(channel chan []byte, context string, clientID string) {
	SendError(channel, ErrorInvalidPayload, "Invalid data: "+context, clientID)
}

// Internal creates an internal error
func Internal(channel chan []byte, clientID string) {
	SendError(channel, ErrorInternal, "Internal server error", clientID)
}

// UnknownMessageType creates an unknown message type error
func UnknownMessageType(channel chan []byte, msgType string, clientID string) {
	SendError(channel, ErrorUnknownMessageType, "Unknown message type: "+msgType, clientID)
}
