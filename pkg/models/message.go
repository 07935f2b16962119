package models

import (
	"encoding/json"
)

// Inbound event types
const (
	TypeJoinRoom   = "join-room"
	TypeLeaveRoom  = "leave-room"
	TypeStartDraw  = "start-draw"
	TypePauseDraw  = "pause-draw"
	TypeResumeDraw = "resume-draw"
	TypeClaimWin   = "claim-win"
)

// Outbound event types
const (
	TypeStateSnapshot = "state-snapshot"
	TypeScoreboard    = "scoreboard"
	TypeNumberDrawn   = "number-drawn"
	TypeGameFinished  = "game-finished"
	TypeTimerNotice   = "timer-notice"
	TypeDrawPaused    = "draw-paused"
	TypeDrawResumed   = "draw-resumed"
)

// Room visibility values accepted in join-room
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// BaseMessage is the most basic message structure
type BaseMessage struct {
	Type string `json:"type"`
}

// Envelope is used for initial message deserialization
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// JoinRoomPayload contains data for joining a room
type JoinRoomPayload struct {
	Name       string `json:"name"`
	Visibility string `json:"visibility"`
	RoomID     string `json:"roomId,omitempty"`
}

// ClaimWinPayload carries the numbers a player marked on their card
type ClaimWinPayload struct {
	ClaimedNumbers []int `json:"claimedNumbers"`
}

// StateSnapshotResponse is sent once to a player right after joining
type StateSnapshotResponse struct {
	Type         string `json:"type"`
	RoomID       string `json:"roomId"`
	Visibility   string `json:"visibility"`
	DrawnNumbers []int  `json:"drawnNumbers"`
	LastNumber   int    `json:"lastNumber,omitempty"`
	Paused       bool   `json:"paused"`
	Phase        string `json:"phase"`
	IsHost       bool   `json:"isHost"`
}

// ScoreEntry is one line of the scoreboard
type ScoreEntry struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	IsHost bool   `json:"isHost"`
}

// ScoreboardResponse is broadcast whenever the roster or a win changes
type ScoreboardResponse struct {
	Type    string       `json:"type"`
	Players []ScoreEntry `json:"players"`
}

// NumberDrawnResponse is broadcast once per successful draw
type NumberDrawnResponse struct {
	Type       string `json:"type"`
	Number     int    `json:"number"`
	Letter     string `json:"letter"`
	DrawnSoFar []int  `json:"drawnSoFar"`
}

// GameFinishedResponse is broadcast when the pool runs out or a win is confirmed
type GameFinishedResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Winner  string `json:"winner,omitempty"`
}

// TimerNoticeResponse carries informational text and rejection reasons
type TimerNoticeResponse struct {
	Type             string `json:"type"`
	Message          string `json:"message"`
	Code             string `json:"code,omitempty"`
	ReEnableControls bool   `json:"reEnableControls,omitempty"`
}

// RoomInfo contains information about a room
type RoomInfo struct {
	RoomID     string   `json:"roomId"`
	Visibility string   `json:"visibility"`
	Phase      string   `json:"phase"`
	Players    []string `json:"players"`
	Drawn      int      `json:"drawn"`
	IsFull     bool     `json:"isFull"`
}

// RoomListPayload contains the list of active rooms
type RoomListPayload struct {
	Rooms []RoomInfo `json:"rooms"`
}
