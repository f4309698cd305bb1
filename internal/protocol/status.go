package protocol

import (
	"encoding/json"
	"fmt"
)

// RobotPose is the display view of the robot. X and Y are 1-indexed
// column and row.
type RobotPose struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Direction string `json:"direction"`
}

// MapState carries the two hex map descriptors. Length is the number of
// bits in the obstacle descriptor.
type MapState struct {
	Explored string `json:"explored"`
	Obstacle string `json:"obstacle"`
	Length   int    `json:"length"`
}

// StatusMessage is the snapshot pushed to the display after a sense pass.
type StatusMessage struct {
	Robot    []RobotPose `json:"robot"`
	Map      []MapState  `json:"map"`
	Session  string      `json:"session,omitempty"`
	Tick     int         `json:"tick,omitempty"`
	Coverage float64     `json:"coverage,omitempty"`
}

// EncodeStatus renders msg as a display-bound line.
func EncodeStatus(msg StatusMessage) (string, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encode status: %w", err)
	}
	return DisplayPrefix + string(b), nil
}

// DecodeStatus parses a status line with or without its display prefix.
func DecodeStatus(line string) (StatusMessage, error) {
	prefix, body := SplitPrefix(line)
	if prefix != DisplayPrefix {
		body = prefix + body
	}
	var msg StatusMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return StatusMessage{}, fmt.Errorf("decode status: %w", err)
	}
	return msg, nil
}
