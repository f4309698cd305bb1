// Package protocol defines the line-oriented wire formats spoken with the
// hardware controller, the remote driver and the companion display.
//
// Every message is a single line. Lines bound for the controller start
// with ControllerPrefix and lines bound for the display start with
// DisplayPrefix; the remainder is a run of '|' terminated command tokens,
// a sensor reading line or a JSON status object.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/gridbot/internal/robot"
)

const (
	ControllerPrefix = "A"
	DisplayPrefix    = "B"

	// Terminator ends every command token.
	Terminator = '|'
)

// ErrBadToken is wrapped by errors for tokens that cannot be decoded.
var ErrBadToken = errors.New("bad command token")

var commandLetters = map[robot.Command]byte{
	robot.Forward:     'W',
	robot.Backward:    'S',
	robot.TurnLeft:    'A',
	robot.TurnRight:   'D',
	robot.SendSensors: 'U',
}

// Token is one decoded driver or controller instruction.
type Token struct {
	Cmd   robot.Command
	Steps int
}

func (t Token) String() string {
	return EncodeCommand(t.Cmd, t.Steps)
}

// EncodeCommand renders cmd as a controller token such as "W3|". Steps
// are only written for moves of more than one cell.
func EncodeCommand(cmd robot.Command, steps int) string {
	letter, ok := commandLetters[cmd]
	if !ok {
		return ""
	}
	var sb strings.Builder
	sb.WriteByte(letter)
	if cmd.IsMove() && steps > 1 {
		sb.WriteString(strconv.Itoa(steps))
	}
	sb.WriteByte(Terminator)
	return sb.String()
}

// ParseTokens decodes a run of tokens such as "W3|D|A|X2|U". Both S and X
// are accepted for backward moves. Empty tokens are ignored. Tokens that
// cannot be decoded are reported in the returned error while the valid
// ones are still returned in order.
func ParseTokens(s string) ([]Token, error) {
	var (
		out  []Token
		errs []error
	)
	for _, raw := range strings.Split(strings.TrimSpace(s), string(Terminator)) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		tok, err := parseToken(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, tok)
	}
	return out, errors.Join(errs...)
}

func parseToken(raw string) (Token, error) {
	var cmd robot.Command
	switch strings.ToUpper(raw[:1]) {
	case "W":
		cmd = robot.Forward
	case "S", "X":
		cmd = robot.Backward
	case "A":
		cmd = robot.TurnLeft
	case "D":
		cmd = robot.TurnRight
	case "U":
		cmd = robot.SendSensors
	default:
		return Token{}, fmt.Errorf("%w: %q", ErrBadToken, raw)
	}
	steps := 1
	if len(raw) > 1 {
		if !cmd.IsMove() {
			return Token{}, fmt.Errorf("%w: %q takes no step count", ErrBadToken, raw)
		}
		n, err := strconv.Atoi(raw[1:])
		if err != nil || n < 1 {
			return Token{}, fmt.Errorf("%w: %q has invalid step count", ErrBadToken, raw)
		}
		steps = n
	}
	return Token{Cmd: cmd, Steps: steps}, nil
}

// SplitPrefix separates the one-character routing prefix from a line.
func SplitPrefix(line string) (prefix, body string) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", ""
	}
	return line[:1], line[1:]
}
