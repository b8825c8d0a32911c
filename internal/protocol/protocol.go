// Package protocol defines the JSON messages exchanged over a client connection.
// Inbound frames are decoded once, at the boundary, into one of the Inbound variants.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"midnight-chase/internal/game"
)

var (
	ErrBadJSON     = errors.New("bad json")
	ErrUnknownType = errors.New("unknown message type")
)

// Message type tags
const (
	TypeJoin    = "join"
	TypeInput   = "input"
	TypeRestart = "restart"
	TypeWelcome = "welcome"
	TypeState   = "state"
	TypeError   = "error"
)

// Inbound is implemented by every client->server message.
type Inbound interface {
	inbound()
}

// Join asks to enter (or create) a room.
type Join struct {
	RoomCode string
	Role     string
	Name     string
	Avatar   string
}

// Input replaces the sender's held directions.
type Input struct {
	Keys game.Input
}

// Restart starts a new round in an ended room.
type Restart struct{}

func (Join) inbound()    {}
func (Input) inbound()   {}
func (Restart) inbound() {}

// looseString accepts any JSON scalar and keeps its text form; objects, arrays
// and null decode to the empty string.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		*s = looseString(t)
	case float64:
		*s = looseString(strconv.FormatFloat(t, 'f', -1, 64))
	case bool:
		*s = looseString(strconv.FormatBool(t))
	default:
		*s = ""
	}
	return nil
}

// strictBool is true only for a JSON true; anything else is false.
type strictBool bool

func (b *strictBool) UnmarshalJSON(data []byte) error {
	*b = strictBool(string(data) == "true")
	return nil
}

type wireKeys struct {
	Up    strictBool `json:"up"`
	Down  strictBool `json:"down"`
	Left  strictBool `json:"left"`
	Right strictBool `json:"right"`
}

type envelope struct {
	Type     looseString     `json:"type"`
	RoomCode looseString     `json:"roomCode"`
	Role     looseString     `json:"role"`
	Name     looseString     `json:"name"`
	Avatar   looseString     `json:"avatar"`
	Keys     json.RawMessage `json:"keys"`
}

// Decode parses one inbound frame.
// Returns ErrBadJSON when the frame cannot be parsed at all and ErrUnknownType
// for valid JSON without a recognised type tag, non-object values included.
func Decode(data []byte) (Inbound, error) {
	if !json.Valid(data) {
		return nil, ErrBadJSON
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: not an object", ErrUnknownType)
	}

	switch string(env.Type) {
	case TypeJoin:
		return Join{
			RoomCode: string(env.RoomCode),
			Role:     string(env.Role),
			Name:     string(env.Name),
			Avatar:   string(env.Avatar),
		}, nil
	case TypeInput:
		var keys wireKeys
		// keys that are not an object leave every direction released
		_ = json.Unmarshal(env.Keys, &keys)
		return Input{Keys: game.Input{
			Up:    bool(keys.Up),
			Down:  bool(keys.Down),
			Left:  bool(keys.Left),
			Right: bool(keys.Right),
		}}, nil
	case TypeRestart:
		return Restart{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, string(env.Type))
	}
}

// NormalizeRoomCode uppercases the code and caps it at the maximum length.
func NormalizeRoomCode(code string) string {
	code = strings.ToUpper(code)
	if r := []rune(code); len(r) > game.MaxRoomCodeLength {
		code = string(r[:game.MaxRoomCodeLength])
	}
	return code
}

// Outbound messages

// Welcome is sent once, to the joining connection only.
type Welcome struct {
	Type     string        `json:"type"`
	PlayerID string        `json:"playerId"`
	RoomCode string        `json:"roomCode"`
	State    game.Snapshot `json:"state"`
}

// StateMsg carries the full room snapshot to every member.
type StateMsg struct {
	Type  string        `json:"type"`
	State game.Snapshot `json:"state"`
}

// Error is sent only to the offending connection.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewWelcome(playerID, roomCode string, snap game.Snapshot) Welcome {
	return Welcome{Type: TypeWelcome, PlayerID: playerID, RoomCode: roomCode, State: snap}
}

func NewState(snap game.Snapshot) StateMsg {
	return StateMsg{Type: TypeState, State: snap}
}

func NewError(message string) Error {
	return Error{Type: TypeError, Message: message}
}

// Encode marshals an outbound message.
func Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// MustEncode marshals messages whose shape cannot fail to encode.
func MustEncode(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("protocol: encode %T: %v", v, err))
	}
	return data
}
