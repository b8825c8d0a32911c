package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"midnight-chase/internal/game"
)

func TestDecodeJoin(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Join
	}{
		{
			"full join",
			`{"type":"join","roomCode":"abc","role":"hunter","name":"Vlad","avatar":"lily"}`,
			Join{RoomCode: "abc", Role: "hunter", Name: "Vlad", Avatar: "lily"},
		},
		{
			"missing fields",
			`{"type":"join"}`,
			Join{},
		},
		{
			"numeric code",
			`{"type":"join","roomCode":1234,"name":null}`,
			Join{RoomCode: "1234"},
		},
		{
			"object fields ignored",
			`{"type":"join","roomCode":"x","name":{"first":"a"},"avatar":[1]}`,
			Join{RoomCode: "x"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode([]byte(tt.raw))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			join, ok := msg.(Join)
			if !ok {
				t.Fatalf("Expected Join, got %T", msg)
			}
			if join != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, join)
			}
		})
	}
}

func TestDecodeInputCoercesKeys(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want game.Input
	}{
		{"all held", `{"type":"input","keys":{"up":true,"down":true,"left":true,"right":true}}`, game.Input{Up: true, Down: true, Left: true, Right: true}},
		{"missing flags", `{"type":"input","keys":{"left":true}}`, game.Input{Left: true}},
		{"non-boolean flags", `{"type":"input","keys":{"up":1,"down":"true","right":true}}`, game.Input{Right: true}},
		{"no keys", `{"type":"input"}`, game.Input{}},
		{"keys not an object", `{"type":"input","keys":"up"}`, game.Input{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode([]byte(tt.raw))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			in, ok := msg.(Input)
			if !ok {
				t.Fatalf("Expected Input, got %T", msg)
			}
			if in.Keys != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, in.Keys)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		raw  string
		want error
	}{
		{`not json`, ErrBadJSON},
		{`{"type":"join"`, ErrBadJSON},
		{`{"type":"dance"}`, ErrUnknownType},
		{`{}`, ErrUnknownType},
		// parseable but not an object
		{`"join"`, ErrUnknownType},
		{`5`, ErrUnknownType},
		{`[]`, ErrUnknownType},
		{`null`, ErrUnknownType},
	}
	for _, tt := range tests {
		if _, err := Decode([]byte(tt.raw)); !errors.Is(err, tt.want) {
			t.Errorf("Decode(%q) error = %v, want %v", tt.raw, err, tt.want)
		}
	}
}

func TestDecodeRestart(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"restart"}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if _, ok := msg.(Restart); !ok {
		t.Errorf("Expected Restart, got %T", msg)
	}
}

func TestNormalizeRoomCode(t *testing.T) {
	tests := map[string]string{
		"abc":       "ABC",
		"abcdefghi": "ABCDEF",
		"":          "",
		"ñandú12":   "ÑANDÚ1",
	}
	for in, want := range tests {
		if got := NormalizeRoomCode(in); got != want {
			t.Errorf("NormalizeRoomCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEncodeOutbound(t *testing.T) {
	snap := game.Snapshot{Status: game.StatusRunning, ClockMinutes: 1200}

	welcome := string(MustEncode(NewWelcome("p_1", "ABC", snap)))
	for _, key := range []string{`"type":"welcome"`, `"playerId":"p_1"`, `"roomCode":"ABC"`, `"status":"running"`} {
		if !strings.Contains(welcome, key) {
			t.Errorf("Expected %s in %s", key, welcome)
		}
	}

	data, err := Encode(NewError("Bad JSON"))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	var errMsg map[string]string
	if err := json.Unmarshal(data, &errMsg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if errMsg["type"] != "error" || errMsg["message"] != "Bad JSON" {
		t.Errorf("Unexpected error frame: %v", errMsg)
	}

	state := string(MustEncode(NewState(snap)))
	if !strings.HasPrefix(state, `{"type":"state","state":{`) {
		t.Errorf("Unexpected state frame: %s", state)
	}
}
