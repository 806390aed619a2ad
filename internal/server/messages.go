package server

import (
	"encoding/json"
	"time"

	"github.com/crewlink/crewchat/internal/types"
)

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}

func readyFrame() []byte {
	b, _ := json.Marshal(types.ReadyFrame{Ready: true})
	return b
}

func errorFrame(msg string) []byte {
	b, _ := json.Marshal(types.ErrorFrame{Error: msg})
	return b
}

func messageFrame(msg types.Message) ([]byte, error) {
	return json.Marshal(msg)
}
