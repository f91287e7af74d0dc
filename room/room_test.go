package room

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"chessmatch-server/registry"
	"chessmatch-server/storage"
)

func newTestRoom(tc string) *Room {
	reg := registry.New()
	return newRoom("ROOM01", tc, storage.NullStore{}, reg, 300_000, 100, slog.Default(), nil)
}

// waitForMessage reads and decodes one {type,payload} frame, failing the
// test if none arrives within timeout. The payload's fields are merged
// into the returned map alongside "type", so assertions can read
// msg["color"] directly instead of drilling into msg["payload"].
func waitForMessage(t *testing.T, ch chan []byte, timeout time.Duration) map[string]any {
	t.Helper()
	select {
	case data := <-ch:
		var envelope struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		m := make(map[string]any, len(envelope.Payload)+1)
		for k, v := range envelope.Payload {
			m[k] = v
		}
		m["type"] = envelope.Type
		return m
	case <-time.After(timeout):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestJoinTransitionsWaitingToPlaying(t *testing.T) {
	r := newTestRoom("5+0")
	whiteSend := make(chan []byte, 8)
	blackSend := make(chan []byte, 8)
	r.Slots[0] = &Slot{Session: "A", Name: "Alice", Send: whiteSend, Connected: true}
	go r.Run()

	r.Actions <- Action{Type: ActionJoin, Session: "B", Name: "Bob", Send: blackSend}

	w := waitForMessage(t, whiteSend, time.Second)
	if w["type"] != "game_start" || w["color"] != "w" {
		t.Fatalf("unexpected white message: %+v", w)
	}
	b := waitForMessage(t, blackSend, time.Second)
	if b["type"] != "game_start" || b["color"] != "b" {
		t.Fatalf("unexpected black message: %+v", b)
	}
	if r.Status != StatusPlaying {
		t.Fatalf("expected status playing, got %v", r.Status)
	}
}

func TestJoinRejectsWhenNotWaiting(t *testing.T) {
	r := newTestRoom("5+0")
	whiteSend := make(chan []byte, 8)
	blackSend := make(chan []byte, 8)
	r.Slots[0] = &Slot{Session: "A", Send: whiteSend, Connected: true}
	r.Slots[1] = &Slot{Session: "B", Send: blackSend, Connected: true}
	r.Status = StatusPlaying
	go r.Run()

	lateSend := make(chan []byte, 8)
	r.Actions <- Action{Type: ActionJoin, Session: "C", Send: lateSend}

	msg := waitForMessage(t, lateSend, time.Second)
	if msg["type"] != "error" || msg["message"] != "Room is not accepting players" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestMoveHappyPathFirstMoveNoDeduction(t *testing.T) {
	r := newTestRoom("5+0")
	whiteSend := make(chan []byte, 8)
	blackSend := make(chan []byte, 8)
	r.Slots[0] = &Slot{Session: "A", Send: whiteSend, Connected: true}
	r.Slots[1] = &Slot{Session: "B", Send: blackSend, Connected: true}
	r.Status = StatusPlaying
	r.Clocks.LastMoveAt = nowMillis()
	go r.Run()

	r.Actions <- Action{Type: ActionMove, Session: "A", SAN: "e4"}

	msg := waitForMessage(t, blackSend, time.Second)
	if msg["type"] != "move" || msg["san"] != "e4" {
		t.Fatalf("unexpected move message: %+v", msg)
	}
	wantFEN := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
	if msg["fen"] != wantFEN {
		t.Fatalf("fen = %v, want %v", msg["fen"], wantFEN)
	}
	clocks := msg["clocks"].(map[string]any)
	if clocks["w"] != float64(300_000) || clocks["b"] != float64(300_000) {
		t.Fatalf("expected unchanged clocks on first move, got %+v", clocks)
	}

	ack := waitForMessage(t, whiteSend, time.Second)
	if ack["type"] != "move_ack" {
		t.Fatalf("unexpected ack: %+v", ack)
	}
}

func TestFischerIncrementAppliesAfterEachMove(t *testing.T) {
	r := newTestRoom("1+2")
	whiteSend := make(chan []byte, 8)
	blackSend := make(chan []byte, 8)
	r.Slots[0] = &Slot{Session: "A", Send: whiteSend, Connected: true}
	r.Slots[1] = &Slot{Session: "B", Send: blackSend, Connected: true}
	r.Status = StatusPlaying
	r.Clocks.LastMoveAt = nowMillis()
	go r.Run()

	r.Actions <- Action{Type: ActionMove, Session: "A", SAN: "e4"}
	waitForMessage(t, blackSend, time.Second) // move
	waitForMessage(t, whiteSend, time.Second) // move_ack

	r.Actions <- Action{Type: ActionMove, Session: "B", SAN: "e5"}
	waitForMessage(t, whiteSend, time.Second) // move
	waitForMessage(t, blackSend, time.Second) // move_ack

	// The room is idle between actions here, so it's safe for the test to
	// back-date LastMoveAt directly to simulate 3s passing before white's
	// next move.
	r.Clocks.LastMoveAt = nowMillis() - 3000

	r.Actions <- Action{Type: ActionMove, Session: "A", SAN: "Nf3"}
	msg := waitForMessage(t, blackSend, time.Second)
	clocks := msg["clocks"].(map[string]any)
	wMs := clocks["w"].(float64)
	if wMs > 59000 || wMs < 58900 {
		t.Fatalf("expected white clock ~59000ms (60000-3000+2000), got %v", wMs)
	}
}

func TestFlagFallFinalizesAsTimeout(t *testing.T) {
	r := newTestRoom("5+0")
	whiteSend := make(chan []byte, 8)
	blackSend := make(chan []byte, 8)
	r.Slots[0] = &Slot{Session: "A", Send: whiteSend, Connected: true}
	r.Slots[1] = &Slot{Session: "B", Send: blackSend, Connected: true}
	r.Status = StatusPlaying
	r.Clocks.LastMoveAt = nowMillis()
	go r.Run()

	r.Actions <- Action{Type: ActionMove, Session: "A", SAN: "e4"}
	waitForMessage(t, blackSend, time.Second)
	waitForMessage(t, whiteSend, time.Second)

	r.Actions <- Action{Type: ActionMove, Session: "B", SAN: "e5"}
	waitForMessage(t, whiteSend, time.Second)
	waitForMessage(t, blackSend, time.Second)

	// Starve white's clock and back-date LastMoveAt so white's own next
	// move attempt finds no time left.
	r.Clocks.WMs = 500
	r.Clocks.LastMoveAt = nowMillis() - 2000

	r.Actions <- Action{Type: ActionMove, Session: "A", SAN: "Nf3"}

	end := waitForMessage(t, blackSend, time.Second)
	if end["type"] != "game_end" || end["result"] != "0-1" || end["reason"] != "timeout" {
		t.Fatalf("unexpected game_end: %+v", end)
	}
	waitForMessage(t, whiteSend, time.Second)
}

func TestMoveRejectsOutOfTurn(t *testing.T) {
	r := newTestRoom("5+0")
	whiteSend := make(chan []byte, 8)
	blackSend := make(chan []byte, 8)
	r.Slots[0] = &Slot{Session: "A", Send: whiteSend, Connected: true}
	r.Slots[1] = &Slot{Session: "B", Send: blackSend, Connected: true}
	r.Status = StatusPlaying
	go r.Run()

	r.Actions <- Action{Type: ActionMove, Session: "B", SAN: "e5"}

	msg := waitForMessage(t, blackSend, time.Second)
	if msg["type"] != "error" || msg["message"] != "Not your turn" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestMoveRejectsIllegalSAN(t *testing.T) {
	r := newTestRoom("5+0")
	whiteSend := make(chan []byte, 8)
	blackSend := make(chan []byte, 8)
	r.Slots[0] = &Slot{Session: "A", Send: whiteSend, Connected: true}
	r.Slots[1] = &Slot{Session: "B", Send: blackSend, Connected: true}
	r.Status = StatusPlaying
	go r.Run()

	r.Actions <- Action{Type: ActionMove, Session: "A", SAN: "Qxh8"}

	msg := waitForMessage(t, whiteSend, time.Second)
	if msg["type"] != "error" || msg["message"] != "Invalid move" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestResignFinalizesWithOpponentWinning(t *testing.T) {
	r := newTestRoom("5+0")
	whiteSend := make(chan []byte, 8)
	blackSend := make(chan []byte, 8)
	r.Slots[0] = &Slot{Session: "A", Send: whiteSend, Connected: true}
	r.Slots[1] = &Slot{Session: "B", Send: blackSend, Connected: true}
	r.Status = StatusPlaying
	go r.Run()

	r.Actions <- Action{Type: ActionResign, Session: "A"}

	msg := waitForMessage(t, blackSend, time.Second)
	if msg["type"] != "game_end" || msg["result"] != "0-1" || msg["reason"] != "resignation" {
		t.Fatalf("unexpected game_end: %+v", msg)
	}
	waitForMessage(t, whiteSend, time.Second)
}

func TestDisconnectArmsGraceAndAbandons(t *testing.T) {
	r := newTestRoom("5+0")
	whiteSend := make(chan []byte, 8)
	blackSend := make(chan []byte, 8)
	r.Slots[0] = &Slot{Session: "A", Send: whiteSend, Connected: true}
	r.Slots[1] = &Slot{Session: "B", Send: blackSend, Connected: true}
	r.Status = StatusPlaying
	r.graceMS = 20
	go r.Run()

	r.Actions <- Action{Type: ActionDisconnect, Session: "B"}

	notice := waitForMessage(t, whiteSend, time.Second)
	if notice["type"] != "opponent_disconnected" {
		t.Fatalf("unexpected notice: %+v", notice)
	}
	end := waitForMessage(t, whiteSend, time.Second)
	if end["type"] != "game_end" || end["result"] != "1-0" || end["reason"] != "abandoned" {
		t.Fatalf("unexpected game_end: %+v", end)
	}
}

func TestReconnectRestoresStateAndCancelsGrace(t *testing.T) {
	r := newTestRoom("5+0")
	whiteSend := make(chan []byte, 8)
	blackSend := make(chan []byte, 8)
	r.Slots[0] = &Slot{Session: "A", Send: whiteSend, Connected: true}
	r.Slots[1] = &Slot{Session: "B", Send: blackSend, Connected: true}
	r.Status = StatusPlaying
	r.graceMS = 200
	go r.Run()

	r.Actions <- Action{Type: ActionMove, Session: "A", SAN: "e4"}
	waitForMessage(t, blackSend, time.Second) // move
	waitForMessage(t, whiteSend, time.Second) // move_ack

	r.Actions <- Action{Type: ActionDisconnect, Session: "B"}
	waitForMessage(t, whiteSend, time.Second) // opponent_disconnected

	newBlackSend := make(chan []byte, 8)
	r.Actions <- Action{Type: ActionReconnect, Session: "B", Send: newBlackSend}

	reconnect := waitForMessage(t, newBlackSend, time.Second)
	if reconnect["type"] != "reconnect" || reconnect["color"] != "b" {
		t.Fatalf("unexpected reconnect frame: %+v", reconnect)
	}
	moves, ok := reconnect["moves"].([]any)
	if !ok || len(moves) != 1 || moves[0] != "e4" {
		t.Fatalf("expected moves [e4], got %+v", reconnect["moves"])
	}

	opponentNotice := waitForMessage(t, whiteSend, time.Second)
	if opponentNotice["type"] != "opponent_reconnected" {
		t.Fatalf("unexpected notice: %+v", opponentNotice)
	}

	// A disconnect-grace finalize should not fire once reconnected.
	select {
	case data := <-whiteSend:
		t.Fatalf("unexpected extra message after reconnect: %s", data)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestDrawOfferAndAgreement(t *testing.T) {
	r := newTestRoom("5+0")
	whiteSend := make(chan []byte, 8)
	blackSend := make(chan []byte, 8)
	r.Slots[0] = &Slot{Session: "A", Send: whiteSend, Connected: true}
	r.Slots[1] = &Slot{Session: "B", Send: blackSend, Connected: true}
	r.Status = StatusPlaying
	go r.Run()

	r.Actions <- Action{Type: ActionDrawOffer, Session: "A"}
	offered := waitForMessage(t, blackSend, time.Second)
	if offered["type"] != "draw_offered" {
		t.Fatalf("unexpected message: %+v", offered)
	}

	r.Actions <- Action{Type: ActionDrawRespond, Session: "B", Accept: true}
	endA := waitForMessage(t, whiteSend, time.Second)
	if endA["type"] != "game_end" || endA["result"] != "1/2-1/2" || endA["reason"] != "agreement" {
		t.Fatalf("unexpected game_end: %+v", endA)
	}
}

func TestRematchSwapsColoursAndResetsState(t *testing.T) {
	r := newTestRoom("5+0")
	whiteSend := make(chan []byte, 8)
	blackSend := make(chan []byte, 8)
	r.Slots[0] = &Slot{Session: "A", Send: whiteSend, Connected: true}
	r.Slots[1] = &Slot{Session: "B", Send: blackSend, Connected: true}
	r.Status = StatusPlaying
	go r.Run()

	r.Actions <- Action{Type: ActionResign, Session: "A"}
	waitForMessage(t, blackSend, time.Second)
	waitForMessage(t, whiteSend, time.Second)

	r.Actions <- Action{Type: ActionRematchOffer, Session: "A"}
	waitForMessage(t, blackSend, time.Second)

	r.Actions <- Action{Type: ActionRematchRespond, Session: "B", Accept: true}

	startA := waitForMessage(t, whiteSend, time.Second)
	startB := waitForMessage(t, blackSend, time.Second)
	if startA["type"] != "rematch_start" || startA["color"] != "b" {
		t.Fatalf("expected A to now be black, got %+v", startA)
	}
	if startB["type"] != "rematch_start" || startB["color"] != "w" {
		t.Fatalf("expected B to now be white, got %+v", startB)
	}
	if r.Status != StatusPlaying || len(r.Moves) != 0 {
		t.Fatalf("expected fresh playing room, got status=%v moves=%d", r.Status, len(r.Moves))
	}
}

func TestDisconnectOfSoleWaitingPlayerDestroysRoom(t *testing.T) {
	r := newTestRoom("5+0")
	var calls []string
	r.onCleanup = func(code string) { calls = append(calls, code) }
	whiteSend := make(chan []byte, 8)
	r.Slots[0] = &Slot{Session: "A", Send: whiteSend, Connected: true}
	go r.Run()

	r.Actions <- Action{Type: ActionDisconnect, Session: "A"}

	select {
	case <-r.Done:
	case <-time.After(time.Second):
		t.Fatal("expected Room to shut down")
	}
	if len(calls) != 1 || calls[0] != "ROOM01" {
		t.Fatalf("expected onCleanup(ROOM01), got %+v", calls)
	}
}
