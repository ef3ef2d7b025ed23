/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package relay

import (
	"encoding/json"
	"strconv"
	"testing"
)

type delivery struct {
	to  string
	msg Message
}

// recorder is a Sender that keeps everything it is asked to deliver.
type recorder struct {
	sent []delivery
}

func (r *recorder) Send(connID string, msg Message) {
	r.sent = append(r.sent, delivery{to: connID, msg: msg})
}

func (r *recorder) to(connID string) []Message {
	var out []Message
	for _, d := range r.sent {
		if d.to == connID {
			out = append(out, d.msg)
		}
	}
	return out
}

func (r *recorder) ofType(typ string) []delivery {
	var out []delivery
	for _, d := range r.sent {
		if d.msg.Type == typ {
			out = append(out, d)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.sent = nil
}

func newTestRelay(codes ...int) (*Relay, *recorder) {
	rec := &recorder{}
	dir := NewDirectory()
	if len(codes) > 0 {
		dir = NewDirectoryWithSource(sequence(codes...))
	}
	return New(dir, rec, discard), rec
}

func discard(string, ...any) {}

func mustCreate(t *testing.T, r *Relay, screen string) string {
	t.Helper()
	reply := r.CreateRoom(screen)
	if !reply.Success {
		t.Fatalf("CreateRoom failed: %s", reply.Error)
	}
	return reply.RoomCode
}

func mustJoin(t *testing.T, r *Relay, conn, code, name string) *Player {
	t.Helper()
	reply := r.Join(conn, JoinRequest{RoomCode: code, PlayerName: name})
	if !reply.Success {
		t.Fatalf("Join(%s, %q) failed: %s", conn, name, reply.Error)
	}
	return reply.Player
}

func TestJoinUnknownRoom(t *testing.T) {
	r, rec := newTestRelay()
	code := mustCreate(t, r, "screen")

	other := "1000"
	if code == other {
		other = "1001"
	}

	reply := r.Join("c1", JoinRequest{RoomCode: other, PlayerName: "Ada"})
	if reply.Success || reply.Error != "Room not found" {
		t.Fatalf("Expected Room not found, got %+v", reply)
	}

	info, _ := r.Room(code)
	if len(info.Players) != 0 {
		t.Errorf("Failed join created a player: %+v", info.Players)
	}
	if _, ok := r.Binding("c1"); ok {
		t.Errorf("Failed join bound the connection")
	}
	if len(rec.sent) != 0 {
		t.Errorf("Failed join sent messages: %+v", rec.sent)
	}
}

func TestJoinFullRoom(t *testing.T) {
	r, _ := newTestRelay()
	code := mustCreate(t, r, "screen")

	for i := 1; i <= MaxPlayers; i++ {
		mustJoin(t, r, "c"+strconv.Itoa(i), code, "P"+strconv.Itoa(i))
	}

	reply := r.Join("c9", JoinRequest{RoomCode: code, PlayerName: "Newcomer"})
	if reply.Success || reply.Error != "Room is full" {
		t.Fatalf("Expected Room is full, got %+v", reply)
	}

	// A matching name is a rebind and bypasses capacity.
	reply = r.Join("c9", JoinRequest{RoomCode: code, PlayerName: "P3"})
	if !reply.Success {
		t.Fatalf("Rebind at capacity failed: %s", reply.Error)
	}
	if reply.Player.Number != 3 || reply.Player.ID != "c9" {
		t.Errorf("Unexpected rebound player: %+v", reply.Player)
	}

	info, _ := r.Room(code)
	if len(info.Players) != MaxPlayers {
		t.Errorf("Expected %d players after rebind, got %d", MaxPlayers, len(info.Players))
	}
}

func TestJoinNotifiesScreen(t *testing.T) {
	r, rec := newTestRelay()
	code := mustCreate(t, r, "screen")

	p := mustJoin(t, r, "c1", code, "  Ada  ")
	if p.Name != "Ada" {
		t.Errorf("Expected trimmed name, got %q", p.Name)
	}

	msgs := rec.to("screen")
	if len(msgs) != 1 || msgs[0].Type != TypePlayerJoined {
		t.Fatalf("Expected one player-joined for screen, got %+v", msgs)
	}
	if got := msgs[0].Data.(Player); got != *p {
		t.Errorf("Screen got %+v, controller got %+v", got, *p)
	}
}

func TestRebindKeepsNumberAndRoutesInput(t *testing.T) {
	r, rec := newTestRelay()
	code := mustCreate(t, r, "screen")

	mustJoin(t, r, "bob-1", code, "Bob")
	before := mustJoin(t, r, "ada-1", code, "Ada")
	rec.reset()

	after := mustJoin(t, r, "ada-2", code, "Ada")

	if after.Number != before.Number || after.Color != before.Color {
		t.Fatalf("Rebind changed identity: before %+v after %+v", before, after)
	}
	if after.ID != "ada-2" {
		t.Errorf("Expected rebound id ada-2, got %s", after.ID)
	}
	if len(rec.ofType(TypePlayerJoined)) != 0 {
		t.Errorf("Rebind must not announce a new player")
	}

	info, _ := r.Room(code)
	count := 0
	for _, p := range info.Players {
		if p.Name == "Ada" {
			count++
		}
	}
	if count != 1 || len(info.Players) != 2 {
		t.Fatalf("Expected exactly one Ada among two players, got %+v", info.Players)
	}

	r.Input("ada-2", Input{ButtonA: true})
	inputs := rec.ofType(TypeControllerInput)
	if len(inputs) != 1 {
		t.Fatalf("Expected one forwarded input, got %d", len(inputs))
	}
	tagged := inputs[0].msg.Data.(TaggedInput)
	if inputs[0].to != "screen" || tagged.PlayerNumber != before.Number || tagged.PlayerID != "ada-2" {
		t.Errorf("Unexpected forwarded input %+v to %s", tagged, inputs[0].to)
	}

	// The stale connection is detached.
	rec.reset()
	r.Input("ada-1", Input{ButtonB: true})
	r.Disconnect("ada-1")
	if len(rec.sent) != 0 {
		t.Errorf("Stale connection still routed: %+v", rec.sent)
	}
	info, _ = r.Room(code)
	if len(info.Players) != 2 {
		t.Errorf("Stale disconnect removed a player: %+v", info.Players)
	}
}

func TestRepeatedJoinFromSameConnection(t *testing.T) {
	r, rec := newTestRelay()
	code := mustCreate(t, r, "screen")

	first := mustJoin(t, r, "c1", code, "Ada")
	rec.reset()
	second := mustJoin(t, r, "c1", code, "Ada")

	if *first != *second {
		t.Errorf("Repeated join changed player: %+v vs %+v", first, second)
	}
	if len(rec.sent) != 0 {
		t.Errorf("Repeated join sent messages: %+v", rec.sent)
	}
}

// Two different phones submitting the same name share one slot; the later
// one takes it over. This is the accepted cost of name-based rejoin.
func TestSameNameFromDifferentDevicesHijacksSlot(t *testing.T) {
	r, rec := newTestRelay()
	code := mustCreate(t, r, "screen")

	mustJoin(t, r, "phone-a", code, "Sam")
	rec.reset()
	hijacked := mustJoin(t, r, "phone-b", code, "Sam")

	if hijacked.Number != 1 {
		t.Errorf("Expected phone-b to take slot 1, got %d", hijacked.Number)
	}

	r.Input("phone-a", Input{Up: true})
	if len(rec.ofType(TypeControllerInput)) != 0 {
		t.Errorf("Original device should no longer drive the slot")
	}

	info, _ := r.Room(code)
	if len(info.Players) != 1 {
		t.Errorf("Expected one player, got %+v", info.Players)
	}
}

// A controller that joined without a name resends the name it was given
// when it reconnects, and must land back on its own slot.
func TestRejoinWithDefaultNameKeepsOwnSlot(t *testing.T) {
	r, _ := newTestRelay()
	code := mustCreate(t, r, "screen")

	mustJoin(t, r, "c1", code, "Player 2")
	given := mustJoin(t, r, "c2", code, "")
	if given.Name == "Player 2" {
		t.Fatalf("Default name duplicates an existing one: %+v", given)
	}

	back := mustJoin(t, r, "c3", code, given.Name)
	if back.Number != given.Number {
		t.Errorf("Expected rejoin onto slot %d, got %d", given.Number, back.Number)
	}

	info, _ := r.Room(code)
	if len(info.Players) != 2 || info.Players[0].ID != "c1" {
		t.Errorf("Unexpected roster %+v", info.Players)
	}
}

func TestRenameInFullRoomFreesOwnSlot(t *testing.T) {
	r, rec := newTestRelay()
	code := mustCreate(t, r, "screen")

	for i := 1; i <= MaxPlayers; i++ {
		mustJoin(t, r, "c"+strconv.Itoa(i), code, "P"+strconv.Itoa(i))
	}
	rec.reset()

	renamed := mustJoin(t, r, "c1", code, "Renamed")
	if renamed.Name != "Renamed" || renamed.ID != "c1" {
		t.Errorf("Unexpected renamed player %+v", renamed)
	}

	screen := rec.to("screen")
	if len(screen) != 2 || screen[0].Type != TypePlayerLeft || screen[1].Type != TypePlayerJoined {
		t.Fatalf("Expected player-left then player-joined, got %+v", screen)
	}

	info, _ := r.Room(code)
	if len(info.Players) != MaxPlayers {
		t.Errorf("Expected %d players, got %d", MaxPlayers, len(info.Players))
	}
	if info.Players[0].Name != "P2" {
		t.Errorf("Expected old slot to be gone, got %+v", info.Players[0])
	}
}

func TestJoinMovesPlayerBetweenRooms(t *testing.T) {
	r, rec := newTestRelay(1, 2)
	first := mustCreate(t, r, "screen-1")
	second := mustCreate(t, r, "screen-2")

	mustJoin(t, r, "c1", first, "Ada")
	rec.reset()
	mustJoin(t, r, "c1", second, "Ada")

	left := rec.ofType(TypePlayerLeft)
	if len(left) != 1 || left[0].to != "screen-1" {
		t.Fatalf("Expected player-left to first screen, got %+v", left)
	}
	if info, _ := r.Room(first); len(info.Players) != 0 {
		t.Errorf("Player still in first room: %+v", info.Players)
	}
	if b, _ := r.Binding("c1"); b.RoomCode != second {
		t.Errorf("Expected binding to %s, got %+v", second, b)
	}
}

func TestScreenCannotJoin(t *testing.T) {
	r, _ := newTestRelay()
	code := mustCreate(t, r, "screen")

	reply := r.Join("screen", JoinRequest{RoomCode: code, PlayerName: "Me"})
	if reply.Success || reply.Error != ErrorMessage(ErrScreenCannotJoin) {
		t.Fatalf("Expected screen join to fail, got %+v", reply)
	}
	if _, ok := r.Room(code); !ok {
		t.Errorf("Room closed by rejected join")
	}
}

func TestInputIsForwardedWithoutDeduplication(t *testing.T) {
	r, rec := newTestRelay()
	code := mustCreate(t, r, "screen")
	mustJoin(t, r, "c1", code, "Ada")
	rec.reset()

	in := Input{JoystickX: 0.5, JoystickY: -0.25, Left: true}
	r.Input("c1", in)
	r.Input("c1", in)

	msgs := rec.to("screen")
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 forwarded inputs, got %d", len(msgs))
	}
	if msgs[0].Data != msgs[1].Data {
		t.Errorf("Forwarded inputs differ: %+v vs %+v", msgs[0].Data, msgs[1].Data)
	}
}

func TestInputFromUnboundOrScreenIsDropped(t *testing.T) {
	r, rec := newTestRelay()
	mustCreate(t, r, "screen")
	rec.reset()

	r.Input("stranger", Input{Up: true})
	r.Input("screen", Input{Up: true})

	if len(rec.sent) != 0 {
		t.Errorf("Expected no deliveries, got %+v", rec.sent)
	}
}

func TestLifecycleCommandsRequireScreen(t *testing.T) {
	r, rec := newTestRelay()
	code := mustCreate(t, r, "screen")
	mustJoin(t, r, "c1", code, "Ada")
	rec.reset()

	r.StartGame("c1", "pong")
	r.GameState("c1", json.RawMessage(`{"type":"x"}`))
	r.EndGame("c1")
	r.StartGame("stranger", "pong")

	if len(rec.sent) != 0 {
		t.Errorf("Non-screen commands were relayed: %+v", rec.sent)
	}
	if info, _ := r.Room(code); info.ActiveGame != "" {
		t.Errorf("Non-screen command set active game %q", info.ActiveGame)
	}
}

func TestStartGameIgnoresEmptyID(t *testing.T) {
	r, rec := newTestRelay()
	mustCreate(t, r, "screen")
	rec.reset()

	r.StartGame("screen", "")
	if len(rec.sent) != 0 {
		t.Errorf("Empty game id was relayed: %+v", rec.sent)
	}
}

func TestGameStateGoesToPlayersOnly(t *testing.T) {
	r, rec := newTestRelay()
	code := mustCreate(t, r, "screen")
	mustJoin(t, r, "c1", code, "Ada")
	mustJoin(t, r, "c2", code, "Bob")
	rec.reset()

	state := json.RawMessage(`{"type":"player-accepted","playerId":"c1"}`)
	r.GameState("screen", state)

	if len(rec.to("screen")) != 0 {
		t.Errorf("Screen received its own game-state")
	}
	for _, c := range []string{"c1", "c2"} {
		msgs := rec.to(c)
		if len(msgs) != 1 || msgs[0].Type != TypeGameState {
			t.Fatalf("%s: expected one game-state, got %+v", c, msgs)
		}
		if string(msgs[0].Data.(GameState)) != string(state) {
			t.Errorf("%s: state was altered: %s", c, msgs[0].Data)
		}
	}
}

func TestScreenDisconnectClosesRoom(t *testing.T) {
	const k = 5
	r, rec := newTestRelay(3821)
	code := mustCreate(t, r, "screen")
	for i := 1; i <= k; i++ {
		mustJoin(t, r, "c"+strconv.Itoa(i), code, "P"+strconv.Itoa(i))
	}
	rec.reset()

	r.Disconnect("screen")

	closed := rec.ofType(TypeRoomClosed)
	if len(closed) != k {
		t.Fatalf("Expected %d room-closed, got %d", k, len(closed))
	}
	for _, d := range closed {
		if d.to == "screen" {
			t.Errorf("Screen was sent room-closed")
		}
	}
	if _, ok := r.Room(code); ok {
		t.Fatalf("Room %s still open", code)
	}
	for i := 1; i <= k; i++ {
		if _, ok := r.Binding("c" + strconv.Itoa(i)); ok {
			t.Errorf("Player c%d still bound", i)
		}
	}

	// Later disconnects of the detached players are harmless.
	rec.reset()
	r.Disconnect("c1")
	if len(rec.sent) != 0 {
		t.Errorf("Disconnect after close sent %+v", rec.sent)
	}

	if again := mustCreate(t, r, "screen-2"); again != code {
		t.Errorf("Expected code %s to be reusable, got %s", code, again)
	}
}

func TestPlayerDisconnectKeepsRoom(t *testing.T) {
	r, rec := newTestRelay()
	code := mustCreate(t, r, "screen")
	mustJoin(t, r, "c1", code, "Ada")
	mustJoin(t, r, "c2", code, "Bob")
	r.StartGame("screen", "snake")
	rec.reset()

	r.Disconnect("c1")
	r.Disconnect("c1")

	left := rec.ofType(TypePlayerLeft)
	if len(left) != 1 || left[0].to != "screen" {
		t.Fatalf("Expected one player-left to screen, got %+v", left)
	}
	if pl := left[0].msg.Data.(PlayerLeft); pl.PlayerID != "c1" || pl.PlayerNumber != 1 {
		t.Errorf("Unexpected player-left payload %+v", pl)
	}

	info, ok := r.Room(code)
	if !ok {
		t.Fatalf("Room closed by player disconnect")
	}
	if info.ActiveGame != "snake" {
		t.Errorf("Expected active game snake, got %q", info.ActiveGame)
	}
	if len(info.Players) != 1 || info.Players[0].Name != "Bob" {
		t.Errorf("Unexpected roster %+v", info.Players)
	}
}

func TestCreateRoomReleasesPreviousBinding(t *testing.T) {
	r, rec := newTestRelay(1, 2, 3)
	first := mustCreate(t, r, "screen")
	mustJoin(t, r, "c1", first, "Ada")
	rec.reset()

	second := mustCreate(t, r, "screen")
	if _, ok := r.Room(first); ok {
		t.Errorf("Previous room %s left open", first)
	}
	if len(rec.ofType(TypeRoomClosed)) != 1 {
		t.Errorf("Expected previous room's player to be told it closed")
	}

	mustJoin(t, r, "c2", second, "Bob")
	rec.reset()
	mustCreate(t, r, "c2")
	if left := rec.ofType(TypePlayerLeft); len(left) != 1 || left[0].to != "screen" {
		t.Errorf("Expected player-left when a player creates a room, got %+v", left)
	}
	if r.Rooms() != 2 {
		t.Errorf("Expected 2 open rooms, got %d", r.Rooms())
	}
}

func TestEndToEndScenario(t *testing.T) {
	r, rec := newTestRelay(3821)

	code := mustCreate(t, r, "screen")
	if code != "4821" {
		t.Fatalf("Expected code 4821, got %s", code)
	}

	reply := r.Join("A", JoinRequest{RoomCode: code, PlayerName: "Zeynep"})
	if !reply.Success || reply.ActiveGame != "" {
		t.Fatalf("Unexpected join reply %+v", reply)
	}
	if reply.Player.Number != 1 || reply.Player.Color != "#FF6B6B" || reply.Player.Name != "Zeynep" {
		t.Errorf("Unexpected player A %+v", reply.Player)
	}
	if joined := rec.to("screen"); len(joined) != 1 || joined[0].Data.(Player) != *reply.Player {
		t.Errorf("Screen roster update mismatch: %+v", joined)
	}

	b := mustJoin(t, r, "B", code, "Mert")
	if b.Number != 2 || b.Color != "#4ECDC4" {
		t.Errorf("Unexpected player B %+v", b)
	}

	rec.reset()
	r.StartGame("screen", "pong")
	for _, c := range []string{"A", "B", "screen"} {
		msgs := rec.to(c)
		if len(msgs) != 1 || msgs[0].Type != TypeGameStarted || msgs[0].Data != "pong" {
			t.Errorf("%s: expected game-started pong, got %+v", c, msgs)
		}
	}

	rec.reset()
	r.Input("A", Input{JoystickY: -0.8})
	msgs := rec.to("screen")
	if len(msgs) != 1 {
		t.Fatalf("Expected one input at screen, got %+v", msgs)
	}
	if in := msgs[0].Data.(TaggedInput); in.PlayerNumber != 1 || in.JoystickY != -0.8 {
		t.Errorf("Unexpected tagged input %+v", in)
	}

	rec.reset()
	r.EndGame("screen")
	for _, c := range []string{"A", "B"} {
		if msgs := rec.to(c); len(msgs) != 1 || msgs[0].Type != TypeGameEnded {
			t.Errorf("%s: expected game-ended, got %+v", c, msgs)
		}
	}

	rec.reset()
	r.Disconnect("screen")
	for _, c := range []string{"A", "B"} {
		if msgs := rec.to(c); len(msgs) != 1 || msgs[0].Type != TypeRoomClosed {
			t.Errorf("%s: expected room-closed, got %+v", c, msgs)
		}
	}

	if again := mustCreate(t, r, "screen-2"); again != "4821" {
		t.Errorf("Expected code 4821 to be reused, got %s", again)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrRoomNotFound, "Room not found"},
		{ErrRoomFull, "Room is full"},
		{ErrRoomSpaceExhausted, "No room codes available"},
		{ErrMalformedRequest, "Malformed request"},
		{json.Unmarshal([]byte("{"), &struct{}{}), "Internal error"},
	}

	for _, tt := range tests {
		if got := ErrorMessage(tt.err); got != tt.want {
			t.Errorf("ErrorMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
