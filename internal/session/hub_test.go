package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/emna-bh/EchecGame/internal/domain"
	"github.com/emna-bh/EchecGame/internal/pvp"
	"github.com/emna-bh/EchecGame/internal/pvpchess"
	"github.com/emna-bh/EchecGame/pkg/chessdto"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []chessdto.Event
}

func (f *fakeConn) Send(_ context.Context, msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	var ev chessdto.Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return err
	}
	f.mu.Lock()
	f.frames = append(f.frames, ev)
	f.mu.Unlock()
	return nil
}

// take returns and clears the recorded frames.
func (f *fakeConn) take() []chessdto.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.frames
	f.frames = nil
	return out
}

func (f *fakeConn) last(t *testing.T) chessdto.Event {
	t.Helper()
	frames := f.take()
	if len(frames) == 0 {
		t.Fatalf("expected a frame, got none")
	}
	return frames[len(frames)-1]
}

type staticResolver map[string]domain.Identity

func (r staticResolver) ResolveUser(_ context.Context, token string) (*domain.Identity, error) {
	id, ok := r[token]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

type fixture struct {
	hub   *Hub
	store pvpchess.Store
	alice *Client
	bob   *Client
	ac    *fakeConn
	bc    *fakeConn
}

func newFixture(t *testing.T, store pvpchess.Store, coin pvp.Coin) *fixture {
	t.Helper()
	if store == nil {
		store = pvpchess.NewMemoryStore()
	}
	hub, err := NewHub(Options{
		Auth:  staticResolver{},
		Store: store,
		Coin:  coin,
	})
	if err != nil {
		t.Fatalf("new hub: %v", err)
	}
	ctx := context.Background()
	f := &fixture{hub: hub, store: store, ac: &fakeConn{}, bc: &fakeConn{}}
	f.alice = hub.Attach(ctx, domain.Identity{ID: 1, Username: "alice"}, f.ac)
	f.bob = hub.Attach(ctx, domain.Identity{ID: 2, Username: "bob"}, f.bc)
	f.ac.take()
	f.bc.take()
	return f
}

func (f *fixture) send(c *Client, raw string) {
	f.hub.Handle(context.Background(), c, []byte(raw))
}

// startGame plays an accepted invite with alice as inviter. FixedCoin(false)
// keeps the inviter on white.
func (f *fixture) startGame(t *testing.T) int64 {
	t.Helper()
	f.send(f.alice, `{"type":"invite","toUserId":2}`)
	f.send(f.bob, `{"type":"invite_response","fromUserId":1,"accepted":true}`)
	start := f.ac.last(t)
	f.bc.take()
	if start.Type != chessdto.TypeGameStart {
		t.Fatalf("expected game_start, got %+v", start)
	}
	return start.GameID
}

func TestAttachBroadcastsOnlineUsers(t *testing.T) {
	hub, err := NewHub(Options{Auth: staticResolver{}, Store: pvpchess.NewMemoryStore()})
	if err != nil {
		t.Fatalf("new hub: %v", err)
	}
	ctx := context.Background()
	ac, bc := &fakeConn{}, &fakeConn{}
	hub.Attach(ctx, domain.Identity{ID: 1, Username: "alice"}, ac)
	first := ac.last(t)
	if first.Type != chessdto.TypeOnlineUsers || len(first.Users) != 1 {
		t.Fatalf("unexpected first frame: %+v", first)
	}

	bob := hub.Attach(ctx, domain.Identity{ID: 2, Username: "bob"}, bc)
	if got := ac.last(t); len(got.Users) != 2 || got.Users[1].Username != "bob" {
		t.Fatalf("alice should see both users: %+v", got.Users)
	}
	if got := bc.last(t); len(got.Users) != 2 {
		t.Fatalf("bob should see both users: %+v", got.Users)
	}

	hub.Detach(ctx, bob)
	if got := ac.last(t); len(got.Users) != 1 || got.Users[0].UserID != 1 {
		t.Fatalf("after detach: %+v", got.Users)
	}
	if _, ok := hub.Conns().Get(2); ok {
		t.Fatalf("bob still registered")
	}
}

func TestDetachOfSupersededConnectionKeepsUserOnline(t *testing.T) {
	hub, err := NewHub(Options{Auth: staticResolver{}, Store: pvpchess.NewMemoryStore()})
	if err != nil {
		t.Fatalf("new hub: %v", err)
	}
	ctx := context.Background()
	id := domain.Identity{ID: 7, Username: "carol"}
	oldConn, newConn := &fakeConn{}, &fakeConn{}
	old := hub.Attach(ctx, id, oldConn)
	hub.Attach(ctx, id, newConn)
	newConn.take()

	hub.Detach(ctx, old)

	if c, ok := hub.Conns().Get(7); !ok || c != newConn {
		t.Fatalf("registry should still hold the newer connection")
	}
	if users := hub.Presence().List(); len(users) != 1 || users[0].UserID != 7 {
		t.Fatalf("presence lost after superseded detach: %+v", users)
	}
	if frames := newConn.take(); len(frames) != 0 {
		t.Fatalf("no broadcast expected, got %+v", frames)
	}
}

func TestInviteAcceptStartsGame(t *testing.T) {
	f := newFixture(t, nil, pvp.FixedCoin(true))

	f.send(f.alice, `{"type":"invite","toUserId":"2"}`)
	inv := f.bc.last(t)
	if inv.Type != chessdto.TypeInvite || inv.FromUserID != 1 || inv.FromUsername != "alice" {
		t.Fatalf("unexpected invite: %+v", inv)
	}
	ack := f.ac.last(t)
	if ack.Type != chessdto.TypeInviteSent || ack.ToUserID != 2 || ack.ToUsername != "bob" {
		t.Fatalf("unexpected ack: %+v", ack)
	}

	f.send(f.bob, `{"type":"invite_response","fromUserId":1,"accepted":true}`)
	a, b := f.ac.last(t), f.bc.last(t)
	if a.Type != chessdto.TypeGameStart || b.Type != chessdto.TypeGameStart {
		t.Fatalf("expected game_start on both sides: %+v %+v", a, b)
	}
	if a.GameID != b.GameID || a.GameID == 0 {
		t.Fatalf("game ids differ: %d vs %d", a.GameID, b.GameID)
	}
	// heads: the responder plays white
	if a.Color != "black" || b.Color != "white" {
		t.Fatalf("colors: alice=%s bob=%s", a.Color, b.Color)
	}
	if a.OpponentID != 2 || b.OpponentID != 1 {
		t.Fatalf("opponents: %d %d", a.OpponentID, b.OpponentID)
	}
	g, err := f.store.GetGame(context.Background(), a.GameID)
	if err != nil || g == nil {
		t.Fatalf("game not stored: %v", err)
	}
	if g.WhiteID != 2 || g.BlackID != 1 || g.Status != pvpchess.StatusActive {
		t.Fatalf("stored game: %+v", g)
	}
}

func TestGameStartCarriesEmptyMoveList(t *testing.T) {
	g := &pvpchess.Game{ID: 5, WhiteID: 1, BlackID: 2}
	b, err := json.Marshal(gameStart(g, 2))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	moves, ok := raw["moves"].([]any)
	if !ok || len(moves) != 0 {
		t.Fatalf("moves should be an empty array, got %#v", raw["moves"])
	}
	if raw["color"] != "black" || raw["opponentId"] != float64(1) {
		t.Fatalf("unexpected payload: %s", b)
	}
}

func TestInviteDeclineNotifiesInviterOnly(t *testing.T) {
	f := newFixture(t, nil, pvp.FixedCoin(false))
	f.send(f.alice, `{"type":"invite","toUserId":2}`)
	f.ac.take()
	f.bc.take()

	f.send(f.bob, `{"type":"invite_response","fromUserId":1,"accepted":false}`)
	got := f.ac.last(t)
	if got.Type != chessdto.TypeInviteResponse || got.FromUserID != 2 || got.Accepted {
		t.Fatalf("unexpected decline relay: %+v", got)
	}
	if frames := f.bc.take(); len(frames) != 0 {
		t.Fatalf("responder should receive nothing: %+v", frames)
	}
	if g, _ := f.store.ActiveGameByUser(context.Background(), 1); g != nil {
		t.Fatalf("declined invite created a game: %+v", g)
	}
}

func TestInviteErrors(t *testing.T) {
	f := newFixture(t, nil, nil)
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"offline target", `{"type":"invite","toUserId":99}`, "User is offline"},
		{"missing target", `{"type":"invite"}`, "Invalid target user"},
		{"bad target", `{"type":"invite","toUserId":"abc"}`, "Invalid target user"},
		{"inviter offline", `{"type":"invite_response","fromUserId":99,"accepted":true}`, "Inviter is offline"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f.send(f.alice, tc.raw)
			got := f.ac.last(t)
			if got.Type != chessdto.TypeError || got.Message != tc.want {
				t.Fatalf("got %+v, want error %q", got, tc.want)
			}
		})
	}
}

// A self-invite is forwarded like any other; accepting it cannot start a
// game because both sides would be the same user.
func TestSelfInviteForwardedButNotPlayable(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.send(f.alice, `{"type":"invite","toUserId":1}`)
	frames := f.ac.take()
	if len(frames) != 2 {
		t.Fatalf("expected invite and invite_sent, got %+v", frames)
	}
	if frames[0].Type != chessdto.TypeInvite || frames[0].FromUserID != 1 {
		t.Fatalf("unexpected invite frame %+v", frames[0])
	}
	if frames[1].Type != chessdto.TypeInviteSent || frames[1].ToUserID != 1 || frames[1].ToUsername != "alice" {
		t.Fatalf("unexpected invite_sent frame %+v", frames[1])
	}

	f.send(f.alice, `{"type":"invite_response","fromUserId":1,"accepted":true}`)
	got := f.ac.last(t)
	if got.Type != chessdto.TypeError || got.Message != "Invalid response payload" {
		t.Fatalf("self accept should fail, got %+v", got)
	}
	if g, _ := f.store.ActiveGameByUser(context.Background(), 1); g != nil {
		t.Fatalf("self game created: %+v", g)
	}
}

func TestMalformedFrames(t *testing.T) {
	f := newFixture(t, nil, nil)
	cases := []struct {
		raw  string
		want string
	}{
		{`not json`, "Invalid message"},
		{`{"toUserId":2}`, "Missing message type"},
		{`{"type":null}`, "Missing message type"},
		{`{"type":"dance"}`, "Unknown message type"},
		{`{"type":"move","gameId":1,"from":"e2"}`, "Invalid move payload"},
		{`{"type":"resign"}`, "Invalid resign payload"},
	}
	for _, tc := range cases {
		f.send(f.alice, tc.raw)
		got := f.ac.last(t)
		if got.Type != chessdto.TypeError || got.Message != tc.want {
			t.Fatalf("%s: got %+v, want %q", tc.raw, got, tc.want)
		}
	}
	if frames := f.bc.take(); len(frames) != 0 {
		t.Fatalf("other client should not see errors: %+v", frames)
	}
}

func TestMoveTurnOrderAndRelay(t *testing.T) {
	f := newFixture(t, nil, pvp.FixedCoin(false))
	gameID := f.startGame(t)

	// black may not open
	f.send(f.bob, `{"type":"move","gameId":1,"from":"e7","to":"e5"}`)
	if got := f.bc.last(t); got.Message != "Not your turn" {
		t.Fatalf("expected turn error, got %+v", got)
	}

	f.send(f.alice, `{"type":"move","gameId":1,"from":"e2","to":"e4"}`)
	for name, c := range map[string]*fakeConn{"alice": f.ac, "bob": f.bc} {
		got := c.last(t)
		if got.Type != chessdto.TypeMove || got.GameID != gameID || got.From != "e2" || got.To != "e4" ||
			got.Piece != "wP" || got.MoveNumber != 1 || got.ByUserID != 1 {
			t.Fatalf("%s got %+v", name, got)
		}
	}

	f.send(f.alice, `{"type":"move","gameId":1,"from":"d2","to":"d4"}`)
	if got := f.ac.last(t); got.Message != "Not your turn" {
		t.Fatalf("expected turn error, got %+v", got)
	}

	f.send(f.bob, `{"type":"move","gameId":"1","from":"e7","to":"e5"}`)
	if got := f.ac.last(t); got.MoveNumber != 2 || got.Piece != "bP" || got.ByUserID != 2 {
		t.Fatalf("second move: %+v", got)
	}
	f.bc.take()

	moves, err := f.store.ListMoves(context.Background(), gameID)
	if err != nil || len(moves) != 2 {
		t.Fatalf("moves = %v, %v", moves, err)
	}
}

func TestMoveRejections(t *testing.T) {
	f := newFixture(t, nil, pvp.FixedCoin(false))
	f.startGame(t)

	outsiderConn := &fakeConn{}
	outsider := f.hub.Attach(context.Background(), domain.Identity{ID: 3, Username: "eve"}, outsiderConn)
	outsiderConn.take()
	f.ac.take()
	f.bc.take()

	cases := []struct {
		name string
		who  *Client
		conn *fakeConn
		raw  string
		want string
	}{
		{"unknown game", f.alice, f.ac, `{"type":"move","gameId":42,"from":"e2","to":"e4"}`, "Game not found"},
		{"outsider", outsider, outsiderConn, `{"type":"move","gameId":1,"from":"e2","to":"e4"}`, "Not a player in this game"},
		{"bad square", f.alice, f.ac, `{"type":"move","gameId":1,"from":"z9","to":"e4"}`, "Invalid square notation"},
		{"empty source", f.alice, f.ac, `{"type":"move","gameId":1,"from":"e4","to":"e5"}`, "No piece on source square"},
		{"opponent piece", f.alice, f.ac, `{"type":"move","gameId":1,"from":"e7","to":"e5"}`, "Not your piece"},
		{"illegal", f.alice, f.ac, `{"type":"move","gameId":1,"from":"e2","to":"e5"}`, "Illegal move"},
		{"blocked rook", f.alice, f.ac, `{"type":"move","gameId":1,"from":"a1","to":"a3"}`, "Illegal move"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f.send(tc.who, tc.raw)
			got := tc.conn.last(t)
			if got.Type != chessdto.TypeError || got.Message != tc.want {
				t.Fatalf("got %+v, want %q", got, tc.want)
			}
		})
	}
	if n, _ := f.store.CountMoves(context.Background(), 1); n != 0 {
		t.Fatalf("rejected moves were stored: %d", n)
	}
}

func TestResignEndsGame(t *testing.T) {
	f := newFixture(t, nil, pvp.FixedCoin(false))
	gameID := f.startGame(t)

	f.send(f.alice, `{"type":"move","gameId":1,"from":"e2","to":"e4"}`)
	f.ac.take()
	f.bc.take()

	f.send(f.bob, `{"type":"resign","gameId":1}`)
	for name, c := range map[string]*fakeConn{"alice": f.ac, "bob": f.bc} {
		got := c.last(t)
		if got.Type != chessdto.TypeGameOver || got.GameID != gameID || got.WinnerUserID != 1 || got.EndReason != "resign" {
			t.Fatalf("%s got %+v", name, got)
		}
	}

	f.send(f.bob, `{"type":"move","gameId":1,"from":"e7","to":"e5"}`)
	if got := f.bc.last(t); got.Message != "Game already finished" {
		t.Fatalf("expected finished error, got %+v", got)
	}
	f.send(f.alice, `{"type":"resign","gameId":1}`)
	if got := f.ac.last(t); got.Message != "Game already finished" {
		t.Fatalf("expected finished error, got %+v", got)
	}

	g, _ := f.store.GetGame(context.Background(), gameID)
	if g.Status != pvpchess.StatusFinished || g.WinnerID != 1 || g.EndReason != "resign" {
		t.Fatalf("stored game: %+v", g)
	}
}

// racingStore makes the first n appends lose a race.
type racingStore struct {
	pvpchess.Store
	mu        sync.Mutex
	conflicts int
	appends   int
}

func (s *racingStore) AppendMove(ctx context.Context, gameID int64, after int, d pvpchess.MoveDraft) (*pvpchess.Move, error) {
	s.mu.Lock()
	s.appends++
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return nil, pvpchess.ErrSequenceConflict
	}
	s.mu.Unlock()
	return s.Store.AppendMove(ctx, gameID, after, d)
}

func TestMoveRetriesAfterSequenceConflict(t *testing.T) {
	store := &racingStore{Store: pvpchess.NewMemoryStore(), conflicts: 1}
	f := newFixture(t, store, pvp.FixedCoin(false))
	f.startGame(t)

	f.send(f.alice, `{"type":"move","gameId":1,"from":"e2","to":"e4"}`)
	if got := f.ac.last(t); got.Type != chessdto.TypeMove || got.MoveNumber != 1 {
		t.Fatalf("expected relayed move, got %+v", got)
	}
	if store.appends != 2 {
		t.Fatalf("appends = %d, want 2", store.appends)
	}
}

func TestMoveGivesUpAfterRepeatedConflicts(t *testing.T) {
	store := &racingStore{Store: pvpchess.NewMemoryStore(), conflicts: 100}
	f := newFixture(t, store, pvp.FixedCoin(false))
	f.startGame(t)

	f.send(f.alice, `{"type":"move","gameId":1,"from":"e2","to":"e4"}`)
	if got := f.ac.last(t); got.Message != "Not your turn" {
		t.Fatalf("expected turn error, got %+v", got)
	}
	if store.appends != defaultMoveAttempts {
		t.Fatalf("appends = %d, want %d", store.appends, defaultMoveAttempts)
	}
}

func TestConcurrentMovesNeverShareNumber(t *testing.T) {
	f := newFixture(t, nil, pvp.FixedCoin(false))
	f.startGame(t)

	var wg sync.WaitGroup
	for _, mv := range []string{
		`{"type":"move","gameId":1,"from":"e2","to":"e4"}`,
		`{"type":"move","gameId":1,"from":"d2","to":"d4"}`,
		`{"type":"move","gameId":1,"from":"g1","to":"f3"}`,
	} {
		wg.Add(1)
		go func(raw string) {
			defer wg.Done()
			f.send(f.alice, raw)
		}(mv)
	}
	wg.Wait()

	moves, err := f.store.ListMoves(context.Background(), 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(moves) != 1 || moves[0].Number != 1 {
		t.Fatalf("exactly one white opening move expected, got %+v", moves)
	}
}

func TestNewHubRequiresCollaborators(t *testing.T) {
	if _, err := NewHub(Options{Store: pvpchess.NewMemoryStore()}); err == nil {
		t.Fatalf("expected error without resolver")
	}
	if _, err := NewHub(Options{Auth: staticResolver{}}); err == nil {
		t.Fatalf("expected error without store")
	}
}
