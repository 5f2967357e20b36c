package chessclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/emna-bh/EchecGame/pkg/chessdto"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type State int

const (
	StateConnecting State = iota
	StateConnected
	StateDisconnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

type StateCallback func(State)

// ErrClosed is returned by Next once the connection is gone and every
// buffered event has been consumed.
var ErrClosed = errors.New("websocket closed")

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

// WS is a live game connection. Send may be called from any goroutine;
// Next is meant for a single consumer.
type WS struct {
	conn *websocket.Conn

	state  State
	stateM sync.RWMutex

	stateCbs []stateCallbackEntry
	cbM      sync.RWMutex

	events  chan chessdto.Event
	readErr error

	pingInterval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

type WSOption func(*WS)

func WithPingInterval(d time.Duration) WSOption {
	return func(ws *WS) { ws.pingInterval = d }
}

// Dial connects to wsURL authenticating with token. A rejected token is not
// detected here; the server closes the socket and Next reports it.
func Dial(ctx context.Context, wsURL, token string, opts ...WSOption) (*WS, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	ws := &WS{
		state:        StateConnecting,
		events:       make(chan chessdto.Event, 64),
		pingInterval: 30 * time.Second,
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ws)
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, u.String(), &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		ws.setState(StateDisconnected)
		return nil, err
	}
	ws.conn = conn
	ws.rootCtx, ws.rootCancel = context.WithCancel(context.Background())
	ws.setState(StateConnected)

	ws.wg.Add(2)
	go ws.listen()
	go ws.pingLoop()
	return ws, nil
}

func (ws *WS) State() State {
	ws.stateM.RLock()
	defer ws.stateM.RUnlock()
	return ws.state
}

// Send writes one JSON frame.
func (ws *WS) Send(ctx context.Context, msg any) error {
	return wsjson.Write(ctx, ws.conn, msg)
}

func (ws *WS) Invite(ctx context.Context, toUserID int64) error {
	return ws.Send(ctx, chessdto.InviteRequest{Type: chessdto.TypeInvite, ToUserID: chessdto.FlexID(toUserID)})
}

func (ws *WS) Respond(ctx context.Context, fromUserID int64, accepted bool) error {
	return ws.Send(ctx, chessdto.InviteReply{Type: chessdto.TypeInviteResponse, FromUserID: chessdto.FlexID(fromUserID), Accepted: accepted})
}

func (ws *WS) Move(ctx context.Context, gameID int64, from, to string) error {
	return ws.Send(ctx, chessdto.MoveRequest{Type: chessdto.TypeMove, GameID: chessdto.FlexID(gameID), From: from, To: to})
}

func (ws *WS) Resign(ctx context.Context, gameID int64) error {
	return ws.Send(ctx, chessdto.ResignRequest{Type: chessdto.TypeResign, GameID: chessdto.FlexID(gameID)})
}

// Next blocks until an event arrives, ctx ends or the connection is gone.
func (ws *WS) Next(ctx context.Context) (chessdto.Event, error) {
	select {
	case <-ctx.Done():
		return chessdto.Event{}, ctx.Err()
	case ev, ok := <-ws.events:
		if !ok {
			if ws.readErr != nil {
				return chessdto.Event{}, ws.readErr
			}
			return chessdto.Event{}, ErrClosed
		}
		return ev, nil
	}
}

// NextOfType skips events until one of the given type arrives.
func (ws *WS) NextOfType(ctx context.Context, typ string) (chessdto.Event, error) {
	for {
		ev, err := ws.Next(ctx)
		if err != nil || ev.Type == typ {
			return ev, err
		}
	}
}

func (ws *WS) listen() {
	defer ws.wg.Done()
	defer close(ws.events)
	for {
		_, raw, err := ws.conn.Read(ws.rootCtx)
		if err != nil {
			if !ws.isStopping() {
				ws.readErr = err
				ws.setState(StateDisconnected)
			}
			return
		}
		var ev chessdto.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			continue
		}
		select {
		case ws.events <- ev:
		case <-ws.stopCh:
			return
		}
	}
}

func (ws *WS) pingLoop() {
	defer ws.wg.Done()
	t := time.NewTicker(ws.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ws.stopCh:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(ws.rootCtx, 3*time.Second)
			err := ws.conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				if !ws.isStopping() {
					ws.setState(StateDisconnected)
					_ = ws.conn.Close(websocket.StatusGoingAway, "ping failure")
				}
				return
			}
		}
	}
}

func (ws *WS) OnStateChange(cb StateCallback) int {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	id := len(ws.stateCbs) + 1
	ws.stateCbs = append(ws.stateCbs, stateCallbackEntry{id: id, callback: cb})
	return id
}

func (ws *WS) RemoveStateCallback(id int) {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	for i, cb := range ws.stateCbs {
		if cb.id == id {
			ws.stateCbs = append(ws.stateCbs[:i], ws.stateCbs[i+1:]...)
			break
		}
	}
}

func (ws *WS) setState(state State) {
	ws.stateM.Lock()
	ws.state = state
	ws.stateM.Unlock()

	ws.cbM.RLock()
	callbacks := make([]stateCallbackEntry, len(ws.stateCbs))
	copy(callbacks, ws.stateCbs)
	ws.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback != nil {
			entry.callback(state)
		}
	}
}

// Close sends a normal closure and waits for the background loops.
func (ws *WS) Close(ctx context.Context) error {
	ws.stopOnce.Do(func() { close(ws.stopCh) })
	_ = ws.conn.Close(websocket.StatusNormalClosure, "close")

	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		ws.rootCancel()
		ws.setState(StateClosed)
		return nil
	}
}

func (ws *WS) isStopping() bool {
	select {
	case <-ws.stopCh:
		return true
	default:
		return false
	}
}
