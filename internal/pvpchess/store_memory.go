package pvpchess

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used for development and tests.
// Reads return copies so callers never alias stored records.
type MemoryStore struct {
	mu sync.RWMutex

	nextGame int64
	nextMove int64
	games    map[int64]*Game
	moves    map[int64][]Move

	archive Archiver
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games: make(map[int64]*Game),
		moves: make(map[int64][]Move),
	}
}

func (m *MemoryStore) AttachArchive(a Archiver) {
	if m != nil {
		m.archive = a
	}
}

func (m *MemoryStore) CreateGame(ctx context.Context, whiteID, blackID int64) (*Game, error) {
	if err := validParticipants(whiteID, blackID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	m.mu.Lock()
	m.nextGame++
	g := &Game{
		ID:        m.nextGame,
		WhiteID:   whiteID,
		BlackID:   blackID,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.games[g.ID] = g
	cp := *g
	m.mu.Unlock()
	return &cp, nil
}

func (m *MemoryStore) GetGame(ctx context.Context, id int64) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok {
		return nil, nil
	}
	return copyGame(g), nil
}

func (m *MemoryStore) FinishGame(ctx context.Context, id, winnerID int64, reason string) (*Game, error) {
	m.mu.Lock()
	g, ok := m.games[id]
	if !ok {
		m.mu.Unlock()
		return nil, ErrGameNotFound
	}
	if g.Status == StatusFinished {
		m.mu.Unlock()
		return nil, ErrGameFinished
	}
	now := time.Now().UTC()
	g.Status = StatusFinished
	g.WinnerID = winnerID
	g.EndReason = reason
	g.EndedAt = &now
	g.UpdatedAt = now
	out := copyGame(g)
	m.mu.Unlock()

	persistIfFinal(ctx, m.archive, m, out)
	return out, nil
}

func (m *MemoryStore) AppendMove(ctx context.Context, gameID int64, after int, d MoveDraft) (*Move, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return nil, ErrGameNotFound
	}
	if g.Status != StatusActive {
		return nil, ErrGameFinished
	}
	if len(m.moves[gameID]) != after {
		return nil, ErrSequenceConflict
	}
	m.nextMove++
	now := time.Now().UTC()
	mv := Move{
		ID:        m.nextMove,
		GameID:    gameID,
		Number:    after + 1,
		From:      d.From,
		To:        d.To,
		Piece:     d.Piece,
		ByUserID:  d.ByUserID,
		CreatedAt: now,
	}
	m.moves[gameID] = append(m.moves[gameID], mv)
	g.UpdatedAt = now
	return &mv, nil
}

func (m *MemoryStore) ListMoves(ctx context.Context, gameID int64) ([]Move, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Move(nil), m.moves[gameID]...), nil
}

func (m *MemoryStore) CountMoves(ctx context.Context, gameID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.moves[gameID]), nil
}

func (m *MemoryStore) ActiveGameByUser(ctx context.Context, userID int64) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *Game
	for _, g := range m.games {
		if g.Status != StatusActive || !g.HasPlayer(userID) {
			continue
		}
		if best == nil || g.UpdatedAt.After(best.UpdatedAt) || (g.UpdatedAt.Equal(best.UpdatedAt) && g.ID > best.ID) {
			best = g
		}
	}
	if best == nil {
		return nil, nil
	}
	return copyGame(best), nil
}

func copyGame(g *Game) *Game {
	cp := *g
	if g.EndedAt != nil {
		t := *g.EndedAt
		cp.EndedAt = &t
	}
	return &cp
}
