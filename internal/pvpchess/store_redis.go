package pvpchess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emna-bh/EchecGame/internal/obslog"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const finishRetries = 5

// RedisStore keeps games as JSON blobs and moves as a per-game list.
// Appends and finishes run under WATCH so concurrent writers on one game
// never both succeed against the same state.
type RedisStore struct {
	rdb     *redis.Client
	ttl     time.Duration
	archive Archiver
}

// RedisOption customises a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL expires game keys after d of inactivity. Zero keeps them forever.
func WithTTL(d time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = d }
}

func NewRedisStore(rdb *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{rdb: rdb}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRedisClient parses redisURL and pings the server.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for game store")
	}
	opts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// AttachArchive wires a long-term store for finished games.
func (s *RedisStore) AttachArchive(a Archiver) {
	if s != nil {
		s.archive = a
	}
}

func (s *RedisStore) CreateGame(ctx context.Context, whiteID, blackID int64) (*Game, error) {
	if err := validParticipants(whiteID, blackID); err != nil {
		return nil, err
	}
	id, err := s.rdb.Incr(ctx, gameSeqKey).Result()
	if err != nil {
		return nil, fmt.Errorf("allocate game id: %w", err)
	}
	now := time.Now().UTC()
	g := &Game{
		ID:        id,
		WhiteID:   whiteID,
		BlackID:   blackID,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, gameKey(g.ID), raw, s.ttl)
		for _, uid := range []int64{g.WhiteID, g.BlackID} {
			pipe.SAdd(ctx, idxUserKey(uid), g.ID)
			if s.ttl > 0 {
				pipe.Expire(ctx, idxUserKey(uid), s.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store game: %w", err)
	}
	obslog.L().Info("pvp_game_create",
		zap.Int64("game_id", g.ID),
		zap.Int64("white_id", g.WhiteID),
		zap.Int64("black_id", g.BlackID),
	)
	return g, nil
}

func (s *RedisStore) GetGame(ctx context.Context, id int64) (*Game, error) {
	return s.get(ctx, s.rdb, id)
}

func (s *RedisStore) FinishGame(ctx context.Context, id, winnerID int64, reason string) (*Game, error) {
	gameK := gameKey(id)
	var out *Game
	txf := func(tx *redis.Tx) error {
		cur, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return ErrGameNotFound
		}
		if cur.Status == StatusFinished {
			return ErrGameFinished
		}
		now := time.Now().UTC()
		cur.Status = StatusFinished
		cur.WinnerID = winnerID
		cur.EndReason = reason
		cur.EndedAt = &now
		cur.UpdatedAt = now
		raw, err := json.Marshal(cur)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, gameK, raw, s.ttl)
			pipe.SRem(ctx, idxUserKey(cur.WhiteID), cur.ID)
			pipe.SRem(ctx, idxUserKey(cur.BlackID), cur.ID)
			return nil
		})
		if err == nil {
			out = cur
		}
		return err
	}

	var err error
	for i := 0; i < finishRetries; i++ {
		err = s.rdb.Watch(ctx, txf, gameK)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	obslog.L().Info("pvp_game_finish",
		zap.Int64("game_id", out.ID),
		zap.Int64("winner_id", out.WinnerID),
		zap.String("reason", out.EndReason),
	)
	persistIfFinal(ctx, s.archive, s, out)
	return out, nil
}

func (s *RedisStore) AppendMove(ctx context.Context, gameID int64, after int, d MoveDraft) (*Move, error) {
	gameK, movesK := gameKey(gameID), movesKey(gameID)
	var out *Move
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := s.get(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if cur == nil {
			return ErrGameNotFound
		}
		if cur.Status != StatusActive {
			return ErrGameFinished
		}
		n, err := tx.LLen(ctx, movesK).Result()
		if err != nil {
			return err
		}
		if int(n) != after {
			return ErrSequenceConflict
		}
		moveID, err := s.rdb.Incr(ctx, moveSeqKey).Result()
		if err != nil {
			return fmt.Errorf("allocate move id: %w", err)
		}
		now := time.Now().UTC()
		mv := &Move{
			ID:        moveID,
			GameID:    gameID,
			Number:    after + 1,
			From:      d.From,
			To:        d.To,
			Piece:     d.Piece,
			ByUserID:  d.ByUserID,
			CreatedAt: now,
		}
		cur.UpdatedAt = now
		rawMove, err := json.Marshal(mv)
		if err != nil {
			return err
		}
		rawGame, err := json.Marshal(cur)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, movesK, rawMove)
			pipe.Set(ctx, gameK, rawGame, s.ttl)
			if s.ttl > 0 {
				pipe.Expire(ctx, movesK, s.ttl)
			}
			return nil
		})
		if err == nil {
			out = mv
		}
		return err
	}, gameK, movesK)

	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return nil, ErrSequenceConflict
		}
		return nil, err
	}
	obslog.L().Info("pvp_move",
		zap.Int64("game_id", gameID),
		zap.Int64("user_id", d.ByUserID),
		zap.Int("number", out.Number),
		zap.String("from", out.From),
		zap.String("to", out.To),
	)
	return out, nil
}

func (s *RedisStore) ListMoves(ctx context.Context, gameID int64) ([]Move, error) {
	raws, err := s.rdb.LRange(ctx, movesKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Move, 0, len(raws))
	for _, raw := range raws {
		var m Move
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("decode move: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *RedisStore) CountMoves(ctx context.Context, gameID int64) (int, error) {
	n, err := s.rdb.LLen(ctx, movesKey(gameID)).Result()
	return int(n), err
}

// ActiveGameByUser returns the most recently updated active game. The
// per-user index only holds active games; FinishGame removes the entry.
func (s *RedisStore) ActiveGameByUser(ctx context.Context, userID int64) (*Game, error) {
	if userID <= 0 {
		return nil, nil
	}
	ids, err := s.rdb.SMembers(ctx, idxUserKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	var list []*Game
	for _, raw := range ids {
		id, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			continue
		}
		g, gerr := s.get(ctx, s.rdb, id)
		if gerr == nil && g != nil && g.Status == StatusActive {
			list = append(list, g)
		}
	}
	if len(list) == 0 {
		return nil, nil
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	return list[0], nil
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) get(ctx context.Context, c getter, id int64) (*Game, error) {
	raw, err := c.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var g Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

const (
	gameSeqKey = "pvp:game:seq"
	moveSeqKey = "pvp:move:seq"
)

func gameKey(id int64) string     { return "pvp:game:" + strconv.FormatInt(id, 10) }
func movesKey(id int64) string    { return gameKey(id) + ":moves" }
func idxUserKey(uid int64) string { return "pvp:index:user:" + strconv.FormatInt(uid, 10) }

// ParseRedisURL converts a redis:// or rediss:// URL into client options.
// rediss enables TLS; user info, db and query options follow redis.ParseURL.
func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	opts, err := redis.ParseURL(raw)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opts, nil
}
