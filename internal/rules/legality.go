package rules

// Reason explains why a move was rejected. OK means the move is legal.
type Reason int

const (
	OK Reason = iota
	BadSquare
	EmptySource
	NotYourPiece
	Illegal
)

func (r Reason) String() string {
	switch r {
	case OK:
		return "ok"
	case BadSquare:
		return "bad_square"
	case EmptySource:
		return "empty_source"
	case NotYourPiece:
		return "not_your_piece"
	case Illegal:
		return "illegal"
	}
	return "unknown"
}

// Validate checks a move for the given mover in the order the client sees the
// errors: notation, source occupancy, ownership, then geometry.
func Validate(b Board, from, to string, mover Color) (Piece, Reason) {
	f, ok1 := ParseSquare(from)
	t, ok2 := ParseSquare(to)
	if !ok1 || !ok2 {
		return Piece{}, BadSquare
	}
	p, ok := b.At(f)
	if !ok {
		return Piece{}, EmptySource
	}
	if p.Color != mover {
		return p, NotYourPiece
	}
	if !legal(&b, f, t) {
		return p, Illegal
	}
	return p, OK
}

// IsLegal reports whether the piece on from may move to to. Check, castling,
// en passant and promotion are not modelled, so a move that leaves the
// mover's own king attacked is still legal.
func IsLegal(b Board, from, to string) bool {
	f, ok1 := ParseSquare(from)
	t, ok2 := ParseSquare(to)
	if !ok1 || !ok2 {
		return false
	}
	return legal(&b, f, t)
}

func legal(b *Board, from, to Square) bool {
	if from == to {
		return false
	}
	p, ok := b.At(from)
	if !ok {
		return false
	}
	if q, occupied := b.At(to); occupied && q.Color == p.Color {
		return false
	}
	dr, dc := to.Row-from.Row, to.Col-from.Col
	switch p.Kind {
	case Pawn:
		return pawnLegal(b, p.Color, from, to, dr, dc)
	case Rook:
		return (dr == 0 || dc == 0) && pathClear(b, from, to)
	case Bishop:
		return abs(dr) == abs(dc) && pathClear(b, from, to)
	case Queen:
		return (dr == 0 || dc == 0 || abs(dr) == abs(dc)) && pathClear(b, from, to)
	case Knight:
		return (abs(dr) == 2 && abs(dc) == 1) || (abs(dr) == 1 && abs(dc) == 2)
	case King:
		return abs(dr) <= 1 && abs(dc) <= 1
	}
	return false
}

func pawnLegal(b *Board, c Color, from, to Square, dr, dc int) bool {
	dir, home := -1, 6
	if c == Black {
		dir, home = 1, 1
	}
	_, targetTaken := b.At(to)
	switch {
	case dc == 0 && dr == dir:
		return !targetTaken
	case dc == 0 && dr == 2*dir && from.Row == home:
		_, midTaken := b.At(Square{Row: from.Row + dir, Col: from.Col})
		return !midTaken && !targetTaken
	case abs(dc) == 1 && dr == dir:
		return targetTaken
	}
	return false
}

// pathClear reports whether every square strictly between from and to is
// empty. Callers guarantee the two squares share a line or diagonal.
func pathClear(b *Board, from, to Square) bool {
	sr, sc := sign(to.Row-from.Row), sign(to.Col-from.Col)
	r, c := from.Row+sr, from.Col+sc
	for r != to.Row || c != to.Col {
		if _, ok := b.At(Square{Row: r, Col: c}); ok {
			return false
		}
		r += sr
		c += sc
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
