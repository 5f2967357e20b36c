// Package rules reconstructs board positions from a move log and decides
// whether a proposed move is geometrically legal.
package rules

// Color identifies a side by its piece-code prefix.
type Color byte

const (
	White Color = 'w'
	Black Color = 'b'
)

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	}
	return ""
}

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// Kind is the piece type letter.
type Kind byte

const (
	Pawn   Kind = 'P'
	Rook   Kind = 'R'
	Knight Kind = 'N'
	Bishop Kind = 'B'
	Queen  Kind = 'Q'
	King   Kind = 'K'
)

// Piece is a colored piece. The zero value is not a piece.
type Piece struct {
	Color Color
	Kind  Kind
}

// String returns the two-letter code, e.g. "wP".
func (p Piece) String() string {
	if p == (Piece{}) {
		return ""
	}
	return string([]byte{byte(p.Color), byte(p.Kind)})
}

// ParsePiece decodes a two-letter piece code.
func ParsePiece(code string) (Piece, bool) {
	if len(code) != 2 {
		return Piece{}, false
	}
	c, k := Color(code[0]), Kind(code[1])
	if c != White && c != Black {
		return Piece{}, false
	}
	switch k {
	case Pawn, Rook, Knight, Bishop, Queen, King:
	default:
		return Piece{}, false
	}
	return Piece{Color: c, Kind: k}, true
}

// Square addresses a board cell. Row 0 is rank 8, column 0 is file a.
type Square struct {
	Row int
	Col int
}

// ParseSquare reads algebraic notation such as "e4".
func ParseSquare(s string) (Square, bool) {
	if len(s) != 2 {
		return Square{}, false
	}
	file, rank := s[0], s[1]
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return Square{}, false
	}
	return Square{Row: 8 - int(rank-'0'), Col: int(file - 'a')}, true
}

func (s Square) String() string {
	if !s.Valid() {
		return ""
	}
	return string([]byte{byte('a' + s.Col), byte('0' + 8 - s.Row)})
}

// Valid reports whether the square lies on the board.
func (s Square) Valid() bool {
	return s.Row >= 0 && s.Row < 8 && s.Col >= 0 && s.Col < 8
}

// Board is an 8x8 grid. Boards are values: copying one snapshots it.
type Board struct {
	cells [8][8]Piece
}

var backRank = [8]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// NewBoard returns the standard starting position.
func NewBoard() Board {
	var b Board
	for col, k := range backRank {
		b.cells[0][col] = Piece{Color: Black, Kind: k}
		b.cells[1][col] = Piece{Color: Black, Kind: Pawn}
		b.cells[6][col] = Piece{Color: White, Kind: Pawn}
		b.cells[7][col] = Piece{Color: White, Kind: k}
	}
	return b
}

// At returns the piece on sq, if any.
func (b *Board) At(sq Square) (Piece, bool) {
	if !sq.Valid() {
		return Piece{}, false
	}
	p := b.cells[sq.Row][sq.Col]
	return p, p != Piece{}
}

// Put places p on sq, replacing any occupant.
func (b *Board) Put(sq Square, p Piece) {
	if sq.Valid() {
		b.cells[sq.Row][sq.Col] = p
	}
}

// Clear empties sq.
func (b *Board) Clear(sq Square) {
	if sq.Valid() {
		b.cells[sq.Row][sq.Col] = Piece{}
	}
}

// Count returns the number of pieces on the board.
func (b *Board) Count() int {
	n := 0
	for r := range b.cells {
		for c := range b.cells[r] {
			if b.cells[r][c] != (Piece{}) {
				n++
			}
		}
	}
	return n
}

// Each calls fn for every occupied square in row-major order.
func (b *Board) Each(fn func(Square, Piece)) {
	for r := range b.cells {
		for c := range b.cells[r] {
			if p := b.cells[r][c]; p != (Piece{}) {
				fn(Square{Row: r, Col: c}, p)
			}
		}
	}
}

// Ply is one recorded move as stored in the game log.
type Ply struct {
	From  string
	To    string
	Piece string
}

// Reconstruct replays history from the starting position. Moves are assumed
// to have been validated when they were recorded.
func Reconstruct(history []Ply) Board {
	b := NewBoard()
	for _, p := range history {
		b.Apply(p)
	}
	return b
}

// Apply moves the recorded piece (or whatever stands on From) to To.
// Plies with unparsable squares are skipped.
func (b *Board) Apply(p Ply) {
	from, ok1 := ParseSquare(p.From)
	to, ok2 := ParseSquare(p.To)
	if !ok1 || !ok2 {
		return
	}
	piece, ok := ParsePiece(p.Piece)
	if !ok {
		piece, ok = b.At(from)
		if !ok {
			return
		}
	}
	b.Put(to, piece)
	b.Clear(from)
}
