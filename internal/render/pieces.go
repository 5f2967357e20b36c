package render

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/draw"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/emna-bh/EchecGame/internal/rules"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//go:embed assets/pieces/*.svg
var pieceFiles embed.FS

type spriteKey struct {
	piece nchess.Piece
	size  int
}

var (
	sprites   = map[spriteKey]*image.RGBA{}
	spritesMu sync.RWMutex
)

var nativePieces = map[rules.Piece]nchess.Piece{
	{Color: rules.White, Kind: rules.King}:   nchess.WhiteKing,
	{Color: rules.White, Kind: rules.Queen}:  nchess.WhiteQueen,
	{Color: rules.White, Kind: rules.Rook}:   nchess.WhiteRook,
	{Color: rules.White, Kind: rules.Bishop}: nchess.WhiteBishop,
	{Color: rules.White, Kind: rules.Knight}: nchess.WhiteKnight,
	{Color: rules.White, Kind: rules.Pawn}:   nchess.WhitePawn,
	{Color: rules.Black, Kind: rules.King}:   nchess.BlackKing,
	{Color: rules.Black, Kind: rules.Queen}:  nchess.BlackQueen,
	{Color: rules.Black, Kind: rules.Rook}:   nchess.BlackRook,
	{Color: rules.Black, Kind: rules.Bishop}: nchess.BlackBishop,
	{Color: rules.Black, Kind: rules.Knight}: nchess.BlackKnight,
	{Color: rules.Black, Kind: rules.Pawn}:   nchess.BlackPawn,
}

// nativeSquare maps a row/col cell onto the library's file/rank square.
func nativeSquare(sq rules.Square) nchess.Square {
	return nchess.NewSquare(nchess.File(sq.Col), nchess.Rank(7-sq.Row))
}

// nativeBoard projects a reconstructed position into a chess.Board for
// drawing.
func nativeBoard(b rules.Board) *nchess.Board {
	m := make(map[nchess.Square]nchess.Piece, 32)
	b.Each(func(sq rules.Square, p rules.Piece) {
		if np, ok := nativePieces[p]; ok {
			m[nativeSquare(sq)] = np
		}
	})
	return nchess.NewBoard(m)
}

func sprite(piece nchess.Piece, size int) (*image.RGBA, error) {
	key := spriteKey{piece: piece, size: size}

	spritesMu.RLock()
	img, ok := sprites[key]
	spritesMu.RUnlock()
	if ok {
		return img, nil
	}

	name := assetName(piece)
	data, err := pieceFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read piece asset %s: %w", name, err)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(normalizeSVG(data)))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg %s: %w", name, err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img = image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.Transparent, image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	spritesMu.Lock()
	sprites[key] = img
	spritesMu.Unlock()
	return img, nil
}

func assetName(piece nchess.Piece) string {
	prefix := "b"
	if piece.Color() == nchess.White {
		prefix = "w"
	}
	var letter string
	switch piece.Type() {
	case nchess.King:
		letter = "K"
	case nchess.Queen:
		letter = "Q"
	case nchess.Rook:
		letter = "R"
	case nchess.Bishop:
		letter = "B"
	case nchess.Knight:
		letter = "N"
	case nchess.Pawn:
		letter = "P"
	}
	return "assets/pieces/" + prefix + letter + ".svg"
}
