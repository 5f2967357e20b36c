// Package render draws a board position as a PNG image.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/emna-bh/EchecGame/internal/rules"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Highlight marks the last move.
type Highlight struct {
	From rules.Square
	To   rules.Square
}

type Options struct {
	Highlight *Highlight
	Title     string
}

type Renderer interface {
	RenderPNG(ctx context.Context, board rules.Board, opts Options) ([]byte, error)
}

const (
	squareSize   = 64
	boardSize    = squareSize * 8
	sideMargin   = 28
	topMargin    = 72
	bottomMargin = 28
	titleHeight  = 36
	titleGap     = 18
	panelRadius  = 10
	titlePadding = 20
)

var (
	lightSquare      = color.RGBA{233, 207, 163, 255}
	darkSquare       = color.RGBA{187, 136, 96, 255}
	backgroundColor  = color.RGBA{22, 24, 36, 255}
	whiteMoveFill    = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveArrow   = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	neutralMoveArrow = color.NRGBA{R: 182, G: 184, B: 190, A: 140}
	panelColor       = color.NRGBA{R: 40, G: 44, B: 64, A: 255}
	panelShadow      = color.NRGBA{0, 0, 0, 60}
	titleColor       = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateColor  = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

var (
	ranks = []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
	files = []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}
)

type svgRenderer struct {
	face font.Face
}

func New() Renderer {
	return &svgRenderer{face: basicfont.Face7x13}
}

func (r *svgRenderer) RenderPNG(ctx context.Context, board rules.Board, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	width := boardSize + sideMargin*2
	height := boardSize + topMargin + bottomMargin
	origin := image.Point{X: sideMargin, Y: topMargin}
	boardRect := image.Rect(origin.X, origin.Y, origin.X+boardSize, origin.Y+boardSize)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	native := nativeBoard(board)
	r.drawTitle(img, boardRect, opts.Title)
	drawSquares(img, origin)
	drawHighlight(img, native, opts.Highlight, origin)
	if err := drawPieces(ctx, img, native, origin); err != nil {
		return nil, err
	}
	r.drawCoordinates(img, origin)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawSquares(dst draw.Image, origin image.Point) {
	for _, rank := range ranks {
		for _, file := range files {
			sq := nchess.NewSquare(file, rank)
			draw.Draw(dst, squareRect(sq, origin), image.NewUniform(squareColor(sq)), image.Point{}, draw.Src)
		}
	}
}

func drawPieces(ctx context.Context, dst draw.Image, board *nchess.Board, origin image.Point) error {
	for sq, piece := range board.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := sprite(piece, squareSize)
		if err != nil {
			return err
		}
		draw.Draw(dst, squareRect(sq, origin), img, image.Point{}, draw.Over)
	}
	return nil
}

// drawHighlight fills both squares for a white move and draws an arrow for
// a black one.
func drawHighlight(img *image.RGBA, board *nchess.Board, h *Highlight, origin image.Point) {
	if h == nil || !h.From.Valid() || !h.To.Valid() {
		return
	}
	from, to := nativeSquare(h.From), nativeSquare(h.To)
	mover := board.Piece(to)
	if mover == nchess.NoPiece {
		mover = board.Piece(from)
	}
	switch {
	case mover != nchess.NoPiece && mover.Color() == nchess.White:
		draw.Draw(img, squareRect(from, origin), image.NewUniform(whiteMoveFill), image.Point{}, draw.Over)
		draw.Draw(img, squareRect(to, origin), image.NewUniform(whiteMoveFill), image.Point{}, draw.Over)
	case mover != nchess.NoPiece && mover.Color() == nchess.Black:
		drawArrow(img, from, to, origin, blackMoveArrow)
	default:
		drawArrow(img, from, to, origin, neutralMoveArrow)
	}
}

func drawArrow(img *image.RGBA, from, to nchess.Square, origin image.Point, clr color.Color) {
	if from == to {
		return
	}
	a, b := squareRect(from, origin), squareRect(to, origin)
	sx, sy := float64(a.Min.X+squareSize/2), float64(a.Min.Y+squareSize/2)
	ex, ey := float64(b.Min.X+squareSize/2), float64(b.Min.Y+squareSize/2)
	dx, dy := ex-sx, ey-sy
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	ux, uy := dx/length, dy/length
	px, py := -uy, ux

	shaft := length - squareSize*0.45
	if shaft < squareSize*0.35 {
		shaft = length * 0.6
	}
	half := squareSize * 0.18
	head := squareSize * 0.32
	bx, by := sx+ux*shaft, sy+uy*shaft

	b2 := img.Bounds()
	scanner := rasterx.NewScannerGV(b2.Dx(), b2.Dy(), img, b2)
	f := rasterx.NewFiller(b2.Dx(), b2.Dy(), scanner)
	scanner.SetColor(clr)
	f.Start(pt(sx-px*half, sy-py*half))
	f.Line(pt(bx-px*half, by-py*half))
	f.Line(pt(bx-px*head, by-py*head))
	f.Line(pt(ex, ey))
	f.Line(pt(bx+px*head, by+py*head))
	f.Line(pt(bx+px*half, by+py*half))
	f.Line(pt(sx+px*half, sy+py*half))
	f.Stop(true)
	f.Draw()
}

func (r *svgRenderer) drawTitle(img *image.RGBA, boardRect image.Rectangle, title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	d := &font.Drawer{Dst: img, Face: r.face, Src: image.NewUniform(titleColor)}
	maxWidth := boardRect.Dx() - titlePadding*2
	title = truncate(d, title, maxWidth)

	w := d.MeasureString(title).Round() + titlePadding*2
	bottom := boardRect.Min.Y - titleGap
	panel := image.Rect(boardRect.Min.X, bottom-titleHeight, boardRect.Min.X+w, bottom)
	fillRoundRect(img, panel.Add(image.Pt(0, 4)), panelRadius, panelShadow)
	fillRoundRect(img, panel, panelRadius, panelColor)

	m := r.face.Metrics()
	baseline := panel.Min.Y + (panel.Dy()+m.Ascent.Ceil()-m.Descent.Ceil())/2
	d.Dot = fixed.P(panel.Min.X+titlePadding, baseline)
	d.DrawString(title)
}

func (r *svgRenderer) drawCoordinates(img *image.RGBA, origin image.Point) {
	d := &font.Drawer{Dst: img, Face: r.face, Src: image.NewUniform(coordinateColor)}
	ascent := r.face.Metrics().Ascent.Ceil()
	for row, rank := range ranks {
		centerY := origin.Y + row*squareSize + squareSize/2
		centered(d, rank.String(), origin.X-sideMargin/2, centerY+ascent/2)
	}
	for col, file := range files {
		centerX := origin.X + col*squareSize + squareSize/2
		centered(d, file.String(), centerX, origin.Y+boardSize+ascent+4)
	}
}

func fillRoundRect(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if rect.Empty() {
		return
	}
	b := img.Bounds()
	scanner := rasterx.NewScannerGV(b.Dx(), b.Dy(), img, b)
	f := rasterx.NewFiller(b.Dx(), b.Dy(), scanner)
	scanner.SetColor(clr)
	rasterx.AddRoundRect(
		float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Max.X), float64(rect.Max.Y),
		float64(radius), float64(radius), 0, rasterx.RoundGap, f,
	)
	f.Draw()
}

func truncate(d *font.Drawer, text string, maxWidth int) string {
	if d.MeasureString(text).Round() <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		if c := string(runes) + "..."; d.MeasureString(c).Round() <= maxWidth {
			return c
		}
	}
	return ""
}

func centered(d *font.Drawer, text string, centerX, baseline int) {
	w := d.MeasureString(text).Round()
	d.Dot = fixed.P(centerX-w/2, baseline)
	d.DrawString(text)
}

func squareRect(sq nchess.Square, origin image.Point) image.Rectangle {
	x := origin.X + int(sq.File())*squareSize
	y := origin.Y + (7-int(sq.Rank()))*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func pt(x, y float64) fixed.Point26_6 {
	return fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)}
}
