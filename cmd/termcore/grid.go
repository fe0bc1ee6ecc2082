package main

import (
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"termcore/internal/vt"
)

// Grid is a small cell matrix the demo renders from. It implements
// vt.ActionSink for the subset of the grammar a plain shell session
// exercises; everything else is accepted and dropped. The session's read
// loop mutates it, the render path snapshots it, so every entry point
// takes the lock.
type Grid struct {
	mu sync.Mutex

	rows, cols int
	cells      [][]cell
	curX, curY int
	style      tcell.Style
	title      string
	dirty      bool
}

type cell struct {
	r     rune
	style tcell.Style
}

const tabWidth = 8

func NewGrid(rows, cols int) *Grid {
	g := &Grid{style: tcell.StyleDefault}
	g.reset(rows, cols)
	return g
}

func (g *Grid) reset(rows, cols int) {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	g.rows, g.cols = rows, cols
	g.cells = make([][]cell, rows)
	for y := range g.cells {
		g.cells[y] = blankRow(cols)
	}
	g.curX, g.curY = 0, 0
	g.dirty = true
}

func blankRow(cols int) []cell {
	row := make([]cell, cols)
	for x := range row {
		row[x] = cell{r: ' ', style: tcell.StyleDefault}
	}
	return row
}

// Resize rebuilds the matrix at the new geometry. Content is dropped; the
// shell redraws after a window change anyway.
func (g *Grid) Resize(rows, cols int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reset(rows, cols)
}

// SetTitle records the window title for the status line.
func (g *Grid) SetTitle(title string) {
	g.mu.Lock()
	g.title = title
	g.dirty = true
	g.mu.Unlock()
}

// Dirty reports and clears the redraw flag.
func (g *Grid) Dirty() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	d := g.dirty
	g.dirty = false
	return d
}

// Draw paints the matrix and a title status line onto the screen.
func (g *Grid) Draw(screen tcell.Screen) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for y := 0; y < g.rows; y++ {
		for x := 0; x < g.cols; x++ {
			c := g.cells[y][x]
			if c.r == 0 {
				continue
			}
			screen.SetContent(x, y+1, c.r, nil, c.style)
		}
	}

	bar := tcell.StyleDefault.Reverse(true)
	for x := 0; x < g.cols; x++ {
		screen.SetContent(x, 0, ' ', nil, bar)
	}
	col := 0
	for _, r := range g.title {
		if col >= g.cols {
			break
		}
		screen.SetContent(col, 0, r, nil, bar)
		col += runewidth.RuneWidth(r)
	}
	screen.ShowCursor(g.curX, g.curY+1)
}

func (g *Grid) Print(r rune) {
	g.mu.Lock()
	defer g.mu.Unlock()

	width := runewidth.RuneWidth(r)
	if width == 0 {
		return
	}
	if g.curX+width > g.cols {
		g.lineFeed()
		g.curX = 0
	}
	g.cells[g.curY][g.curX] = cell{r: r, style: g.style}
	if width == 2 && g.curX+1 < g.cols {
		g.cells[g.curY][g.curX+1] = cell{r: 0, style: g.style}
	}
	g.curX += width
	g.dirty = true
}

func (g *Grid) Execute(b byte) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch b {
	case '\n':
		g.lineFeed()
	case '\r':
		g.curX = 0
	case '\b':
		if g.curX > 0 {
			g.curX--
		}
	case '\t':
		g.curX = (g.curX/tabWidth + 1) * tabWidth
		if g.curX >= g.cols {
			g.curX = g.cols - 1
		}
	}
	g.dirty = true
}

func (g *Grid) lineFeed() {
	if g.curY == g.rows-1 {
		copy(g.cells, g.cells[1:])
		g.cells[g.rows-1] = blankRow(g.cols)
		return
	}
	g.curY++
}

func (g *Grid) CsiDispatch(params []uint16, intermediates []byte, final byte) {
	if len(intermediates) > 0 {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.dirty = true

	switch final {
	case 'H', 'f':
		g.curY = clamp(int(param(params, 0, 1))-1, 0, g.rows-1)
		g.curX = clamp(int(param(params, 1, 1))-1, 0, g.cols-1)
	case 'A':
		g.curY = clamp(g.curY-int(param(params, 0, 1)), 0, g.rows-1)
	case 'B':
		g.curY = clamp(g.curY+int(param(params, 0, 1)), 0, g.rows-1)
	case 'C':
		g.curX = clamp(g.curX+int(param(params, 0, 1)), 0, g.cols-1)
	case 'D':
		g.curX = clamp(g.curX-int(param(params, 0, 1)), 0, g.cols-1)
	case 'J':
		g.eraseDisplay(int(param(params, 0, 0)))
	case 'K':
		g.eraseLine(int(param(params, 0, 0)))
	case 'm':
		g.applySGR(params)
	}
}

func (g *Grid) eraseDisplay(mode int) {
	switch mode {
	case 0:
		g.eraseLine(0)
		for y := g.curY + 1; y < g.rows; y++ {
			g.cells[y] = blankRow(g.cols)
		}
	case 1:
		g.eraseLine(1)
		for y := 0; y < g.curY; y++ {
			g.cells[y] = blankRow(g.cols)
		}
	case 2, 3:
		for y := 0; y < g.rows; y++ {
			g.cells[y] = blankRow(g.cols)
		}
	}
}

func (g *Grid) eraseLine(mode int) {
	switch mode {
	case 0:
		for x := g.curX; x < g.cols; x++ {
			g.cells[g.curY][x] = cell{r: ' ', style: tcell.StyleDefault}
		}
	case 1:
		for x := 0; x <= g.curX && x < g.cols; x++ {
			g.cells[g.curY][x] = cell{r: ' ', style: tcell.StyleDefault}
		}
	case 2:
		g.cells[g.curY] = blankRow(g.cols)
	}
}

func (g *Grid) applySGR(params []uint16) {
	if len(params) == 0 {
		g.style = tcell.StyleDefault
		return
	}
	for _, p := range params {
		switch {
		case p == 0:
			g.style = tcell.StyleDefault
		case p == 1:
			g.style = g.style.Bold(true)
		case p == 4:
			g.style = g.style.Underline(true)
		case p == 7:
			g.style = g.style.Reverse(true)
		case p == 22:
			g.style = g.style.Bold(false)
		case p == 24:
			g.style = g.style.Underline(false)
		case p == 27:
			g.style = g.style.Reverse(false)
		case p >= 30 && p <= 37:
			g.style = g.style.Foreground(tcell.PaletteColor(int(p - 30)))
		case p == 39:
			g.style = g.style.Foreground(tcell.ColorDefault)
		case p >= 40 && p <= 47:
			g.style = g.style.Background(tcell.PaletteColor(int(p - 40)))
		case p == 49:
			g.style = g.style.Background(tcell.ColorDefault)
		case p >= 90 && p <= 97:
			g.style = g.style.Foreground(tcell.PaletteColor(int(p - 90 + 8)))
		case p >= 100 && p <= 107:
			g.style = g.style.Background(tcell.PaletteColor(int(p - 100 + 8)))
		}
	}
}

func param(params []uint16, index int, def uint16) uint16 {
	if index >= len(params) || params[index] == 0 {
		return def
	}
	return params[index]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (g *Grid) EscDispatch(intermediates []byte, final byte)              {}
func (g *Grid) OscDispatch(params [][]byte)                               {}
func (g *Grid) DcsHook(params []uint16, intermediates []byte, final byte) {}
func (g *Grid) DcsPut(b byte)                                             {}
func (g *Grid) DcsUnhook()                                                {}
func (g *Grid) ApcStart()                                                 {}
func (g *Grid) ApcPut(b byte)                                             {}
func (g *Grid) ApcEnd()                                                   {}

var _ vt.ActionSink = (*Grid)(nil)
