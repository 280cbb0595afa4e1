package viz

import (
	"math"
	"strings"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a character grid with 2x4 sub-pixels per cell.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the sub-pixel (x, y). Sub-pixel space is (Width*2) x
// (Height*4) with y growing downward.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// Bounds is the data window mapped onto the canvas.
type Bounds struct {
	XMin, XMax float64
	YMin, YMax float64
}

// BoundsOf spans times horizontally and every finite sample of curves
// vertically, with 5% vertical padding.
func BoundsOf(times []float64, curves ...[]float64) Bounds {
	b := Bounds{XMin: math.Inf(1), XMax: math.Inf(-1), YMin: math.Inf(1), YMax: math.Inf(-1)}
	for _, t := range times {
		if finite(t) {
			b.XMin, b.XMax = math.Min(b.XMin, t), math.Max(b.XMax, t)
		}
	}
	for _, y := range curves {
		for _, v := range y {
			if finite(v) {
				b.YMin, b.YMax = math.Min(b.YMin, v), math.Max(b.YMax, v)
			}
		}
	}
	if b.XMin > b.XMax {
		b.XMin, b.XMax = 0, 1
	}
	if b.YMin > b.YMax {
		b.YMin, b.YMax = 0, 1
	}
	if b.XMax == b.XMin {
		b.XMax = b.XMin + 1
	}
	pad := 0.05 * (b.YMax - b.YMin)
	if pad == 0 {
		pad = 0.5
	}
	b.YMin -= pad
	b.YMax += pad
	return b
}

func (c *Canvas) project(b Bounds, x, y float64) (int, int) {
	w, h := float64(c.Width*2-1), float64(c.Height*4-1)
	px := (x - b.XMin) / (b.XMax - b.XMin) * w
	py := (b.YMax - y) / (b.YMax - b.YMin) * h
	return int(math.Round(px)), int(math.Round(py))
}

// Trace draws y(t) as a polyline. Non-finite samples break the line and
// points outside the window are clipped.
func (c *Canvas) Trace(b Bounds, t, y []float64) {
	havePrev := false
	var px, py int
	for i := range t {
		if i >= len(y) || !finite(t[i]) || !finite(y[i]) {
			havePrev = false
			continue
		}
		x1, y1 := c.project(b, t[i], clamp(y[i], b.YMin, b.YMax))
		if havePrev {
			c.DrawLine(px, py, x1, y1)
		} else {
			c.Set(x1, y1)
		}
		px, py, havePrev = x1, y1, true
	}
}

// Level draws a dotted horizontal line at y.
func (c *Canvas) Level(b Bounds, y float64) {
	if !finite(y) || y < b.YMin || y > b.YMax {
		return
	}
	_, py := c.project(b, b.XMin, y)
	for x := 0; x < c.Width*2; x += 3 {
		c.Set(x, py)
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
