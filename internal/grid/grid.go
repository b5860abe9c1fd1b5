// Package grid lays out the page's fixed grid: a filled background with
// rows × cols cleared cells inset by a border.
package grid

import (
	"fmt"
	"io"
)

// Default page grid.
const (
	DefaultRows       = 4
	DefaultCols       = 5
	DefaultBorder     = 4
	DefaultWidth      = 500
	DefaultHeight     = 400
	DefaultBackground = "orange"
)

// Spec describes a grid.
type Spec struct {
	Width      float64 `json:"width" yaml:"width"`
	Height     float64 `json:"height" yaml:"height"`
	Rows       int     `json:"rows" yaml:"rows"`
	Cols       int     `json:"cols" yaml:"cols"`
	Border     float64 `json:"border" yaml:"border"`
	Background string  `json:"background" yaml:"background"`
}

// DefaultSpec returns the page's grid.
func DefaultSpec() Spec {
	return Spec{
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		Rows:       DefaultRows,
		Cols:       DefaultCols,
		Border:     DefaultBorder,
		Background: DefaultBackground,
	}
}

// Validate checks that the grid leaves room for every cell.
func (s Spec) Validate() error {
	if s.Rows < 1 || s.Cols < 1 {
		return fmt.Errorf("grid needs at least one row and column, got %dx%d", s.Rows, s.Cols)
	}
	if s.Border < 0 {
		return fmt.Errorf("grid border must be >= 0, got %v", s.Border)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("grid size must be positive, got %vx%v", s.Width, s.Height)
	}
	colW, rowH := s.cellSize()
	if colW-2*s.Border <= 0 || rowH-2*s.Border <= 0 {
		return fmt.Errorf("grid %vx%v is too small for %dx%d cells with border %v", s.Width, s.Height, s.Rows, s.Cols, s.Border)
	}
	return nil
}

// Rect is an axis-aligned rectangle in canvas coordinates.
type Rect struct {
	Row, Col int
	X, Y     float64
	W, H     float64
}

func (s Spec) cellSize() (colW, rowH float64) {
	inner := func(total float64) float64 { return total - 2*s.Border }
	return inner(s.Width) / float64(s.Cols), inner(s.Height) / float64(s.Rows)
}

// Layout returns the cleared cells, row by row.
func Layout(s Spec) ([]Rect, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	colW, rowH := s.cellSize()
	cells := make([]Rect, 0, s.Rows*s.Cols)
	for row := 0; row < s.Rows; row++ {
		for col := 0; col < s.Cols; col++ {
			cells = append(cells, Rect{
				Row: row,
				Col: col,
				X:   s.Border + colW*float64(col) + s.Border,
				Y:   s.Border + rowH*float64(row) + s.Border,
				W:   colW - 2*s.Border,
				H:   rowH - 2*s.Border,
			})
		}
	}
	return cells, nil
}

// SVG renders the grid as a standalone SVG document.
func SVG(w io.Writer, s Spec) error {
	cells, err := Layout(s)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, `<svg xmlns="http://www.w3.org/2000/svg" width="%g" height="%g" viewBox="0 0 %g %g">`+"\n",
		s.Width, s.Height, s.Width, s.Height); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, `<rect x="0" y="0" width="%g" height="%g" fill="%s"/>`+"\n", s.Width, s.Height, s.Background); err != nil {
		return err
	}
	for _, c := range cells {
		if _, err := fmt.Fprintf(w, `<rect x="%g" y="%g" width="%g" height="%g" fill="white"/>`+"\n", c.X, c.Y, c.W, c.H); err != nil {
			return err
		}
	}
	_, err = io.WriteString(w, "</svg>\n")
	return err
}
