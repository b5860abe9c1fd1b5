package grid

import (
	"bytes"
	"strings"
	"testing"
)

func TestLayout_Default(t *testing.T) {
	cells, err := Layout(DefaultSpec())
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}

	if len(cells) != DefaultRows*DefaultCols {
		t.Fatalf("expected %d cells, got %d", DefaultRows*DefaultCols, len(cells))
	}

	// 500x400 with border 4: inner 492x392, columns 98.4 wide, rows 98 high.
	first := cells[0]
	if first.X != 8 || first.Y != 8 {
		t.Errorf("first cell at (%v,%v), want (8,8)", first.X, first.Y)
	}
	if first.W != 98.4-8 || first.H != 98-8 {
		t.Errorf("first cell size %vx%v, want %vx%v", first.W, first.H, 98.4-8, 98.0-8)
	}

	last := cells[len(cells)-1]
	if last.Row != DefaultRows-1 || last.Col != DefaultCols-1 {
		t.Errorf("last cell is (%d,%d)", last.Row, last.Col)
	}
	if right := last.X + last.W; right > DefaultWidth {
		t.Errorf("last cell overflows canvas: right edge %v", right)
	}
}

func TestSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Spec)
		wantErr bool
	}{
		{name: "default", mutate: func(*Spec) {}},
		{name: "zero rows", mutate: func(s *Spec) { s.Rows = 0 }, wantErr: true},
		{name: "negative border", mutate: func(s *Spec) { s.Border = -1 }, wantErr: true},
		{name: "zero width", mutate: func(s *Spec) { s.Width = 0 }, wantErr: true},
		{name: "cells swallowed by border", mutate: func(s *Spec) { s.Width = 40 }, wantErr: true},
		{name: "no border", mutate: func(s *Spec) { s.Border = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSpec()
			tt.mutate(&s)
			if err := s.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSVG(t *testing.T) {
	var buf bytes.Buffer
	if err := SVG(&buf, DefaultSpec()); err != nil {
		t.Fatalf("SVG failed: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "<svg ") || !strings.HasSuffix(out, "</svg>\n") {
		t.Errorf("not an svg document: %q", out)
	}
	if got := strings.Count(out, `fill="white"`); got != DefaultRows*DefaultCols {
		t.Errorf("expected %d cells, got %d", DefaultRows*DefaultCols, got)
	}
	if !strings.Contains(out, `fill="orange"`) {
		t.Error("missing background")
	}
}
