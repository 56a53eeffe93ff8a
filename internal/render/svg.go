package render

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"math"
	"sort"
	"time"

	"BotHerald/internal/model"
)

var palette = []string{"#954ce9", "#59a6ff", "#8bff9b", "#ffb86b", "#ff7a7a", "#e15bff"}

const (
	padLeft   = 64
	padRight  = 16
	padTop    = 36
	padBottom = 40
)

// SVGRenderer draws line charts as standalone SVG documents.
type SVGRenderer struct {
	Width  int
	Height int
}

// NewSVGRenderer returns a renderer for w x h charts; non-positive sizes fall
// back to 480 x 330.
func NewSVGRenderer(w, h int) *SVGRenderer {
	if w <= 0 {
		w = 480
	}
	if h <= 0 {
		h = 330
	}
	return &SVGRenderer{Width: w, Height: h}
}

func (r *SVGRenderer) Extension() string { return ".svg" }

func (r *SVGRenderer) Render(ctx context.Context, req model.ChartRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Empty() {
		return nil, nil
	}

	keys := make([]string, 0, len(req.Series))
	for k, pts := range req.Series {
		if len(pts) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	minX, maxX := math.MaxFloat64, -math.MaxFloat64
	minY, maxY := math.MaxFloat64, -math.MaxFloat64
	for _, k := range keys {
		for _, p := range req.Series[k] {
			x, y := float64(p.Timestamp), p.Value.InexactFloat64()
			minX, maxX = math.Min(minX, x), math.Max(maxX, x)
			minY, maxY = math.Min(minY, y), math.Max(maxY, y)
		}
	}

	plotW := float64(r.Width - padLeft - padRight)
	plotH := float64(r.Height - padTop - padBottom)
	sx := plotW / (maxX - minX + 1e-9)
	sy := plotH / (maxY - minY + 1e-9)
	project := func(p model.SeriesPoint) (float64, float64) {
		x := (float64(p.Timestamp) - minX) * sx
		if maxX == minX {
			x = plotW / 2
		}
		y := plotH - (p.Value.InexactFloat64()-minY)*sy
		if maxY == minY {
			y = plotH / 2
		}
		return x, y
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "<svg xmlns='http://www.w3.org/2000/svg' width='%d' height='%d' viewBox='0 0 %d %d'>",
		r.Width, r.Height, r.Width, r.Height)
	b.WriteString("<rect width='100%' height='100%' fill='#0b0f17'/>")
	fmt.Fprintf(&b, "<text x='16' y='22' fill='#dddddd' font-family='sans-serif' font-size='14'>%s</text>",
		html.EscapeString(req.Title))

	fmt.Fprintf(&b, "<g transform='translate(%d,%d)'>", padLeft, padTop)
	fmt.Fprintf(&b, "<line x1='0' y1='0' x2='0' y2='%.0f' stroke='#1f2837'/>", plotH)
	fmt.Fprintf(&b, "<line x1='0' y1='%.0f' x2='%.0f' y2='%.0f' stroke='#1f2837'/>", plotH, plotW, plotH)

	label := "<text x='%.2f' y='%.2f' fill='#dddddd' font-family='sans-serif' font-size='10' text-anchor='%s'>%s</text>"
	fmt.Fprintf(&b, label, -6.0, 4.0, "end", formatValue(maxY, req.Unit))
	fmt.Fprintf(&b, label, -6.0, plotH, "end", formatValue(minY, req.Unit))
	fmt.Fprintf(&b, label, 0.0, plotH+16, "start", formatTime(minX))
	if maxX != minX {
		fmt.Fprintf(&b, label, plotW, plotH+16, "end", formatTime(maxX))
	}

	for i, k := range keys {
		color := palette[i%len(palette)]
		pts := req.Series[k]
		if len(pts) == 1 {
			x, y := project(pts[0])
			fmt.Fprintf(&b, "<circle cx='%.2f' cy='%.2f' r='3' fill='%s'/>", x, y, color)
		} else {
			fmt.Fprintf(&b, "<polyline fill='none' stroke='%s' stroke-width='2' points='", color)
			for j, p := range pts {
				x, y := project(p)
				if j > 0 {
					b.WriteByte(' ')
				}
				fmt.Fprintf(&b, "%.2f,%.2f", x, y)
			}
			b.WriteString("'/>")
		}
		// legend
		lx := plotW - float64(len(keys)-i)*90
		fmt.Fprintf(&b, "<rect x='%.2f' y='-20' width='8' height='8' fill='%s'/>", lx, color)
		fmt.Fprintf(&b, label, lx+12, -12.0, "start", html.EscapeString(k))
	}
	b.WriteString("</g></svg>")
	return b.Bytes(), nil
}

func formatValue(v float64, unit string) string {
	s := fmt.Sprintf("%.2f", v)
	if unit != "" {
		s += " " + html.EscapeString(unit)
	}
	return s
}

func formatTime(ts float64) string {
	return time.Unix(int64(ts), 0).UTC().Format("2006-01-02 15:04")
}
