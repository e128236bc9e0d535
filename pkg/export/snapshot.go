// Package export renders static snapshots of the 2D layout.
package export

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/sync/errgroup"

	"github.com/kraitsura/ktree_viewer/pkg/focus"
	"github.com/kraitsura/ktree_viewer/pkg/layout"
)

// Supported snapshot formats.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
)

// Palette.
const (
	background  = "#ffffff"
	edgeColor   = "#94a3b8"
	nodeColor   = "#6366f1"
	focusColor  = "#f59e0b"
	labelColor  = "#0f172a"
	titleColor  = "#334155"
	canvasPad   = 24.0
	labelOffset = 14.0
	fontSize    = 12.0
)

// Options configures SaveSnapshot.
type Options struct {
	Path string
	// Format is "svg" or "png". Empty infers it from the Path extension.
	Format string
	Layout *layout.Result
	Focus  focus.Snapshot
	Title  string
	// Scale multiplies the PNG pixel size. Defaults to 1.
	Scale float64
}

// SaveSnapshot writes the layout to opts.Path in the chosen format.
func SaveSnapshot(opts Options) error {
	if opts.Layout == nil {
		return fmt.Errorf("snapshot: layout is required")
	}
	format, err := resolveFormat(opts)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(opts.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(opts.Path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer f.Close()

	switch format {
	case FormatSVG:
		err = WriteSVG(f, opts.Layout, opts.Focus, opts.Title)
	case FormatPNG:
		err = WritePNG(f, opts.Layout, opts.Focus, opts.Title, opts.Scale)
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}
	return f.Close()
}

// SaveAll writes one snapshot per format next to base (base + "." + format)
// concurrently and returns the written paths in format order.
func SaveAll(ctx context.Context, base string, formats []string, opts Options) ([]string, error) {
	paths := make([]string, len(formats))
	g, ctx := errgroup.WithContext(ctx)
	for i, format := range formats {
		i, format := i, strings.ToLower(format)
		paths[i] = base + "." + format
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			o := opts
			o.Path = paths[i]
			o.Format = format
			return SaveSnapshot(o)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func resolveFormat(opts Options) (string, error) {
	format := strings.ToLower(opts.Format)
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(opts.Path)), ".")
	}
	switch format {
	case FormatSVG, FormatPNG:
		return format, nil
	}
	return "", fmt.Errorf("unsupported snapshot format %q (use svg or png)", format)
}

// bounds returns the drawing offset and canvas size. Dragged nodes may sit
// outside the computed layout box, so the box grows to cover them.
type bounds struct {
	dx, dy, w, h float64
}

func computeBounds(res *layout.Result, title string) bounds {
	minX, minY := 0.0, 0.0
	maxX, maxY := res.Width, res.Height
	for _, n := range res.Nodes {
		minX = math.Min(minX, n.X-n.Radius)
		minY = math.Min(minY, n.Y-n.Radius)
		maxX = math.Max(maxX, n.X+n.Radius)
		maxY = math.Max(maxY, n.Y+n.Radius+labelOffset+fontSize)
	}
	top := canvasPad
	if title != "" {
		top += 2 * fontSize
	}
	return bounds{
		dx: canvasPad - minX,
		dy: top - minY,
		w:  maxX - minX + 2*canvasPad,
		h:  maxY - minY + top + canvasPad,
	}
}

func nodePositions(res *layout.Result) map[string]layout.Node {
	out := make(map[string]layout.Node, len(res.Nodes))
	for _, n := range res.Nodes {
		out[n.ID] = n
	}
	return out
}

// WriteSVG renders the layout as SVG.
func WriteSVG(w io.Writer, res *layout.Result, snap focus.Snapshot, title string) error {
	b := computeBounds(res, title)
	nodes := nodePositions(res)

	canvas := svg.New(w)
	canvas.Start(int(math.Ceil(b.w)), int(math.Ceil(b.h)))
	canvas.Rect(0, 0, int(math.Ceil(b.w)), int(math.Ceil(b.h)), "fill:"+background)
	if title != "" {
		canvas.Title(title)
		canvas.Text(int(b.w/2), int(canvasPad+fontSize), title,
			fmt.Sprintf("text-anchor:middle;font-family:sans-serif;font-size:%.0fpx;font-weight:bold;fill:%s", fontSize*1.4, titleColor))
	}

	canvas.Gstyle("stroke:" + edgeColor + ";stroke-linecap:round")
	for _, e := range res.Edges {
		s, t := nodes[e.Source], nodes[e.Target]
		canvas.Line(px(s.X+b.dx), px(s.Y+b.dy), px(t.X+b.dx), px(t.Y+b.dy),
			fmt.Sprintf("stroke-width:%.2f", e.Width))
	}
	canvas.Gend()

	for _, n := range res.Nodes {
		fill := nodeColor
		if snap.Matches(n.Label) {
			fill = focusColor
		}
		canvas.Circle(px(n.X+b.dx), px(n.Y+b.dy), px(n.Radius), "fill:"+fill+";fill-opacity:0.85")
		canvas.Text(px(n.X+b.dx), px(n.Y+b.dy+n.Radius+labelOffset), n.Label,
			fmt.Sprintf("text-anchor:middle;font-family:sans-serif;font-size:%.0fpx;fill:%s", fontSize, labelColor))
	}
	canvas.End()
	return nil
}

func px(v float64) int {
	return int(math.Round(v))
}

// WritePNG renders the layout as PNG using the Go font.
func WritePNG(w io.Writer, res *layout.Result, snap focus.Snapshot, title string, scale float64) error {
	if scale <= 0 {
		scale = 1
	}
	b := computeBounds(res, title)
	nodes := nodePositions(res)

	face, err := goFace(fontSize * scale)
	if err != nil {
		return err
	}
	defer face.Close()

	dc := gg.NewContext(int(math.Ceil(b.w*scale)), int(math.Ceil(b.h*scale)))
	dc.Scale(scale, scale)
	dc.SetHexColor(background)
	dc.Clear()

	dc.SetHexColor(edgeColor)
	dc.SetLineCap(gg.LineCapRound)
	for _, e := range res.Edges {
		s, t := nodes[e.Source], nodes[e.Target]
		dc.SetLineWidth(e.Width)
		dc.DrawLine(s.X+b.dx, s.Y+b.dy, t.X+b.dx, t.Y+b.dy)
		dc.Stroke()
	}

	for _, n := range res.Nodes {
		c := mustHex(nodeColor)
		if snap.Matches(n.Label) {
			c = mustHex(focusColor)
		}
		c.A = 0xd9
		dc.SetColor(c)
		dc.DrawCircle(n.X+b.dx, n.Y+b.dy, n.Radius)
		dc.Fill()
	}

	// The face is sized in device pixels, so text is drawn unscaled.
	dc.Identity()
	dc.SetFontFace(face)
	dc.SetHexColor(labelColor)
	for _, n := range res.Nodes {
		dc.DrawStringAnchored(n.Label, (n.X+b.dx)*scale, (n.Y+b.dy+n.Radius+labelOffset)*scale, 0.5, 0.5)
	}
	if title != "" {
		dc.SetHexColor(titleColor)
		dc.DrawStringAnchored(title, b.w*scale/2, (canvasPad+fontSize/2)*scale, 0.5, 0.5)
	}
	return dc.EncodePNG(w)
}

func goFace(size float64) (font.Face, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("load font face: %w", err)
	}
	return face, nil
}

func mustHex(hex string) color.NRGBA {
	hex = strings.TrimPrefix(hex, "#")
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.NRGBA{A: 0xff}
	}
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}
}
