// Package surface converts layouts into the node and edge shapes the
// browser rendering surfaces consume.
package surface

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kraitsura/ktree_viewer/pkg/camera"
	"github.com/kraitsura/ktree_viewer/pkg/focus"
	"github.com/kraitsura/ktree_viewer/pkg/layout"
	"github.com/kraitsura/ktree_viewer/pkg/model"
	"github.com/kraitsura/ktree_viewer/pkg/nav"
	"github.com/kraitsura/ktree_viewer/pkg/scene"
)

// Point is a 2D position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the payload the 2D surface renders inside a node.
type NodeData struct {
	Label   string  `json:"label"`
	Radius  float64 `json:"radius"`
	Weight  float64 `json:"weight"`
	Depth   int     `json:"depth"`
	Widgets int     `json:"widgets,omitempty"`
	Focused bool    `json:"focused"`
}

// FlatNode is a 2D surface node.
type FlatNode struct {
	ID       string   `json:"id"`
	Position Point    `json:"position"`
	Data     NodeData `json:"data"`
}

// FlatEdge is a 2D surface edge. Weights holds the source and target node
// weights for surfaces that taper strokes themselves.
type FlatEdge struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	Target      string     `json:"target"`
	StrokeWidth float64    `json:"strokeWidth"`
	Weights     [2]float64 `json:"weights"`
	Widths      [2]float64 `json:"widths"`
}

// Diagram is the full 2D surface payload.
type Diagram struct {
	Nodes  []FlatNode `json:"nodes"`
	Edges  []FlatEdge `json:"edges"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
}

// FromLayout converts a 2D layout, marking nodes whose label is focused.
func FromLayout(res *layout.Result, snap focus.Snapshot) Diagram {
	d := Diagram{
		Nodes:  make([]FlatNode, 0, len(res.Nodes)),
		Edges:  make([]FlatEdge, 0, len(res.Edges)),
		Width:  res.Width,
		Height: res.Height,
	}
	weights := make(map[string]float64, len(res.Nodes))
	for _, n := range res.Nodes {
		weights[n.ID] = n.Weight
		d.Nodes = append(d.Nodes, FlatNode{
			ID:       n.ID,
			Position: Point{X: n.X, Y: n.Y},
			Data: NodeData{
				Label:   n.Label,
				Radius:  n.Radius,
				Weight:  n.Weight,
				Depth:   n.Depth,
				Widgets: n.Widgets,
				Focused: snap.Matches(n.Label),
			},
		})
	}
	for _, e := range res.Edges {
		d.Edges = append(d.Edges, FlatEdge{
			ID:          e.ID,
			Source:      e.Source,
			Target:      e.Target,
			StrokeWidth: e.Width,
			Weights:     [2]float64{weights[e.Source], weights[e.Target]},
			Widths:      [2]float64{e.SourceWidth, e.TargetWidth},
		})
	}
	return d
}

// SpaceNode is a 3D surface node.
type SpaceNode struct {
	ID       string     `json:"id"`
	Label    string     `json:"label"`
	Position [3]float64 `json:"position"`
	Weight   float64    `json:"weight"`
	Scale    float64    `json:"scale"`
	Focused  bool       `json:"focused"`
}

// SpaceEdge is a 3D surface edge.
type SpaceEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Widget is a media widget placed at its anchor next to the owning node.
type Widget struct {
	NodeID   string          `json:"node_id"`
	Name     string          `json:"name"`
	Title    string          `json:"title"`
	Subtitle string          `json:"subtitle,omitempty"`
	Notes    string          `json:"notes,omitempty"`
	Kind     model.MediaKind `json:"kind"`
	VideoID  string          `json:"video_id,omitempty"`
	Broken   bool            `json:"broken,omitempty"`
	Anchor   [3]float64      `json:"anchor"`
}

// Space is the full 3D surface payload.
type Space struct {
	Nodes   []SpaceNode `json:"nodes"`
	Edges   []SpaceEdge `json:"edges"`
	Widgets []Widget    `json:"widgets"`
}

// FromScene converts a 3D layout. root supplies the widget payloads; it may
// be nil, in which case no widgets are emitted.
func FromScene(res *scene.Result, root *model.TreeNode, snap focus.Snapshot) Space {
	s := Space{
		Nodes:   make([]SpaceNode, 0, len(res.Nodes)),
		Edges:   make([]SpaceEdge, 0, len(res.Edges)),
		Widgets: []Widget{},
	}
	byID := model.Index(root)
	for _, n := range res.Nodes {
		s.Nodes = append(s.Nodes, SpaceNode{
			ID:       n.ID,
			Label:    n.Label,
			Position: Vec(n.Position),
			Weight:   n.Weight,
			Scale:    n.Scale,
			Focused:  snap.Matches(n.Label),
		})
		src, ok := byID[n.ID]
		if !ok {
			continue
		}
		for i, w := range src.Widgets {
			if i >= len(n.WidgetAnchors) {
				break
			}
			ref := w.Classify()
			s.Widgets = append(s.Widgets, Widget{
				NodeID:   n.ID,
				Name:     w.Name,
				Title:    w.DisplayTitle(),
				Subtitle: w.Subtitle,
				Notes:    w.Notes,
				Kind:     ref.Kind,
				VideoID:  ref.VideoID,
				Broken:   ref.Broken,
				Anchor:   Vec(n.WidgetAnchors[i]),
			})
		}
	}
	for _, e := range res.Edges {
		s.Edges = append(s.Edges, SpaceEdge{Source: e.Source, Target: e.Target})
	}
	return s
}

// Navigation is the navigation readout payload.
type Navigation struct {
	Enabled     bool   `json:"enabled"`
	Position    string `json:"position"`
	Current     string `json:"current"`
	Next        string `json:"next"`
	CanPrevious bool   `json:"can_previous"`
}

// FromStatus converts a navigation status.
func FromStatus(st nav.Status) Navigation {
	return Navigation{
		Enabled:     st.Enabled,
		Position:    st.Position,
		Current:     st.Current,
		Next:        st.NextLabel,
		CanPrevious: st.CanPrevious,
	}
}

// Camera is the camera payload sent to the 3D surface each frame.
type Camera struct {
	Position [3]float64 `json:"position"`
	Target   [3]float64 `json:"target"`
	Phase    string     `json:"phase"`
}

// FromCamera converts a camera pose.
func FromCamera(c camera.Camera, phase camera.Phase) Camera {
	return Camera{Position: Vec(c.Position), Target: Vec(c.Target), Phase: phase.String()}
}

// Vec flattens a vector into the [x, y, z] array form.
func Vec(v r3.Vec) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}
