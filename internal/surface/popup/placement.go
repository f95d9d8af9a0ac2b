package popup

import (
	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/entrykit/internal/config"
)

// placement is the layer-shell anchoring of the popup.
type placement struct {
	top, bottom, left, right bool
	marginX, marginY         int
}

func placementFor(cfg config.DisplayConfig) placement {
	p := placement{marginX: cfg.OffsetX, marginY: cfg.OffsetY}
	switch config.Position(cfg.Position) {
	case config.PositionTopLeft:
		p.top, p.left = true, true
	case config.PositionTopRight:
		p.top, p.right = true, true
	case config.PositionBottomLeft:
		p.bottom, p.left = true, true
	case config.PositionBottomRight:
		p.bottom, p.right = true, true
	case config.PositionBottomCenter:
		p.bottom = true
	default:
		p.top = true
	}
	return p
}

func (p placement) apply(w *gtk.Window) {
	edges := []struct {
		edge     layershell.LayerShellEdge
		anchored bool
		margin   int
	}{
		{layershell.LayerShellEdgeTop, p.top, p.marginY},
		{layershell.LayerShellEdgeBottom, p.bottom, p.marginY},
		{layershell.LayerShellEdgeLeft, p.left, p.marginX},
		{layershell.LayerShellEdgeRight, p.right, p.marginX},
	}
	for _, e := range edges {
		layershell.SetAnchor(w, e.edge, e.anchored)
		if e.anchored {
			layershell.SetMargin(w, e.edge, e.margin)
		}
	}
}
