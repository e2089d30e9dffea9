package diagram

// Rendered footprint constants. Any renderer that draws class nodes from
// the same content arrives at the same footprint, so derived geometry such
// as connection-point placement stays renderer-independent.
const (
	// NodeWidth is the fixed rendered width of a class-like node.
	NodeWidth = 220.0
	// PointSize is the rendered size of a connection-point marker.
	PointSize = 12.0

	minNodeHeight   = 80.0
	verticalPadding = 24.0
	titleHeight     = 28.0
	sectionTitle    = 22.0
	lineHeight      = 20.0
	sectionTrailing = 8.0
)

// Size is a rendered width/height pair.
type Size struct {
	Width  float64
	Height float64
}

// Footprint computes the node's rendered footprint from its content.
// The height grows by a section-title allowance plus one line per entry for
// each non-empty section, and is floored at a minimum.
func (n Node) Footprint() Size {
	if n.Role == RoleConnectionPoint {
		return Size{Width: PointSize, Height: PointSize}
	}
	h := verticalPadding + titleHeight
	for _, section := range [][]string{n.Attributes, n.Methods} {
		if len(section) == 0 {
			continue
		}
		h += sectionTitle + lineHeight*float64(len(section)) + sectionTrailing
	}
	if h < minNodeHeight {
		h = minNodeHeight
	}
	return Size{Width: NodeWidth, Height: h}
}

// Center returns the center of the node's rendered footprint.
func (n Node) Center() Position {
	fp := n.Footprint()
	return Position{X: n.Position.X + fp.Width/2, Y: n.Position.Y + fp.Height/2}
}

// Midpoint returns the midpoint of the segment joining a and b.
func Midpoint(a, b Position) Position {
	return Position{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// RoutingPoint returns the point on the node's footprint border where an
// edge attached at the given handle leaves the node. An invalid or unset
// handle routes from the footprint center.
func (n Node) RoutingPoint(h Handle) Position {
	fp := n.Footprint()
	x, y := n.Position.X, n.Position.Y
	switch h {
	case HandleRightTop:
		return Position{X: x + fp.Width, Y: y + fp.Height*0.25}
	case HandleRightCenter:
		return Position{X: x + fp.Width, Y: y + fp.Height*0.5}
	case HandleRightBottom:
		return Position{X: x + fp.Width, Y: y + fp.Height*0.75}
	case HandleLeftTop:
		return Position{X: x, Y: y + fp.Height*0.25}
	case HandleLeftCenter:
		return Position{X: x, Y: y + fp.Height*0.5}
	case HandleLeftBottom:
		return Position{X: x, Y: y + fp.Height*0.75}
	case HandleTopCenter:
		return Position{X: x + fp.Width/2, Y: y}
	case HandleBottomCenter:
		return Position{X: x + fp.Width/2, Y: y + fp.Height}
	default:
		return n.Center()
	}
}

// RouteMidpoint returns the midpoint of the smooth-step path between the
// edge-routing points of the two endpoint nodes. It matches the label
// placement rule renderers use for the same curve, which is what the
// connection-point of an association-class tracks.
func RouteMidpoint(source Node, sourceHandle Handle, target Node, targetHandle Handle) Position {
	return Midpoint(source.RoutingPoint(sourceHandle), target.RoutingPoint(targetHandle))
}

// Within reports whether a and b are within the given tolerance of each
// other on both axes.
func Within(a, b Position, tolerance float64) bool {
	dx := a.X - b.X
	dy := a.Y - b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx <= tolerance && dy <= tolerance
}
