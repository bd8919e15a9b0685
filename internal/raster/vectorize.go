package raster

import (
	"github.com/paulmach/orb"
)

// Region is one connected area of equal class.
type Region struct {
	Class   uint8
	Polygon orb.Polygon
}

// edge is a unit pixel edge between vertex ids, oriented so the region lies
// to its left in a north-up frame.
type edge struct {
	from, to int32
	dx, dr   int8
}

// Vectorize polygonizes every 4-connected region of equal non-zero class.
// Regions are returned in the order of their first pixel in a row-major scan.
// Exterior rings are counter-clockwise and holes clockwise in world
// coordinates.
func Vectorize(c *ClassRaster, gt GeoTransform) []Region {
	return VectorizeMasked(c, gt, nil)
}

// VectorizeMasked is Vectorize restricted to pixels where mask is true.
// A nil mask selects every pixel.
func VectorizeMasked(c *ClassRaster, gt GeoTransform, mask []bool) []Region {
	if c.Width == 0 || c.Height == 0 {
		return nil
	}

	labels, classes := label(c, mask)
	if len(classes) == 0 {
		return nil
	}

	// Pixels of every component, in row-major order.
	members := make([][]int32, len(classes))
	for i, l := range labels {
		if l >= 0 {
			members[l] = append(members[l], int32(i))
		}
	}

	vw := c.Width + 1
	out1 := make([]int32, vw*(c.Height+1))
	out2 := make([]int32, vw*(c.Height+1))
	for i := range out1 {
		out1[i] = -1
		out2[i] = -1
	}

	regions := make([]Region, 0, len(classes))
	for l := range classes {
		edges := boundaryEdges(c, labels, int32(l), members[l])
		for i, e := range edges {
			if out1[e.from] < 0 {
				out1[e.from] = int32(i)
			} else {
				out2[e.from] = int32(i)
			}
		}

		rings := traceRings(edges, out1, out2, vw)

		for _, e := range edges {
			out1[e.from] = -1
			out2[e.from] = -1
		}

		for _, polygon := range assemble(rings, gt) {
			regions = append(regions, Region{Class: classes[l], Polygon: polygon})
		}
	}

	return regions
}

// label assigns 4-connected component ids. Excluded pixels get -1.
func label(c *ClassRaster, mask []bool) ([]int32, []uint8) {
	labels := make([]int32, len(c.Values))
	for i := range labels {
		labels[i] = -1
	}

	var (
		classes []uint8
		stack   []int32
	)

	for start, v := range c.Values {
		if v == 0 || labels[start] >= 0 || (mask != nil && !mask[start]) {
			continue
		}

		id := int32(len(classes))
		classes = append(classes, v)

		labels[start] = id
		stack = append(stack[:0], int32(start))
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			col, row := int(p)%c.Width, int(p)/c.Width
			for _, n := range [4][2]int{{col - 1, row}, {col + 1, row}, {col, row - 1}, {col, row + 1}} {
				if n[0] < 0 || n[0] >= c.Width || n[1] < 0 || n[1] >= c.Height {
					continue
				}
				q := n[1]*c.Width + n[0]
				if labels[q] >= 0 || c.Values[q] != v || (mask != nil && !mask[q]) {
					continue
				}
				labels[q] = id
				stack = append(stack, int32(q))
			}
		}
	}

	return labels, classes
}

// boundaryEdges returns the edges between component l and everything else.
// Around a single pixel they run west along the top, south along the left,
// east along the bottom and north along the right.
func boundaryEdges(c *ClassRaster, labels []int32, l int32, pixels []int32) []edge {
	vw := int32(c.Width + 1)
	w := int32(c.Width)
	h := int32(c.Height)

	inside := func(col, row int32) bool {
		if col < 0 || col >= w || row < 0 || row >= h {
			return false
		}
		return labels[row*w+col] == l
	}
	vid := func(col, row int32) int32 { return row*vw + col }

	var edges []edge
	for _, p := range pixels {
		col, row := p%w, p/w

		if !inside(col, row-1) {
			edges = append(edges, edge{from: vid(col+1, row), to: vid(col, row), dx: -1})
		}
		if !inside(col-1, row) {
			edges = append(edges, edge{from: vid(col, row), to: vid(col, row+1), dr: 1})
		}
		if !inside(col, row+1) {
			edges = append(edges, edge{from: vid(col, row+1), to: vid(col+1, row+1), dx: 1})
		}
		if !inside(col+1, row) {
			edges = append(edges, edge{from: vid(col+1, row+1), to: vid(col+1, row), dr: -1})
		}
	}
	return edges
}

// traceRings links edges into closed rings of vertex ids with collinear
// vertices removed. Where two edges leave the same vertex the ring takes the
// right turn, so rings touching at a corner stay separate.
func traceRings(edges []edge, out1, out2 []int32, vw int) [][][2]int32 {
	used := make([]bool, len(edges))
	var rings [][][2]int32

	for start := range edges {
		if used[start] {
			continue
		}

		var (
			ring  [][2]int32
			trail []int32
		)
		cur := int32(start)
		for {
			used[cur] = true
			e := edges[cur]
			ring = append(ring, [2]int32{e.from % int32(vw), e.from / int32(vw)})
			trail = append(trail, cur)

			next := out1[e.to]
			if alt := out2[e.to]; alt >= 0 {
				a, b := edges[next], edges[alt]
				// Right turn in a north-up frame.
				if int32(e.dr)*int32(a.dx)-int32(e.dx)*int32(a.dr) >= 0 && int32(e.dr)*int32(b.dx)-int32(e.dx)*int32(b.dr) < 0 {
					next = alt
				}
			}
			if next == int32(start) || next < 0 || used[next] {
				break
			}
			cur = next
		}

		rings = append(rings, simplify(ring, trail, edges))
	}
	return rings
}

// simplify drops vertices where the incoming and outgoing edges share a
// direction.
func simplify(ring [][2]int32, edgeIdx []int32, edges []edge) [][2]int32 {
	n := len(ring)
	out := make([][2]int32, 0, n)
	for i := 0; i < n; i++ {
		prev := edges[edgeIdx[(i+n-1)%n]]
		cur := edges[edgeIdx[i]]
		if prev.dx == cur.dx && prev.dr == cur.dr {
			continue
		}
		out = append(out, ring[i])
	}
	return out
}

// assemble maps pixel-vertex rings to world coordinates and groups them into
// polygons, one per exterior ring. Each hole joins the smallest exterior
// whose bound covers it.
func assemble(rings [][][2]int32, gt GeoTransform) []orb.Polygon {
	var (
		polygons []orb.Polygon
		holes    []orb.Ring
	)

	for _, r := range rings {
		if len(r) < 3 {
			continue
		}

		world := make(orb.Ring, 0, len(r)+1)
		for _, v := range r {
			world = append(world, gt.Apply(float64(v[0]), float64(v[1])))
		}
		world = append(world, world[0])

		// In pixel space with rows growing downward, exterior rings have
		// negative shoelace area.
		isExterior := pixelArea(r) < 0
		area := signedArea(world)
		if (isExterior && area < 0) || (!isExterior && area > 0) {
			world.Reverse()
		}

		if isExterior {
			polygons = append(polygons, orb.Polygon{world})
		} else {
			holes = append(holes, world)
		}
	}

	for _, h := range holes {
		hb := h.Bound()
		best := -1
		for i, p := range polygons {
			if !covers(p[0].Bound(), hb) {
				continue
			}
			if best < 0 || signedArea(p[0]) < signedArea(polygons[best][0]) {
				best = i
			}
		}
		if best >= 0 {
			polygons[best] = append(polygons[best], h)
		}
	}
	return polygons
}

func covers(outer, inner orb.Bound) bool {
	return outer.Min[0] <= inner.Min[0] && outer.Min[1] <= inner.Min[1] &&
		outer.Max[0] >= inner.Max[0] && outer.Max[1] >= inner.Max[1]
}

func pixelArea(r [][2]int32) int64 {
	var sum int64
	n := len(r)
	for i := 0; i < n; i++ {
		a, b := r[i], r[(i+1)%n]
		sum += int64(a[0])*int64(b[1]) - int64(b[0])*int64(a[1])
	}
	return sum
}

func signedArea(r orb.Ring) float64 {
	var sum float64
	for i := 0; i+1 < len(r); i++ {
		sum += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return sum / 2
}
