package coverage

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// CircleSteps is the number of vertices in a coverage circle.
const CircleSteps = 64

// Circle approximates a geodesic circle as a closed ring of steps vertices.
func Circle(center orb.Point, radiusMeters float64, steps int) orb.Ring {
	if steps < 3 {
		steps = 3
	}
	ring := make(orb.Ring, 0, steps+1)
	for i := 0; i < steps; i++ {
		bearing := 360 * float64(i) / float64(steps)
		ring = append(ring, geo.PointAtBearingAndDistance(center, bearing, radiusMeters))
	}
	return append(ring, ring[0])
}

// IntersectCircleWithServiceArea clips a coverage circle against each outer
// ring of the zone. Disjoint inputs yield an empty result.
func IntersectCircleWithServiceArea(center orb.Point, radiusMeters float64, zone Zone) []orb.Ring {
	circle := Circle(center, radiusMeters, CircleSteps)
	cb := circle.Bound()

	var out []orb.Ring
	for _, poly := range zone.Polygons {
		if len(poly) == 0 {
			continue
		}
		outer := poly[0]
		if !cb.Intersects(outer.Bound()) {
			continue
		}
		if r := clipRing(outer, circle); len(r) >= 4 {
			out = append(out, r)
		}
	}
	return out
}

// clipRing is Sutherland-Hodgman: subject may be concave, clip must be convex.
func clipRing(subject, clip orb.Ring) orb.Ring {
	output := openRing(subject)
	edges := openRing(clip)
	if clip.Orientation() == orb.CW {
		reverse(edges)
	}

	for i := range edges {
		if len(output) == 0 {
			break
		}
		a, b := edges[i], edges[(i+1)%len(edges)]
		input := output
		output = make([]orb.Point, 0, len(input)+2)

		prev := input[len(input)-1]
		prevIn := leftOf(prev, a, b)
		for _, cur := range input {
			curIn := leftOf(cur, a, b)
			switch {
			case curIn && !prevIn:
				output = append(output, crossing(prev, cur, a, b), cur)
			case curIn:
				output = append(output, cur)
			case prevIn:
				output = append(output, crossing(prev, cur, a, b))
			}
			prev, prevIn = cur, curIn
		}
	}

	output = dedupe(output)
	if len(output) < 3 {
		return nil
	}
	ring := orb.Ring(output)
	return append(ring, ring[0])
}

func openRing(r orb.Ring) []orb.Point {
	pts := []orb.Point(r)
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	out := make([]orb.Point, len(pts))
	copy(out, pts)
	return out
}

func reverse(pts []orb.Point) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}

func leftOf(p, a, b orb.Point) bool {
	return (b[0]-a[0])*(p[1]-a[1])-(b[1]-a[1])*(p[0]-a[0]) >= 0
}

// crossing returns where segment p-q meets the line through a and b.
func crossing(p, q, a, b orb.Point) orb.Point {
	dx, dy := q[0]-p[0], q[1]-p[1]
	ex, ey := b[0]-a[0], b[1]-a[1]
	den := dx*ey - dy*ex
	if den == 0 {
		return q
	}
	t := ((a[0]-p[0])*ey - (a[1]-p[1])*ex) / den
	return orb.Point{p[0] + t*dx, p[1] + t*dy}
}

func dedupe(pts []orb.Point) []orb.Point {
	out := pts[:0]
	for _, p := range pts {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	if len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

// MatchZIPs returns the codes whose centroid lies inside any ring, sorted
// and without duplicates.
func MatchZIPs(rings []orb.Ring, zips []ZIP) []string {
	seen := make(map[string]struct{})
	for _, z := range zips {
		p := z.Point()
		for _, r := range rings {
			if planar.RingContains(r, p) {
				seen[z.Code] = struct{}{}
				break
			}
		}
	}
	out := make([]string, 0, len(seen))
	for code := range seen {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
