package layout

import "math"

// separationSlack keeps a resolved pair from landing a rounding error
// short of minDistance.
const separationSlack = 1e-9

// ResolveCollisions runs a single declutter pass: every pair of nodes whose
// centres are closer than minDistance is pushed apart along the line
// between them, each node moving by half the deficit. Pairs are handled in
// index order and positions update in place, so a later pair sees the
// effect of earlier pushes. A push that would leave the two nodes with more
// close neighbours than before is skipped, so a pass never increases the
// number of violating pairs.
//
// This is a cheap local fix-up, not a force layout. It does not iterate to
// a fixed point, and dense clusters can keep residual overlaps after a pass.
//
// It returns the number of pairs that were pushed.
func ResolveCollisions(nodes []Node, minDistance float64) int {
	if minDistance <= 0 {
		return 0
	}
	pushed := 0
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			a, b := &nodes[i], &nodes[j]
			dx := b.X - a.X
			dy := b.Y - a.Y
			dist := math.Hypot(dx, dy)
			if dist >= minDistance {
				continue
			}
			var ux, uy float64
			if dist == 0 {
				// Exact overlap has no direction; pick one from the pair
				// indices so the result stays deterministic.
				angle := float64(i*31+j*17) * 0.618033988749895 * 2 * math.Pi
				ux, uy = math.Cos(angle), math.Sin(angle)
			} else {
				ux, uy = dx/dist, dy/dist
			}
			half := (minDistance-dist)/2 + separationSlack

			before := violationsAround(nodes, i, j, minDistance)
			ax, ay, bx, by := a.X, a.Y, b.X, b.Y
			a.X -= ux * half
			a.Y -= uy * half
			b.X += ux * half
			b.Y += uy * half
			if violationsAround(nodes, i, j, minDistance) > before {
				a.X, a.Y, b.X, b.Y = ax, ay, bx, by
				continue
			}
			pushed++
		}
	}
	return pushed
}

// violationsAround counts violating pairs that involve node i or node j.
func violationsAround(nodes []Node, i, j int, minDistance float64) int {
	count := 0
	if tooClose(nodes[i], nodes[j], minDistance) {
		count++
	}
	for k := range nodes {
		if k == i || k == j {
			continue
		}
		if tooClose(nodes[i], nodes[k], minDistance) {
			count++
		}
		if tooClose(nodes[j], nodes[k], minDistance) {
			count++
		}
	}
	return count
}

func tooClose(a, b Node, minDistance float64) bool {
	return math.Hypot(b.X-a.X, b.Y-a.Y) < minDistance
}

// CountViolations returns the number of node pairs closer than minDistance.
func CountViolations(nodes []Node, minDistance float64) int {
	count := 0
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			if tooClose(nodes[i], nodes[j], minDistance) {
				count++
			}
		}
	}
	return count
}
