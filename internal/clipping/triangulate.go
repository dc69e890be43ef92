package clipping

// triangulate ear-clips a simple polygon of x, y pairs and appends its
// triangles to out in counter-clockwise order, 6 scalars each.
func (c *SkeletonClipping) triangulate(polygon []float32, out []float32) []float32 {
	n := len(polygon) / 2
	if n < 3 {
		return out
	}

	idx := c.indices[:0]
	if signedArea(polygon) >= 0 {
		for i := 0; i < n; i++ {
			idx = append(idx, i)
		}
	} else {
		for i := n - 1; i >= 0; i-- {
			idx = append(idx, i)
		}
	}

	for len(idx) > 3 {
		ear := -1
		for i := range idx {
			prev := idx[(i+len(idx)-1)%len(idx)]
			next := idx[(i+1)%len(idx)]
			if isEar(polygon, idx, prev, idx[i], next) {
				ear = i
				break
			}
		}
		if ear < 0 {
			// Self-intersecting or degenerate: fan the remainder.
			break
		}
		prev := idx[(ear+len(idx)-1)%len(idx)]
		next := idx[(ear+1)%len(idx)]
		out = appendTriangle(out, polygon, prev, idx[ear], next)
		idx = append(idx[:ear], idx[ear+1:]...)
	}

	for i := 1; i+1 < len(idx); i++ {
		out = appendTriangle(out, polygon, idx[0], idx[i], idx[i+1])
	}

	c.indices = idx
	return out
}

// appendTriangle appends a, b, c if they wind counter-clockwise with
// non-zero area.
func appendTriangle(out, polygon []float32, a, b, c int) []float32 {
	ax, ay := polygon[a*2], polygon[a*2+1]
	bx, by := polygon[b*2], polygon[b*2+1]
	cx, cy := polygon[c*2], polygon[c*2+1]
	if cross(ax, ay, bx, by, cx, cy) <= 0 {
		return out
	}
	return append(out, ax, ay, bx, by, cx, cy)
}

func isEar(polygon []float32, idx []int, prev, cur, next int) bool {
	ax, ay := polygon[prev*2], polygon[prev*2+1]
	bx, by := polygon[cur*2], polygon[cur*2+1]
	cx, cy := polygon[next*2], polygon[next*2+1]
	if cross(ax, ay, bx, by, cx, cy) <= 0 {
		return false
	}
	for _, i := range idx {
		if i == prev || i == cur || i == next {
			continue
		}
		if inTriangle(polygon[i*2], polygon[i*2+1], ax, ay, bx, by, cx, cy) {
			return false
		}
	}
	return true
}

// cross is twice the signed area of triangle a, b, c.
func cross(ax, ay, bx, by, cx, cy float32) float32 {
	return (bx-ax)*(cy-ay) - (by-ay)*(cx-ax)
}

func inTriangle(px, py, ax, ay, bx, by, cx, cy float32) bool {
	return cross(ax, ay, bx, by, px, py) >= 0 &&
		cross(bx, by, cx, cy, px, py) >= 0 &&
		cross(cx, cy, ax, ay, px, py) >= 0
}

func signedArea(polygon []float32) float32 {
	var area float32
	n := len(polygon)
	for i := 0; i+1 < n; i += 2 {
		x1, y1 := polygon[i], polygon[i+1]
		x2, y2 := polygon[(i+2)%n], polygon[(i+3)%n]
		area += x1*y2 - x2*y1
	}
	return area / 2
}
