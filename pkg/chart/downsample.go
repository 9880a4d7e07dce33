package chart

// maxDisplayPoints limits how many samples the renderer walks per refresh.
const maxDisplayPoints = 1000

// downsample decimates points to at most maxPoints for display, reusing dst
// when its capacity allows. The last point is always kept so the chart's
// right edge tracks the newest sample.
func downsample(dst, points []Point, maxPoints int) []Point {
	if len(points) <= maxPoints {
		if cap(dst) >= len(points) {
			dst = dst[:len(points)]
			copy(dst, points)
			return dst
		}
		out := make([]Point, len(points))
		copy(out, points)
		return out
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]Point, 0, maxPoints)
	}

	step := float64(len(points)) / float64(maxPoints)
	for i := 0; i < maxPoints-1; i++ {
		dst = append(dst, points[int(float64(i)*step)])
	}
	return append(dst, points[len(points)-1])
}
