// Package reader implements continuous chapter loading: scroll sampling,
// the chapter index, the bounded window of displayed chapters, progress
// recording and the controller that ties them together.
package reader

// Rect is the vertical box of a chapter block relative to the viewport top.
type Rect struct {
	Top    float64
	Height float64
}

// ScrollProgress returns how much of r, in percent, has scrolled above the
// top edge of a viewport of the given height.
func ScrollProgress(r Rect, viewportHeight float64) float64 {
	switch {
	case r.Height <= 0:
		return 0
	case r.Top <= -r.Height:
		return 100
	case r.Top >= viewportHeight:
		return 0
	}

	passed := max(0, -r.Top)
	return min(100, max(0, passed/r.Height*100))
}
