package chart

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

// NumTraces is the number of temperature traces, one per rig channel slot.
const NumTraces = 10

// Point is one telemetry sample on the strip chart. A nil temperature is a
// disconnected or faulted channel and draws as a gap.
type Point struct {
	Timestamp time.Time
	Temps     [NumTraces]*float64
	ValveOpen bool
}

// Widget is a custom Fyne widget showing a scrolling temperature strip chart:
// one trace per channel, the setpoint line, and the valve state as a step
// trace along the bottom.
type Widget struct {
	widget.BaseWidget

	// protected by mu
	mu      sync.RWMutex
	points  []Point
	display []Point // decimated view of points, reused between pushes

	window   time.Duration
	setpoint float64

	// auto-scaling
	yMin, yMax float64
	xMin, xMax time.Time
}

// New creates a chart holding the last window of telemetry.
func New(window time.Duration, setpointC float64) *Widget {
	w := &Widget{
		window:   window,
		setpoint: setpointC,
		points:   make([]Point, 0, 1024),
	}
	w.ExtendBaseWidget(w)
	w.Refresh()
	return w
}

// Push appends one sample, drops everything older than the window, and
// refreshes the display. Call from the UI goroutine via fyne.Do().
func (w *Widget) Push(p Point) {
	w.mu.Lock()

	w.points = append(w.points, p)
	cutoff := p.Timestamp.Add(-w.window)
	trim := 0
	for trim < len(w.points) && w.points[trim].Timestamp.Before(cutoff) {
		trim++
	}
	w.points = w.points[trim:]
	w.display = downsample(w.display, w.points, maxDisplayPoints)

	w.updateAutoScale()
	w.mu.Unlock()

	w.Refresh()
}

// SetSetpoint moves the setpoint marker line.
func (w *Widget) SetSetpoint(c float64) {
	w.mu.Lock()
	w.setpoint = c
	w.mu.Unlock()
	w.Refresh()
}

// updateAutoScale derives the axis ranges from the buffered points. The
// setpoint is always kept in view so the marker line cannot scroll off.
func (w *Widget) updateAutoScale() {
	if len(w.points) == 0 {
		w.yMin = w.setpoint - 5
		w.yMax = w.setpoint + 5
		w.xMin = time.Now()
		w.xMax = w.xMin.Add(w.window)
		return
	}

	w.yMin = w.setpoint
	w.yMax = w.setpoint
	for _, p := range w.points {
		for _, t := range p.Temps {
			if t == nil {
				continue
			}
			if *t < w.yMin {
				w.yMin = *t
			}
			if *t > w.yMax {
				w.yMax = *t
			}
		}
	}

	span := w.yMax - w.yMin
	if span == 0 {
		span = 1.0
	}
	w.yMin -= span * 0.1
	w.yMax += span * 0.1

	w.xMin = w.points[0].Timestamp
	w.xMax = w.points[len(w.points)-1].Timestamp
	if w.xMax.Sub(w.xMin) < w.window {
		w.xMax = w.xMin.Add(w.window)
	}
}

// CreateRenderer creates the widget renderer.
func (w *Widget) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &chartRenderer{
		chart:   w,
		bg:      bg,
		objects: []fyne.CanvasObject{bg},
	}
}
