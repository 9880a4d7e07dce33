package chart

import (
	"fmt"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
)

// tracePalette gives each channel a stable color.
var tracePalette = [NumTraces]color.RGBA{
	{R: 255, G: 99, B: 71, A: 255},
	{R: 255, G: 165, B: 0, A: 255},
	{R: 255, G: 215, B: 0, A: 255},
	{R: 154, G: 205, B: 50, A: 255},
	{R: 0, G: 206, B: 209, A: 255},
	{R: 100, G: 149, B: 237, A: 255},
	{R: 147, G: 112, B: 219, A: 255},
	{R: 219, G: 112, B: 147, A: 255},
	{R: 244, G: 164, B: 96, A: 255},
	{R: 176, G: 196, B: 222, A: 255},
}

var (
	gridColor     = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor    = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	setpointColor = color.RGBA{R: 255, G: 255, B: 255, A: 180}
	valveColor    = color.RGBA{R: 0, G: 200, B: 120, A: 255}
)

type chartRenderer struct {
	chart *Widget

	bg      *canvas.Rectangle
	objects []fyne.CanvasObject

	lastSize fyne.Size
}

func (r *chartRenderer) MinSize() fyne.Size {
	return fyne.NewSize(480, 320)
}

func (r *chartRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	if r.lastSize != size {
		r.lastSize = size
		r.chart.BaseWidget.Refresh()
	}
}

func (r *chartRenderer) Refresh() {
	r.chart.mu.RLock()
	points := r.chart.display
	setpoint := r.chart.setpoint
	yMin, yMax := r.chart.yMin, r.chart.yMax
	xMin, xMax := r.chart.xMin, r.chart.xMax
	r.chart.mu.RUnlock()

	size := r.chart.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.bg}

	marginLeft := float32(55.0)
	marginRight := float32(15.0)
	marginTop := float32(15.0)
	marginBottom := float32(55.0)

	plotW := size.Width - marginLeft - marginRight
	plotH := size.Height - marginTop - marginBottom
	plotX := marginLeft
	plotY := marginTop

	// The valve step trace gets a strip of its own under the plot.
	valveY := plotY + plotH + 10
	valveH := float32(20.0)

	xSpan := xMax.Sub(xMin).Seconds()
	if xSpan <= 0 {
		xSpan = 1
	}
	ySpan := yMax - yMin
	if ySpan <= 0 {
		ySpan = 1
	}

	toX := func(ts time.Time) float32 {
		return plotX + float32(ts.Sub(xMin).Seconds()/xSpan)*plotW
	}
	toY := func(v float64) float32 {
		return plotY + plotH - float32((v-yMin)/ySpan)*plotH
	}

	r.drawGrid(plotX, plotY, plotW, plotH, yMin, yMax, xMin, xMax)
	r.drawSetpoint(plotX, plotW, toY(setpoint))

	for ch := 0; ch < NumTraces; ch++ {
		r.drawTrace(points, ch, toX, toY)
	}
	r.drawValveTrace(points, valveY, valveH, toX)
}

func (r *chartRenderer) drawGrid(plotX, plotY, plotW, plotH float32, yMin, yMax float64, xMin, xMax time.Time) {
	const hLines, vLines = 8, 10

	for i := 0; i <= hLines; i++ {
		y := plotY + float32(i)*plotH/hLines
		line := canvas.NewLine(gridColor)
		line.Position1 = fyne.NewPos(plotX, y)
		line.Position2 = fyne.NewPos(plotX+plotW, y)
		line.StrokeWidth = 1
		r.objects = append(r.objects, line)

		value := yMax - float64(i)*(yMax-yMin)/hLines
		text := canvas.NewText(fmt.Sprintf("%.1f°C", value), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(plotX-5, y-6))
		r.objects = append(r.objects, text)
	}

	for i := 0; i <= vLines; i++ {
		x := plotX + float32(i)*plotW/vLines
		line := canvas.NewLine(gridColor)
		line.Position1 = fyne.NewPos(x, plotY)
		line.Position2 = fyne.NewPos(x, plotY+plotH)
		line.StrokeWidth = 1
		r.objects = append(r.objects, line)

		offset := float64(i) * xMax.Sub(xMin).Seconds() / vLines
		text := canvas.NewText(fmt.Sprintf("%.0fs", offset), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(x-15, plotY+plotH+2))
		r.objects = append(r.objects, text)
	}
}

// drawSetpoint draws the setpoint as a dashed horizontal marker.
func (r *chartRenderer) drawSetpoint(plotX, plotW, y float32) {
	const dash, gap = float32(8), float32(5)
	for x := plotX; x < plotX+plotW; x += dash + gap {
		end := x + dash
		if end > plotX+plotW {
			end = plotX + plotW
		}
		line := canvas.NewLine(setpointColor)
		line.Position1 = fyne.NewPos(x, y)
		line.Position2 = fyne.NewPos(end, y)
		line.StrokeWidth = 1
		r.objects = append(r.objects, line)
	}
}

// drawTrace draws one channel's temperature curve, breaking the line at
// invalid samples.
func (r *chartRenderer) drawTrace(points []Point, ch int, toX func(time.Time) float32, toY func(float64) float32) {
	var prev *fyne.Position
	for _, p := range points {
		t := p.Temps[ch]
		if t == nil {
			prev = nil
			continue
		}
		pos := fyne.NewPos(toX(p.Timestamp), toY(*t))
		if prev != nil {
			line := canvas.NewLine(tracePalette[ch])
			line.Position1 = *prev
			line.Position2 = pos
			line.StrokeWidth = 1.5
			r.objects = append(r.objects, line)
		}
		prev = &pos
	}
}

// drawValveTrace draws the valve state as a step waveform: high = open.
func (r *chartRenderer) drawValveTrace(points []Point, y, h float32, toX func(time.Time) float32) {
	if len(points) < 2 {
		return
	}

	level := func(open bool) float32 {
		if open {
			return y
		}
		return y + h
	}

	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]

		line := canvas.NewLine(valveColor)
		line.Position1 = fyne.NewPos(toX(a.Timestamp), level(a.ValveOpen))
		line.Position2 = fyne.NewPos(toX(b.Timestamp), level(a.ValveOpen))
		line.StrokeWidth = 2
		r.objects = append(r.objects, line)

		if a.ValveOpen != b.ValveOpen {
			edge := canvas.NewLine(valveColor)
			edge.Position1 = fyne.NewPos(toX(b.Timestamp), y)
			edge.Position2 = fyne.NewPos(toX(b.Timestamp), y+h)
			edge.StrokeWidth = 2
			r.objects = append(r.objects, edge)
		}
	}

	label := canvas.NewText("valve", labelColor)
	label.TextSize = 10
	label.Move(fyne.NewPos(5, y+2))
	r.objects = append(r.objects, label)
}

func (r *chartRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *chartRenderer) Destroy() {}
