package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	staticWidth  = 1000
	staticHeight = 600

	marginLeft   = 90.0
	marginRight  = 40.0
	marginTop    = 70.0
	marginBottom = 80.0

	yTicks      = 5
	maxXLabels  = 20
	gridColor   = "#e5e5e5"
	lineSpacing = 1.6
)

// StaticChart is a rendered PNG plus the facts it was drawn from. Values is
// empty for message charts, whose text is in Message.
type StaticChart struct {
	Title   string    `json:"title"`
	XLabel  string    `json:"x_label,omitempty"`
	YLabel  string    `json:"y_label,omitempty"`
	Values  []float64 `json:"values,omitempty"`
	Message string    `json:"message,omitempty"`
	PNG     []byte    `json:"png,omitempty"`
}

// IsMessage reports whether the chart shows text instead of bars.
func (s *StaticChart) IsMessage() bool { return len(s.Values) == 0 }

var (
	fontOnce sync.Once
	goFont   *truetype.Font
	fontErr  error
)

// fontFace returns a new Go Regular face. Faces cache glyphs and are not
// safe for concurrent use, so each render makes its own.
func fontFace(size float64) (font.Face, error) {
	fontOnce.Do(func() {
		goFont, fontErr = truetype.Parse(goregular.TTF)
	})
	if fontErr != nil {
		return nil, fmt.Errorf("loading font: %w", fontErr)
	}
	return truetype.NewFace(goFont, &truetype.Options{
		Size:    size,
		Hinting: font.HintingNone,
	}), nil
}

// BarChart renders values as vertical bars indexed from zero.
func BarChart(title, xLabel, yLabel string, values []float64) (*StaticChart, error) {
	sc := &StaticChart{
		Title:  title,
		XLabel: xLabel,
		YLabel: yLabel,
		Values: append([]float64(nil), values...),
	}
	png, err := drawBars(sc)
	if err != nil {
		return sc, err
	}
	sc.PNG = png
	return sc, nil
}

// MessageChart renders centred text under a title. The returned chart is
// never nil; on error it carries the title and message without a PNG.
func MessageChart(title, message string) (*StaticChart, error) {
	sc := &StaticChart{Title: title, Message: message}
	png, err := drawMessage(sc)
	if err != nil {
		return sc, err
	}
	sc.PNG = png
	return sc, nil
}

func drawMessage(sc *StaticChart) ([]byte, error) {
	titleFace, err := fontFace(20)
	if err != nil {
		return nil, err
	}
	bodyFace, err := fontFace(16)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(staticWidth, staticHeight)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.Black)

	dc.SetFontFace(titleFace)
	dc.DrawStringAnchored(sc.Title, staticWidth/2, marginTop/2, 0.5, 0.5)

	dc.SetFontFace(bodyFace)
	dc.DrawStringWrapped(sc.Message, staticWidth/2, staticHeight/2, 0.5, 0.5,
		staticWidth*0.8, lineSpacing, gg.AlignCenter)

	return encodePNG(dc)
}

func drawBars(sc *StaticChart) ([]byte, error) {
	titleFace, err := fontFace(20)
	if err != nil {
		return nil, err
	}
	labelFace, err := fontFace(14)
	if err != nil {
		return nil, err
	}
	tickFace, err := fontFace(11)
	if err != nil {
		return nil, err
	}

	const (
		plotW = staticWidth - marginLeft - marginRight
		plotH = staticHeight - marginTop - marginBottom
	)
	lo, hi := valueRange(sc.Values)
	yOf := func(v float64) float64 {
		return marginTop + plotH*(hi-v)/(hi-lo)
	}

	dc := gg.NewContext(staticWidth, staticHeight)
	dc.SetColor(color.White)
	dc.Clear()

	// Horizontal grid with y tick labels.
	dc.SetFontFace(tickFace)
	dc.SetLineWidth(1)
	for i := 0; i <= yTicks; i++ {
		v := lo + (hi-lo)*float64(i)/yTicks
		y := yOf(v)
		dc.SetHexColor(gridColor)
		dc.DrawLine(marginLeft, y, marginLeft+plotW, y)
		dc.Stroke()
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(formatTick(v), marginLeft-8, y, 1, 0.5)
	}

	n := len(sc.Values)
	slot := plotW / float64(max(n, 1))
	barW := slot * 0.8
	zero := yOf(0)
	labelEvery := int(math.Ceil(float64(n) / maxXLabels))

	for i, v := range sc.Values {
		x := marginLeft + slot*float64(i) + (slot-barW)/2
		top := yOf(v)
		dc.SetHexColor(barColor)
		dc.DrawRectangle(x, math.Min(top, zero), barW, math.Abs(zero-top))
		dc.Fill()

		if i%labelEvery == 0 {
			dc.SetColor(color.Black)
			dc.DrawStringAnchored(strconv.Itoa(i), x+barW/2, marginTop+plotH+14, 0.5, 0.5)
		}
	}

	// Axes.
	dc.SetColor(color.Black)
	dc.SetLineWidth(1.5)
	dc.DrawLine(marginLeft, marginTop, marginLeft, marginTop+plotH)
	dc.DrawLine(marginLeft, zero, marginLeft+plotW, zero)
	dc.Stroke()

	dc.SetFontFace(titleFace)
	dc.DrawStringAnchored(sc.Title, staticWidth/2, marginTop/2, 0.5, 0.5)

	dc.SetFontFace(labelFace)
	dc.DrawStringAnchored(sc.XLabel, marginLeft+plotW/2, staticHeight-marginBottom/3, 0.5, 0.5)
	dc.Push()
	dc.RotateAbout(-math.Pi/2, marginLeft/3, marginTop+plotH/2)
	dc.DrawStringAnchored(sc.YLabel, marginLeft/3, marginTop+plotH/2, 0.5, 0.5)
	dc.Pop()

	return encodePNG(dc)
}

// valueRange returns a y range that always includes zero and never
// collapses to a point.
func valueRange(values []float64) (lo, hi float64) {
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		hi = lo + 1
	}
	pad := (hi - lo) * 0.05
	if hi > 0 {
		hi += pad
	}
	if lo < 0 {
		lo -= pad
	}
	return lo, hi
}

func formatTick(v float64) string {
	if math.Abs(v) >= 100 || v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func encodePNG(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
