package chart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
)

const barColor = "#1f77b4"

// Figure is a Plotly figure. Its JSON form can be passed directly to
// Plotly.newPlot(el, fig.data, fig.layout).
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace is one bar series. Y holds null for non-numeric table cells.
type Trace struct {
	Type   string     `json:"type"`
	X      []any      `json:"x"`
	Y      []*float64 `json:"y"`
	Name   string     `json:"name,omitempty"`
	Marker *Marker    `json:"marker,omitempty"`
}

type Marker struct {
	Color string `json:"color"`
}

type Layout struct {
	Title       Text         `json:"title"`
	XAxis       *Axis        `json:"xaxis,omitempty"`
	YAxis       *Axis        `json:"yaxis,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

type Text struct {
	Text string `json:"text"`
}

type Axis struct {
	Title   Text  `json:"title"`
	Visible *bool `json:"visible,omitempty"`
}

// Annotation is free text placed on the plot, used by message figures.
type Annotation struct {
	Text      string    `json:"text"`
	XRef      string    `json:"xref"`
	YRef      string    `json:"yref"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	XAnchor   string    `json:"xanchor"`
	YAnchor   string    `json:"yanchor"`
	ShowArrow bool      `json:"showarrow"`
	Font      *FontSpec `json:"font,omitempty"`
}

type FontSpec struct {
	Size int `json:"size"`
}

// Title returns the layout title.
func (f *Figure) Title() string { return f.Layout.Title.Text }

// Points returns the number of bars across all traces.
func (f *Figure) Points() int {
	n := 0
	for _, t := range f.Data {
		n += len(t.X)
	}
	return n
}

// Message returns the annotation text of a message figure, or "".
func (f *Figure) Message() string {
	if len(f.Layout.Annotations) == 0 {
		return ""
	}
	return f.Layout.Annotations[0].Text
}

func barFigure(title, xTitle, yTitle string, x []any, y []*float64) *Figure {
	return &Figure{
		Data: []Trace{{
			Type:   "bar",
			X:      x,
			Y:      y,
			Marker: &Marker{Color: barColor},
		}},
		Layout: Layout{
			Title: Text{Text: title},
			XAxis: &Axis{Title: Text{Text: xTitle}},
			YAxis: &Axis{Title: Text{Text: yTitle}},
		},
	}
}

// messageFigure is an empty plot with centred text. Newlines in message
// become <br>.
func messageFigure(title, message string) *Figure {
	hidden := false
	return &Figure{
		Data: []Trace{},
		Layout: Layout{
			Title: Text{Text: title},
			XAxis: &Axis{Visible: &hidden},
			YAxis: &Axis{Visible: &hidden},
			Annotations: []Annotation{{
				Text:    strings.ReplaceAll(message, "\n", "<br>"),
				XRef:    "paper",
				YRef:    "paper",
				X:       0.5,
				Y:       0.5,
				XAnchor: "center",
				YAnchor: "middle",
				Font:    &FontSpec{Size: 16},
			}},
		},
	}
}

var htmlTmpl = template.Must(template.New("figure").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="https://cdn.plot.ly/plotly-2.35.2.min.js"></script>
</head>
<body>
<div id="chart" style="width:100%;height:90vh;"></div>
<script>
var fig = {{.Figure}};
Plotly.newPlot("chart", fig.data, fig.layout, {responsive: true});
</script>
</body>
</html>
`))

// HTML renders a standalone page that draws the figure with Plotly.js.
func (f *Figure) HTML() ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encoding figure: %w", err)
	}
	var buf bytes.Buffer
	err = htmlTmpl.Execute(&buf, struct {
		Title  string
		Figure template.JS
	}{
		Title: f.Title(),
		// json.Marshal escapes <, > and &, so the payload cannot close the
		// script element.
		Figure: template.JS(data),
	})
	if err != nil {
		return nil, fmt.Errorf("rendering figure page: %w", err)
	}
	return buf.Bytes(), nil
}
