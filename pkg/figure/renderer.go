package figure

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"time"
)

// Page is the data model a renderer turns into a chart artifact. Only the
// fields matching the kind are populated.
type Page struct {
	Title    string   `json:"title"`
	Kind     Kind     `json:"kind"`
	Rule     string   `json:"rule,omitempty"`
	Template string   `json:"template,omitempty"`
	Traces   []Trace  `json:"traces,omitempty"`
	Slices   []Slice  `json:"slices,omitempty"`
	Spans    []Span   `json:"spans,omitempty"`
	Markers  []Marker `json:"markers,omitempty"`
}

// Trace is one plotted series.
type Trace struct {
	Name string    `json:"name"`
	X    []string  `json:"x"`
	Y    []float64 `json:"y"`
}

// Slice is one pie sector.
type Slice struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Span is one Gantt bar.
type Span struct {
	Label string `json:"label"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// Marker is one station on the map.
type Marker struct {
	Code string  `json:"code"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Renderer turns a page model into a finished artifact.
type Renderer interface {
	Render(p Page) ([]byte, error)
	Placeholder(message string) []byte
}

// pageTemplate embeds the page model as JSON and lets the client-side
// plotting code pick the layout from the kind.
var pageTemplate = template.Must(template.New("figure").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="https://cdn.plot.ly/plotly-2.35.2.min.js"></script>
</head>
<body>
<div id="figure" data-kind="{{.Kind}}" data-template="{{.Template}}"></div>
<script id="figure-data" type="application/json">{{.JSON}}</script>
<script src="/static/figure.js"></script>
</body>
</html>
`))

var placeholderTemplate = template.Must(template.New("placeholder").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.}}</title></head>
<body><p class="figure-placeholder">{{.}}</p></body>
</html>
`))

// HTMLRenderer renders self-contained HTML pages.
type HTMLRenderer struct{}

// Render encodes the page model into the figure HTML shell.
func (HTMLRenderer) Render(p Page) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode figure page: %w", err)
	}
	var buf bytes.Buffer
	err = pageTemplate.Execute(&buf, struct {
		Title    string
		Kind     Kind
		Template string
		JSON     template.JS
	}{p.Title, p.Kind, p.Template, template.JS(data)})
	if err != nil {
		return nil, fmt.Errorf("render figure page: %w", err)
	}
	return buf.Bytes(), nil
}

// Placeholder renders the page shown while a build failed or found
// nothing to plot.
func (HTMLRenderer) Placeholder(message string) []byte {
	var buf bytes.Buffer
	if err := placeholderTemplate.Execute(&buf, message); err != nil {
		return []byte(message)
	}
	return buf.Bytes()
}

// stamp renders chart axis timestamps.
func stamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}
