// Package models contains domain types for the Log Signal Grapher.
package models

// Pattern is a user-defined extraction rule: a unique name and a regular
// expression with one capture group for the value.
type Pattern struct {
	Name  string `json:"name" yaml:"name"`
	Regex string `json:"regex" yaml:"regex"`
}

// Signal is the time series derived from one Pattern for the lifetime of a
// dataset. Visibility is the only field mutated after creation.
type Signal struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Regex   string `json:"regex"`
	Color   string `json:"color"`
	Visible bool   `json:"visible"`
}

// signalPalette is cycled through when deriving signals from patterns.
var signalPalette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// SignalColor returns the palette color for the i-th signal.
func SignalColor(i int) string {
	if i < 0 {
		i = 0
	}
	return signalPalette[i%len(signalPalette)]
}
