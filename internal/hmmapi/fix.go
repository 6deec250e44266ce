package hmmapi

import "time"

// Fix is the toy observation and k-State sample type the HTTP and MCP
// adaptors instantiate the generic core with: a single geographic
// reading with a timestamp. It satisfies kstate.Sample.
type Fix struct {
	Lat float64   `json:"lat"`
	Lon float64   `json:"lon"`
	At  time.Time `json:"at"`
}

// Timestamp implements kstate.Sample.
func (f Fix) Timestamp() time.Time {
	return f.At
}
