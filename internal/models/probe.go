package models

// ProbeResult holds the result of a reachability check.
type ProbeResult struct {
	Host      string
	IsUp      bool
	OpenPorts []int
	Error     error // last connection error when no port answered
}
