package models

import "time"

// WakeRequest is a single Wake-on-LAN invocation.
type WakeRequest struct {
	MACAddress string
	Host       string
	CIDR       string // empty: send to the resolved unicast address
	Port       string // empty: UDP port 9
	Trace      bool   // attach the diagnostic trail to the result
	Wait       *WaitConfig
}

// WaitConfig controls polling for the target after the packet is sent.
type WaitConfig struct {
	Ports         []int
	Timeout       time.Duration // max time to wait for target
	PollInterval  time.Duration // how often to probe
	ProbeTimeout  time.Duration // per-connection timeout
	StabilizeWait time.Duration // wait after target responds
}

// TraceEntry is one step of the diagnostic trail.
type TraceEntry struct {
	Stage  string `json:"stage"`
	Detail string `json:"detail"`
}

// WakeResult holds the result of a Wake-on-LAN operation.
type WakeResult struct {
	MACAddress   string // canonical AA-BB-CC-DD-EE-FF form
	Destination  string // ip:port the packet was addressed to
	Broadcast    bool
	Transport    string // name of the transport that delivered the packet
	PacketSent   bool
	TargetReady  bool
	WaitDuration time.Duration
	Trace        []TraceEntry
	Error        error
}
