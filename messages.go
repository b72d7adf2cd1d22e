package server

type diagnosticsSession struct {
	Ver           int    `json:"ver"`
	ID            string `json:"id"`
	AgentID       string `json:"agentId,omitempty"`
	Name          string `json:"name,omitempty"`
	Phase         string `json:"phase"`
	LastHeartbeat int64  `json:"lastHeartbeat"`
	RTTMillis     int64  `json:"rttMillis"`
	QueueDepth    int    `json:"queueDepth"`
}

// worldDiagnostics summarises the registry for the diagnostics endpoint.
type worldDiagnostics struct {
	Tick     uint64  `json:"tick"`
	Radius   float64 `json:"radius"`
	Humans   int     `json:"humans"`
	Bots     int     `json:"bots"`
	Food     int     `json:"food"`
	Powerups int     `json:"powerups"`
}
