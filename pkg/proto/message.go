package proto

// ClientToServerMessage represents a message from the browser to the server.
type ClientToServerMessage struct {
	Type string `json:"type" validate:"required,oneof=ping"`
}

// ServerToClientMessage represents a message from the server to the browser.
type ServerToClientMessage struct {
	Type    string `json:"type" validate:"required"`
	Reason  string `json:"reason,omitempty"`
	TaskID  int64  `json:"task_id,omitempty"`
	Content string `json:"content,omitempty"`
}
