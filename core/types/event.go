package types

// Event represents a typed event emitted by a contract call. Attributes carry
// the payload as canonical strings so every sink (log, websocket, journal)
// renders the same bytes.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Attr returns the named attribute or the empty string.
func (e *Event) Attr(name string) string {
	if e == nil || e.Attributes == nil {
		return ""
	}
	return e.Attributes[name]
}
