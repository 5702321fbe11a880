package dispatch

// Payload is a broadcast message. The "type" field is mandatory and holds
// the action identifier that routes it.
type Payload map[string]any

// Reserved payload keys.
const (
	KeyType  = "type"
	KeyValue = "value"
)

// Type returns the routing identifier, or "" when absent or not a string.
func (p Payload) Type() string {
	s, _ := p[KeyType].(string)
	return s
}

// Value returns the conventional "value" field.
func (p Payload) Value() any {
	return p[KeyValue]
}

// Clone returns a shallow copy of the payload.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
