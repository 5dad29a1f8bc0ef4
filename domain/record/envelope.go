package record

import "time"

// Envelope is what a channel carries for one published record.
type Envelope struct {
	MessageID   string         `json:"message_id" cbor:"message_id"`
	Topic       string         `json:"topic" cbor:"topic"`
	Type        string         `json:"type" cbor:"type"`
	SourceID    string         `json:"source_id" cbor:"source_id"`
	PublishedAt time.Time      `json:"published_at" cbor:"published_at"`
	Record      map[string]any `json:"record" cbor:"record"`
}

// NewEnvelope wraps a provenance-stamped record.
func NewEnvelope(messageID, topic string, rec *Record, at time.Time) Envelope {
	return Envelope{
		MessageID:   messageID,
		Topic:       topic,
		Type:        rec.Type(),
		SourceID:    rec.Provenance(),
		PublishedAt: at.UTC(),
		Record:      rec.Fields(),
	}
}

// Heartbeat announces that a gateway is alive and how much it has published.
type Heartbeat struct {
	SourceID  string    `json:"source_id" cbor:"source_id"`
	Timestamp time.Time `json:"timestamp" cbor:"timestamp"`
	Published uint64    `json:"published_messages" cbor:"published_messages"`
	Topics    int       `json:"topics" cbor:"topics"`
}
