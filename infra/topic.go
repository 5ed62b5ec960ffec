package infra

// Topic describes a streaming-engine topic.
type Topic struct {
	Name              string `json:"name"`
	Partitions        int    `json:"partitions"`
	ReplicationFactor int    `json:"replication_factor,omitempty"`
	RetentionMS       int64  `json:"retention_ms,omitempty"`
	MaxMessageBytes   int    `json:"max_message_bytes,omitempty"`
	Version           string `json:"version,omitempty"`
}

// Equal reports structural equality.
func (t Topic) Equal(o Topic) bool {
	return t == o
}
