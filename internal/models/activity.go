package models

// ActivityKind classifies an ActivityEvent row.
type ActivityKind string

// Known activity kinds recorded by the stream manager and pipeline.
const (
	ActivityActivated     ActivityKind = "activated"
	ActivityEvicted       ActivityKind = "evicted"
	ActivityPipelineError ActivityKind = "pipeline_error"
)

// Valid reports whether k is one of the known activity kinds.
func (k ActivityKind) Valid() bool {
	switch k {
	case ActivityActivated, ActivityEvicted, ActivityPipelineError:
		return true
	default:
		return false
	}
}

// ActivityEvent records a single lifecycle event for a stream. It is an
// append-only audit trail: nothing in the gateway reads it back to decide
// whether to resume a stream on startup.
type ActivityEvent struct {
	BaseModel
	StreamID string       `gorm:"index;not null" json:"stream_id"`
	Kind     ActivityKind `gorm:"type:varchar(32);not null" json:"kind"`
	Detail   string       `json:"detail,omitempty"`
}

// TableName overrides GORM's pluralization for ActivityEvent.
func (ActivityEvent) TableName() string {
	return "activity_events"
}

// Validate checks required fields before insert.
func (e *ActivityEvent) Validate() error {
	if e.StreamID == "" {
		return ErrStreamIDRequired
	}
	if !e.Kind.Valid() {
		return ErrInvalidActivityKind
	}
	return nil
}
