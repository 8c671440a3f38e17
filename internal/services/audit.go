package services

import (
	"log"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var auditJSON = jsoniter.ConfigCompatibleWithStandardLibrary

type AuditEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	Entity    string    `json:"entity"`
	EntityID  int64     `json:"entity_id"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	Status    string    `json:"status"`
	Details   any       `json:"details,omitempty"`
}

type AuditLogger struct {
	clock Clock
}

func NewAuditLogger(clock Clock) *AuditLogger {
	if clock == nil {
		clock = SystemClock{}
	}
	return &AuditLogger{clock: clock}
}

// LogTransition records an entity moving from one status to another.
func (a *AuditLogger) LogTransition(entity string, id int64, from, to string, details map[string]any) {
	a.log(AuditEvent{
		Timestamp: a.clock.Now(),
		EventType: "TRANSITION",
		Entity:    entity,
		EntityID:  id,
		From:      from,
		To:        to,
		Status:    "SUCCESS",
		Details:   details,
	})
}

func (a *AuditLogger) LogOperation(operation, entity string, id int64, details map[string]any) {
	a.log(AuditEvent{
		Timestamp: a.clock.Now(),
		EventType: operation,
		Entity:    entity,
		EntityID:  id,
		Status:    "SUCCESS",
		Details:   details,
	})
}

func (a *AuditLogger) LogError(operation, entity string, id int64, err error) {
	a.log(AuditEvent{
		Timestamp: a.clock.Now(),
		EventType: operation,
		Entity:    entity,
		EntityID:  id,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (a *AuditLogger) log(event AuditEvent) {
	if a == nil {
		return
	}
	data, _ := auditJSON.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
