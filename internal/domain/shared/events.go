// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Analytics and other external consumers subscribe to
// these; the hub publishes them fire-and-forget and never blocks on delivery.
const (
	// Session events
	EventSessionCreated       EventType = "session.created"
	EventSessionAuthenticated EventType = "session.authenticated"
	EventSessionRefreshed     EventType = "session.refreshed"

	// World progression events
	EventWorldStarted   EventType = "world.started"
	EventWorldCompleted EventType = "world.completed"
	EventWorldReplayed  EventType = "world.replayed"
	EventWorldUnlocked  EventType = "world.unlocked"

	// Achievement events
	EventAchievementUnlocked EventType = "achievement.unlocked"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate (session) that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventHandler processes a single event. Returning an error is logged by the
// bus but never propagated back to the publisher.
type EventHandler func(event Event) error

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(event Event) error
}

// EventBus combines publishing with subscription management.
type EventBus interface {
	EventPublisher
	Subscribe(eventType EventType, handler EventHandler) error
	SubscribeAll(handler EventHandler) error
	Close() error
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	SessionId string    `json:"session_id"`
	TenantId  string    `json:"tenant_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.SessionId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, sessionID SessionID) BaseEvent {
	return BaseEvent{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		SessionId: sessionID.String(),
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Session Events
// ═══════════════════════════════════════════════════════════════════════════

// SessionCreatedEvent is emitted when a fresh access code creates a session.
type SessionCreatedEvent struct {
	BaseEvent
	CulturalContext string `json:"cultural_context"`
}

// Payload implements Event interface.
func (e SessionCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"tenant_id":        e.TenantId,
		"cultural_context": e.CulturalContext,
	}
}

// NewSessionCreatedEvent creates a new SessionCreatedEvent.
func NewSessionCreatedEvent(sessionID SessionID, tenantID TenantID, context CulturalContext) SessionCreatedEvent {
	base := NewBaseEvent(EventSessionCreated, sessionID)
	base.TenantId = tenantID.String()
	return SessionCreatedEvent{
		BaseEvent:       base,
		CulturalContext: context.String(),
	}
}

// SessionAuthenticatedEvent is emitted on every successful authentication,
// including repeat authentications from additional devices.
type SessionAuthenticatedEvent struct {
	BaseEvent
	NewSession bool `json:"new_session"`
}

// Payload implements Event interface.
func (e SessionAuthenticatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"new_session": e.NewSession,
	}
}

// NewSessionAuthenticatedEvent creates a new SessionAuthenticatedEvent.
func NewSessionAuthenticatedEvent(sessionID SessionID, newSession bool) SessionAuthenticatedEvent {
	return SessionAuthenticatedEvent{
		BaseEvent:  NewBaseEvent(EventSessionAuthenticated, sessionID),
		NewSession: newSession,
	}
}

// SessionRefreshedEvent is emitted when the synchronizer replaces the local
// cached copy with a newer authoritative record.
type SessionRefreshedEvent struct {
	BaseEvent
	OldVersion int64 `json:"old_version"`
	NewVersion int64 `json:"new_version"`
}

// Payload implements Event interface.
func (e SessionRefreshedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"old_version": e.OldVersion,
		"new_version": e.NewVersion,
	}
}

// NewSessionRefreshedEvent creates a new SessionRefreshedEvent.
func NewSessionRefreshedEvent(sessionID SessionID, oldVersion, newVersion int64) SessionRefreshedEvent {
	return SessionRefreshedEvent{
		BaseEvent:  NewBaseEvent(EventSessionRefreshed, sessionID),
		OldVersion: oldVersion,
		NewVersion: newVersion,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// World Progression Events
// ═══════════════════════════════════════════════════════════════════════════

// WorldStartedEvent is emitted when a world transitions to in_progress.
type WorldStartedEvent struct {
	BaseEvent
	WorldIndex int  `json:"world_index"`
	Replay     bool `json:"replay"`
}

// Payload implements Event interface.
func (e WorldStartedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"world_index": e.WorldIndex,
		"replay":      e.Replay,
	}
}

// NewWorldStartedEvent creates a new WorldStartedEvent.
func NewWorldStartedEvent(sessionID SessionID, worldIndex int, replay bool) WorldStartedEvent {
	eventType := EventWorldStarted
	if replay {
		eventType = EventWorldReplayed
	}
	return WorldStartedEvent{
		BaseEvent:  NewBaseEvent(eventType, sessionID),
		WorldIndex: worldIndex,
		Replay:     replay,
	}
}

// WorldCompletedEvent is emitted when a world transitions to completed.
type WorldCompletedEvent struct {
	BaseEvent
	WorldIndex    int   `json:"world_index"`
	Score         int   `json:"score"`
	RetainedScore int   `json:"retained_score"`
	TimeSpentMs   int64 `json:"time_spent_ms"`
	TotalScore    int   `json:"total_score"`
}

// Payload implements Event interface.
func (e WorldCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"world_index":    e.WorldIndex,
		"score":          e.Score,
		"retained_score": e.RetainedScore,
		"time_spent_ms":  e.TimeSpentMs,
		"total_score":    e.TotalScore,
	}
}

// NewWorldCompletedEvent creates a new WorldCompletedEvent.
func NewWorldCompletedEvent(sessionID SessionID, worldIndex, score, retainedScore int, timeSpentMs int64, totalScore int) WorldCompletedEvent {
	return WorldCompletedEvent{
		BaseEvent:     NewBaseEvent(EventWorldCompleted, sessionID),
		WorldIndex:    worldIndex,
		Score:         score,
		RetainedScore: retainedScore,
		TimeSpentMs:   timeSpentMs,
		TotalScore:    totalScore,
	}
}

// WorldUnlockedEvent is emitted when prerequisite recomputation moves a world
// from locked to available.
type WorldUnlockedEvent struct {
	BaseEvent
	WorldIndex int `json:"world_index"`
}

// Payload implements Event interface.
func (e WorldUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"world_index": e.WorldIndex,
	}
}

// NewWorldUnlockedEvent creates a new WorldUnlockedEvent.
func NewWorldUnlockedEvent(sessionID SessionID, worldIndex int) WorldUnlockedEvent {
	return WorldUnlockedEvent{
		BaseEvent:  NewBaseEvent(EventWorldUnlocked, sessionID),
		WorldIndex: worldIndex,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Achievement Events
// ═══════════════════════════════════════════════════════════════════════════

// AchievementUnlockedEvent is emitted at most once per (session, achievement).
type AchievementUnlockedEvent struct {
	BaseEvent
	AchievementID string `json:"achievement_id"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"achievement_id": e.AchievementID,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(sessionID SessionID, achievementID string) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementUnlocked, sessionID),
		AchievementID: achievementID,
	}
}
