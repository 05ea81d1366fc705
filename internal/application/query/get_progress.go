// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/achievement"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/catalog"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/session"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// Returns the full session snapshot shaped for the rendering layer: worlds in
// catalog order with localized titles, the hub aggregate and both locked and
// unlocked achievements for the trophy shelf.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery contains the parameters for a progress snapshot.
type GetProgressQuery struct {
	// SessionID identifies the hub session.
	SessionID string

	// Locale selects the language for display text. Defaults to kazakh.
	Locale string
}

// Validate validates the query.
func (q *GetProgressQuery) Validate() error {
	if q.SessionID == "" {
		return errors.New("get_progress: session_id is required")
	}
	if q.Locale == "" {
		q.Locale = string(shared.DefaultLocale)
	}
	if !shared.Locale(q.Locale).IsValid() {
		q.Locale = string(shared.DefaultLocale)
	}
	return nil
}

// WorldDTO is the per-world view for the rendering layer.
type WorldDTO struct {
	Index                int      `json:"index"`
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	Difficulty           int      `json:"difficulty"`
	Prerequisites        []int    `json:"prerequisites"`
	Status               string   `json:"status"`
	Score                int      `json:"score"`
	CompletionPercentage int      `json:"completion_percentage"`
	TimeSpentMs          int64    `json:"time_spent_ms"`
	Attempts             int      `json:"attempts"`
	Achievements         []string `json:"achievements,omitempty"`
	Competencies         []string `json:"competencies,omitempty"`
}

// AchievementDTO is the per-achievement view for the trophy shelf.
type AchievementDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Unlocked    bool   `json:"unlocked"`
}

// ProgressDTO is the full snapshot returned to the rendering layer.
type ProgressDTO struct {
	SessionID            string           `json:"session_id"`
	CulturalContext      string           `json:"cultural_context"`
	Worlds               []WorldDTO       `json:"worlds"`
	TotalScore           int              `json:"total_score"`
	TotalTimeSpentMs     int64            `json:"total_time_spent_ms"`
	CompletedWorlds      int              `json:"completed_worlds"`
	CompletionPercentage int              `json:"completion_percentage"`
	Achievements         []AchievementDTO `json:"achievements"`
	Version              int64            `json:"version"`
	LastActivityAt       time.Time        `json:"last_activity_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressHandler handles the GetProgressQuery.
type GetProgressHandler struct {
	store   session.Store
	catalog *catalog.Catalog
	engine  *achievement.Engine
}

// NewGetProgressHandler creates a new GetProgressHandler.
func NewGetProgressHandler(store session.Store, cat *catalog.Catalog, engine *achievement.Engine) *GetProgressHandler {
	return &GetProgressHandler{store: store, catalog: cat, engine: engine}
}

// Handle executes the get progress query.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) (*ProgressDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	id, err := shared.NewSessionID(q.SessionID)
	if err != nil {
		return nil, shared.ErrSessionNotFound
	}

	sess, err := h.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	locale := shared.Locale(q.Locale)

	return &ProgressDTO{
		SessionID:            sess.ID.String(),
		CulturalContext:      sess.CulturalContext.String(),
		Worlds:               h.buildWorlds(sess, locale),
		TotalScore:           sess.Progress.TotalScore,
		TotalTimeSpentMs:     sess.Progress.TotalTimeSpentMs,
		CompletedWorlds:      sess.Progress.CompletedWorlds,
		CompletionPercentage: sess.Progress.CompletionPercentage,
		Achievements:         h.buildAchievements(sess, locale),
		Version:              sess.Version,
		LastActivityAt:       sess.LastActivityAt,
	}, nil
}

func (h *GetProgressHandler) buildWorlds(sess *session.HubSession, locale shared.Locale) []WorldDTO {
	worlds := make([]WorldDTO, 0, h.catalog.WorldCount())
	for _, idx := range h.catalog.Indices() {
		def, ok := h.catalog.Definition(idx)
		if !ok {
			continue
		}
		state, ok := sess.Worlds[idx]
		if !ok {
			continue
		}

		prereqs := make([]int, 0, len(def.Prerequisites))
		for _, p := range def.Prerequisites {
			prereqs = append(prereqs, p.Int())
		}

		worlds = append(worlds, WorldDTO{
			Index:                idx.Int(),
			Title:                def.Title.Resolve(locale),
			Description:          def.Description.Resolve(locale),
			Difficulty:           int(def.Difficulty),
			Prerequisites:        prereqs,
			Status:               string(state.Status),
			Score:                state.Score,
			CompletionPercentage: state.CompletionPercentage,
			TimeSpentMs:          state.TimeSpentMs,
			Attempts:             state.Attempts,
			Achievements:         append([]string(nil), state.Achievements...),
			Competencies:         append([]string(nil), state.Competencies...),
		})
	}
	return worlds
}

func (h *GetProgressHandler) buildAchievements(sess *session.HubSession, locale shared.Locale) []AchievementDTO {
	defs := h.engine.Definitions()
	dtos := make([]AchievementDTO, 0, len(defs))
	for _, def := range defs {
		dtos = append(dtos, AchievementDTO{
			ID:          def.ID,
			Title:       def.Title.Resolve(locale),
			Description: def.Description.Resolve(locale),
			Unlocked:    sess.Progress.HasAchievement(def.ID),
		})
	}
	sort.Slice(dtos, func(i, j int) bool { return dtos[i].ID < dtos[j].ID })
	return dtos
}
