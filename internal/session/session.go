// Package session holds per-user flow state that lives between two chat
// actions: the pending review flag and the admin's range selection.
package session

import (
	"context"
	"errors"
)

// Stage — шаг выбора диапазона дат.
type Stage string

const (
	StageIdle          Stage = ""
	StageAwaitingStart Stage = "awaiting_start"
	StageAwaitingEnd   Stage = "awaiting_end"
)

// RangeSelection — выбор диапазона в два нажатия. Start в ISO, задан только в AwaitingEnd.
type RangeSelection struct {
	Stage Stage  `json:"stage,omitempty"`
	Start string `json:"start,omitempty"`
}

type Session struct {
	UserID        int64          `json:"user_id"`
	PendingReview bool           `json:"pending_review,omitempty"`
	Range         RangeSelection `json:"range"`
}

func New(userID int64) *Session {
	return &Session{UserID: userID}
}

// Empty: сессию можно не хранить.
func (s *Session) Empty() bool {
	return !s.PendingReview && s.Range.Stage == StageIdle
}

var ErrInvalidUser = errors.New("session: user id is required")

// Store хранит сессии с ограничением по размеру и/или времени жизни.
// Load никогда не возвращает nil: вместо отсутствующей отдаётся новая пустая.
type Store interface {
	Load(ctx context.Context, userID int64) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, userID int64) error
}
