package service

import (
	"strings"
	"vacation-sync/internal/models"
)

var (
	blockedTokens  = []string{"BLOQUEADO", "BLOQ"}
	releasedTokens = []string{"LIBERADO", "LIB"}
)

// StatusMapper turns a free-text access cell into an AccessState.
type StatusMapper struct {
	noAccess map[string]struct{}
}

// NewStatusMapper builds a mapper with the given no-access tokens, compared
// case-insensitively.
func NewStatusMapper(noAccessTokens []string) *StatusMapper {
	m := &StatusMapper{noAccess: make(map[string]struct{}, len(noAccessTokens))}
	for _, token := range noAccessTokens {
		if token = strings.ToUpper(strings.TrimSpace(token)); token != "" {
			m.noAccess[token] = struct{}{}
		}
	}
	return m
}

// Map never fails: blank and unknown values become PENDING so they surface
// for follow-up.
func (m *StatusMapper) Map(raw string) models.AccessState {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" || value == "NAN" || value == "NONE" {
		return models.AccessPending
	}

	folded := fold(value)
	for _, t := range blockedTokens {
		if folded == t {
			return models.AccessBlocked
		}
	}
	for _, t := range releasedTokens {
		if folded == t {
			return models.AccessReleased
		}
	}
	if _, ok := m.noAccess[value]; ok {
		return models.AccessNotApplicable
	}

	return models.AccessPending
}
