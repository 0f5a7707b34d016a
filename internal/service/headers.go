package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Role is a semantic column of a vacation tab.
type Role int

const (
	RoleUnit Role = iota
	RoleName
	RoleReason
	RoleDeparture
	RoleReturn
	RoleManager
)

func (r Role) String() string {
	switch r {
	case RoleUnit:
		return "unit"
	case RoleName:
		return "name"
	case RoleReason:
		return "reason"
	case RoleDeparture:
		return "departure"
	case RoleReturn:
		return "return"
	case RoleManager:
		return "manager"
	}
	return "unknown"
}

// roleColumn describes how one role is found in a header row. Synonyms are
// compared whole against the folded header text; hints are substrings tried
// only when no synonym matched. Fallback is used when both miss.
type roleColumn struct {
	role     Role
	synonyms []string
	hints    []string
	fallback int
}

// Synonyms are stored already folded (upper case, no accents).
var roleColumns = []roleColumn{
	{role: RoleUnit, synonyms: []string{"RESP.", "RESP", "UNIDADE", "RESPONSAVEL"}, fallback: 0},
	{role: RoleName, synonyms: []string{"NOME", "FUNCIONARIO", "COLABORADOR"}, fallback: 1},
	{role: RoleReason, synonyms: []string{"MOTIVO", "TIPO", "RAZAO"}, fallback: 2},
	{role: RoleDeparture, synonyms: []string{"SAIDA", "DATA SAIDA", "INICIO"}, fallback: 3},
	{
		role:     RoleReturn,
		synonyms: []string{"RETORNO", "RETORNO/LIBERACAO", "LIBERACAO", "DATA RETORNO", "FIM"},
		hints:    []string{"RETORNO", "LIBERACAO"},
		fallback: 4,
	},
	{role: RoleManager, hints: []string{"GESTOR"}, fallback: 5},
}

// ColumnMap is the resolved layout of one tab.
type ColumnMap struct {
	Roles map[Role]int
	// Systems holds only the systems found in the header.
	Systems map[string]int
}

func (m ColumnMap) Index(role Role) int {
	return m.Roles[role]
}

// ResolveColumns maps every role and configured system to a column index.
// The first matching column wins; roles that match nothing get their
// positional fallback, so resolution never fails.
func ResolveColumns(header []string, systems []string) ColumnMap {
	folded := make([]string, len(header))
	for i, h := range header {
		folded[i] = fold(h)
	}

	m := ColumnMap{
		Roles:   make(map[Role]int, len(roleColumns)),
		Systems: make(map[string]int, len(systems)),
	}

	for _, rc := range roleColumns {
		if idx := findColumn(folded, rc.synonyms, exactMatch); idx >= 0 {
			m.Roles[rc.role] = idx
			continue
		}
		if idx := findColumn(folded, rc.hints, strings.Contains); idx >= 0 {
			m.Roles[rc.role] = idx
			continue
		}
		m.Roles[rc.role] = rc.fallback
	}

	for _, system := range systems {
		needle := fold(system)
		if needle == "" {
			continue
		}
		for i, h := range folded {
			if strings.Contains(h, needle) {
				m.Systems[system] = i
				break
			}
		}
	}

	return m
}

func exactMatch(header, synonym string) bool {
	return header == synonym
}

func findColumn(folded []string, candidates []string, match func(header, candidate string) bool) int {
	if len(candidates) == 0 {
		return -1
	}
	for i, h := range folded {
		if h == "" {
			continue
		}
		for _, c := range candidates {
			if match(h, c) {
				return i
			}
		}
	}
	return -1
}

// fold upper-cases s, strips diacritics and collapses whitespace so that
// "Retorno/Liberação " and "RETORNO/LIBERACAO" compare equal.
func fold(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(strings.ToUpper(b.String())), " ")
}
