package domain

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// ScopeWildcard is the JSON list member meaning "all identifiers"
const ScopeWildcard = "*"

// IDScope is either unrestricted or restricted to an explicit set of identifiers.
// The zero value is restricted to nothing.
type IDScope struct {
	unrestricted bool
	ids          map[uuid.UUID]struct{}
}

// Unrestricted returns a scope allowing every identifier
func Unrestricted() IDScope {
	return IDScope{unrestricted: true}
}

// Restricted returns a scope allowing only the given identifiers
func Restricted(ids ...uuid.UUID) IDScope {
	s := IDScope{ids: make(map[uuid.UUID]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

func (s IDScope) IsUnrestricted() bool {
	return s.unrestricted
}

// IsEmpty reports whether the scope allows no identifiers at all
func (s IDScope) IsEmpty() bool {
	return !s.unrestricted && len(s.ids) == 0
}

// Allows reports whether id is inside the scope
func (s IDScope) Allows(id uuid.UUID) bool {
	if s.unrestricted {
		return true
	}
	_, ok := s.ids[id]
	return ok
}

// IDs returns the restricted identifiers in a stable order. It is nil for an
// unrestricted scope.
func (s IDScope) IDs() []uuid.UUID {
	if s.unrestricted {
		return nil
	}
	out := make([]uuid.UUID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// MarshalJSON encodes the scope as ["*"] or a list of identifiers
func (s IDScope) MarshalJSON() ([]byte, error) {
	if s.unrestricted {
		return json.Marshal([]string{ScopeWildcard})
	}
	ids := s.IDs()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a list of identifiers. A list containing "*" is unrestricted
// and null decodes as restricted to nothing.
func (s *IDScope) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("scope must be a list of identifiers: %w", err)
	}
	for _, v := range raw {
		if v == ScopeWildcard {
			*s = Unrestricted()
			return nil
		}
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, v := range raw {
		id, err := uuid.Parse(v)
		if err != nil {
			return fmt.Errorf("invalid scope identifier %q: %w", v, err)
		}
		ids = append(ids, id)
	}
	*s = Restricted(ids...)
	return nil
}

// RoleScope limits the projects and sites a role's users may act upon
type RoleScope struct {
	Projects IDScope `json:"projectIds"`
	Sites    IDScope `json:"siteIds"`
}

// FullScope is unrestricted on both projects and sites
func FullScope() RoleScope {
	return RoleScope{Projects: Unrestricted(), Sites: Unrestricted()}
}

// NoScope is restricted to nothing on both projects and sites
func NoScope() RoleScope {
	return RoleScope{Projects: Restricted(), Sites: Restricted()}
}
