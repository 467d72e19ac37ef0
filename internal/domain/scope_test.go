package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yugmi/sense-api/internal/domain"
)

func TestIDScope_Allows(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	tests := []struct {
		name     string
		scope    domain.IDScope
		id       uuid.UUID
		expected bool
	}{
		{name: "unrestricted allows anything", scope: domain.Unrestricted(), id: a, expected: true},
		{name: "restricted allows listed id", scope: domain.Restricted(a), id: a, expected: true},
		{name: "restricted denies other id", scope: domain.Restricted(a), id: b, expected: false},
		{name: "empty denies everything", scope: domain.Restricted(), id: a, expected: false},
		{name: "zero value denies everything", scope: domain.IDScope{}, id: a, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.scope.Allows(tt.id))
		})
	}
}

func TestIDScope_JSON(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	t.Run("wildcard encodes as star list", func(t *testing.T) {
		data, err := json.Marshal(domain.Unrestricted())
		require.NoError(t, err)
		assert.JSONEq(t, `["*"]`, string(data))
	})

	t.Run("empty restricted encodes as empty list", func(t *testing.T) {
		data, err := json.Marshal(domain.Restricted())
		require.NoError(t, err)
		assert.JSONEq(t, `[]`, string(data))
	})

	t.Run("list containing star decodes unrestricted", func(t *testing.T) {
		var s domain.IDScope
		require.NoError(t, json.Unmarshal([]byte(`["`+id.String()+`","*"]`), &s))
		assert.True(t, s.IsUnrestricted())
		assert.Nil(t, s.IDs())
	})

	t.Run("identifier list decodes restricted", func(t *testing.T) {
		var s domain.IDScope
		require.NoError(t, json.Unmarshal([]byte(`["`+id.String()+`"]`), &s))
		assert.False(t, s.IsUnrestricted())
		assert.Equal(t, []uuid.UUID{id}, s.IDs())
	})

	t.Run("invalid identifier is rejected", func(t *testing.T) {
		var s domain.IDScope
		assert.Error(t, json.Unmarshal([]byte(`["not-a-uuid"]`), &s))
	})
}

func TestRoleScope_JSONShape(t *testing.T) {
	data, err := json.Marshal(domain.FullScope())
	require.NoError(t, err)
	assert.JSONEq(t, `{"projectIds":["*"],"siteIds":["*"]}`, string(data))

	var decoded domain.RoleScope
	require.NoError(t, json.Unmarshal([]byte(`{"projectIds":[],"siteIds":["*"]}`), &decoded))
	assert.True(t, decoded.Projects.IsEmpty())
	assert.True(t, decoded.Sites.IsUnrestricted())

	none := domain.NoScope()
	assert.True(t, none.Projects.IsEmpty())
	assert.True(t, none.Sites.IsEmpty())
}
