package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleViewer.Valid())
	assert.True(t, RoleEditor.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleOwner.Valid())
	assert.False(t, Role("superuser").Valid())
	assert.False(t, Role("").Valid())
}

func TestRoleAtLeast(t *testing.T) {
	t.Run("ordering", func(t *testing.T) {
		assert.True(t, RoleOwner.AtLeast(RoleAdmin))
		assert.True(t, RoleAdmin.AtLeast(RoleEditor))
		assert.True(t, RoleEditor.AtLeast(RoleViewer))
		assert.True(t, RoleAdmin.AtLeast(RoleAdmin))

		assert.False(t, RoleViewer.AtLeast(RoleEditor))
		assert.False(t, RoleAdmin.AtLeast(RoleOwner))
	})

	t.Run("unknown roles rank below everything", func(t *testing.T) {
		assert.False(t, Role("bogus").AtLeast(RoleViewer))
		assert.True(t, RoleViewer.AtLeast(Role("bogus")))
	})
}
