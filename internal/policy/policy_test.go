package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"docregistry/internal/model"
)

const (
	self  = "me@example.com"
	other = "someone@example.com"
)

func TestMatrix(t *testing.T) {
	tests := []struct {
		role        model.Role
		upload      bool
		deleteOwn   bool
		deleteOther bool
		read        bool
	}{
		{model.RoleAdmin, true, true, true, true},
		{model.RoleEditor, true, true, false, true},
		{model.RoleViewer, false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.upload, CanUpload(tt.role), "upload")
			assert.Equal(t, tt.upload, CanMutate(tt.role), "mutate")
			assert.Equal(t, tt.deleteOwn, CanDelete(tt.role, self, self), "delete own")
			assert.Equal(t, tt.deleteOther, CanDelete(tt.role, self, other), "delete other")
			assert.Equal(t, tt.read, CanRead(tt.role), "read")
			assert.Equal(t, tt.deleteOwn, CanWriteContent(tt.role, self, self), "write own content")
			assert.Equal(t, tt.deleteOther, CanWriteContent(tt.role, self, other), "write other content")
		})
	}
}

func TestUnknownRole(t *testing.T) {
	r := model.Role("owner")
	assert.False(t, CanUpload(r))
	assert.False(t, CanMutate(r))
	assert.False(t, CanDelete(r, self, self))
	assert.False(t, CanRead(r))
	assert.False(t, CanUploadAs(r, self, self))
}

func TestCanUploadAs(t *testing.T) {
	assert.True(t, CanUploadAs(model.RoleAdmin, self, other))
	assert.True(t, CanUploadAs(model.RoleEditor, self, self))
	assert.False(t, CanUploadAs(model.RoleEditor, self, other))
	assert.False(t, CanUploadAs(model.RoleViewer, self, self))
}
