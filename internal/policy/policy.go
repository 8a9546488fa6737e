// Package policy holds the access rules for document records. Every
// function is pure; callers resolve the actor and record first.
package policy

import "docregistry/internal/model"

// CanMutate reports whether role may change the record set at all. It is
// checked before a record is looked up, so a viewer is refused even for ids
// that do not exist.
func CanMutate(role model.Role) bool {
	return role == model.RoleAdmin || role == model.RoleEditor
}

// CanUpload reports whether role may create records.
func CanUpload(role model.Role) bool {
	return CanMutate(role)
}

// CanUploadAs reports whether an actor may create a record owned by
// uploadedBy. Admins may upload on behalf of anyone; editors only for
// themselves.
func CanUploadAs(role model.Role, actorEmail, uploadedBy string) bool {
	switch role {
	case model.RoleAdmin:
		return true
	case model.RoleEditor:
		return actorEmail == uploadedBy
	}
	return false
}

// CanDelete reports whether an actor may delete a record owned by uploadedBy.
func CanDelete(role model.Role, actorEmail, uploadedBy string) bool {
	if role == model.RoleAdmin {
		return true
	}
	return role == model.RoleEditor && actorEmail == uploadedBy
}

// CanWriteContent follows the delete rule: only the owning editor or an
// admin may attach or replace a record's content.
func CanWriteContent(role model.Role, actorEmail, uploadedBy string) bool {
	return CanDelete(role, actorEmail, uploadedBy)
}

// CanRead reports whether role may list and fetch records.
func CanRead(role model.Role) bool {
	return role.Valid()
}
