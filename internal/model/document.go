package model

// Document is a metadata record in the registry.
// Tags and Permissions are ordered lists; Permissions is stored and returned
// but not enforced by the access policy.
type Document struct {
	DocumentID  string   `json:"document_id"`
	Title       string   `json:"title"`
	Tags        []string `json:"tags"`
	UploadedBy  string   `json:"uploaded_by"`
	Permissions []string `json:"permissions"`
}

// Normalize replaces nil list fields with empty lists so records compare
// equal after a round trip through any backend.
func (d *Document) Normalize() {
	if d.Tags == nil {
		d.Tags = []string{}
	}
	if d.Permissions == nil {
		d.Permissions = []string{}
	}
}
