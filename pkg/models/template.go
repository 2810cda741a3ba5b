package models

// Template is a tenant-scoped subject/body pair rendered against the execution context.
type Template struct {
	ID       string `json:"id"        yaml:"id"        validate:"required"`
	TenantID string `json:"tenant_id" yaml:"tenant_id" validate:"required"`
	Title    string `json:"title"     yaml:"title"`
	Subject  string `json:"subject"   yaml:"subject"`
	Body     string `json:"body"      yaml:"body"`
}
