package domain

// ContextSnapshot holds environment data injected into prompts and used to
// tag cache records.
type ContextSnapshot struct {
	WorkingDir string
	Shell      string
	OS         string
	User       string
}
