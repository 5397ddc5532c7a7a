package ruleset

// TemplateRegistry provides fast lookup of sheet templates by ID.
type TemplateRegistry struct {
	templates map[string]*Template
}

// NewTemplateRegistry returns an empty TemplateRegistry.
//
// Postcondition: Returns a non-nil *TemplateRegistry ready to accept registrations.
func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{templates: make(map[string]*Template)}
}

// Register adds a Template to the registry.
//
// Precondition: t must be non-nil with a non-empty ID.
// Postcondition: t is retrievable via Template using t.ID;
// if called multiple times with the same ID, the last call wins.
func (r *TemplateRegistry) Register(t *Template) {
	if t == nil {
		panic("TemplateRegistry.Register: precondition violated: template must be non-nil")
	}
	if t.ID == "" {
		panic("TemplateRegistry.Register: precondition violated: template ID must be non-empty")
	}
	r.templates[t.ID] = t
}

// Template returns the Template for the given ID, if registered.
//
// Postcondition: Returns the registered Template and true, or nil and false
// if not found.
func (r *TemplateRegistry) Template(id string) (*Template, bool) {
	t, ok := r.templates[id]
	return t, ok
}

// IDs returns the registered template IDs in unspecified order.
func (r *TemplateRegistry) IDs() []string {
	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	return ids
}
