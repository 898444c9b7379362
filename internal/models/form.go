package models

// FormState is handed back to a form template after a failed action. Errors
// holds field-level messages keyed by form field name.
type FormState struct {
	Errors  map[string][]string `json:"errors,omitempty"`
	Message string              `json:"message,omitempty"`
}

// AddError records a message for a field.
func (s *FormState) AddError(field, msg string) {
	if s.Errors == nil {
		s.Errors = map[string][]string{}
	}
	s.Errors[field] = append(s.Errors[field], msg)
}

// HasErrors reports whether any field failed validation.
func (s FormState) HasErrors() bool {
	return len(s.Errors) > 0
}

// Page, pagination info for list screens.
type Page struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Query   string `json:"query"`
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Current > 1 }

// HasNext reports whether a next page exists.
func (p Page) HasNext() bool { return p.Current < p.Total }
