package document

import "os"

// Milestone is a parsed milestone document. Description falls back to the
// document body when the front matter key is absent. Zero Number means the
// milestone has not been created remotely yet.
type Milestone struct {
	Path        string
	Title       string
	Description string
	DueOn       string
	State       State
	ID          string
	Number      int
	Body        string
}

// LoadMilestone reads and parses a milestone document from disk.
func LoadMilestone(path string) (*Milestone, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	file, err := Parse(path, string(raw))
	if err != nil {
		return nil, err
	}
	return ParseMilestone(file)
}

// ParseMilestone builds a typed milestone from an already-parsed file.
func ParseMilestone(file *File) (*Milestone, error) {
	milestone := &Milestone{Path: file.Path, Body: file.Body}
	var err error
	if milestone.Title, err = requireString(file, "title"); err != nil {
		return nil, err
	}
	if milestone.ID, err = optionalString(file, "id"); err != nil {
		return nil, err
	}
	if milestone.Number, err = optionalInt(file, "number"); err != nil {
		return nil, err
	}
	if milestone.Description, err = optionalString(file, "description"); err != nil {
		return nil, err
	}
	if milestone.Description == "" {
		milestone.Description = file.Body
	}
	if milestone.DueOn, err = optionalString(file, "due_on"); err != nil {
		return nil, err
	}
	if milestone.State, err = optionalState(file, "state"); err != nil {
		return nil, err
	}
	return milestone, nil
}

// Metadata rebuilds the front matter for the milestone's explicitly-set
// fields, in canonical key order.
func (m *Milestone) Metadata() *FrontMatter {
	meta := NewFrontMatter()
	meta.Set("title", m.Title)
	if m.ID != "" {
		meta.Set("id", m.ID)
	}
	if m.Number != 0 {
		meta.Set("number", m.Number)
	}
	if m.Description != "" {
		meta.Set("description", m.Description)
	}
	if m.DueOn != "" {
		meta.Set("due_on", m.DueOn)
	}
	if m.State != "" {
		meta.Set("state", string(m.State))
	}
	return meta
}
