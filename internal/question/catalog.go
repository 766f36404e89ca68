package question

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var bundledCatalog []byte

// Subject is a statically bundled practice subject.
type Subject struct {
	ID        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Icon      string     `json:"icon" yaml:"icon"`
	Topics    []string   `json:"topics" yaml:"topics"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// SubjectSummary is the listing form of a Subject, without answers.
type SubjectSummary struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Icon          string   `json:"icon"`
	Topics        []string `json:"topics"`
	QuestionCount int      `json:"question_count"`
}

// Catalog holds the subjects shipped with the binary. It is read-only after load.
type Catalog struct {
	order    []string
	subjects map[string]Subject
}

type catalogFile struct {
	Subjects []Subject `yaml:"subjects"`
}

// LoadBundledCatalog parses the embedded catalog.
func LoadBundledCatalog() (*Catalog, error) {
	return ParseCatalog(bundledCatalog)
}

// ParseCatalog decodes and validates a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{subjects: make(map[string]Subject, len(file.Subjects))}
	for _, s := range file.Subjects {
		if s.ID == "" {
			return nil, fmt.Errorf("catalog subject without id")
		}
		if _, dup := c.subjects[s.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog subject %q", s.ID)
		}
		if len(s.Questions) == 0 {
			return nil, fmt.Errorf("subject %q has no questions", s.ID)
		}
		if err := ValidateAll(s.Questions); err != nil {
			return nil, fmt.Errorf("subject %q: %w", s.ID, err)
		}
		c.order = append(c.order, s.ID)
		c.subjects[s.ID] = s
	}
	return c, nil
}

// Subjects lists subjects in catalog order.
func (c *Catalog) Subjects() []SubjectSummary {
	out := make([]SubjectSummary, 0, len(c.order))
	for _, id := range c.order {
		s := c.subjects[id]
		out = append(out, SubjectSummary{
			ID:            s.ID,
			Name:          s.Name,
			Icon:          s.Icon,
			Topics:        s.Topics,
			QuestionCount: len(s.Questions),
		})
	}
	return out
}

// Subject returns the subject with the given id.
func (c *Catalog) Subject(id string) (Subject, error) {
	s, ok := c.subjects[id]
	if !ok {
		return Subject{}, fmt.Errorf("%w: %s", ErrSubjectNotFound, id)
	}
	return s, nil
}
