// Package taxonomy loads the fixed skill and cause vocabulary profiles and
// projects are tagged with.
package taxonomy

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"justbecause/internal/domain"
)

//go:embed taxonomy.yaml
var raw []byte

type Item struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

type Category struct {
	ID        string `yaml:"id" json:"id"`
	Name      string `yaml:"name" json:"name"`
	Subskills []Item `yaml:"subskills" json:"subskills"`
}

type Taxonomy struct {
	Categories []Category `yaml:"categories" json:"categories"`
	Causes     []Item     `yaml:"causes" json:"causes"`

	subskillCategory map[string]string
	causes           map[string]bool
}

// Load parses the embedded taxonomy.
func Load() (*Taxonomy, error) {
	return Parse(raw)
}

// MustLoad panics when the embedded taxonomy is malformed.
func MustLoad() *Taxonomy {
	t, err := Load()
	if err != nil {
		panic(err)
	}
	return t
}

func Parse(data []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	t.subskillCategory = make(map[string]string)
	t.causes = make(map[string]bool)
	for _, c := range t.Categories {
		for _, s := range c.Subskills {
			if prev, dup := t.subskillCategory[s.ID]; dup {
				return nil, fmt.Errorf("subskill %q listed under %q and %q", s.ID, prev, c.ID)
			}
			t.subskillCategory[s.ID] = c.ID
		}
	}
	for _, c := range t.Causes {
		t.causes[c.ID] = true
	}
	return &t, nil
}

// CategoryOf returns the category a subskill belongs to.
func (t *Taxonomy) CategoryOf(subskill string) (string, bool) {
	c, ok := t.subskillCategory[subskill]
	return c, ok
}

func (t *Taxonomy) IsCause(id string) bool {
	return t.causes[id]
}

// ValidateSkill checks that subskill belongs to category.
func (t *Taxonomy) ValidateSkill(field, category, subskill string) error {
	got, ok := t.subskillCategory[subskill]
	if !ok {
		return domain.Invalid(field, fmt.Sprintf("unknown skill %q", subskill))
	}
	if category != "" && got != category {
		return domain.Invalid(field, fmt.Sprintf("skill %q is not in category %q", subskill, category))
	}
	return nil
}

func (t *Taxonomy) ValidateCauses(field string, causes []string) error {
	for _, c := range causes {
		if !t.causes[c] {
			return domain.Invalid(field, fmt.Sprintf("unknown cause %q", c))
		}
	}
	return nil
}

// Subskills flattens every category.
func (t *Taxonomy) Subskills() []Item {
	var out []Item
	for _, c := range t.Categories {
		out = append(out, c.Subskills...)
	}
	return out
}

// Match finds taxonomy subskills whose id or name occurs in text.
func (t *Taxonomy) Match(text string) []domain.SkillRequirement {
	text = strings.ToLower(text)
	var out []domain.SkillRequirement
	for _, c := range t.Categories {
		for _, s := range c.Subskills {
			if strings.Contains(text, strings.ToLower(s.Name)) || strings.Contains(text, s.ID) {
				out = append(out, domain.SkillRequirement{Category: c.ID, Subskill: s.ID})
			}
		}
	}
	return out
}
