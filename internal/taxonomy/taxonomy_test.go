package taxonomy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"justbecause/internal/domain"
)

func TestEmbeddedTaxonomy(t *testing.T) {
	tx, err := Load()
	require.NoError(t, err)
	assert.NotEmpty(t, tx.Categories)
	assert.NotEmpty(t, tx.Causes)

	cat, ok := tx.CategoryOf("grant-writing")
	assert.True(t, ok)
	assert.Equal(t, "fundraising", cat)
	assert.True(t, tx.IsCause("education"))
}

func TestValidate(t *testing.T) {
	tx := MustLoad()
	assert.NoError(t, tx.ValidateSkill("skills", "technology", "web-development"))
	assert.True(t, errors.Is(tx.ValidateSkill("skills", "design", "web-development"), domain.ErrValidation))
	assert.True(t, errors.Is(tx.ValidateSkill("skills", "", "juggling"), domain.ErrValidation))
	assert.NoError(t, tx.ValidateCauses("causes", []string{"health", "environment"}))
	assert.True(t, errors.Is(tx.ValidateCauses("causes", []string{"space"}), domain.ErrValidation))
}

func TestParseRejectsDuplicateSubskill(t *testing.T) {
	_, err := Parse([]byte(`
categories:
  - id: a
    subskills: [{id: x}]
  - id: b
    subskills: [{id: x}]
`))
	assert.Error(t, err)
}

func TestMatch(t *testing.T) {
	tx := MustLoad()
	got := tx.Match("We need help with Grant writing and social media posts")
	assert.Contains(t, got, domain.SkillRequirement{Category: "fundraising", Subskill: "grant-writing"})
	assert.Contains(t, got, domain.SkillRequirement{Category: "marketing", Subskill: "social-media"})
}
