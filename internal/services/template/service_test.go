package template

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestBuiltinTemplateAvailableWithoutDirectory(t *testing.T) {
	svc, err := NewService("", arbor.NewLogger())
	require.NoError(t, err)

	tmpl, err := svc.Get(context.Background(), "standard-valuation")
	require.NoError(t, err)

	assert.Equal(t, "Standard Valuation Report", tmpl.Name)
	assert.NoError(t, tmpl.Validate())
	assert.NotEmpty(t, tmpl.RequiredPlaceholders())
}

func TestGetUnknownTemplate(t *testing.T) {
	svc, err := NewService("", arbor.NewLogger())
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "no-such-template")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-template")
}

func TestLoadTemplateFromTOMLFile(t *testing.T) {
	dir := t.TempDir()

	definition := `
id = "letter-report"
name = "Letter Report"

[[sections]]
title = "Opening"
type = "substitution"
body = "Dear *COMPANY,"

[[sections.placeholders]]
token = "*COMPANY"
field = "company_name"
required = true

[[sections]]
title = "Overview"
type = "generated"
content_key = "company_overview"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "letter.toml"), []byte(definition), 0644))

	svc, err := NewService(dir, arbor.NewLogger())
	require.NoError(t, err)

	tmpl, err := svc.Get(context.Background(), "letter-report")
	require.NoError(t, err)

	assert.Equal(t, "Letter Report", tmpl.Name)
	require.Len(t, tmpl.Sections, 2)
	assert.Equal(t, "Opening", tmpl.Sections[0].Title)
	require.Len(t, tmpl.Sections[0].Placeholders, 1)
	assert.Equal(t, "*COMPANY", tmpl.Sections[0].Placeholders[0].Token)
	assert.True(t, tmpl.Sections[0].Placeholders[0].Required)
	assert.Equal(t, "company_overview", tmpl.Sections[1].ContentKey)
}

func TestDefinitionFileOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()

	definition := `
id = "standard-valuation"
name = "Custom Standard"

[[sections]]
title = "Everything"
type = "boilerplate"
body = "All in one section."
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.toml"), []byte(definition), 0644))

	svc, err := NewService(dir, arbor.NewLogger())
	require.NoError(t, err)

	tmpl, err := svc.Get(context.Background(), "standard-valuation")
	require.NoError(t, err)
	assert.Equal(t, "Custom Standard", tmpl.Name)
	assert.Len(t, tmpl.Sections, 1)
}

func TestInvalidDefinitionFileIsSkipped(t *testing.T) {
	dir := t.TempDir()

	// Unknown section type fails validation; the file is skipped, not fatal.
	invalid := `
id = "broken"
name = "Broken"

[[sections]]
title = "Oops"
type = "hologram"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.toml"), []byte(invalid), 0644))

	svc, err := NewService(dir, arbor.NewLogger())
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "broken")
	assert.Error(t, err)

	// Built-ins still serve.
	_, err = svc.Get(context.Background(), "standard-valuation")
	assert.NoError(t, err)
}

func TestReloadPicksUpNewDefinitions(t *testing.T) {
	dir := t.TempDir()

	svc, err := NewService(dir, arbor.NewLogger())
	require.NoError(t, err)

	definition := `
id = "addendum"
name = "Addendum"

[[sections]]
title = "Body"
type = "boilerplate"
body = "Addendum text."
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "addendum.toml"), []byte(definition), 0644))
	require.NoError(t, svc.Reload(context.Background()))

	tmpl, err := svc.Get(context.Background(), "addendum")
	require.NoError(t, err)
	assert.Equal(t, "Addendum", tmpl.Name)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(list), 2)
}
