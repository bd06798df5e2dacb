package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ContentTypePrompts(t *testing.T) {
	ClearCache()

	for _, key := range []string{"job_roundup", "company_spotlight", "market_trend"} {
		prompt, err := Get(Newsroom, key)
		require.NoError(t, err, key)
		assert.Contains(t, prompt, "UK part-time executive marketplace")
		assert.Contains(t, prompt, "{{.BaseInstructions}}")
	}
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get(Newsroom, "nonexistent-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() { MustGet("nonexistent.json", "some-key") })
	assert.NotPanics(t, func() {
		assert.NotEmpty(t, MustGet(Newsroom, KeyBaseInstructions))
	})
}

func TestRender(t *testing.T) {
	ClearCache()

	out, err := Render(Newsroom, KeyUserWithCategory, map[string]string{
		"ContentLabel": "job roundup",
		"Category":     "Finance",
		"Jobs":         "[]",
	})
	require.NoError(t, err)
	assert.Equal(t, "Generate a job roundup article for the Finance category.\n\nJobs data:\n[]", out)
}

func TestFormat(t *testing.T) {
	out := Format("Hello {{.Name}}, welcome to {{.Company}}!", map[string]string{
		"Name":    "Alice",
		"Company": "Acme Corp",
	})
	assert.Equal(t, "Hello Alice, welcome to Acme Corp!", out)

	assert.Equal(t, "Hello {{.Name}}", Format("Hello {{.Name}}", nil))
	assert.Equal(t, "No placeholders", Format("No placeholders", map[string]string{"Key": "v"}))
}

func TestFormat_ValuesAreNotReexpanded(t *testing.T) {
	out := Format("{{.A}}", map[string]string{"A": "{{.B}}", "B": "x"})
	assert.Equal(t, "{{.B}}", out)
}

func TestList(t *testing.T) {
	ClearCache()

	keys, err := List(Newsroom)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"base-instructions", "company_spotlight", "internal-linking",
		"job_roundup", "market_trend", "user", "user-with-category",
	}, keys)
}
