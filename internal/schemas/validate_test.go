package schemas

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validArticle() map[string]any {
	return map[string]any{
		"title":          "Part-Time CFO Roles This Week",
		"excerpt":        "Five new finance leadership roles across the UK.",
		"content":        "## Market\n\nDemand is up.",
		"category":       "Finance",
		"suggested_slug": "part-time-cfo-roles-this-week",
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestArticleSchema_IsValidJSON(t *testing.T) {
	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(ArticleSchema()), &parsed))
	assert.Equal(t, "object", parsed["type"])
}

func TestValidateArticle_Valid(t *testing.T) {
	assert.NoError(t, ValidateArticle(mustJSON(t, validArticle())))
}

func TestValidateArticle_HRIsAccepted(t *testing.T) {
	doc := validArticle()
	doc["category"] = "HR"
	assert.NoError(t, ValidateArticle(mustJSON(t, doc)))
}

func TestValidateArticle_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
		field  string
	}{
		{"missing title", func(m map[string]any) { delete(m, "title") }, "(root)"},
		{"title too long", func(m map[string]any) { m["title"] = strings.Repeat("x", 101) }, "title"},
		{"excerpt too long", func(m map[string]any) { m["excerpt"] = strings.Repeat("x", 301) }, "excerpt"},
		{"unknown category", func(m map[string]any) { m["category"] = "Legal" }, "category"},
		{"slug wrong type", func(m map[string]any) { m["suggested_slug"] = 42 }, "suggested_slug"},
		{"empty content", func(m map[string]any) { m["content"] = "" }, "content"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validArticle()
			tt.mutate(doc)

			err := ValidateArticle(mustJSON(t, doc))
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
			require.NotEmpty(t, ve.Errors)
			assert.Equal(t, tt.field, ve.Errors[0].Field)
		})
	}
}

func TestValidateArticle_MalformedJSON(t *testing.T) {
	err := ValidateArticle([]byte("{ not json"))
	var le *SchemaLoadError
	require.True(t, errors.As(err, &le))
}

func TestValidateJSONString(t *testing.T) {
	schema := `{"type":"object","required":["name"]}`

	assert.NoError(t, ValidateJSONString(schema, `{"name":"x"}`))

	err := ValidateJSONString(schema, `{}`)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, err.Error(), "validation failed:")
}
