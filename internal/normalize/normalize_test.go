package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase passthrough", "oak parquet", "oak parquet"},
		{"case folded", "Oak Parquet", "oak parquet"},
		{"whitespace collapsed", "  Oak   Parquet\t", "oak parquet"},
		{"cyrillic folded", "Дуб Паркет", "дуб паркет"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Name(tt.input))
		})
	}
}

func TestLanguage(t *testing.T) {
	assert.Equal(t, "en", Language("en"))
	assert.Equal(t, "en", Language("en-US"))
	assert.Equal(t, "ru", Language("ru-RU"))
	assert.Equal(t, "en", Language(""))
	assert.Equal(t, "en", Language("not-a-tag-at-all-!!"))
}

func TestIdempotencyKey(t *testing.T) {
	// Same material, different casing and region -> same key.
	assert.Equal(t,
		IdempotencyKey("Oak  Parquet", "en-US"),
		IdempotencyKey("oak parquet", "en"),
	)
	// Different languages -> different keys.
	assert.NotEqual(t,
		IdempotencyKey("oak parquet", "en"),
		IdempotencyKey("oak parquet", "ru"),
	)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "oak-parquet", Slug("Oak Parquet"))
	assert.Equal(t, "mid-century-modern", Slug("Mid-Century  Modern!"))
	assert.Equal(t, "loft-2-0", Slug("Loft 2.0"))
	assert.Equal(t, "", Slug("  ---  "))
}
