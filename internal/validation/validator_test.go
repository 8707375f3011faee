package validation_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	domainerrors "github.com/atelierapp/atelier-server/internal/errors"
	"github.com/atelierapp/atelier-server/internal/validation"
)

type TestRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=200"`
	LanguageTag string  `json:"language_tag" validate:"required,langtag"`
	Slug        string  `json:"slug" validate:"required,slug"`
	Threshold   float64 `json:"threshold" validate:"gte=0,lte=1"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	req := TestRequest{
		Name:        "Oak Parquet",
		LanguageTag: "en-US",
		Slug:        "oak-parquet",
		Threshold:   0.75,
	}

	err := v.Validate(req)
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       TestRequest
		wantField string
	}{
		{
			name: "missing required field",
			req: TestRequest{
				Name:        "",
				LanguageTag: "en",
				Slug:        "oak-parquet",
			},
			wantField: "name",
		},
		{
			name: "invalid language tag",
			req: TestRequest{
				Name:        "Oak",
				LanguageTag: "not a tag",
				Slug:        "oak-parquet",
			},
			wantField: "language_tag",
		},
		{
			name: "uppercase slug rejected",
			req: TestRequest{
				Name:        "Oak",
				LanguageTag: "ru",
				Slug:        "Oak-Parquet",
			},
			wantField: "slug",
		},
		{
			name: "threshold out of range",
			req: TestRequest{
				Name:        "Oak",
				LanguageTag: "en",
				Slug:        "oak",
				Threshold:   1.5,
			},
			wantField: "threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			assert.Error(t, err)

			var domainErr *domainerrors.Error
			if assert.True(t, errors.As(err, &domainErr)) {
				assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
				fields, ok := domainErr.Details.(map[string]string)
				if assert.True(t, ok, "details carry per-field messages") {
					assert.Contains(t, fields, tt.wantField)
				}
			}
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	req := TestRequest{
		Name:        "",
		LanguageTag: "en",
		Slug:        "oak",
	}

	err := v.Validate(req)
	assert.Error(t, err)

	var domainErr *domainerrors.Error
	if assert.True(t, errors.As(err, &domainErr)) {
		fields, ok := domainErr.Details.(map[string]string)
		if assert.True(t, ok) {
			// Uses the JSON tag name "name", not the struct field name "Name".
			assert.Contains(t, fields, "name")
			assert.NotContains(t, fields, "Name")
		}
	}
}
