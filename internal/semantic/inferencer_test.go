package semantic

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierapp/atelier-server/internal/errors"
	"github.com/atelierapp/atelier-server/internal/telemetry"
)

var testCategories = []string{"wood", "stone", "metal", "fabric"}

func newTestInferencer(gen *fakeGenerator, rec *telemetry.Recorder) *Inferencer {
	return NewInferencer(gen, rec, slog.New(slog.DiscardHandler), 1, time.Millisecond)
}

func TestInfer(t *testing.T) {
	gen := &fakeGenerator{payloads: []string{`{"category":"wood"}`}}
	rec := telemetry.New(nil)
	inf := newTestInferencer(gen, rec)

	cat, err := inf.Infer(context.Background(), Candidate{RawName: "Oak Parquet", LanguageTag: "en"}, testCategories)
	require.NoError(t, err)
	assert.Equal(t, "wood", cat)

	require.Equal(t, 1, rec.Len())
	assert.Equal(t, telemetry.KindInfer, rec.Snapshot()[0].Kind)
}

func TestInfer_OutOfSetIsInvalidInference(t *testing.T) {
	// "plastic" is not in the closed set; it must not be coerced, and a
	// second out-of-set answer exhausts the retry budget.
	gen := &fakeGenerator{payloads: []string{`{"category":"plastic"}`, `{"category":"plastic"}`}}
	inf := newTestInferencer(gen, telemetry.New(nil))

	_, err := inf.Infer(context.Background(), Candidate{RawName: "acrylic sheet", LanguageTag: "en"}, testCategories)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidInference)
	assert.Equal(t, 2, gen.calls, "an out-of-set answer is retried once")
}

func TestInfer_OutOfSetRecoversOnRetry(t *testing.T) {
	gen := &fakeGenerator{payloads: []string{`{"category":"plastic"}`, `{"category":"wood"}`}}
	inf := newTestInferencer(gen, telemetry.New(nil))

	cat, err := inf.Infer(context.Background(), Candidate{RawName: "acrylic sheet", LanguageTag: "en"}, testCategories)
	require.NoError(t, err)
	assert.Equal(t, "wood", cat)
	assert.Equal(t, 2, gen.calls)
}

func TestInfer_RetryThenSuccess(t *testing.T) {
	gen := &fakeGenerator{
		errs:     []error{errors.ModelUnavailable(nil), nil},
		payloads: []string{"", `{"category":"stone"}`},
	}
	inf := newTestInferencer(gen, telemetry.New(nil))

	cat, err := inf.Infer(context.Background(), Candidate{RawName: "травертин", LanguageTag: "ru"}, testCategories)
	require.NoError(t, err)
	assert.Equal(t, "stone", cat)
	assert.Equal(t, 2, gen.calls)
}

func TestInfer_FinalFailureIsFatal(t *testing.T) {
	gen := &fakeGenerator{errs: []error{errors.ModelUnavailable(nil), errors.ModelUnavailable(nil)}}
	rec := telemetry.New(nil)
	inf := newTestInferencer(gen, rec)

	_, err := inf.Infer(context.Background(), Candidate{RawName: "mystery", LanguageTag: "en"}, testCategories)
	require.Error(t, err, "inference does not fail open")
	assert.ErrorIs(t, err, errors.ErrModelUnavailable)
	assert.Equal(t, 2, rec.Len())
}

func TestInfer_NoCategories(t *testing.T) {
	inf := newTestInferencer(&fakeGenerator{}, telemetry.New(nil))
	_, err := inf.Infer(context.Background(), Candidate{RawName: "oak"}, nil)
	assert.Error(t, err)
}
