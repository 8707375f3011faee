package providers

import (
	"context"

	"github.com/samber/do/v2"
	"google.golang.org/genai"

	"github.com/atelierapp/atelier-server/internal/config"
	"github.com/atelierapp/atelier-server/internal/errors"
	"github.com/atelierapp/atelier-server/internal/logger"
	"github.com/atelierapp/atelier-server/internal/semantic"
	"github.com/atelierapp/atelier-server/internal/telemetry"
)

// ProvideTelemetry provides the process-wide telemetry recorder.
func ProvideTelemetry(i do.Injector) (*telemetry.Recorder, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return telemetry.New(log.Logger), nil
}

// disabledGenerator stands in when no model API key is configured. Every
// call fails as unavailable: matching falls back to no-match, creation
// is blocked.
type disabledGenerator struct{}

func (disabledGenerator) GenerateStructured(context.Context, string, *genai.Schema, any) error {
	return errors.ModelUnavailable(nil)
}

// ProvideGenerator provides the structured-output model client.
func ProvideGenerator(i do.Injector) (semantic.Generator, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Model.APIKey == "" {
		log.Warn("No model API key configured, semantic matching is disabled")
		return disabledGenerator{}, nil
	}

	client, err := semantic.NewGeminiClient(context.Background(), semantic.GeminiConfig{
		APIKey:  cfg.Model.APIKey,
		Model:   cfg.Model.Model,
		RPS:     cfg.Model.RequestsPerSecond,
		Burst:   cfg.Model.Burst,
		Timeout: cfg.Model.Timeout,
	})
	if err != nil {
		return nil, err
	}

	log.Info("Model client initialized", "model", cfg.Model.Model)

	return client, nil
}
