package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/atelierapp/atelier-server/internal/recovery"
	"github.com/atelierapp/atelier-server/internal/service"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "recoverAssets",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/recover",
		Summary:     "Reconcile asset storage",
		Description: "Scans object storage and relinks orphaned objects to their catalog entities",
		Tags:        []string{"Admin"},
	}, s.handleRecoverAssets)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTelemetry",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/telemetry",
		Summary:     "Get telemetry",
		Description: "Returns recorded model and generation operation telemetry",
		Tags:        []string{"Admin"},
	}, s.handleGetTelemetry)
}

// === DTOs ===

type RecoverRequest struct {
	EntityID string `json:"entity_id,omitempty" doc:"Restrict the run to one catalog entity"`
	Prefix   string `json:"prefix,omitempty" doc:"Narrow the storage listing"`
	DryRun   *bool  `json:"dry_run,omitempty" doc:"Report without mutating; defaults to true"`
	Workers  int    `json:"workers,omitempty" doc:"Cross-entity parallelism bound"`
}

type RecoverInput struct {
	Body RecoverRequest
}

type RecoverDetail struct {
	Path     string `json:"path" doc:"Storage object path"`
	Outcome  string `json:"outcome" doc:"Per-object outcome"`
	EntityID string `json:"entity_id,omitempty" doc:"Resolved catalog entity"`
	Reason   string `json:"reason,omitempty" doc:"Failure or skip reason"`
}

type RecoverResponse struct {
	Scanned             int             `json:"scanned" doc:"Objects scanned"`
	Matched             int             `json:"matched" doc:"Objects resolved to a catalog entity"`
	Relinked            int             `json:"relinked" doc:"Objects newly linked"`
	AlreadyLinked       int             `json:"already_linked" doc:"Objects already linked"`
	Unparsable          int             `json:"unparsable" doc:"Objects with no recognizable provenance"`
	MissingCatalogEntry int             `json:"missing_catalog_entry" doc:"Objects whose entity no longer exists"`
	Failed              int             `json:"failed" doc:"Objects whose relink failed"`
	Skipped             int             `json:"skipped" doc:"Objects outside the requested scope"`
	DryRun              bool            `json:"dry_run" doc:"Whether the run mutated anything"`
	Details             []RecoverDetail `json:"details" doc:"Per-object outcomes in scan order"`
}

type RecoverOutput struct {
	Body RecoverResponse
}

type TelemetryRecord struct {
	OperationID string    `json:"operation_id" doc:"Unique operation ID"`
	Kind        string    `json:"kind" doc:"Operation kind: match, infer, or generate"`
	Outcome     string    `json:"outcome" doc:"Operation outcome: success or failure"`
	ErrorKind   string    `json:"error_kind,omitempty" doc:"Failure classification"`
	Duration    string    `json:"duration" doc:"Operation duration"`
	At          time.Time `json:"at" doc:"Operation start time"`
}

type TelemetryResponse struct {
	Records []TelemetryRecord `json:"records" doc:"Recorded operations, oldest first"`
}

type TelemetryOutput struct {
	Body TelemetryResponse
}

// === Handlers ===

func (s *Server) handleRecoverAssets(ctx context.Context, input *RecoverInput) (*RecoverOutput, error) {
	// Mutation is opt-in; a bare request only reports.
	dryRun := true
	if input.Body.DryRun != nil {
		dryRun = *input.Body.DryRun
	}

	result, err := s.services.Recovery.Recover(ctx, service.RecoverRequest{
		EntityID: input.Body.EntityID,
		Prefix:   input.Body.Prefix,
		DryRun:   dryRun,
		Workers:  input.Body.Workers,
	})
	if err != nil {
		return nil, err
	}

	return &RecoverOutput{Body: mapRecoverResponse(result)}, nil
}

func (s *Server) handleGetTelemetry(_ context.Context, _ *struct{}) (*TelemetryOutput, error) {
	snapshot := s.recorder.Snapshot()

	records := make([]TelemetryRecord, len(snapshot))
	for i, r := range snapshot {
		records[i] = TelemetryRecord{
			OperationID: r.OperationID,
			Kind:        string(r.Kind),
			Outcome:     string(r.Outcome),
			ErrorKind:   r.ErrorKind,
			Duration:    r.Duration.String(),
			At:          r.StartedAt,
		}
	}

	return &TelemetryOutput{Body: TelemetryResponse{Records: records}}, nil
}

// === Mappers ===

func mapRecoverResponse(r *recovery.Result) RecoverResponse {
	details := make([]RecoverDetail, len(r.Details))
	for i, d := range r.Details {
		details[i] = RecoverDetail{
			Path:     d.Path,
			Outcome:  string(d.Outcome),
			EntityID: d.EntityID,
			Reason:   d.Reason,
		}
	}

	return RecoverResponse{
		Scanned:             r.Scanned,
		Matched:             r.Matched,
		Relinked:            r.Relinked,
		AlreadyLinked:       r.AlreadyLinked,
		Unparsable:          r.Unparsable,
		MissingCatalogEntry: r.MissingCatalogEntry,
		Failed:              r.Failed,
		Skipped:             r.Skipped,
		DryRun:              r.DryRun,
		Details:             details,
	}
}
