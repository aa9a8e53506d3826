package api

import (
	"net/http"

	"github.com/artpar/stowage/internal/core/planfile"
	"github.com/artpar/stowage/internal/shell/api/openapi"
)

// describeRoutes registers every API operation with the OpenAPI generator.
// Keep in step with Routes.
func describeRoutes(g *openapi.Generator) {
	routes := []openapi.Route{
		{
			Method: http.MethodGet, Path: "/health", OperationID: "health",
			Summary: "Liveness check", Tag: "Health", Response: HealthResponse{},
		},
		{
			Method: http.MethodGet, Path: "/ready", OperationID: "ready",
			Summary: "Readiness check", Tag: "Health", Response: ReadyResponse{},
			Errors: []int{http.StatusServiceUnavailable},
		},
		{
			Method: http.MethodPost, Path: "/api/v1/plans", OperationID: "createPlan",
			Summary: "Load a plan document", Tag: "Plans",
			Request:      planfile.Record{},
			RequestTypes: []string{"application/json", "application/yaml"},
			Response:     PlanResponse{}, Status: http.StatusCreated,
			Errors: []int{http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity},
			Query:  []openapi.Param{{Name: "format", Description: "json or yaml, overrides Content-Type"}},
		},
		{
			Method: http.MethodGet, Path: "/api/v1/plans", OperationID: "listPlans",
			Summary: "List loaded plans", Tag: "Plans", Response: PlanListResponse{},
		},
		{
			Method: http.MethodGet, Path: "/api/v1/plans/{id}", OperationID: "getPlan",
			Summary: "Get a plan summary", Tag: "Plans", Response: PlanResponse{},
			Errors: []int{http.StatusNotFound},
		},
		{
			Method: http.MethodDelete, Path: "/api/v1/plans/{id}", OperationID: "deletePlan",
			Summary: "Unload a plan and drop its journal", Tag: "Plans",
			Status: http.StatusNoContent, Errors: []int{http.StatusNotFound},
		},
		{
			Method: http.MethodGet, Path: "/api/v1/plans/{id}/bays", OperationID: "getBays",
			Summary: "Render projection of every bay", Tag: "Plans", Response: BaysResponse{},
			Errors: []int{http.StatusNotFound},
			Query:  []openapi.Param{{Name: "bay", Description: "restrict to one bay"}},
		},
		{
			Method: http.MethodGet, Path: "/api/v1/plans/{id}/metrics", OperationID: "getPlanMetrics",
			Summary: "Move, re-stow and cost counters", Tag: "Plans", Response: MetricsResponse{},
			Errors: []int{http.StatusNotFound},
		},
		{
			Method: http.MethodGet, Path: "/api/v1/plans/{id}/export", OperationID: "exportPlan",
			Summary: "Current plan as a plan document", Tag: "Plans", Response: planfile.Record{},
			Errors: []int{http.StatusBadRequest, http.StatusNotFound},
			Query:  []openapi.Param{{Name: "format", Description: "json (default) or yaml"}},
		},
		{
			Method: http.MethodPost, Path: "/api/v1/plans/{id}/validate", OperationID: "validateMove",
			Summary: "Decide a move without applying it", Tag: "Moves",
			Request: MoveRequest{}, Response: DecisionResponse{},
			Errors: []int{http.StatusBadRequest, http.StatusNotFound},
		},
		{
			Method: http.MethodPost, Path: "/api/v1/plans/{id}/moves", OperationID: "applyMove",
			Summary: "Validate and apply a move", Tag: "Moves",
			Request: MoveRequest{}, Response: MoveResponse{},
			Errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
		},
		{
			Method: http.MethodGet, Path: "/api/v1/plans/{id}/moves", OperationID: "listMoves",
			Summary: "Move journal", Tag: "Moves", Response: JournalResponse{},
			Errors: []int{http.StatusNotFound},
			Query: []openapi.Param{
				{Name: "limit", Type: "integer"},
				{Name: "offset", Type: "integer"},
			},
		},
	}
	for _, route := range routes {
		g.RegisterRoute(route)
	}
}
