package openapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testTotals struct {
	Moves int     `json:"moves"`
	Cost  float64 `json:"cost"`
}

type testItem struct {
	ID      string            `json:"id"`
	Note    string            `json:"note,omitempty"`
	Tags    []string          `json:"tags"`
	Labels  map[string]string `json:"labels"`
	Parent  *testTotals       `json:"parent,omitempty"`
	Created time.Time         `json:"created_at"`
	secret  string
	Skipped string `json:"-"`
}

type testEnvelope struct {
	testTotals
	Items []testItem `json:"items"`
}

func newTestGenerator() *Generator {
	g := NewGenerator(WithTitle("Test API"), WithVersion("0.1.0"), WithServer("http://localhost:8080"))
	g.RegisterRoute(Route{
		Method:      http.MethodGet,
		Path:        "/api/v1/things/{id}",
		OperationID: "getThing",
		Summary:     "Get a thing",
		Tag:         "Things",
		Response:    testItem{},
		Errors:      []int{http.StatusNotFound},
		Query:       []Param{{Name: "format", Description: "json or yaml"}},
	})
	g.RegisterRoute(Route{
		Method:       http.MethodPost,
		Path:         "/api/v1/things",
		OperationID:  "createThing",
		Tag:          "Things",
		Request:      &testItem{},
		RequestTypes: []string{"application/json", "application/yaml"},
		Response:     testEnvelope{},
		Status:       http.StatusCreated,
		Errors:       []int{http.StatusBadRequest, http.StatusUnprocessableEntity},
	})
	g.RegisterRoute(Route{
		Method:      http.MethodDelete,
		Path:        "/api/v1/things/{id}",
		OperationID: "deleteThing",
		Status:      http.StatusNoContent,
	})
	return g
}

func TestGenerate_Info(t *testing.T) {
	spec := newTestGenerator().Generate()

	assert.Equal(t, "3.0.3", spec.OpenAPI)
	assert.Equal(t, "Test API", spec.Info.Title)
	assert.Equal(t, "0.1.0", spec.Info.Version)
	require.Len(t, spec.Servers, 1)
	assert.Equal(t, "http://localhost:8080", spec.Servers[0].URL)
}

func TestGenerate_Paths(t *testing.T) {
	spec := newTestGenerator().Generate()

	item := spec.Paths.Value("/api/v1/things/{id}")
	require.NotNil(t, item)
	require.NotNil(t, item.Get)
	require.NotNil(t, item.Delete)
	require.Len(t, item.Parameters, 1)
	assert.Equal(t, "id", item.Parameters[0].Value.Name)
	assert.Equal(t, "path", item.Parameters[0].Value.In)

	assert.Equal(t, "getThing", item.Get.OperationID)
	assert.NotNil(t, item.Get.Responses.Value("200"))
	assert.NotNil(t, item.Get.Responses.Value("404"))
	require.Len(t, item.Get.Parameters, 1)
	assert.Equal(t, "query", item.Get.Parameters[0].Value.In)

	assert.NotNil(t, item.Delete.Responses.Value("204"))

	create := spec.Paths.Value("/api/v1/things").Post
	require.NotNil(t, create)
	require.NotNil(t, create.RequestBody)
	assert.Contains(t, create.RequestBody.Value.Content, "application/yaml")
	assert.NotNil(t, create.Responses.Value("201"))
	assert.NotNil(t, create.Responses.Value("422"))
}

func TestGenerate_Schemas(t *testing.T) {
	spec := newTestGenerator().Generate()

	item := spec.Components.Schemas["testItem"]
	require.NotNil(t, item)
	props := item.Value.Properties
	assert.Contains(t, props, "id")
	assert.Contains(t, props, "created_at")
	assert.Equal(t, "date-time", props["created_at"].Value.Format)
	assert.NotContains(t, props, "secret")
	assert.NotContains(t, props, "Skipped")
	assert.Equal(t, "#/components/schemas/testTotals", props["parent"].Ref)
	assert.Equal(t, []string{"created_at", "id", "labels", "tags"}, item.Value.Required)

	envelope := spec.Components.Schemas["testEnvelope"]
	require.NotNil(t, envelope)
	assert.Contains(t, envelope.Value.Properties, "moves")
	assert.Contains(t, envelope.Value.Properties, "cost")
	assert.Contains(t, envelope.Value.Properties, "items")

	assert.Contains(t, spec.Components.Schemas, "Error")
}

func TestGenerate_Cached(t *testing.T) {
	g := newTestGenerator()
	first := g.Generate()
	assert.Same(t, first, g.Generate())

	g.RegisterRoute(Route{Method: http.MethodGet, Path: "/health", OperationID: "health"})
	second := g.Generate()
	assert.NotSame(t, first, second)
	assert.NotNil(t, second.Paths.Value("/health"))
}

func TestGenerate_ValidDocument(t *testing.T) {
	data, err := json.Marshal(newTestGenerator().Generate())
	require.NoError(t, err)

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
}

func TestHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestGenerator().Handler()(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "3.0.3", body["openapi"])
	assert.Contains(t, body["paths"], "/api/v1/things")
}
