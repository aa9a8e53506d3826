// Package openapi provides reflective OpenAPI 3.0 specification generation
// for the stowage HTTP API.
package openapi

import (
	"encoding/json"
	"net/http"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

// =============================================================================
// Generator
// =============================================================================

// Generator produces OpenAPI 3.0 specifications by reflecting on the request
// and response models of registered routes.
type Generator struct {
	title       string
	version     string
	description string
	servers     []string
	routes      []Route
	mu          sync.RWMutex
	cachedSpec  *openapi3.T
}

// Route describes one HTTP operation.
type Route struct {
	Method      string // e.g. http.MethodPost
	Path        string // chi pattern, e.g. "/api/v1/plans/{id}"
	OperationID string
	Summary     string
	Tag         string

	Request      any      // Body model, nil when the operation has no body
	RequestTypes []string // Body content types, defaults to application/json

	Response any // Success body model, nil for an empty body
	Status   int // Success status, defaults to 200
	Errors   []int

	Query []Param
}

// Param is a query parameter.
type Param struct {
	Name        string
	Type        string // "string" or "integer"
	Description string
}

// Option configures the generator.
type Option func(*Generator)

// WithTitle sets the API title.
func WithTitle(title string) Option {
	return func(g *Generator) {
		g.title = title
	}
}

// WithVersion sets the API version.
func WithVersion(version string) Option {
	return func(g *Generator) {
		g.version = version
	}
}

// WithDescription sets the API description.
func WithDescription(description string) Option {
	return func(g *Generator) {
		g.description = description
	}
}

// WithServer adds a server URL.
func WithServer(url string) Option {
	return func(g *Generator) {
		g.servers = append(g.servers, url)
	}
}

// NewGenerator creates a new OpenAPI generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		title:       "Stowage API",
		version:     "1.0.0",
		description: "Container stowage plan validation API",
		routes:      make([]Route, 0),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// RegisterRoute adds an operation to the generator.
func (g *Generator) RegisterRoute(route Route) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.routes = append(g.routes, route)
	g.cachedSpec = nil
}

// Generate produces the complete OpenAPI 3.0 specification.
func (g *Generator) Generate() *openapi3.T {
	g.mu.RLock()
	if g.cachedSpec != nil {
		spec := g.cachedSpec
		g.mu.RUnlock()
		return spec
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	// Double-check after acquiring write lock
	if g.cachedSpec != nil {
		return g.cachedSpec
	}

	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       g.title,
			Version:     g.version,
			Description: g.description,
		},
		Servers: make(openapi3.Servers, 0, len(g.servers)),
		Paths:   openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: make(openapi3.Schemas),
		},
	}

	for _, url := range g.servers {
		spec.Servers = append(spec.Servers, &openapi3.Server{URL: url})
	}

	g.addCommonSchemas(spec)

	for _, route := range g.routes {
		g.addRouteToSpec(spec, route)
	}

	g.cachedSpec = spec
	return spec
}

// Handler returns an HTTP handler that serves the OpenAPI specification.
func (g *Generator) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec := g.Generate()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		if err := json.NewEncoder(w).Encode(spec); err != nil {
			http.Error(w, "Failed to encode OpenAPI spec", http.StatusInternalServerError)
		}
	}
}

// =============================================================================
// Schema Generation
// =============================================================================

// addCommonSchemas adds the error envelope shared by every operation.
func (g *Generator) addCommonSchemas(spec *openapi3.T) {
	spec.Components.Schemas["Error"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{"string"}},
				},
				"code": &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{"string"}},
				},
			},
			Required: []string{"error", "code"},
		},
	}
}

// schemaRef returns a reference to the named component for model, adding the
// component on first use.
func (g *Generator) schemaRef(spec *openapi3.T, model any) *openapi3.SchemaRef {
	t := reflect.TypeOf(model)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return g.goTypeToSchema(spec, t)
}

// structSchema registers t as a component and returns a reference to it.
func (g *Generator) structSchema(spec *openapi3.T, t reflect.Type) *openapi3.SchemaRef {
	name := t.Name()
	ref := "#/components/schemas/" + name
	if existing, ok := spec.Components.Schemas[name]; ok {
		return &openapi3.SchemaRef{Ref: ref, Value: existing.Value}
	}

	schema := &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: make(openapi3.Schemas),
	}
	// Registered before the fields so self references terminate.
	spec.Components.Schemas[name] = &openapi3.SchemaRef{Value: schema}
	g.addFields(spec, schema, t)
	sort.Strings(schema.Required)

	return &openapi3.SchemaRef{Ref: ref, Value: schema}
}

// addFields adds the exported fields of t to schema. Embedded structs are
// flattened the way encoding/json flattens them.
func (g *Generator) addFields(spec *openapi3.T, schema *openapi3.Schema, t reflect.Type) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}
		parts := strings.Split(jsonTag, ",")

		if field.Anonymous && parts[0] == "" {
			ft := field.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				g.addFields(spec, schema, ft)
				continue
			}
		}
		if !field.IsExported() {
			continue
		}

		name := field.Name
		if parts[0] != "" {
			name = parts[0]
		}
		omitempty := false
		for _, p := range parts[1:] {
			if p == "omitempty" {
				omitempty = true
			}
		}

		propSchema := g.goTypeToSchema(spec, field.Type)
		if propSchema == nil {
			continue
		}
		schema.Properties[name] = propSchema
		if !omitempty && field.Type.Kind() != reflect.Ptr {
			schema.Required = append(schema.Required, name)
		}
	}
}

// goTypeToSchema converts a Go type to an OpenAPI schema.
func (g *Generator) goTypeToSchema(spec *openapi3.T, t reflect.Type) *openapi3.SchemaRef {
	switch t.Kind() {
	case reflect.String:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}}

	case reflect.Int64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}}

	case reflect.Float32:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}, Format: "float"}}

	case reflect.Float64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}, Format: "double"}}

	case reflect.Bool:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}}

	case reflect.Slice, reflect.Array:
		elemSchema := g.goTypeToSchema(spec, t.Elem())
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:  &openapi3.Types{"array"},
				Items: elemSchema,
			},
		}

	case reflect.Map:
		valueSchema := g.goTypeToSchema(spec, t.Elem())
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:                 &openapi3.Types{"object"},
				AdditionalProperties: openapi3.AdditionalProperties{Schema: valueSchema},
			},
		}

	case reflect.Ptr:
		schema := g.goTypeToSchema(spec, t.Elem())
		// Shared components stay non-nullable.
		if schema != nil && schema.Ref == "" && schema.Value != nil {
			schema.Value.Nullable = true
		}
		return schema

	case reflect.Struct:
		if t == reflect.TypeOf(time.Time{}) {
			return &openapi3.SchemaRef{
				Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"},
			}
		}
		return g.structSchema(spec, t)

	default:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
	}
}

// =============================================================================
// Operation Generation
// =============================================================================

// addRouteToSpec adds one operation and its path parameters to the document.
func (g *Generator) addRouteToSpec(spec *openapi3.T, route Route) {
	item := spec.Paths.Value(route.Path)
	if item == nil {
		item = &openapi3.PathItem{Parameters: pathParameters(route.Path)}
		spec.Paths.Set(route.Path, item)
	}

	op := &openapi3.Operation{
		OperationID: route.OperationID,
		Summary:     route.Summary,
		Responses:   &openapi3.Responses{},
	}
	if route.Tag != "" {
		op.Tags = []string{route.Tag}
	}

	for _, q := range route.Query {
		typ := q.Type
		if typ == "" {
			typ = "string"
		}
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
			Value: &openapi3.Parameter{
				Name:        q.Name,
				In:          "query",
				Description: q.Description,
				Schema: &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{typ}},
				},
			},
		})
	}

	if route.Request != nil {
		bodySchema := g.schemaRef(spec, route.Request)
		types := route.RequestTypes
		if len(types) == 0 {
			types = []string{"application/json"}
		}
		content := make(openapi3.Content, len(types))
		for _, ct := range types {
			content[ct] = &openapi3.MediaType{Schema: bodySchema}
		}
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{Required: true, Content: content},
		}
	}

	status := route.Status
	if status == 0 {
		status = http.StatusOK
	}
	success := &openapi3.Response{Description: describe(status)}
	if route.Response != nil {
		success.Content = openapi3.Content{
			"application/json": &openapi3.MediaType{Schema: g.schemaRef(spec, route.Response)},
		}
	}
	op.Responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{Value: success})

	errSchema := &openapi3.SchemaRef{
		Ref:   "#/components/schemas/Error",
		Value: spec.Components.Schemas["Error"].Value,
	}
	for _, code := range route.Errors {
		op.Responses.Set(strconv.Itoa(code), &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: describe(code),
				Content: openapi3.Content{
					"application/json": &openapi3.MediaType{Schema: errSchema},
				},
			},
		})
	}

	item.SetOperation(strings.ToUpper(route.Method), op)
}

// =============================================================================
// Helpers
// =============================================================================

// pathParameters declares every {name} segment of a chi pattern.
func pathParameters(path string) openapi3.Parameters {
	var params openapi3.Parameters
	for _, seg := range strings.Split(path, "/") {
		if len(seg) < 3 || seg[0] != '{' || seg[len(seg)-1] != '}' {
			continue
		}
		params = append(params, &openapi3.ParameterRef{
			Value: &openapi3.Parameter{
				Name:     seg[1 : len(seg)-1],
				In:       "path",
				Required: true,
				Schema: &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{"string"}},
				},
			},
		})
	}
	return params
}

func describe(status int) *string {
	text := http.StatusText(status)
	if text == "" {
		text = strconv.Itoa(status)
	}
	return &text
}
