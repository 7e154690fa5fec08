// Package apidocs describes registered blueprints with OpenAPI document
// and serves it together with Swagger UI.
package apidocs

import (
	"fmt"
	"html/template"
	"net/http"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
	"github.com/gorilla/mux"

	"github.com/projpool/projpool/internal/handlers"
	"github.com/projpool/projpool/internal/handlers/middleware"
)

const (
	DefaultTitle          = "ProjPool -- Project Database"
	DefaultVersion        = "v1"
	DefaultOpenAPIVersion = "3.0.3"
	DefaultSwaggerUIPath  = "/swagger-ui"
	DefaultSwaggerUICDN   = "https://cdn.jsdelivr.net/npm/swagger-ui-dist/"

	specFile       = "openapi.json"
	securityScheme = "bearerAuth"
)

type Config struct {
	Title          string
	Version        string
	OpenAPIVersion string

	// Path the document is served under
	URLPrefix string

	SwaggerUIPath string
	SwaggerUICDN  string
}

func (c Config) withDefaults() Config {
	set := func(field *string, def string) {
		if *field == "" {
			*field = def
		}
	}
	set(&c.Title, DefaultTitle)
	set(&c.Version, DefaultVersion)
	set(&c.OpenAPIVersion, DefaultOpenAPIVersion)
	set(&c.URLPrefix, "/")
	set(&c.SwaggerUIPath, DefaultSwaggerUIPath)
	set(&c.SwaggerUICDN, DefaultSwaggerUICDN)

	if !strings.HasSuffix(c.URLPrefix, "/") {
		c.URLPrefix += "/"
	}
	if !strings.HasSuffix(c.SwaggerUICDN, "/") {
		c.SwaggerUICDN += "/"
	}
	return c
}

// Path the OpenAPI document is served at
func (c Config) SpecPath() string {
	return c.withDefaults().URLPrefix + specFile
}

// Body of the rejected requests
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Matches mux path variables, with optional pattern: {id} or {id:[0-9]+}
var pathVar = regexp.MustCompile(`\{([^}:]+)(?::[^}]*)?\}`)

// Build describes blueprints in OpenAPI document. Blueprint becomes a tag.
func Build(cfg Config, blueprints []handlers.Blueprint) (*openapi3.T, error) {
	cfg = cfg.withDefaults()

	components := openapi3.NewComponents()
	components.Schemas = make(openapi3.Schemas)
	components.SecuritySchemes = openapi3.SecuritySchemes{
		securityScheme: &openapi3.SecuritySchemeRef{Value: openapi3.NewJWTSecurityScheme()},
	}

	doc := &openapi3.T{
		OpenAPI:    cfg.OpenAPIVersion,
		Info:       &openapi3.Info{Title: cfg.Title, Version: cfg.Version},
		Paths:      openapi3.NewPaths(),
		Components: &components,
	}

	errSchema, err := openapi3gen.NewSchemaRefForValue(errorResponse{}, components.Schemas)
	if err != nil {
		return nil, fmt.Errorf("error schema: %w", err)
	}

	for _, bp := range blueprints {
		doc.Tags = append(doc.Tags, &openapi3.Tag{Name: bp.Name, Description: bp.Description})

		for _, route := range bp.Routes {
			op, err := operation(bp.Name, route, components.Schemas, errSchema)
			if err != nil {
				return nil, fmt.Errorf("blueprint %s, route %s %s: %w", bp.Name, route.Method, route.Path, err)
			}
			doc.AddOperation(pathVar.ReplaceAllString(route.Path, "{$1}"), route.Method, op)
		}
	}

	return doc, nil
}

func operation(tag string, route handlers.Route, schemas openapi3.Schemas, errSchema *openapi3.SchemaRef) (*openapi3.Operation, error) {
	op := openapi3.NewOperation()
	op.Tags = []string{tag}
	op.Summary = route.Summary
	op.OperationID = operationID(tag, route)
	op.Responses = openapi3.NewResponsesWithCapacity(3)

	for _, match := range pathVar.FindAllStringSubmatch(route.Path, -1) {
		op.AddParameter(openapi3.NewPathParameter(match[1]).WithSchema(openapi3.NewStringSchema()))
	}

	if route.Request != nil {
		schema, err := openapi3gen.NewSchemaRefForValue(route.Request, schemas)
		if err != nil {
			return nil, err
		}
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().WithRequired(!route.OptionalBody).WithJSONSchemaRef(schema),
		}
		op.AddResponse(http.StatusBadRequest, openapi3.NewResponse().
			WithDescription("Request body is not valid").
			WithJSONSchemaRef(errSchema))
	}

	status := route.Status
	if status == 0 {
		status = http.StatusOK
	}
	success := openapi3.NewResponse().WithDescription(http.StatusText(status))
	if route.Response != nil {
		schema, err := openapi3gen.NewSchemaRefForValue(route.Response, schemas)
		if err != nil {
			return nil, err
		}
		success = success.WithJSONSchemaRef(schema)
	}
	op.AddResponse(status, success)

	if route.Auth != middleware.Public {
		requirements := openapi3.NewSecurityRequirements().With(openapi3.NewSecurityRequirement().Authenticate(securityScheme))
		op.Security = requirements
		op.AddResponse(http.StatusUnauthorized, openapi3.NewResponse().
			WithDescription(fmt.Sprintf("Token is missing, invalid, expired, revoked or not %s", route.Auth)).
			WithJSONSchemaRef(errSchema))
	}

	return op, nil
}

// e.g. project_get_project_id for GET /project/{id}
func operationID(tag string, route handlers.Route) string {
	path := pathVar.ReplaceAllString(route.Path, "$1")
	path = strings.Trim(strings.ReplaceAll(path, "/", "_"), "_")
	return strings.ToLower(tag + "_" + route.Method + "_" + path)
}

var swaggerUI = template.Must(template.New("swagger-ui").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{ .Title }}</title>
  <link rel="stylesheet" href="{{ .CDN }}swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="{{ .CDN }}swagger-ui-bundle.js"></script>
  <script>
    window.onload = function () {
      window.ui = SwaggerUIBundle({url: "{{ .SpecURL }}", dom_id: "#swagger-ui", deepLinking: true});
    };
  </script>
</body>
</html>
`))

// Register mounts the document and Swagger UI on router
func Register(router *mux.Router, cfg Config, doc *openapi3.T) error {
	cfg = cfg.withDefaults()

	spec, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("error while encoding OpenAPI document. Err: %w", err)
	}

	page := &strings.Builder{}
	err = swaggerUI.Execute(page, struct {
		Title   string
		CDN     string
		SpecURL string
	}{Title: cfg.Title, CDN: cfg.SwaggerUICDN, SpecURL: cfg.SpecPath()})
	if err != nil {
		return fmt.Errorf("error while rendering Swagger UI. Err: %w", err)
	}

	router.Handle(cfg.SpecPath(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write(spec)
	})).Methods(http.MethodGet)

	router.Handle(cfg.SwaggerUIPath, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page.String()))
	})).Methods(http.MethodGet)

	router.Handle(cfg.SwaggerUIPath+"/", http.RedirectHandler(cfg.SwaggerUIPath, http.StatusMovedPermanently))

	return nil
}
