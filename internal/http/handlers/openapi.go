package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
)

const redocHTML = `<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>JustBeCause Network API</title>
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <style>
      body {
        margin: 0;
        padding: 0;
      }
      redoc {
        display: block;
        height: 100vh;
      }
    </style>
  </head>
  <body>
    <redoc spec-url="/v1/openapi.json"></redoc>
    <script src="https://cdn.jsdelivr.net/npm/redoc@2.2.0/bundles/redoc.standalone.js"></script>
  </body>
</html>`

var pathParam = regexp.MustCompile(`\{([a-zA-Z_]+)(:[^}]*)?\}`)

type openAPIOperation struct {
	OperationID string           `json:"operationId"`
	Tags        []string         `json:"tags"`
	Parameters  []openAPIParam   `json:"parameters,omitempty"`
	Responses   map[string]any   `json:"responses"`
	Security    []map[string]any `json:"security,omitempty"`
}

type openAPIParam struct {
	Name     string         `json:"name"`
	In       string         `json:"in"`
	Required bool           `json:"required"`
	Schema   map[string]any `json:"schema"`
}

// BuildOpenAPI walks the mounted routes and renders a skeleton OpenAPI 3
// document. Handlers keep their request and response shapes in Go types, so
// the document lists operations and path parameters only.
func BuildOpenAPI(routes chi.Routes, public map[string]bool) ([]byte, error) {
	paths := map[string]map[string]openAPIOperation{}
	err := chi.Walk(routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if !strings.HasPrefix(route, "/v1/") || method == http.MethodOptions {
			return nil
		}
		var params []openAPIParam
		path := pathParam.ReplaceAllStringFunc(route, func(m string) string {
			name := pathParam.FindStringSubmatch(m)[1]
			params = append(params, openAPIParam{Name: name, In: "path", Required: true, Schema: map[string]any{"type": "string"}})
			return "{" + name + "}"
		})
		op := openAPIOperation{
			OperationID: strings.ToLower(method) + strings.NewReplacer("/", "_", "{", "", "}", "", "-", "_").Replace(path),
			Tags:        []string{tagFor(path)},
			Parameters:  params,
			Responses:   map[string]any{"default": map[string]any{"description": "JSON body or error envelope"}},
		}
		if !public[method+" "+route] {
			op.Security = []map[string]any{{"bearer": []string{}}}
		}
		if paths[path] == nil {
			paths[path] = map[string]openAPIOperation{}
		}
		paths[path][strings.ToLower(method)] = op
		return nil
	})
	if err != nil {
		return nil, err
	}
	doc := map[string]any{
		"openapi": "3.0.3",
		"info":    map[string]any{"title": "JustBeCause Network API", "version": "1.0.0"},
		"paths":   paths,
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"bearer": map[string]any{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
		},
	}
	return json.MarshalIndent(doc, "", "  ")
}

func tagFor(path string) string {
	parts := strings.Split(strings.TrimPrefix(path, "/v1/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return "misc"
	}
	return parts[0]
}

// SetOpenAPI installs the rendered document served by OpenAPIJSON.
func (a *App) SetOpenAPI(doc []byte) {
	a.openAPI = doc
}

func (a *App) OpenAPIJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(a.openAPI)
}

func (a *App) OpenAPIDocs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(redocHTML))
}
