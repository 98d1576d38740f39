package apiserver

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPISpec []byte

// OpenAPIHandler serves the API description as YAML, JSON and a docs page
type OpenAPIHandler struct {
	spec     []byte
	specJSON []byte
}

// NewOpenAPIHandler parses the embedded document once so the JSON form
// can be served without re-encoding per request.
func NewOpenAPIHandler() (*OpenAPIHandler, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(openAPISpec, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI spec: %w", err)
	}

	specJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode OpenAPI spec: %w", err)
	}

	return &OpenAPIHandler{spec: openAPISpec, specJSON: specJSON}, nil
}

// ServeOpenAPISpec serves the embedded YAML document.
func (h *OpenAPIHandler) ServeOpenAPISpec(c *gin.Context) {
	c.Data(http.StatusOK, "application/x-yaml", h.spec)
}

// ServeOpenAPIJSON serves the document converted to JSON.
func (h *OpenAPIHandler) ServeOpenAPIJSON(c *gin.Context) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", h.specJSON)
}

// docsPage loads Swagger UI from a CDN and points it at the JSON document,
// which sits next to /docs.
const docsPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Recipes API</title>
<link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css">
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
<script>
window.onload = () => SwaggerUIBundle({
  url: "` + BasePath + `/openapi.json",
  dom_id: "#swagger-ui",
  supportedSubmitMethods: ["get", "post"],
  validatorUrl: null,
});
</script>
</body>
</html>
`

// ServeSwaggerUI serves an interactive view of the API document.
func (h *OpenAPIHandler) ServeSwaggerUI(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(docsPage))
}
