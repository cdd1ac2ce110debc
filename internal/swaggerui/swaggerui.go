package swaggerui

import (
	"net/http"

	swgui "github.com/swaggest/swgui/v5"
)

// Handler returns a Swagger UI for the OpenAPI document at specPath, served under
// basePath. Assets are embedded, no CDN.
func Handler(title, specPath, basePath string) http.Handler {
	return swgui.New(title, specPath, basePath)
}
