package spec

import (
	"embed"
	"net/http"
)

var (
	//go:embed openapi.yaml
	openapiFS embed.FS
)

// OpenAPIHandler serves the ledger's API document. The document is embedded
// at build time and loaded once, not per request.
func OpenAPIHandler() http.HandlerFunc {
	content, err := openapiFS.ReadFile("openapi.yaml")
	return func(w http.ResponseWriter, r *http.Request) {
		if err != nil {
			http.Error(w, "openapi document not available", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(content)
	}
}
