package api

import (
	"net/http"

	"github.com/querypilot/querypilot/internal/schema"
)

type schemaResponse struct {
	Tables []schema.TableSchema `json:"tables"`
	Text   string               `json:"text"`
}

// handleSchema returns a fresh snapshot of the data source schema, both as
// structured tables and as the rendered text fed to generation prompts.
func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Introspector == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema introspection is not configured", false, nil)
		return
	}

	description, err := schema.Describe(r.Context(), deps.Introspector)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_ERROR", "failed to read data source schema", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, schemaResponse{Tables: description, Text: description.Render()})
}
