package fulfillment

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/invopop/jsonschema"

	"github.com/odyssey-erp/odyssey-retail/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-retail/internal/validation"
)

var (
	schemaOnce  sync.Once
	proposalDoc *jsonschema.Schema
)

// ProposalSchema returns the JSON schema accepted by the create endpoints.
func ProposalSchema() *jsonschema.Schema {
	schemaOnce.Do(func() {
		reflector := jsonschema.Reflector{
			AllowAdditionalProperties: false,
			DoNotReference:            true,
		}
		proposalDoc = reflector.Reflect(&validation.Proposal{})
	})
	return proposalDoc
}

func (h *Handler) schema(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "kind") {
	case "invoice", "purchase":
		httpx.JSON(w, http.StatusOK, ProposalSchema())
	default:
		httpx.RespondError(w, httpx.ErrNotFound)
	}
}
