package httpapi

import (
	"net/http"

	"github.com/invopop/jsonschema"

	caresetu "github.com/saketkumarjha/caresetuAgent-3.0-sub000"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/knowledge"
)

// schema describes the request and response payloads so front-end callers
// can validate without importing this module.
func (h *handler) schema(w http.ResponseWriter, r *http.Request) {
	reflector := &jsonschema.Reflector{DoNotReference: false}

	writeJSON(w, http.StatusOK, map[string]any{
		"answerRequest":  reflector.Reflect(&AnswerRequest{}),
		"answerResult":   reflector.Reflect(&caresetu.AnswerResult{}),
		"knowledgeEntry": reflector.Reflect(&knowledge.KnowledgeEntry{}),
	})
}
