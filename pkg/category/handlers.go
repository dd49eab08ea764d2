package category

import (
	"net/http"

	. "postboard/pkg/common"
	"postboard/pkg/outcome"
)

type CategoryHandler struct {
	Source Source
}

func NewCategoryHandler(s Source) *CategoryHandler {
	return &CategoryHandler{
		Source: s,
	}
}

func (ch *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	names, err := ch.Source.All(r.Context())
	if err != nil {
		WriteOutcome(r.Context(), w, outcome.FromError(r.Context(), outcome.Internal(err)))
		return
	}
	WriteOutcome(r.Context(), w, outcome.OK("Categories retrieved successfully!", names))
}
