package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"thittam1hub-backend/pkg/apperr"
	"thittam1hub-backend/pkg/database"
	"thittam1hub-backend/pkg/utils"
)

// writeEngineError maps engine errors to the response envelope. Kinds carry a
// stable code and an HTTP status; anything else is a 500.
func writeEngineError(w http.ResponseWriter, err error) {
	if kind, ok := apperr.KindOf(err); ok {
		if kind == apperr.KindCycleDetected {
			// a cycle means corrupted parent links, not a bad request
			fmt.Printf("[integrity] %v\n", err)
		}
		utils.WriteErrorResponseWithCode(w, apperr.HTTPStatus(kind), string(kind), err.Error(), "")
		return
	}
	if errors.Is(err, database.ErrNotFound) {
		utils.WriteNotFoundResponse(w, err.Error())
		return
	}
	utils.WriteInternalServerErrorResponse(w, err.Error())
}
