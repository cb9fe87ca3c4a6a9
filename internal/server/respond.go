package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"trade-mentor/internal/pipeline"
)

const internalErrorPrefix = "서버 내부 오류: "

type detailBody struct {
	Detail any `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail any) {
	writeJSON(w, status, detailBody{Detail: detail})
}

// writeError renders a *pipeline.StatusError as is and anything else as a 500.
// Returns the status written.
func writeError(w http.ResponseWriter, err error) int {
	var se *pipeline.StatusError
	if errors.As(err, &se) {
		writeDetail(w, se.Status, se.Detail)
		return se.Status
	}
	writeDetail(w, http.StatusInternalServerError, internalErrorPrefix+err.Error())
	return http.StatusInternalServerError
}
