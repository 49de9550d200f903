package response

import (
	"encoding/json"
	"net/http"
)

func JSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Resp{Message: "Success", Data: data})
}

func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, Resp{Message: "Success", Data: data})
}

// Error writes err as a Resp. Anything other than an HTTPError becomes a 500.
func Error(w http.ResponseWriter, err error) {
	statusCode, resp := parseHttpError(err)
	JSON(w, statusCode, resp)
}

// ValidationError writes a 400 carrying per-field messages.
func ValidationError(w http.ResponseWriter, fields map[string]string) {
	JSON(w, http.StatusBadRequest, Resp{
		ErrorCode: http.StatusBadRequest * 100,
		Message:   "Validation failed",
		Errors:    fields,
	})
}
