package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// MessageResponse acknowledges writes that return no entity.
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageResponse{Message: msg})
}

// writeDocument sends a rendered document. Attachments get a download name.
func writeDocument(w http.ResponseWriter, contentType, filename string, attachment bool, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	if filename != "" {
		disposition := "inline"
		if attachment {
			disposition = "attachment"
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, filename))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
