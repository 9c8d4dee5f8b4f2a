package utils

import (
	"encoding/json"
	"net/http"

	"github.com/riteshkumar/ledger-replay/internal/codec"
	"github.com/riteshkumar/ledger-replay/internal/models"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeCSV  = "text/csv"
)

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteCSV writes account balances in the same layout as the command line export.
func WriteCSV(w http.ResponseWriter, status int, balances []models.AccountBalance) error {
	w.Header().Set("Content-Type", ContentTypeCSV)
	w.WriteHeader(status)
	return codec.NewWriter(w).WriteAll(balances)
}

func WriteError(w http.ResponseWriter, status int, errorMsg, details string) {
	response := models.ErrorResponse{
		Error:   errorMsg,
		Message: details,
	}
	WriteJSON(w, status, response)
}
