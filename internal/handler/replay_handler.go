package handler

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/riteshkumar/ledger-replay/internal/errors"
	"github.com/riteshkumar/ledger-replay/internal/models"
	"github.com/riteshkumar/ledger-replay/internal/service"
	u "github.com/riteshkumar/ledger-replay/internal/utils"
)

// maxUploadBytes caps the CSV body accepted by POST /replays.
const maxUploadBytes = 64 << 20

type ReplayHandler struct {
	replayService service.ReplayService
	logger        *slog.Logger
}

func NewReplayHandler(replayService service.ReplayService, logger *slog.Logger) *ReplayHandler {
	return &ReplayHandler{
		replayService: replayService,
		logger:        logger,
	}
}

func (h *ReplayHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/replays", h.CreateReplay).Methods(http.MethodPost)
	router.HandleFunc("/replays/{id}", h.GetReplay).Methods(http.MethodGet)
}

// CreateReplay replays the CSV request body. The balances are returned as CSV
// when the client accepts text/csv, and as JSON otherwise.
func (h *ReplayHandler) CreateReplay(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
	defer body.Close()

	result, err := h.replayService.Replay(r.Context(), body)
	if err != nil {
		h.handleServiceError(w, err, "create replay")
		return
	}

	if wantsCSV(r) {
		if err := u.WriteCSV(w, http.StatusCreated, result.Accounts); err != nil {
			h.logger.Error("failed to write csv response",
				"replay_id", result.ID,
				"error", err.Error(),
			)
		}
		return
	}

	u.WriteJSON(w, http.StatusCreated, toResponse(result))
}

func (h *ReplayHandler) GetReplay(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	replayID := vars["id"]

	if replayID == "" {
		u.WriteError(w, http.StatusBadRequest, "id is required", "")
		return
	}

	result, err := h.replayService.GetReplay(r.Context(), replayID)
	if err != nil {
		h.handleServiceError(w, err, "get replay")
		return
	}

	if wantsCSV(r) {
		if err := u.WriteCSV(w, http.StatusOK, result.Accounts); err != nil {
			h.logger.Error("failed to write csv response",
				"replay_id", result.ID,
				"error", err.Error(),
			)
		}
		return
	}

	u.WriteJSON(w, http.StatusOK, toResponse(result))
}

func (h *ReplayHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.IsMalformedInput(err):
		u.WriteError(w, http.StatusBadRequest, "malformed input", err.Error())
	case stderrors.As(err, &maxBytesErr):
		u.WriteError(w, http.StatusRequestEntityTooLarge, "request body too large", "")
	case err == errors.ErrInvalidReplayID:
		u.WriteError(w, http.StatusBadRequest, "invalid replay ID", "")
	case err == errors.ErrReplayNotFound:
		u.WriteError(w, http.StatusNotFound, "replay not found", "")
	case err == errors.ErrPersistenceDisabled:
		u.WriteError(w, http.StatusServiceUnavailable, "replay persistence is disabled", "")
	default:
		h.logger.Error("internal server error during "+operation, "error", err.Error())
		u.WriteError(w, http.StatusInternalServerError, "internal server error", "")
	}
}

func wantsCSV(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), u.ContentTypeCSV)
}

func toResponse(result *models.ReplayResult) models.ReplayResponse {
	return models.ReplayResponse{
		ID:        result.ID,
		Accounts:  result.Accounts,
		Activity:  result.Activity,
		Rejected:  result.Rejected,
		Events:    result.Events,
		CreatedAt: result.CreatedAt,
	}
}
