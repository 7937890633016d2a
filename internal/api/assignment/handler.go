package assignment

import (
	"encoding/json"
	"net/http"

	"matstock/internal/domain"
	apperror "matstock/internal/errors"
	"matstock/internal/pkg/logger"
	"matstock/internal/pkg/middleware"
)

// AssignmentService define o contrato que o Handler espera do Serviço de
// Atribuição Direta.
type AssignmentService interface {
	Assign(ctx domain.Context, userID string, req domain.DirectAssignmentRequest) (domain.Assignment, error)
	ListByUser(ctx domain.Context, userID string) ([]domain.Assignment, error)
	ListAll(ctx domain.Context) ([]domain.Assignment, error)
}

// Handler agrupa os métodos de Handler de atribuições diretas.
type Handler struct {
	Service AssignmentService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc AssignmentService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// handleServiceResponse padroniza o tratamento de erros e respostas HTTP.
func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(successStatus)
		if data != nil {
			json.NewEncoder(w).Encode(data)
		}
		return
	}

	status, category, message := apperror.MapToHTTPStatus(err)
	if status >= 500 {
		h.Logger.Error("Erro interno no serviço de atribuições:", err)
	}

	errorResponse := domain.ErrorResponse{
		Code:     status,
		Category: category,
		Message:  message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse)
}

// AssignPayload identifica o destinatário da atribuição direta. Quando
// UserID está vazio o material é atribuído ao próprio operador.
type AssignPayload struct {
	UserID     string  `json:"user_id,omitempty"`
	MaterialID string  `json:"material_id"`
	Quantity   float64 `json:"quantity"`
	Notes      string  `json:"notes,omitempty"`
}

// AssignmentsHandler lida com POST (atribuir) e GET (listar) em /v1/assignments.
func (h *Handler) AssignmentsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodPost:
		var payload AssignPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), 0)
			return
		}

		userID := payload.UserID
		if userID == "" {
			claims, ok := middleware.GetUserClaimsFromContext(ctx)
			if !ok {
				h.handleServiceResponse(w, r, nil, apperror.NewUnauthorizedError("Sessão não identificada."), 0)
				return
			}
			userID = claims.UserID
		}

		created, err := h.Service.Assign(ctx, userID, domain.DirectAssignmentRequest{
			MaterialID: payload.MaterialID,
			Quantity:   payload.Quantity,
			Notes:      payload.Notes,
		})
		h.handleServiceResponse(w, r, created, err, http.StatusCreated)

	case http.MethodGet:
		assignments, err := h.Service.ListAll(ctx)
		h.handleServiceResponse(w, r, assignments, err, http.StatusOK)

	default:
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
	}
}

// MyAssignmentsHandler lida com GET /v1/assignments/my.
func (h *Handler) MyAssignmentsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	claims, ok := middleware.GetUserClaimsFromContext(ctx)
	if !ok {
		h.handleServiceResponse(w, r, nil, apperror.NewUnauthorizedError("Sessão não identificada."), 0)
		return
	}

	assignments, err := h.Service.ListByUser(ctx, claims.UserID)
	h.handleServiceResponse(w, r, assignments, err, http.StatusOK)
}
