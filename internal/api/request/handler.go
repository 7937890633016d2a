package request

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"matstock/internal/domain"
	apperror "matstock/internal/errors"
	"matstock/internal/pkg/logger"
	"matstock/internal/pkg/middleware"
)

// RequestService define o contrato que o Handler espera do Motor de Aprovação.
type RequestService interface {
	Submit(ctx domain.Context, userID string, submission domain.RequestSubmission) (domain.AssignmentRequest, error)
	SubmitBatch(ctx domain.Context, userID string, items []domain.RequestSubmission) (domain.BatchSubmissionResult, error)
	GetRequestByID(ctx domain.Context, id string) (domain.AssignmentRequest, error)
	ListByStatus(ctx domain.Context, status domain.RequestStatus) ([]domain.AssignmentRequest, error)
	ListByUser(ctx domain.Context, userID string) ([]domain.AssignmentRequest, error)
	ListAll(ctx domain.Context) ([]domain.AssignmentRequest, error)
	Approve(ctx domain.Context, requestID string) (domain.AssignmentRequest, error)
	Reject(ctx domain.Context, requestID string, reason string) (domain.AssignmentRequest, error)
}

// Handler agrupa todos os métodos de Handler de requisições.
type Handler struct {
	Service RequestService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc RequestService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// handleServiceResponse processa erros de serviço e envia respostas padronizadas ao cliente.
func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(successStatus)
		if data != nil {
			if jsonErr := json.NewEncoder(w).Encode(data); jsonErr != nil {
				h.Logger.Error("Falha ao codificar JSON de resposta", jsonErr)
				http.Error(w, "Erro ao codificar resposta", http.StatusInternalServerError)
			}
		}
		return
	}

	status, category, message := apperror.MapToHTTPStatus(err)

	if status >= 500 {
		h.Logger.Error(fmt.Sprintf("Erro de Servidor: %s", category), err)
	} else {
		h.Logger.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category), map[string]interface{}{"path": r.URL.Path})
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

// RequestsHandler lida com POST (submissão) e GET (listagem) em /v1/requests.
// O ID do solicitante vem SEMPRE das claims da sessão no contexto.
func (h *Handler) RequestsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := middleware.GetUserClaimsFromContext(ctx)
	if !ok {
		h.handleServiceResponse(w, r, nil, apperror.NewUnauthorizedError("Sessão não identificada."), 0)
		return
	}

	switch r.Method {
	case http.MethodPost:
		var submission domain.RequestSubmission
		if err := json.NewDecoder(r.Body).Decode(&submission); err != nil {
			h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), 0)
			return
		}
		created, err := h.Service.Submit(ctx, claims.UserID, submission)
		h.handleServiceResponse(w, r, created, err, http.StatusCreated)

	case http.MethodGet:
		// Filtro opcional por status: /v1/requests?status=PENDING
		if statusParam := r.URL.Query().Get("status"); statusParam != "" {
			requests, err := h.Service.ListByStatus(ctx, domain.RequestStatus(statusParam))
			h.handleServiceResponse(w, r, requests, err, http.StatusOK)
			return
		}
		requests, err := h.Service.ListAll(ctx)
		h.handleServiceResponse(w, r, requests, err, http.StatusOK)

	default:
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
	}
}

// BatchHandler lida com POST /v1/requests/batch: o subsistema de tarefas de
// produção submete vários pares (material, quantidade) como requisições
// independentes — sem atomicidade entre itens.
func (h *Handler) BatchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	claims, ok := middleware.GetUserClaimsFromContext(ctx)
	if !ok {
		h.handleServiceResponse(w, r, nil, apperror.NewUnauthorizedError("Sessão não identificada."), 0)
		return
	}

	var items []domain.RequestSubmission
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), 0)
		return
	}

	result, err := h.Service.SubmitBatch(ctx, claims.UserID, items)
	h.handleServiceResponse(w, r, result, err, http.StatusCreated)
}

// MyRequestsHandler lida com GET /v1/requests/my: as requisições do usuário
// autenticado.
func (h *Handler) MyRequestsHandler(w http.ResponseWriter, r *http.Request) {
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

	requests, err := h.Service.ListByUser(ctx, claims.UserID)
	h.handleServiceResponse(w, r, requests, err, http.StatusOK)
}

// RequestByIDHandler lida com GET /v1/requests/{id}.
func (h *Handler) RequestByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/requests/")
	req, err := h.Service.GetRequestByID(r.Context(), id)
	h.handleServiceResponse(w, r, req, err, http.StatusOK)
}

// DecisionRequest é o payload de aprovação/rejeição.
type DecisionRequest struct {
	RequestID string `json:"request_id"`
	Reason    string `json:"reason,omitempty"`
}

// ApproveHandler lida com POST /v1/requests/approve (somente admin).
func (h *Handler) ApproveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	var decision DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&decision); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), 0)
		return
	}

	approved, err := h.Service.Approve(r.Context(), decision.RequestID)
	h.handleServiceResponse(w, r, approved, err, http.StatusOK)
}

// RejectHandler lida com POST /v1/requests/reject (somente admin).
func (h *Handler) RejectHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	var decision DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&decision); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), 0)
		return
	}

	rejected, err := h.Service.Reject(r.Context(), decision.RequestID, decision.Reason)
	h.handleServiceResponse(w, r, rejected, err, http.StatusOK)
}
