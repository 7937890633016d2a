package material

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

// MaterialService define o contrato que o Handler espera da camada de Serviço.
type MaterialService interface {
	CreateMaterial(ctx domain.Context, m domain.Material) (domain.Material, error)
	GetMaterialByID(ctx domain.Context, id string) (domain.Material, error)
	ListMaterials(ctx domain.Context) ([]domain.Material, error)
	UpdateMaterial(ctx domain.Context, m domain.Material) (domain.Material, error)
	DeleteMaterial(ctx domain.Context, id string) error
	Replenish(ctx domain.Context, materialID string, quantity float64, actorID string) (domain.Material, error)
	ListBelowMinimum(ctx domain.Context) ([]domain.Material, error)
}

// Handler agrupa todos os métodos de Handler de materiais.
type Handler struct {
	Service MaterialService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc MaterialService, log logger.Logger) *Handler {
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

// MaterialsHandler lida com POST (criação) e GET (listagem) em /v1/materials.
func (h *Handler) MaterialsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodPost:
		var m domain.Material
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), 0)
			return
		}
		created, err := h.Service.CreateMaterial(ctx, m)
		h.handleServiceResponse(w, r, created, err, http.StatusCreated)

	case http.MethodGet:
		materials, err := h.Service.ListMaterials(ctx)
		h.handleServiceResponse(w, r, materials, err, http.StatusOK)

	default:
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
	}
}

// MaterialByIDHandler lida com GET/PUT/DELETE em /v1/materials/{id}.
func (h *Handler) MaterialByIDHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := strings.TrimPrefix(r.URL.Path, "/v1/materials/")

	switch r.Method {
	case http.MethodGet:
		m, err := h.Service.GetMaterialByID(ctx, id)
		h.handleServiceResponse(w, r, m, err, http.StatusOK)

	case http.MethodPut:
		var m domain.Material
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), 0)
			return
		}
		m.ID = id
		updated, err := h.Service.UpdateMaterial(ctx, m)
		h.handleServiceResponse(w, r, updated, err, http.StatusOK)

	case http.MethodDelete:
		err := h.Service.DeleteMaterial(ctx, id)
		h.handleServiceResponse(w, r, nil, err, http.StatusNoContent)

	default:
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
	}
}

// ReplenishRequest é o payload de entrada da reposição de estoque.
type ReplenishRequest struct {
	MaterialID string  `json:"material_id"`
	Quantity   float64 `json:"quantity"`
}

// ReplenishHandler lida com POST /v1/materials/adjust (reposição de estoque).
func (h *Handler) ReplenishHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	claims, _ := middleware.GetUserClaimsFromContext(ctx)

	var req ReplenishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), 0)
		return
	}

	m, err := h.Service.Replenish(ctx, req.MaterialID, req.Quantity, claims.UserID)
	h.handleServiceResponse(w, r, m, err, http.StatusOK)
}

// LowStockHandler lida com GET /v1/materials/low-stock.
func (h *Handler) LowStockHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	materials, err := h.Service.ListBelowMinimum(r.Context())
	h.handleServiceResponse(w, r, materials, err, http.StatusOK)
}
