package router

import (
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	"matstock/internal/api/assignment"
	"matstock/internal/api/material"
	"matstock/internal/api/request"
	"matstock/internal/api/user"
	"matstock/internal/domain"
	"matstock/internal/pkg/cache"
	"matstock/internal/pkg/middleware"
)

// NewRouter configura e retorna o roteador HTTP principal.
// Recebe os Handlers já inicializados por injeção de dependências.
func NewRouter(
	materialHandler *material.Handler,
	requestHandler *request.Handler,
	assignmentHandler *assignment.Handler,
	userHandler *user.Handler,
	tokenSvc middleware.TokenService,
	cacheClient cache.Client,
	rateLimitMax int,
	rateLimitPeriod time.Duration,
) http.Handler {

	// Usamos o ServeMux padrão do net/http para roteamento
	// Em projetos maiores, pode-se usar um mux de terceiros (e.g., gorilla/mux, chi)
	mux := http.NewServeMux()

	auth := middleware.NewAuthMiddleware(tokenSvc)
	adminOnly := middleware.PermissionMiddleware(domain.RoleAdmin)

	// --- 1. Rotas públicas ---
	mux.HandleFunc("/ping", PingHandler)
	mux.Handle("/swagger/", httpSwagger.Handler())
	mux.HandleFunc("/v1/register", userHandler.RegisterHandler)
	mux.HandleFunc("/v1/login", userHandler.LoginHandler)

	// --- 2. Materiais (autenticado; mutações somente admin) ---
	mux.HandleFunc("/v1/materials", auth(materialHandler.MaterialsHandler))
	mux.HandleFunc("/v1/materials/low-stock", auth(materialHandler.LowStockHandler))
	mux.HandleFunc("/v1/materials/adjust", auth(adminOnly(materialHandler.ReplenishHandler)))
	mux.HandleFunc("/v1/materials/", auth(materialHandler.MaterialByIDHandler))

	// --- 3. Requisições de atribuição ---
	mux.HandleFunc("/v1/requests", auth(requestHandler.RequestsHandler))
	mux.HandleFunc("/v1/requests/batch", auth(requestHandler.BatchHandler))
	mux.HandleFunc("/v1/requests/my", auth(requestHandler.MyRequestsHandler))
	mux.HandleFunc("/v1/requests/approve", auth(adminOnly(requestHandler.ApproveHandler)))
	mux.HandleFunc("/v1/requests/reject", auth(adminOnly(requestHandler.RejectHandler)))
	mux.HandleFunc("/v1/requests/", auth(requestHandler.RequestByIDHandler))

	// --- 4. Atribuições diretas (caminho legado; mutação somente admin) ---
	mux.HandleFunc("/v1/assignments", auth(assignmentHandler.AssignmentsHandler))
	mux.HandleFunc("/v1/assignments/my", auth(assignmentHandler.MyAssignmentsHandler))

	// --- 5. Middlewares globais ---
	return middleware.RateLimiter(cacheClient, rateLimitMax, rateLimitPeriod)(mux)
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
