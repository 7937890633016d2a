package domain

import "time"

// RequestStatus é o estado de uma requisição de atribuição de material.
type RequestStatus string

// Máquina de estados da requisição: PENDING é o único estado inicial;
// APPROVED e REJECTED são terminais e imutáveis.
const (
	StatusPending  RequestStatus = "PENDING"
	StatusApproved RequestStatus = "APPROVED"
	StatusRejected RequestStatus = "REJECTED"
)

// Terminal indica se o status não admite mais transições.
func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransitionTo valida uma transição de estado. Somente PENDING possui
// transições de saída, e somente para um estado terminal.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	return s == StatusPending && next.Terminal()
}

// AssignmentRequest representa a reivindicação de um usuário sobre uma
// quantidade de material, aguardando aprovação. Após atingir um estado
// terminal o registro é imutável.
type AssignmentRequest struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	MaterialID  string        `json:"material_id"`
	Quantity    float64       `json:"quantity"`
	Notes       string        `json:"notes"`
	Status      RequestStatus `json:"status"`
	RequestedAt time.Time     `json:"requested_at"`
}

// RequestSubmission é o payload de entrada para a criação de uma requisição.
// O UserID é preenchido pelo chamador a partir da sessão autenticada,
// nunca de um estado global.
type RequestSubmission struct {
	MaterialID string  `json:"material_id"`
	Quantity   float64 `json:"quantity"`
	Notes      string  `json:"notes"`
}

// BatchSubmissionResult reporta o resultado de um lote de requisições
// enviado pelo subsistema de tarefas de produção. Não há atomicidade entre
// itens do lote: cada requisição vive ou falha por conta própria.
type BatchSubmissionResult struct {
	Created []AssignmentRequest `json:"created"`
	Errors  []BatchItemError    `json:"errors,omitempty"`
}

// BatchItemError associa a falha de um item à sua posição no lote.
type BatchItemError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}
