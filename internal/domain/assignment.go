package domain

import "time"

// Assignment é o registro legado de atribuição direta: consumo imediato de
// estoque sem passar pelo estágio PENDING. Obedece ao mesmo contrato de
// não-negatividade do Ledger que o fluxo de aprovação.
type Assignment struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	MaterialID string    `json:"material_id"`
	Quantity   float64   `json:"quantity"`
	Notes      string    `json:"notes"`
	Status     string    `json:"status"`
	AssignedAt time.Time `json:"assigned_at"`
}

// Status padrão de uma atribuição direta (consumida no ato).
const AssignmentStatusCompleted = "COMPLETED"

// DirectAssignmentRequest é o payload de entrada da atribuição direta.
type DirectAssignmentRequest struct {
	MaterialID string  `json:"material_id"`
	Quantity   float64 `json:"quantity"`
	Notes      string  `json:"notes"`
}
