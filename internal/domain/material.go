package domain

import (
	"time"
)

// Material representa uma matéria-prima controlada pelo Ledger de estoque.
// A quantidade atual é mantida exclusivamente pelo repositório de materiais
// (invariante: Quantity >= 0 sempre).
type Material struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Quantity        float64   `json:"quantity"`
	MinimumQuantity float64   `json:"minimum_quantity"`
	Unit            string    `json:"unit"`     // Ex: "g", "ml", "pcs"
	Supplier        string    `json:"supplier"` // Fornecedor principal (texto livre)
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BelowMinimum indica se o material está abaixo do estoque mínimo configurado.
func (m Material) BelowMinimum() bool {
	return m.Quantity < m.MinimumQuantity
}

// MovementKind identifica a origem de uma movimentação de estoque.
// Os dois caminhos de consumo (atribuição direta e aprovação de requisição)
// passam pelo mesmo ajuste atômico do Ledger; apenas a etiqueta difere.
type MovementKind string

const (
	MovementKindDirect          MovementKind = "DIRECT"
	MovementKindRequestApproval MovementKind = "REQUEST_APPROVAL"
	MovementKindReplenishment   MovementKind = "REPLENISHMENT"
)

// StockMovement descreve uma intenção de movimentação contra o Ledger.
// Delta negativo consome estoque; positivo repõe.
type StockMovement struct {
	MaterialID string       `json:"material_id"`
	Delta      float64      `json:"delta"`
	Kind       MovementKind `json:"kind"`
	ActorID    string       `json:"actor_id,omitempty"`
	Notes      string       `json:"notes,omitempty"`
}

// --- Estruturas Auxiliares (Filtros e Contexto) ---

// Context é uma interface que encapsula o Go context.Context.
// É usado para propagar o timeout e sinais de cancelamento pelas camadas
// sem acoplar as interfaces de domínio ao pacote "context".
type Context interface{}
