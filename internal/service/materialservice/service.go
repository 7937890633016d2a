package materialservice

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"matstock/internal/domain"
	apperror "matstock/internal/errors"
	"matstock/internal/pkg/logger"
)

// MaterialRepository define o contrato que o Serviço de Materiais espera da
// camada de Persistência (o Ledger).
type MaterialRepository interface {
	Create(ctx context.Context, m domain.Material) (domain.Material, error)
	FindByID(ctx context.Context, id string) (domain.Material, error)
	FindAll(ctx context.Context) ([]domain.Material, error)
	Update(ctx context.Context, m domain.Material) (domain.Material, error)
	Delete(ctx context.Context, id string) error
	FindBelowMinimum(ctx context.Context) ([]domain.Material, error)
	AdjustQuantity(ctx context.Context, movement domain.StockMovement) (domain.Material, error)
}

// Service é a camada de lógica de negócio de materiais.
type Service struct {
	repo   MaterialRepository
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Materiais.
func NewService(repo MaterialRepository, logger logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateMaterial cria um novo material após validações de negócio.
func (s *Service) CreateMaterial(ctx domain.Context, m domain.Material) (domain.Material, error) {
	s.logger.Debug("Iniciando criação de material no serviço.", map[string]interface{}{"name": m.Name})

	if strings.TrimSpace(m.Name) == "" {
		return domain.Material{}, apperror.NewValidationError("O nome do material é obrigatório.")
	}
	if m.Quantity < 0 {
		return domain.Material{}, apperror.NewValidationError("A quantidade inicial não pode ser negativa.")
	}
	if m.MinimumQuantity < 0 {
		return domain.Material{}, apperror.NewValidationError("O estoque mínimo não pode ser negativo.")
	}

	created, err := s.repo.Create(toGoContext(ctx, s.logger), m)
	if err != nil {
		s.logger.Error("Falha ao criar material no repositório.", err)
		return domain.Material{}, err
	}

	s.logger.Info("Material criado com sucesso.", map[string]interface{}{"material_id": created.ID, "name": created.Name})
	return created, nil
}

// GetMaterialByID busca um material pelo ID após validação de formato.
func (s *Service) GetMaterialByID(ctx domain.Context, id string) (domain.Material, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Material{}, apperror.NewValidationError("O ID do material deve ser um UUID válido.")
	}
	return s.repo.FindByID(toGoContext(ctx, s.logger), id)
}

// ListMaterials lista todos os materiais cadastrados.
func (s *Service) ListMaterials(ctx domain.Context) ([]domain.Material, error) {
	return s.repo.FindAll(toGoContext(ctx, s.logger))
}

// UpdateMaterial atualiza os dados cadastrais de um material.
func (s *Service) UpdateMaterial(ctx domain.Context, m domain.Material) (domain.Material, error) {
	s.logger.Debug("Iniciando atualização de material no serviço.", map[string]interface{}{"material_id": m.ID})

	if _, err := uuid.Parse(m.ID); err != nil {
		return domain.Material{}, apperror.NewValidationError("O ID do material deve ser um UUID válido.")
	}
	if strings.TrimSpace(m.Name) == "" {
		return domain.Material{}, apperror.NewValidationError("O nome do material é obrigatório.")
	}
	if m.MinimumQuantity < 0 {
		return domain.Material{}, apperror.NewValidationError("O estoque mínimo não pode ser negativo.")
	}

	return s.repo.Update(toGoContext(ctx, s.logger), m)
}

// DeleteMaterial remove um material.
func (s *Service) DeleteMaterial(ctx domain.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.NewValidationError("O ID do material deve ser um UUID válido.")
	}
	return s.repo.Delete(toGoContext(ctx, s.logger), id)
}

// Replenish repõe estoque de um material (delta estritamente positivo).
// Consumo de estoque passa pelos fluxos de atribuição/aprovação, nunca por aqui.
func (s *Service) Replenish(ctx domain.Context, materialID string, quantity float64, actorID string) (domain.Material, error) {
	s.logger.Debug("Iniciando reposição de estoque no serviço.", map[string]interface{}{
		"material_id": materialID,
		"quantity":    quantity,
	})

	if _, err := uuid.Parse(materialID); err != nil {
		return domain.Material{}, apperror.NewValidationError("O ID do material deve ser um UUID válido.")
	}
	if quantity <= 0 {
		return domain.Material{}, apperror.NewValidationError("A quantidade de reposição deve ser maior que zero.")
	}

	movement := domain.StockMovement{
		MaterialID: materialID,
		Delta:      quantity,
		Kind:       domain.MovementKindReplenishment,
		ActorID:    actorID,
	}

	m, err := s.repo.AdjustQuantity(toGoContext(ctx, s.logger), movement)
	if err != nil {
		s.logger.Error("Falha ao repor estoque no repositório.", err)
		return domain.Material{}, err
	}

	s.logger.Info("Estoque reposto com sucesso.", map[string]interface{}{
		"material_id":  m.ID,
		"new_quantity": m.Quantity,
	})
	return m, nil
}

// ListBelowMinimum lista os materiais abaixo do estoque mínimo.
func (s *Service) ListBelowMinimum(ctx domain.Context) ([]domain.Material, error) {
	return s.repo.FindBelowMinimum(toGoContext(ctx, s.logger))
}

// toGoContext converte domain.Context para context.Context, com fallback
// para context.Background() caso o chamador passe algo inesperado.
func toGoContext(ctx domain.Context, log logger.Logger) context.Context {
	ctxGo, ok := ctx.(context.Context)
	if !ok {
		ctxGo = context.Background()
		log.Warn("Contexto de domínio inválido, usando context.Background().", nil)
	}
	return ctxGo
}
