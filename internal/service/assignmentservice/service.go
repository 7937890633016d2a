package assignmentservice

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"matstock/internal/domain"
	apperror "matstock/internal/errors"
	"matstock/internal/pkg/logger"
)

// AssignmentRepository define o contrato que o Serviço de Atribuição Direta
// espera da camada de Persistência. Create é atômico: débito do Ledger e
// registro da atribuição na mesma transação.
type AssignmentRepository interface {
	Create(ctx context.Context, a domain.Assignment) (domain.Assignment, error)
	FindByUser(ctx context.Context, userID string) ([]domain.Assignment, error)
	FindAll(ctx context.Context) ([]domain.Assignment, error)
}

// Service implementa o caminho legado de atribuição direta: consumo imediato
// de estoque sem estágio PENDING, sob o mesmo contrato de não-negatividade
// do Ledger.
type Service struct {
	repo   AssignmentRepository
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Atribuições.
func NewService(repo AssignmentRepository, logger logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Assign consome estoque imediatamente em nome do usuário informado.
// InsufficientStock e NotFound chegam tipados do Ledger, com a transação
// já desfeita.
func (s *Service) Assign(ctx domain.Context, userID string, req domain.DirectAssignmentRequest) (domain.Assignment, error) {
	s.logger.Debug("Iniciando atribuição direta no serviço.", map[string]interface{}{
		"user_id":     userID,
		"material_id": req.MaterialID,
		"quantity":    req.Quantity,
	})

	if strings.TrimSpace(userID) == "" {
		return domain.Assignment{}, apperror.NewValidationError("A referência de usuário é obrigatória.")
	}
	if _, err := uuid.Parse(req.MaterialID); err != nil {
		return domain.Assignment{}, apperror.NewValidationError("O ID do material deve ser um UUID válido.")
	}
	if req.Quantity <= 0 {
		return domain.Assignment{}, apperror.NewValidationError("A quantidade atribuída deve ser maior que zero.")
	}

	assignment := domain.Assignment{
		UserID:     userID,
		MaterialID: req.MaterialID,
		Quantity:   req.Quantity,
		Notes:      strings.TrimSpace(req.Notes),
	}

	created, err := s.repo.Create(toGoContext(ctx, s.logger), assignment)
	if err != nil {
		s.logger.Error("Falha ao registrar atribuição direta.", err)
		return domain.Assignment{}, err
	}

	s.logger.Info("Atribuição direta concluída.", map[string]interface{}{
		"assignment_id": created.ID,
		"material_id":   created.MaterialID,
		"quantity":      created.Quantity,
	})
	return created, nil
}

// ListByUser lista as atribuições de um usuário.
func (s *Service) ListByUser(ctx domain.Context, userID string) ([]domain.Assignment, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.NewValidationError("A referência de usuário é obrigatória.")
	}
	return s.repo.FindByUser(toGoContext(ctx, s.logger), userID)
}

// ListAll lista todas as atribuições.
func (s *Service) ListAll(ctx domain.Context) ([]domain.Assignment, error) {
	return s.repo.FindAll(toGoContext(ctx, s.logger))
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
