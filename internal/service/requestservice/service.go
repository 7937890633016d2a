package requestservice

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"matstock/internal/domain"
	apperror "matstock/internal/errors"
	"matstock/internal/pkg/logger"
)

// RequestRepository define o contrato que o Motor de Aprovação espera da
// camada de Persistência. Approve e Reject são transições atômicas: o
// repositório executa a guarda de estado e o débito de estoque dentro da
// mesma transação (ver requestrepo).
type RequestRepository interface {
	Create(ctx context.Context, req domain.AssignmentRequest) (domain.AssignmentRequest, error)
	FindByID(ctx context.Context, id string) (domain.AssignmentRequest, error)
	FindByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.AssignmentRequest, error)
	FindByUser(ctx context.Context, userID string) ([]domain.AssignmentRequest, error)
	FindAll(ctx context.Context) ([]domain.AssignmentRequest, error)
	Approve(ctx context.Context, id string) (domain.AssignmentRequest, error)
	Reject(ctx context.Context, id string, reason string) (domain.AssignmentRequest, error)
}

// Service é o Motor de Aprovação: valida submissões, expõe as listagens e
// enfileira as transições PENDING -> APPROVED/REJECTED. Nada aqui é
// re-tentado automaticamente: falha de negócio volta ao chamador com a
// transação já desfeita.
type Service struct {
	repo   RequestRepository
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do Motor de Aprovação.
func NewService(repo RequestRepository, logger logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Submit cria uma nova requisição PENDING em nome do usuário autenticado.
// O userID vem da sessão (claims no contexto), passado explicitamente.
func (s *Service) Submit(ctx domain.Context, userID string, submission domain.RequestSubmission) (domain.AssignmentRequest, error) {
	s.logger.Debug("Iniciando submissão de requisição no serviço.", map[string]interface{}{
		"user_id":     userID,
		"material_id": submission.MaterialID,
		"quantity":    submission.Quantity,
	})

	if err := validateSubmission(userID, submission); err != nil {
		s.logger.Warn("Submissão de requisição inválida.", map[string]interface{}{"user_id": userID, "error": err.Error()})
		return domain.AssignmentRequest{}, err
	}

	req := domain.AssignmentRequest{
		UserID:     userID,
		MaterialID: submission.MaterialID,
		Quantity:   submission.Quantity,
		Notes:      strings.TrimSpace(submission.Notes),
	}

	created, err := s.repo.Create(toGoContext(ctx, s.logger), req)
	if err != nil {
		s.logger.Error("Falha ao criar requisição no repositório.", err)
		return domain.AssignmentRequest{}, err
	}

	s.logger.Info("Requisição submetida com sucesso.", map[string]interface{}{"request_id": created.ID})
	return created, nil
}

// SubmitBatch cria uma requisição independente por item do lote (interface
// com o subsistema de tarefas de produção). Não há atomicidade entre itens:
// a falha de um não desfaz os demais, e cada requisição criada será aprovada
// ou rejeitada por conta própria.
func (s *Service) SubmitBatch(ctx domain.Context, userID string, items []domain.RequestSubmission) (domain.BatchSubmissionResult, error) {
	if len(items) == 0 {
		return domain.BatchSubmissionResult{}, apperror.NewValidationError("O lote de requisições está vazio.")
	}

	var result domain.BatchSubmissionResult
	for i, item := range items {
		created, err := s.Submit(ctx, userID, item)
		if err != nil {
			result.Errors = append(result.Errors, domain.BatchItemError{Index: i, Message: err.Error()})
			continue
		}
		result.Created = append(result.Created, created)
	}

	s.logger.Info("Lote de requisições processado.", map[string]interface{}{
		"user_id": userID,
		"created": len(result.Created),
		"failed":  len(result.Errors),
	})
	return result, nil
}

// GetRequestByID busca uma requisição pelo ID.
func (s *Service) GetRequestByID(ctx domain.Context, id string) (domain.AssignmentRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.AssignmentRequest{}, apperror.NewValidationError("O ID da requisição deve ser um UUID válido.")
	}
	return s.repo.FindByID(toGoContext(ctx, s.logger), id)
}

// ListByStatus lista requisições por status.
func (s *Service) ListByStatus(ctx domain.Context, status domain.RequestStatus) ([]domain.AssignmentRequest, error) {
	switch status {
	case domain.StatusPending, domain.StatusApproved, domain.StatusRejected:
	default:
		return nil, apperror.NewValidationError("Status de requisição desconhecido.")
	}
	return s.repo.FindByStatus(toGoContext(ctx, s.logger), status)
}

// ListByUser lista as requisições de um usuário.
func (s *Service) ListByUser(ctx domain.Context, userID string) ([]domain.AssignmentRequest, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.NewValidationError("A referência de usuário é obrigatória.")
	}
	return s.repo.FindByUser(toGoContext(ctx, s.logger), userID)
}

// ListAll lista todas as requisições.
func (s *Service) ListAll(ctx domain.Context) ([]domain.AssignmentRequest, error) {
	return s.repo.FindAll(toGoContext(ctx, s.logger))
}

// Approve executa a transição PENDING -> APPROVED com débito atômico do
// Ledger. A repetição sobre uma requisição já terminal falha com
// InvalidState e não toca o estoque; estoque insuficiente devolve
// InsufficientStock com a requisição ainda PENDING.
func (s *Service) Approve(ctx domain.Context, requestID string) (domain.AssignmentRequest, error) {
	s.logger.Debug("Iniciando aprovação de requisição no serviço.", map[string]interface{}{"request_id": requestID})

	if _, err := uuid.Parse(requestID); err != nil {
		return domain.AssignmentRequest{}, apperror.NewValidationError("O ID da requisição deve ser um UUID válido.")
	}

	approved, err := s.repo.Approve(toGoContext(ctx, s.logger), requestID)
	if err != nil {
		// NotFound, InvalidState, InsufficientStock e falhas de DB chegam
		// tipados do repositório, com a transação já desfeita.
		s.logger.Error("Falha ao aprovar requisição.", err)
		return domain.AssignmentRequest{}, err
	}

	s.logger.Info("Requisição aprovada.", map[string]interface{}{
		"request_id":  approved.ID,
		"material_id": approved.MaterialID,
		"quantity":    approved.Quantity,
	})
	return approved, nil
}

// Reject executa a transição PENDING -> REJECTED, anexando o motivo às
// notas. Nunca toca o Ledger.
func (s *Service) Reject(ctx domain.Context, requestID string, reason string) (domain.AssignmentRequest, error) {
	s.logger.Debug("Iniciando rejeição de requisição no serviço.", map[string]interface{}{"request_id": requestID})

	if _, err := uuid.Parse(requestID); err != nil {
		return domain.AssignmentRequest{}, apperror.NewValidationError("O ID da requisição deve ser um UUID válido.")
	}
	if strings.TrimSpace(reason) == "" {
		return domain.AssignmentRequest{}, apperror.NewValidationError("O motivo da rejeição é obrigatório.")
	}

	rejected, err := s.repo.Reject(toGoContext(ctx, s.logger), requestID, strings.TrimSpace(reason))
	if err != nil {
		s.logger.Error("Falha ao rejeitar requisição.", err)
		return domain.AssignmentRequest{}, err
	}

	s.logger.Info("Requisição rejeitada.", map[string]interface{}{"request_id": rejected.ID})
	return rejected, nil
}

// validateSubmission aplica as regras de entrada: referências presentes e
// quantidade estritamente positiva.
func validateSubmission(userID string, submission domain.RequestSubmission) error {
	if strings.TrimSpace(userID) == "" {
		return apperror.NewValidationError("A referência de usuário é obrigatória.")
	}
	if _, err := uuid.Parse(submission.MaterialID); err != nil {
		return apperror.NewValidationError("O ID do material deve ser um UUID válido.")
	}
	if submission.Quantity <= 0 {
		return apperror.NewValidationError("A quantidade solicitada deve ser maior que zero.")
	}
	return nil
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
