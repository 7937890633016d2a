package requestrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"matstock/internal/domain"
	apperror "matstock/internal/errors"
	"matstock/internal/pkg/logger"
)

// RejectionMarker prefixa o motivo de rejeição anexado às notas da requisição.
const RejectionMarker = "[REJECTED]"

// Ledger é o contrato mínimo que o fluxo de aprovação exige do repositório de
// materiais: o ajuste atômico dentro da transação do chamador e a invalidação
// do cache após o commit. A lógica de lock existe só lá.
type Ledger interface {
	AdjustQuantityTx(ctx context.Context, tx *sql.Tx, materialID string, delta float64) (domain.Material, error)
	InvalidateCache(ctx context.Context, materialID string)
}

// RequestRepository persiste requisições de atribuição e executa as
// transições de estado atômicas (aprovação com débito de estoque, rejeição
// guardada). Fora de Approve/Reject é acesso a dados puro.
type RequestRepository struct {
	DB        *sql.DB
	Ledger    Ledger
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewRequestRepository cria e retorna uma nova instância do Repositório de Requisições.
func NewRequestRepository(db *sql.DB, ledger Ledger, dbTimeout time.Duration, logger logger.Logger) *RequestRepository {
	return &RequestRepository{
		DB:        db,
		Ledger:    ledger,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// Create persiste uma nova requisição com status PENDING.
func (r *RequestRepository) Create(ctx context.Context, req domain.AssignmentRequest) (domain.AssignmentRequest, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	req.ID = uuid.NewString()
	req.Status = domain.StatusPending
	req.RequestedAt = time.Now()

	const query = `
        INSERT INTO assignment_requests (id, user_id, material_id, quantity, notes, status, requested_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.DB.ExecContext(ctxTimeout, query,
		req.ID, req.UserID, req.MaterialID, req.Quantity, req.Notes, req.Status, req.RequestedAt,
	)
	if err != nil {
		r.logger.Error("Falha ao inserir requisição no DB.", err)
		return domain.AssignmentRequest{}, apperror.NewDBError("Falha ao inserir requisição", err)
	}

	r.logger.Info("Requisição criada com sucesso.", map[string]interface{}{
		"request_id":  req.ID,
		"user_id":     req.UserID,
		"material_id": req.MaterialID,
	})
	return req, nil
}

// FindByID busca uma requisição pelo ID.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (domain.AssignmentRequest, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
        SELECT id, user_id, material_id, quantity, notes, status, requested_at
        FROM assignment_requests
        WHERE id = $1`

	row := r.DB.QueryRowContext(ctxTimeout, query, id)
	return scanRequest(row, id)
}

// FindByStatus lista requisições por status, mais recentes primeiro.
func (r *RequestRepository) FindByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.AssignmentRequest, error) {
	const query = `
        SELECT id, user_id, material_id, quantity, notes, status, requested_at
        FROM assignment_requests
        WHERE status = $1
        ORDER BY requested_at DESC`
	return r.queryRequests(ctx, query, string(status))
}

// FindByUser lista as requisições de um usuário, mais recentes primeiro.
func (r *RequestRepository) FindByUser(ctx context.Context, userID string) ([]domain.AssignmentRequest, error) {
	const query = `
        SELECT id, user_id, material_id, quantity, notes, status, requested_at
        FROM assignment_requests
        WHERE user_id = $1
        ORDER BY requested_at DESC`
	return r.queryRequests(ctx, query, userID)
}

// FindAll lista todas as requisições, mais recentes primeiro.
func (r *RequestRepository) FindAll(ctx context.Context) ([]domain.AssignmentRequest, error) {
	const query = `
        SELECT id, user_id, material_id, quantity, notes, status, requested_at
        FROM assignment_requests
        ORDER BY requested_at DESC`
	return r.queryRequests(ctx, query)
}

// UpdateStatus muda o status de uma requisição em operação avulsa.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	result, err := r.DB.ExecContext(ctxTimeout,
		`UPDATE assignment_requests SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return apperror.NewDBError("Falha ao atualizar status da requisição", err)
	}
	return checkUpdated(result, id)
}

// UpdateStatusTx muda o status dentro de uma transação fornecida pelo
// chamador. É a variante usada pelo fluxo de aprovação para que o débito de
// estoque e a virada de status caiam (ou não) juntos.
func (r *RequestRepository) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id string, status domain.RequestStatus) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE assignment_requests SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return apperror.NewDBError("Falha ao atualizar status da requisição", err)
	}
	return checkUpdated(result, id)
}

// Approve executa a aprovação em uma única transação:
//
//  1. trava e lê a requisição (FOR UPDATE) — NotFound se ausente;
//  2. valida status PENDING — a segunda de duas aprovações concorrentes
//     observa o status já virado e aborta com InvalidState;
//  3. debita o Ledger (delta negativo) via AdjustQuantityTx — estoque
//     insuficiente desfaz tudo e a requisição permanece PENDING;
//  4. vira o status para APPROVED e commita.
//
// Ou o débito e a virada de status acontecem juntos, ou nada acontece.
func (r *RequestRepository) Approve(ctx context.Context, id string) (domain.AssignmentRequest, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		r.logger.Error("Falha ao iniciar transação de aprovação.", err)
		return domain.AssignmentRequest{}, apperror.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback() // Rollback em caso de erro

	// 1. Travar e ler a requisição
	const querySelect = `
        SELECT id, user_id, material_id, quantity, notes, status, requested_at
        FROM assignment_requests
        WHERE id = $1
        FOR UPDATE`

	req, err := scanRequest(tx.QueryRowContext(ctxTimeout, querySelect, id), id)
	if err != nil {
		return domain.AssignmentRequest{}, err
	}

	// 2. Guarda de estado: somente PENDING pode ser aprovada
	if !req.Status.CanTransitionTo(domain.StatusApproved) {
		r.logger.Warn("Tentativa de aprovar requisição não pendente.", map[string]interface{}{
			"request_id": id,
			"status":     string(req.Status),
		})
		return domain.AssignmentRequest{}, apperror.NewInvalidStateError(
			fmt.Sprintf("A requisição %s está %s e não pode ser aprovada.", id, req.Status))
	}

	// 3. Débito do Ledger dentro da MESMA transação
	if _, err := r.Ledger.AdjustQuantityTx(ctxTimeout, tx, req.MaterialID, -req.Quantity); err != nil {
		// InsufficientStock/NotFound do Ledger: o defer desfaz a transação
		// inteira e a requisição permanece PENDING.
		return domain.AssignmentRequest{}, err
	}

	// 4. Virar o status e commitar
	if err := r.UpdateStatusTx(ctxTimeout, tx, id, domain.StatusApproved); err != nil {
		return domain.AssignmentRequest{}, err
	}

	if commitErr := tx.Commit(); commitErr != nil {
		r.logger.Error("Falha ao commitar transação de aprovação.", commitErr)
		return domain.AssignmentRequest{}, apperror.NewDBError("Falha ao commitar transação", commitErr)
	}

	r.Ledger.InvalidateCache(ctx, req.MaterialID)

	req.Status = domain.StatusApproved
	r.logger.Info("Requisição aprovada com sucesso.", map[string]interface{}{
		"request_id":  req.ID,
		"material_id": req.MaterialID,
		"quantity":    req.Quantity,
		"kind":        string(domain.MovementKindRequestApproval),
	})
	return req, nil
}

// Reject rejeita uma requisição PENDING, anexando o motivo às notas com o
// marcador estruturado (sem sobrescrever notas existentes). Nunca toca o
// Ledger. O UPDATE é guardado por status = PENDING: se outra transição
// venceu a corrida, nenhuma linha é afetada e o chamador recebe InvalidState.
func (r *RequestRepository) Reject(ctx context.Context, id string, reason string) (domain.AssignmentRequest, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	annotation := RejectionMarker + " " + reason

	const query = `
        UPDATE assignment_requests
        SET status = $2,
            notes = CASE WHEN notes IS NULL OR notes = '' THEN $3
                         ELSE notes || E'\n' || $3 END
        WHERE id = $1 AND status = $4
        RETURNING id, user_id, material_id, quantity, notes, status, requested_at`

	row := r.DB.QueryRowContext(ctxTimeout, query, id, domain.StatusRejected, annotation, domain.StatusPending)

	var req domain.AssignmentRequest
	err := row.Scan(&req.ID, &req.UserID, &req.MaterialID, &req.Quantity, &req.Notes, &req.Status, &req.RequestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// Nenhuma linha PENDING com esse id: distinguir inexistente de já transicionada.
		existing, findErr := r.FindByID(ctx, id)
		if findErr != nil {
			return domain.AssignmentRequest{}, findErr
		}
		return domain.AssignmentRequest{}, apperror.NewInvalidStateError(
			fmt.Sprintf("A requisição %s está %s e não pode ser rejeitada.", id, existing.Status))
	}
	if err != nil {
		r.logger.Error("Falha ao rejeitar requisição no DB.", err)
		return domain.AssignmentRequest{}, apperror.NewDBError("Falha ao rejeitar requisição", err)
	}

	r.logger.Info("Requisição rejeitada.", map[string]interface{}{"request_id": req.ID})
	return req, nil
}

// --- Helpers internos ---

// rowScanner cobre *sql.Row e *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner, id string) (domain.AssignmentRequest, error) {
	var req domain.AssignmentRequest
	err := row.Scan(&req.ID, &req.UserID, &req.MaterialID, &req.Quantity, &req.Notes, &req.Status, &req.RequestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AssignmentRequest{}, apperror.NewNotFoundError(fmt.Sprintf("Requisição com ID %s não existe na base de dados.", id))
	}
	if err != nil {
		return domain.AssignmentRequest{}, apperror.NewDBError("Falha ao mapear requisição", err)
	}
	return req, nil
}

func (r *RequestRepository) queryRequests(ctx context.Context, query string, args ...interface{}) ([]domain.AssignmentRequest, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar requisições no DB.", err)
		return nil, apperror.NewDBError("Falha ao listar requisições", err)
	}
	defer rows.Close()

	var out []domain.AssignmentRequest
	for rows.Next() {
		var req domain.AssignmentRequest
		if err := rows.Scan(&req.ID, &req.UserID, &req.MaterialID, &req.Quantity, &req.Notes, &req.Status, &req.RequestedAt); err != nil {
			return nil, apperror.NewDBError("Falha ao mapear requisição", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Falha ao percorrer requisições", err)
	}
	return out, nil
}

func checkUpdated(result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperror.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	if rowsAffected == 0 {
		return apperror.NewNotFoundError(fmt.Sprintf("Requisição com ID %s não existe na base de dados.", id))
	}
	return nil
}
