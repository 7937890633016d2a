package assignmentrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"matstock/internal/domain"
	apperror "matstock/internal/errors"
	"matstock/internal/pkg/logger"
)

// Ledger é o contrato mínimo que a atribuição direta exige do repositório de
// materiais. O mesmo ajuste atômico do fluxo de aprovação — o caminho legado
// não duplica lógica de lock.
type Ledger interface {
	AdjustQuantityTx(ctx context.Context, tx *sql.Tx, materialID string, delta float64) (domain.Material, error)
	InvalidateCache(ctx context.Context, materialID string)
}

// AssignmentRepository persiste atribuições diretas: consumo imediato de
// estoque sem estágio PENDING.
type AssignmentRepository struct {
	DB        *sql.DB
	Ledger    Ledger
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewAssignmentRepository cria e retorna uma nova instância do Repositório de Atribuições.
func NewAssignmentRepository(db *sql.DB, ledger Ledger, dbTimeout time.Duration, logger logger.Logger) *AssignmentRepository {
	return &AssignmentRepository{
		DB:        db,
		Ledger:    ledger,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// Create debita o Ledger e insere o registro de atribuição em uma única
// transação: ou o estoque sai e a atribuição existe, ou nada acontece.
func (r *AssignmentRepository) Create(ctx context.Context, a domain.Assignment) (domain.Assignment, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		r.logger.Error("Falha ao iniciar transação de atribuição direta.", err)
		return domain.Assignment{}, apperror.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback() // Rollback em caso de erro

	// 1. Débito do Ledger (linha do material travada até o commit)
	if _, err := r.Ledger.AdjustQuantityTx(ctxTimeout, tx, a.MaterialID, -a.Quantity); err != nil {
		return domain.Assignment{}, err
	}

	// 2. Registro da atribuição
	a.ID = uuid.NewString()
	a.Status = domain.AssignmentStatusCompleted
	a.AssignedAt = time.Now()

	const query = `
        INSERT INTO assignments (id, user_id, material_id, quantity, notes, status, assigned_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := tx.ExecContext(ctxTimeout, query,
		a.ID, a.UserID, a.MaterialID, a.Quantity, a.Notes, a.Status, a.AssignedAt,
	); err != nil {
		r.logger.Error("Falha ao inserir atribuição no DB.", err)
		return domain.Assignment{}, apperror.NewDBError("Falha ao inserir atribuição", err)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		r.logger.Error("Falha ao commitar transação de atribuição direta.", commitErr)
		return domain.Assignment{}, apperror.NewDBError("Falha ao commitar transação", commitErr)
	}

	r.Ledger.InvalidateCache(ctx, a.MaterialID)

	r.logger.Info("Atribuição direta registrada.", map[string]interface{}{
		"assignment_id": a.ID,
		"material_id":   a.MaterialID,
		"quantity":      a.Quantity,
		"kind":          string(domain.MovementKindDirect),
	})
	return a, nil
}

// FindByUser lista as atribuições de um usuário, mais recentes primeiro.
func (r *AssignmentRepository) FindByUser(ctx context.Context, userID string) ([]domain.Assignment, error) {
	const query = `
        SELECT id, user_id, material_id, quantity, notes, status, assigned_at
        FROM assignments
        WHERE user_id = $1
        ORDER BY assigned_at DESC`
	return r.queryAssignments(ctx, query, userID)
}

// FindAll lista todas as atribuições, mais recentes primeiro.
func (r *AssignmentRepository) FindAll(ctx context.Context) ([]domain.Assignment, error) {
	const query = `
        SELECT id, user_id, material_id, quantity, notes, status, assigned_at
        FROM assignments
        ORDER BY assigned_at DESC`
	return r.queryAssignments(ctx, query)
}

func (r *AssignmentRepository) queryAssignments(ctx context.Context, query string, args ...interface{}) ([]domain.Assignment, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar atribuições no DB.", err)
		return nil, apperror.NewDBError("Falha ao listar atribuições", err)
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		if err := rows.Scan(&a.ID, &a.UserID, &a.MaterialID, &a.Quantity, &a.Notes, &a.Status, &a.AssignedAt); err != nil {
			return nil, apperror.NewDBError("Falha ao mapear atribuição", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Falha ao percorrer atribuições", err)
	}
	return out, nil
}
