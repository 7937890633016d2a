package materialrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"matstock/internal/domain"
	apperror "matstock/internal/errors"
	"matstock/internal/pkg/cache"
	"matstock/internal/pkg/logger"
)

// Chave de cache para materiais (estratégia Cache-Aside).
const materialCacheKey = "material:%s"

// TTL do cache de leitura de materiais.
const materialCacheTTL = 5 * time.Minute

// MaterialRepository é o Ledger de materiais: a única camada que muta a
// quantidade em estoque. Todo ajuste passa por AdjustQuantityTx, que trava a
// linha do material (SELECT ... FOR UPDATE) pela duração do read-modify-write.
type MaterialRepository struct {
	DB        *sql.DB
	Cache     cache.Client
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewMaterialRepository cria e retorna uma nova instância do Repositório de Materiais.
func NewMaterialRepository(db *sql.DB, cacheClient cache.Client, dbTimeout time.Duration, logger logger.Logger) *MaterialRepository {
	return &MaterialRepository{
		DB:        db,
		Cache:     cacheClient,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// Create persiste um novo material no banco de dados.
func (r *MaterialRepository) Create(ctx context.Context, m domain.Material) (domain.Material, error) {
	r.logger.Debug("Criando material no repositório.", map[string]interface{}{"name": m.Name})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	m.ID = uuid.NewString()
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt

	const query = `
        INSERT INTO materials (id, name, quantity, minimum_quantity, unit, supplier, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.DB.ExecContext(ctxTimeout, query,
		m.ID, m.Name, m.Quantity, m.MinimumQuantity, m.Unit, m.Supplier, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Falha ao inserir material no DB.", err)
		return domain.Material{}, apperror.NewDBError("Falha ao inserir material", err)
	}

	r.logger.Info("Material criado com sucesso.", map[string]interface{}{"material_id": m.ID, "name": m.Name})
	return m, nil
}

// FindByID busca um material pelo ID, utilizando a estratégia Cache-Aside.
// A leitura pode observar dados levemente defasados em relação a transações
// em andamento; quem precisa do valor exato usa o caminho transacional.
func (r *MaterialRepository) FindByID(ctx context.Context, id string) (domain.Material, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	key := fmt.Sprintf(materialCacheKey, id)
	var m domain.Material

	// 1. Tentar obter do Cache (Redis)
	cachedData, err := r.Cache.Get(ctxTimeout, key)
	if err == nil {
		if json.Unmarshal([]byte(cachedData), &m) == nil {
			return m, nil
		}
		// Desserialização falhou: segue para o DB
	} else if err != cache.ErrCacheMiss {
		// Erro real de cache (ex: conexão perdida): logamos e seguimos para o DB.
		r.logger.Warn("Falha ao ler material do cache.", map[string]interface{}{"material_id": id, "error": err.Error()})
	}

	// 2. Busca no Banco de Dados (PostgreSQL)
	const query = `
        SELECT id, name, quantity, minimum_quantity, unit, supplier, created_at, updated_at
        FROM materials
        WHERE id = $1`

	row := r.DB.QueryRowContext(ctxTimeout, query, id)
	err = row.Scan(&m.ID, &m.Name, &m.Quantity, &m.MinimumQuantity, &m.Unit, &m.Supplier, &m.CreatedAt, &m.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.Material{}, apperror.NewNotFoundError(fmt.Sprintf("Material com ID %s não existe na base de dados.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar material no DB.", err)
		return domain.Material{}, apperror.NewDBError("Falha ao buscar material", err)
	}

	// 3. Popular o cache para futuras leituras
	if materialJSON, marshalErr := json.Marshal(m); marshalErr == nil {
		r.Cache.Set(ctxTimeout, key, materialJSON, materialCacheTTL)
	}

	return m, nil
}

// FindAll retorna todos os materiais cadastrados, ordenados por nome.
func (r *MaterialRepository) FindAll(ctx context.Context) ([]domain.Material, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
        SELECT id, name, quantity, minimum_quantity, unit, supplier, created_at, updated_at
        FROM materials
        ORDER BY name`

	rows, err := r.DB.QueryContext(ctxTimeout, query)
	if err != nil {
		r.logger.Error("Falha ao listar materiais no DB.", err)
		return nil, apperror.NewDBError("Falha ao listar materiais", err)
	}
	defer rows.Close()

	var out []domain.Material
	for rows.Next() {
		var m domain.Material
		if err := rows.Scan(&m.ID, &m.Name, &m.Quantity, &m.MinimumQuantity, &m.Unit, &m.Supplier, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, apperror.NewDBError("Falha ao mapear material", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Falha ao percorrer materiais", err)
	}
	return out, nil
}

// Update atualiza os dados cadastrais do material (nome, unidade, fornecedor,
// estoque mínimo). A quantidade NÃO é alterada por aqui: ajustes de estoque
// passam exclusivamente por AdjustQuantity/AdjustQuantityTx.
func (r *MaterialRepository) Update(ctx context.Context, m domain.Material) (domain.Material, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
        UPDATE materials
        SET name = $2, minimum_quantity = $3, unit = $4, supplier = $5, updated_at = $6
        WHERE id = $1
        RETURNING id, name, quantity, minimum_quantity, unit, supplier, created_at, updated_at`

	row := r.DB.QueryRowContext(ctxTimeout, query, m.ID, m.Name, m.MinimumQuantity, m.Unit, m.Supplier, time.Now())

	var updated domain.Material
	err := row.Scan(&updated.ID, &updated.Name, &updated.Quantity, &updated.MinimumQuantity,
		&updated.Unit, &updated.Supplier, &updated.CreatedAt, &updated.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.Material{}, apperror.NewNotFoundError(fmt.Sprintf("Material com ID %s não existe na base de dados.", m.ID))
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar material no DB.", err)
		return domain.Material{}, apperror.NewDBError("Falha ao atualizar material", err)
	}

	r.InvalidateCache(ctx, m.ID)
	return updated, nil
}

// Delete remove um material.
func (r *MaterialRepository) Delete(ctx context.Context, id string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	result, err := r.DB.ExecContext(ctxTimeout, `DELETE FROM materials WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Falha ao excluir material no DB.", err)
		return apperror.NewDBError("Falha ao excluir material", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperror.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	if rowsAffected == 0 {
		return apperror.NewNotFoundError(fmt.Sprintf("Material com ID %s não existe na base de dados.", id))
	}

	r.InvalidateCache(ctx, id)
	return nil
}

// FindBelowMinimum retorna todos os materiais com quantity < minimum_quantity.
// Leitura pura, sem locks: o Notificador pode observar estado pré ou pós
// transação em qualquer varredura.
func (r *MaterialRepository) FindBelowMinimum(ctx context.Context) ([]domain.Material, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
        SELECT id, name, quantity, minimum_quantity, unit, supplier, created_at, updated_at
        FROM materials
        WHERE quantity < minimum_quantity
        ORDER BY name`

	rows, err := r.DB.QueryContext(ctxTimeout, query)
	if err != nil {
		r.logger.Error("Falha ao buscar materiais abaixo do mínimo no DB.", err)
		return nil, apperror.NewDBError("Falha ao buscar materiais abaixo do mínimo", err)
	}
	defer rows.Close()

	var out []domain.Material
	for rows.Next() {
		var m domain.Material
		if err := rows.Scan(&m.ID, &m.Name, &m.Quantity, &m.MinimumQuantity, &m.Unit, &m.Supplier, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, apperror.NewDBError("Falha ao mapear material", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Falha ao percorrer materiais", err)
	}
	return out, nil
}

// AdjustQuantityTx aplica um delta à quantidade de um material dentro de uma
// transação fornecida pelo chamador. É o ÚNICO ponto do sistema onde a
// quantidade é lida-e-escrita, e a linha fica travada (FOR UPDATE) até o
// commit/rollback do chamador: ajustes concorrentes no mesmo material
// serializam aqui, materiais diferentes seguem em paralelo.
//
// Retorna InsufficientStockError (sem escrita) se quantity + delta < 0 e
// NotFoundError se o material não existir. O chamador decide o rollback.
func (r *MaterialRepository) AdjustQuantityTx(ctx context.Context, tx *sql.Tx, materialID string, delta float64) (domain.Material, error) {
	// 1. Travar e ler a linha do material
	const querySelect = `
        SELECT id, name, quantity, minimum_quantity, unit, supplier, created_at, updated_at
        FROM materials
        WHERE id = $1
        FOR UPDATE`

	var m domain.Material
	err := tx.QueryRowContext(ctx, querySelect, materialID).Scan(
		&m.ID, &m.Name, &m.Quantity, &m.MinimumQuantity, &m.Unit, &m.Supplier, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Material{}, apperror.NewNotFoundError(fmt.Sprintf("Material com ID %s não existe na base de dados.", materialID))
	}
	if err != nil {
		r.logger.Error("Falha ao travar material para ajuste.", err)
		return domain.Material{}, apperror.NewDBError("Falha ao travar material para ajuste", err)
	}

	// 2. Aplicar o delta e validar a invariante quantity >= 0
	newQuantity := m.Quantity + delta
	if newQuantity < 0 {
		r.logger.Warn("Ajuste deixaria o estoque negativo.", map[string]interface{}{
			"material_id":      materialID,
			"current_quantity": m.Quantity,
			"delta":            delta,
		})
		return domain.Material{}, apperror.NewInsufficientStockError(
			fmt.Sprintf("O material '%s' possui %.2f %s em estoque; o ajuste de %.2f não é possível.", m.Name, m.Quantity, m.Unit, delta))
	}

	// 3. Persistir a nova quantidade
	now := time.Now()
	const queryUpdate = `
        UPDATE materials
        SET quantity = $2, updated_at = $3
        WHERE id = $1`

	if _, err := tx.ExecContext(ctx, queryUpdate, materialID, newQuantity, now); err != nil {
		r.logger.Error("Falha ao atualizar quantidade do material.", err)
		return domain.Material{}, apperror.NewDBError("Falha ao atualizar quantidade do material", err)
	}

	m.Quantity = newQuantity
	m.UpdatedAt = now
	return m, nil
}

// AdjustQuantity aplica uma movimentação de estoque em transação própria.
// Caminho usado pela reposição e por qualquer chamador que não precise
// compor o ajuste com outras escritas.
func (r *MaterialRepository) AdjustQuantity(ctx context.Context, movement domain.StockMovement) (domain.Material, error) {
	r.logger.Debug("Iniciando ajuste de estoque no repositório.", map[string]interface{}{
		"material_id": movement.MaterialID,
		"delta":       movement.Delta,
		"kind":        string(movement.Kind),
	})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		r.logger.Error("Falha ao iniciar transação para ajuste de estoque.", err)
		return domain.Material{}, apperror.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback() // Rollback em caso de erro

	m, err := r.AdjustQuantityTx(ctxTimeout, tx, movement.MaterialID, movement.Delta)
	if err != nil {
		return domain.Material{}, err
	}

	if commitErr := tx.Commit(); commitErr != nil {
		r.logger.Error("Falha ao commitar transação de ajuste de estoque.", commitErr)
		return domain.Material{}, apperror.NewDBError("Falha ao commitar transação", commitErr)
	}

	r.InvalidateCache(ctx, movement.MaterialID)

	r.logger.Info("Estoque ajustado com sucesso.", map[string]interface{}{
		"material_id":  m.ID,
		"new_quantity": m.Quantity,
		"kind":         string(movement.Kind),
	})
	return m, nil
}

// InvalidateCache descarta a entrada de cache do material após uma mutação.
// Chamadores que compõem AdjustQuantityTx em transação própria devem invocar
// isto após o commit.
func (r *MaterialRepository) InvalidateCache(ctx context.Context, materialID string) {
	key := fmt.Sprintf(materialCacheKey, materialID)
	if err := r.Cache.Delete(ctx, key); err != nil {
		r.logger.Warn("Falha ao invalidar cache do material.", map[string]interface{}{"material_id": materialID, "error": err.Error()})
	}
}
