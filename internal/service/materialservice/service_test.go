package materialservice_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"matstock/internal/domain"
	apperror "matstock/internal/errors"
	"matstock/internal/pkg/logger"
	"matstock/internal/service/materialservice"
)

// MockMaterialRepository é uma implementação mock da interface MaterialRepository
type MockMaterialRepository struct {
	mock.Mock
}

func (m *MockMaterialRepository) Create(ctx context.Context, material domain.Material) (domain.Material, error) {
	args := m.Called(ctx, material)
	return args.Get(0).(domain.Material), args.Error(1)
}

func (m *MockMaterialRepository) FindByID(ctx context.Context, id string) (domain.Material, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Material), args.Error(1)
}

func (m *MockMaterialRepository) FindAll(ctx context.Context) ([]domain.Material, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Material), args.Error(1)
}

func (m *MockMaterialRepository) Update(ctx context.Context, material domain.Material) (domain.Material, error) {
	args := m.Called(ctx, material)
	return args.Get(0).(domain.Material), args.Error(1)
}

func (m *MockMaterialRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMaterialRepository) FindBelowMinimum(ctx context.Context) ([]domain.Material, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Material), args.Error(1)
}

func (m *MockMaterialRepository) AdjustQuantity(ctx context.Context, movement domain.StockMovement) (domain.Material, error) {
	args := m.Called(ctx, movement)
	return args.Get(0).(domain.Material), args.Error(1)
}

// TestCreateMaterial_Success testa uma criação de material bem-sucedida.
func TestCreateMaterial_Success(t *testing.T) {
	mockRepo := new(MockMaterialRepository)
	mockLogger := logger.NewLogger("debug")

	svc := materialservice.NewService(mockRepo, mockLogger)

	input := domain.Material{
		Name:            "Cimento CP-II",
		Quantity:        100,
		MinimumQuantity: 20,
		Unit:            "saco",
		Supplier:        "Votorantim",
	}
	expected := input
	expected.ID = uuid.New().String()
	expected.CreatedAt = time.Now()
	expected.UpdatedAt = time.Now()

	mockRepo.On("Create", mock.AnythingOfType("context.backgroundCtx"), mock.AnythingOfType("domain.Material")).
		Return(expected, nil)

	ctx := context.Background()
	result, err := svc.CreateMaterial(ctx, input)

	assert.NoError(t, err)
	assert.Equal(t, expected.ID, result.ID)
	assert.Equal(t, expected.Name, result.Name)
	mockRepo.AssertExpectations(t)
}

// TestCreateMaterial_Fail_EmptyName testa a rejeição de um material sem nome.
func TestCreateMaterial_Fail_EmptyName(t *testing.T) {
	mockRepo := new(MockMaterialRepository)
	mockLogger := logger.NewLogger("debug")

	svc := materialservice.NewService(mockRepo, mockLogger)

	ctx := context.Background()
	_, err := svc.CreateMaterial(ctx, domain.Material{Name: "   ", Quantity: 10})

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// TestCreateMaterial_Fail_NegativeQuantity testa a rejeição de quantidade inicial negativa.
func TestCreateMaterial_Fail_NegativeQuantity(t *testing.T) {
	mockRepo := new(MockMaterialRepository)
	mockLogger := logger.NewLogger("debug")

	svc := materialservice.NewService(mockRepo, mockLogger)

	ctx := context.Background()
	_, err := svc.CreateMaterial(ctx, domain.Material{Name: "Areia", Quantity: -5})

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	assert.Contains(t, err.Error(), "negativa")
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// TestGetMaterialByID_Fail_InvalidID testa a validação de formato do ID.
func TestGetMaterialByID_Fail_InvalidID(t *testing.T) {
	mockRepo := new(MockMaterialRepository)
	mockLogger := logger.NewLogger("debug")

	svc := materialservice.NewService(mockRepo, mockLogger)

	ctx := context.Background()
	_, err := svc.GetMaterialByID(ctx, "123")

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	mockRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

// TestGetMaterialByID_Fail_NotFound testa que NotFound do repositório é propagado.
func TestGetMaterialByID_Fail_NotFound(t *testing.T) {
	mockRepo := new(MockMaterialRepository)
	mockLogger := logger.NewLogger("debug")

	svc := materialservice.NewService(mockRepo, mockLogger)

	materialID := uuid.New().String()
	mockRepo.On("FindByID", mock.AnythingOfType("context.backgroundCtx"), materialID).
		Return(domain.Material{}, apperror.NewNotFoundError("Material não encontrado."))

	ctx := context.Background()
	_, err := svc.GetMaterialByID(ctx, materialID)

	assert.Error(t, err)
	assert.IsType(t, &apperror.NotFoundError{}, err)
	mockRepo.AssertExpectations(t)
}

// TestReplenish_Success testa uma reposição de estoque bem-sucedida.
func TestReplenish_Success(t *testing.T) {
	mockRepo := new(MockMaterialRepository)
	mockLogger := logger.NewLogger("debug")

	svc := materialservice.NewService(mockRepo, mockLogger)

	materialID := uuid.New().String()
	actorID := uuid.New().String()

	updated := domain.Material{
		ID:              materialID,
		Name:            "Vergalhão 10mm",
		Quantity:        75,
		MinimumQuantity: 30,
	}

	// O serviço deve montar o movimento com o tipo de reposição
	mockRepo.On("AdjustQuantity", mock.AnythingOfType("context.backgroundCtx"),
		mock.MatchedBy(func(mv domain.StockMovement) bool {
			return mv.MaterialID == materialID &&
				mv.Delta == 25 &&
				mv.Kind == domain.MovementKindReplenishment &&
				mv.ActorID == actorID
		})).
		Return(updated, nil)

	ctx := context.Background()
	result, err := svc.Replenish(ctx, materialID, 25, actorID)

	assert.NoError(t, err)
	assert.Equal(t, updated.Quantity, result.Quantity)
	mockRepo.AssertExpectations(t)
}

// TestReplenish_Fail_NonPositiveQuantity testa que reposição exige delta positivo.
func TestReplenish_Fail_NonPositiveQuantity(t *testing.T) {
	mockRepo := new(MockMaterialRepository)
	mockLogger := logger.NewLogger("debug")

	svc := materialservice.NewService(mockRepo, mockLogger)

	ctx := context.Background()
	_, err := svc.Replenish(ctx, uuid.New().String(), 0, uuid.New().String())

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	assert.Contains(t, err.Error(), "maior que zero")
	mockRepo.AssertNotCalled(t, "AdjustQuantity", mock.Anything, mock.Anything)
}

// TestUpdateMaterial_Fail_NegativeMinimum testa a rejeição de estoque mínimo negativo.
func TestUpdateMaterial_Fail_NegativeMinimum(t *testing.T) {
	mockRepo := new(MockMaterialRepository)
	mockLogger := logger.NewLogger("debug")

	svc := materialservice.NewService(mockRepo, mockLogger)

	ctx := context.Background()
	_, err := svc.UpdateMaterial(ctx, domain.Material{
		ID:              uuid.New().String(),
		Name:            "Areia",
		MinimumQuantity: -1,
	})

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

// TestListBelowMinimum_Success testa a listagem de materiais abaixo do mínimo.
func TestListBelowMinimum_Success(t *testing.T) {
	mockRepo := new(MockMaterialRepository)
	mockLogger := logger.NewLogger("debug")

	svc := materialservice.NewService(mockRepo, mockLogger)

	below := []domain.Material{
		{ID: uuid.New().String(), Name: "Cimento CP-II", Quantity: 5, MinimumQuantity: 20},
	}

	mockRepo.On("FindBelowMinimum", mock.AnythingOfType("context.backgroundCtx")).
		Return(below, nil)

	ctx := context.Background()
	result, err := svc.ListBelowMinimum(ctx)

	assert.NoError(t, err)
	assert.Len(t, result, 1)
	assert.True(t, result[0].BelowMinimum())
	mockRepo.AssertExpectations(t)
}
