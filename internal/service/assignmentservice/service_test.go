package assignmentservice_test

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
	"matstock/internal/service/assignmentservice"
)

// MockAssignmentRepository é uma implementação mock da interface AssignmentRepository
type MockAssignmentRepository struct {
	mock.Mock
}

func (m *MockAssignmentRepository) Create(ctx context.Context, a domain.Assignment) (domain.Assignment, error) {
	args := m.Called(ctx, a)
	return args.Get(0).(domain.Assignment), args.Error(1)
}

func (m *MockAssignmentRepository) FindByUser(ctx context.Context, userID string) ([]domain.Assignment, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Assignment), args.Error(1)
}

func (m *MockAssignmentRepository) FindAll(ctx context.Context) ([]domain.Assignment, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Assignment), args.Error(1)
}

// TestAssign_Success testa uma atribuição direta bem-sucedida.
func TestAssign_Success(t *testing.T) {
	mockRepo := new(MockAssignmentRepository)
	mockLogger := logger.NewLogger("debug")

	svc := assignmentservice.NewService(mockRepo, mockLogger)

	userID := uuid.New().String()
	materialID := uuid.New().String()

	expected := domain.Assignment{
		ID:         uuid.New().String(),
		UserID:     userID,
		MaterialID: materialID,
		Quantity:   2,
		Status:     domain.AssignmentStatusCompleted,
		AssignedAt: time.Now(),
	}

	mockRepo.On("Create", mock.AnythingOfType("context.backgroundCtx"), mock.AnythingOfType("domain.Assignment")).
		Return(expected, nil)

	ctx := context.Background()
	result, err := svc.Assign(ctx, userID, domain.DirectAssignmentRequest{
		MaterialID: materialID,
		Quantity:   2,
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.AssignmentStatusCompleted, result.Status)
	assert.Equal(t, userID, result.UserID)
	mockRepo.AssertExpectations(t)
}

// TestAssign_Fail_NonPositiveQuantity testa a rejeição de quantidade não positiva.
func TestAssign_Fail_NonPositiveQuantity(t *testing.T) {
	mockRepo := new(MockAssignmentRepository)
	mockLogger := logger.NewLogger("debug")

	svc := assignmentservice.NewService(mockRepo, mockLogger)

	ctx := context.Background()
	_, err := svc.Assign(ctx, uuid.New().String(), domain.DirectAssignmentRequest{
		MaterialID: uuid.New().String(),
		Quantity:   -3,
	})

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// TestAssign_Fail_InsufficientStock testa que a falta de estoque chega tipada
// do Ledger, com a transação já desfeita no repositório.
func TestAssign_Fail_InsufficientStock(t *testing.T) {
	mockRepo := new(MockAssignmentRepository)
	mockLogger := logger.NewLogger("debug")

	svc := assignmentservice.NewService(mockRepo, mockLogger)

	mockRepo.On("Create", mock.AnythingOfType("context.backgroundCtx"), mock.AnythingOfType("domain.Assignment")).
		Return(domain.Assignment{}, apperror.NewInsufficientStockError("O débito deixaria o estoque negativo."))

	ctx := context.Background()
	_, err := svc.Assign(ctx, uuid.New().String(), domain.DirectAssignmentRequest{
		MaterialID: uuid.New().String(),
		Quantity:   50,
	})

	assert.Error(t, err)
	assert.IsType(t, &apperror.InsufficientStockError{}, err)
	mockRepo.AssertExpectations(t)
}

// TestListByUser_Fail_EmptyUser testa que a referência de usuário é obrigatória.
func TestListByUser_Fail_EmptyUser(t *testing.T) {
	mockRepo := new(MockAssignmentRepository)
	mockLogger := logger.NewLogger("debug")

	svc := assignmentservice.NewService(mockRepo, mockLogger)

	ctx := context.Background()
	_, err := svc.ListByUser(ctx, "  ")

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	mockRepo.AssertNotCalled(t, "FindByUser", mock.Anything, mock.Anything)
}

// TestListByUser_Success testa a listagem das atribuições de um usuário.
func TestListByUser_Success(t *testing.T) {
	mockRepo := new(MockAssignmentRepository)
	mockLogger := logger.NewLogger("debug")

	svc := assignmentservice.NewService(mockRepo, mockLogger)

	userID := uuid.New().String()
	assignments := []domain.Assignment{
		{ID: uuid.New().String(), UserID: userID, Quantity: 1},
		{ID: uuid.New().String(), UserID: userID, Quantity: 3},
	}

	mockRepo.On("FindByUser", mock.AnythingOfType("context.backgroundCtx"), userID).
		Return(assignments, nil)

	ctx := context.Background()
	result, err := svc.ListByUser(ctx, userID)

	assert.NoError(t, err)
	assert.Len(t, result, 2)
	mockRepo.AssertExpectations(t)
}
