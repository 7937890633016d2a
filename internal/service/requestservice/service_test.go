package requestservice_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"matstock/internal/domain"
	apperror "matstock/internal/errors"
	"matstock/internal/pkg/logger"
	"matstock/internal/service/requestservice"
)

// MockRequestRepository é uma implementação mock da interface RequestRepository
type MockRequestRepository struct {
	mock.Mock
}

func (m *MockRequestRepository) Create(ctx context.Context, req domain.AssignmentRequest) (domain.AssignmentRequest, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.AssignmentRequest), args.Error(1)
}

func (m *MockRequestRepository) FindByID(ctx context.Context, id string) (domain.AssignmentRequest, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.AssignmentRequest), args.Error(1)
}

func (m *MockRequestRepository) FindByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.AssignmentRequest, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]domain.AssignmentRequest), args.Error(1)
}

func (m *MockRequestRepository) FindByUser(ctx context.Context, userID string) ([]domain.AssignmentRequest, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.AssignmentRequest), args.Error(1)
}

func (m *MockRequestRepository) FindAll(ctx context.Context) ([]domain.AssignmentRequest, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.AssignmentRequest), args.Error(1)
}

func (m *MockRequestRepository) Approve(ctx context.Context, id string) (domain.AssignmentRequest, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.AssignmentRequest), args.Error(1)
}

func (m *MockRequestRepository) Reject(ctx context.Context, id string, reason string) (domain.AssignmentRequest, error) {
	args := m.Called(ctx, id, reason)
	return args.Get(0).(domain.AssignmentRequest), args.Error(1)
}

// TestSubmit_Success testa uma submissão de requisição bem-sucedida.
func TestSubmit_Success(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	mockLogger := logger.NewLogger("debug")

	svc := requestservice.NewService(mockRepo, mockLogger)

	userID := uuid.New().String()
	materialID := uuid.New().String()

	expected := domain.AssignmentRequest{
		ID:          uuid.New().String(),
		UserID:      userID,
		MaterialID:  materialID,
		Quantity:    3,
		Status:      domain.StatusPending,
		RequestedAt: time.Now(),
	}

	mockRepo.On("Create", mock.AnythingOfType("context.backgroundCtx"), mock.AnythingOfType("domain.AssignmentRequest")).
		Return(expected, nil)

	ctx := context.Background()
	result, err := svc.Submit(ctx, userID, domain.RequestSubmission{
		MaterialID: materialID,
		Quantity:   3,
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusPending, result.Status)
	assert.Equal(t, userID, result.UserID)
	mockRepo.AssertExpectations(t)
}

// TestSubmit_Fail_NonPositiveQuantity testa a rejeição de quantidade não positiva.
func TestSubmit_Fail_NonPositiveQuantity(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	mockLogger := logger.NewLogger("debug")

	svc := requestservice.NewService(mockRepo, mockLogger)

	ctx := context.Background()
	_, err := svc.Submit(ctx, uuid.New().String(), domain.RequestSubmission{
		MaterialID: uuid.New().String(),
		Quantity:   0,
	})

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	assert.Contains(t, err.Error(), "maior que zero")
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// TestSubmit_Fail_InvalidMaterialID testa a rejeição de referência de material inválida.
func TestSubmit_Fail_InvalidMaterialID(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	mockLogger := logger.NewLogger("debug")

	svc := requestservice.NewService(mockRepo, mockLogger)

	ctx := context.Background()
	_, err := svc.Submit(ctx, uuid.New().String(), domain.RequestSubmission{
		MaterialID: "nao-e-um-uuid",
		Quantity:   1,
	})

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// TestSubmitBatch_PartialFailure testa que itens inválidos não impedem os demais.
func TestSubmitBatch_PartialFailure(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	mockLogger := logger.NewLogger("debug")

	svc := requestservice.NewService(mockRepo, mockLogger)

	userID := uuid.New().String()
	goodMaterial := uuid.New().String()

	created := domain.AssignmentRequest{
		ID:         uuid.New().String(),
		UserID:     userID,
		MaterialID: goodMaterial,
		Quantity:   2,
		Status:     domain.StatusPending,
	}

	// Apenas o item válido chega ao repositório
	mockRepo.On("Create", mock.AnythingOfType("context.backgroundCtx"), mock.AnythingOfType("domain.AssignmentRequest")).
		Return(created, nil).Once()

	ctx := context.Background()
	result, err := svc.SubmitBatch(ctx, userID, []domain.RequestSubmission{
		{MaterialID: goodMaterial, Quantity: 2},
		{MaterialID: goodMaterial, Quantity: -1}, // inválido
	})

	assert.NoError(t, err)
	assert.Len(t, result.Created, 1)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Index)
	mockRepo.AssertExpectations(t)
}

// TestSubmitBatch_Fail_EmptyBatch testa a rejeição de um lote vazio.
func TestSubmitBatch_Fail_EmptyBatch(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	mockLogger := logger.NewLogger("debug")

	svc := requestservice.NewService(mockRepo, mockLogger)

	ctx := context.Background()
	_, err := svc.SubmitBatch(ctx, uuid.New().String(), nil)

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
}

// TestApprove_Success testa a aprovação bem-sucedida de uma requisição PENDING.
func TestApprove_Success(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	mockLogger := logger.NewLogger("debug")

	svc := requestservice.NewService(mockRepo, mockLogger)

	requestID := uuid.New().String()
	approved := domain.AssignmentRequest{
		ID:         requestID,
		UserID:     uuid.New().String(),
		MaterialID: uuid.New().String(),
		Quantity:   4,
		Status:     domain.StatusApproved,
	}

	mockRepo.On("Approve", mock.AnythingOfType("context.backgroundCtx"), requestID).
		Return(approved, nil)

	ctx := context.Background()
	result, err := svc.Approve(ctx, requestID)

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, result.Status)
	mockRepo.AssertExpectations(t)
}

// TestApprove_Fail_InvalidID testa a rejeição de um ID malformado antes de tocar o repositório.
func TestApprove_Fail_InvalidID(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	mockLogger := logger.NewLogger("debug")

	svc := requestservice.NewService(mockRepo, mockLogger)

	ctx := context.Background()
	_, err := svc.Approve(ctx, "abc-123")

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	mockRepo.AssertNotCalled(t, "Approve", mock.Anything, mock.Anything)
}

// TestApprove_Fail_InvalidState testa que aprovar uma requisição já terminal
// devolve o erro de estado inválido sem mascará-lo.
func TestApprove_Fail_InvalidState(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	mockLogger := logger.NewLogger("debug")

	svc := requestservice.NewService(mockRepo, mockLogger)

	requestID := uuid.New().String()
	mockRepo.On("Approve", mock.AnythingOfType("context.backgroundCtx"), requestID).
		Return(domain.AssignmentRequest{}, apperror.NewInvalidStateError("A requisição não está mais pendente."))

	ctx := context.Background()
	_, err := svc.Approve(ctx, requestID)

	assert.Error(t, err)
	assert.IsType(t, &apperror.InvalidStateError{}, err)
	mockRepo.AssertExpectations(t)
}

// TestApprove_Fail_InsufficientStock testa que a falta de estoque chega tipada ao chamador.
func TestApprove_Fail_InsufficientStock(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	mockLogger := logger.NewLogger("debug")

	svc := requestservice.NewService(mockRepo, mockLogger)

	requestID := uuid.New().String()
	mockRepo.On("Approve", mock.AnythingOfType("context.backgroundCtx"), requestID).
		Return(domain.AssignmentRequest{}, apperror.NewInsufficientStockError("O débito deixaria o estoque negativo."))

	ctx := context.Background()
	_, err := svc.Approve(ctx, requestID)

	assert.Error(t, err)
	assert.IsType(t, &apperror.InsufficientStockError{}, err)
	assert.Contains(t, err.Error(), "negativo")
	mockRepo.AssertExpectations(t)
}

// TestReject_Success testa a rejeição bem-sucedida com motivo.
func TestReject_Success(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	mockLogger := logger.NewLogger("debug")

	svc := requestservice.NewService(mockRepo, mockLogger)

	requestID := uuid.New().String()
	rejected := domain.AssignmentRequest{
		ID:     requestID,
		Status: domain.StatusRejected,
		Notes:  "[REJECTED] Sem justificativa de uso.",
	}

	mockRepo.On("Reject", mock.AnythingOfType("context.backgroundCtx"), requestID, "Sem justificativa de uso.").
		Return(rejected, nil)

	ctx := context.Background()
	result, err := svc.Reject(ctx, requestID, "  Sem justificativa de uso.  ")

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, result.Status)
	mockRepo.AssertExpectations(t)
}

// TestReject_Fail_EmptyReason testa que o motivo da rejeição é obrigatório.
func TestReject_Fail_EmptyReason(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	mockLogger := logger.NewLogger("debug")

	svc := requestservice.NewService(mockRepo, mockLogger)

	ctx := context.Background()
	_, err := svc.Reject(ctx, uuid.New().String(), "   ")

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	mockRepo.AssertNotCalled(t, "Reject", mock.Anything, mock.Anything, mock.Anything)
}

// TestListByStatus_Fail_UnknownStatus testa a rejeição de um status desconhecido.
func TestListByStatus_Fail_UnknownStatus(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	mockLogger := logger.NewLogger("debug")

	svc := requestservice.NewService(mockRepo, mockLogger)

	ctx := context.Background()
	_, err := svc.ListByStatus(ctx, domain.RequestStatus("CANCELLED"))

	assert.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	mockRepo.AssertNotCalled(t, "FindByStatus", mock.Anything, mock.Anything)
}

// TestListByStatus_Success testa a listagem filtrada por status.
func TestListByStatus_Success(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	mockLogger := logger.NewLogger("debug")

	svc := requestservice.NewService(mockRepo, mockLogger)

	pending := []domain.AssignmentRequest{
		{ID: uuid.New().String(), Status: domain.StatusPending},
		{ID: uuid.New().String(), Status: domain.StatusPending},
	}

	mockRepo.On("FindByStatus", mock.AnythingOfType("context.backgroundCtx"), domain.StatusPending).
		Return(pending, nil)

	ctx := context.Background()
	result, err := svc.ListByStatus(ctx, domain.StatusPending)

	assert.NoError(t, err)
	assert.Len(t, result, 2)
	mockRepo.AssertExpectations(t)
}

// TestGetRequestByID_Fail_RepoError testa que erros do repositório são propagados.
func TestGetRequestByID_Fail_RepoError(t *testing.T) {
	mockRepo := new(MockRequestRepository)
	mockLogger := logger.NewLogger("debug")

	svc := requestservice.NewService(mockRepo, mockLogger)

	requestID := uuid.New().String()
	repoError := errors.New("falha de conexão com o DB")
	mockRepo.On("FindByID", mock.AnythingOfType("context.backgroundCtx"), requestID).
		Return(domain.AssignmentRequest{}, repoError)

	ctx := context.Background()
	_, err := svc.GetRequestByID(ctx, requestID)

	assert.Error(t, err)
	assert.Equal(t, repoError, err)
	mockRepo.AssertExpectations(t)
}
