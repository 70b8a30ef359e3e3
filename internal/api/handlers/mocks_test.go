package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"realtyhub/backend/internal/auth"
	"realtyhub/backend/internal/models"
	"realtyhub/backend/internal/services"
	"realtyhub/backend/internal/workflow"
)

// --- Mocks ---

type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) Transition(ctx context.Context, session *auth.Session, kind models.RecordKind, id string, req services.TransitionRequest) (models.Record, error) {
	args := m.Called(ctx, session, kind, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.Record), args.Error(1)
}

func (m *MockReviewService) AssignLead(ctx context.Context, session *auth.Session, leadID, assigneeUID string) (*models.Lead, error) {
	args := m.Called(ctx, session, leadID, assigneeUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

func (m *MockReviewService) Delete(ctx context.Context, session *auth.Session, kind models.RecordKind, id string) error {
	return m.Called(ctx, session, kind, id).Error(0)
}

func (m *MockReviewService) SubmitApplication(ctx context.Context, session *auth.Session, app *models.Application) (*models.Application, error) {
	args := m.Called(ctx, session, app)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *MockReviewService) SubmitLead(ctx context.Context, session *auth.Session, lead *models.Lead) (*models.Lead, error) {
	args := m.Called(ctx, session, lead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

func (m *MockReviewService) CreateProperty(ctx context.Context, session *auth.Session, p *models.Property) (*models.Property, error) {
	args := m.Called(ctx, session, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockReviewService) Workflow() *workflow.Table {
	return m.Called().Get(0).(*workflow.Table)
}

// MockApplicationService only implements the calls handlers make.
type MockApplicationService struct {
	services.IApplicationService
	mock.Mock
}

func (m *MockApplicationService) List(ctx context.Context, f services.RecordFilter) ([]models.Application, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.Application), args.Error(1)
}

type MockLeadService struct {
	services.ILeadService
	mock.Mock
}

func (m *MockLeadService) List(ctx context.Context, f services.RecordFilter) ([]models.Lead, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.Lead), args.Error(1)
}

type MockPropertyService struct {
	services.IPropertyService
	mock.Mock
}

func (m *MockPropertyService) List(ctx context.Context, f services.RecordFilter) ([]models.Property, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.Property), args.Error(1)
}

func (m *MockPropertyService) ListPublic(ctx context.Context, f services.RecordFilter) ([]models.Property, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.Property), args.Error(1)
}

func (m *MockPropertyService) FindPublic(ctx context.Context, id string) (*models.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

type MockUserService struct {
	services.IUserService
	mock.Mock
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) List(ctx context.Context, role string, limit int) ([]models.User, error) {
	args := m.Called(ctx, role, limit)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserService) CreateUser(ctx context.Context, session *auth.Session, in services.NewUserInput) (*models.User, error) {
	args := m.Called(ctx, session, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) DeleteAccountData(ctx context.Context, session *auth.Session, userID string) error {
	return m.Called(ctx, session, userID).Error(0)
}

type MockRoleService struct {
	mock.Mock
}

func (m *MockRoleService) ListRoles(ctx context.Context) ([]models.Role, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Role), args.Error(1)
}

func (m *MockRoleService) GetRole(ctx context.Context, name string) (*models.Role, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Role), args.Error(1)
}

func (m *MockRoleService) UpsertRole(ctx context.Context, session *auth.Session, name string, permissions []string) (*models.Role, error) {
	args := m.Called(ctx, session, name, permissions)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Role), args.Error(1)
}

func (m *MockRoleService) DeleteRole(ctx context.Context, session *auth.Session, name string) error {
	return m.Called(ctx, session, name).Error(0)
}

func (m *MockRoleService) PermissionsFor(ctx context.Context, role, email string) (string, []string, error) {
	args := m.Called(ctx, role, email)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).([]string), args.Error(2)
}

type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Log(ctx context.Context, session *auth.Session, action, target, targetID string, metadata map[string]interface{}) {
	m.Called(ctx, session, action, target, targetID, metadata)
}

func (m *MockAuditService) List(ctx context.Context, f services.AuditFilter) ([]models.AuditLog, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.AuditLog), args.Error(1)
}

type MockMediaService struct {
	mock.Mock
}

func (m *MockMediaService) UploadURL(ctx context.Context, session *auth.Session, propertyID, filename, contentType string) (*services.UploadTarget, error) {
	args := m.Called(ctx, session, propertyID, filename, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.UploadTarget), args.Error(1)
}

func (m *MockMediaService) QueueImage(ctx context.Context, session *auth.Session, propertyID, key string) (string, error) {
	args := m.Called(ctx, session, propertyID, key)
	return args.String(0), args.Error(1)
}
