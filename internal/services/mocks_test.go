package services

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"realtyhub/backend/internal/auth"
	"realtyhub/backend/internal/events"
	"realtyhub/backend/internal/models"
)

func ctxBG() context.Context { return context.Background() }

// --- record stores ---

type MockApplicationService struct{ mock.Mock }

func (m *MockApplicationService) Kind() models.RecordKind { return models.KindApplication }

func (m *MockApplicationService) GetRecord(ctx context.Context, id string) (models.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.Record), args.Error(1)
}

func (m *MockApplicationService) UpdateStatus(ctx context.Context, id string, from models.Status, change models.StatusChange) (models.Record, error) {
	args := m.Called(ctx, id, from, change)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.Record), args.Error(1)
}

func (m *MockApplicationService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockApplicationService) Create(ctx context.Context, app *models.Application) (*models.Application, error) {
	args := m.Called(ctx, app)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *MockApplicationService) FindByID(ctx context.Context, id string) (*models.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *MockApplicationService) List(ctx context.Context, f RecordFilter) ([]models.Application, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.Application), args.Error(1)
}

type MockLeadService struct{ mock.Mock }

func (m *MockLeadService) Kind() models.RecordKind { return models.KindLead }

func (m *MockLeadService) GetRecord(ctx context.Context, id string) (models.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.Record), args.Error(1)
}

func (m *MockLeadService) UpdateStatus(ctx context.Context, id string, from models.Status, change models.StatusChange) (models.Record, error) {
	args := m.Called(ctx, id, from, change)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.Record), args.Error(1)
}

func (m *MockLeadService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockLeadService) Create(ctx context.Context, lead *models.Lead) (*models.Lead, error) {
	args := m.Called(ctx, lead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

func (m *MockLeadService) FindByID(ctx context.Context, id string) (*models.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

func (m *MockLeadService) List(ctx context.Context, f RecordFilter) ([]models.Lead, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.Lead), args.Error(1)
}

func (m *MockLeadService) Assign(ctx context.Context, id string, from models.Status, assignee models.Assignee, status models.Status, at time.Time) (*models.Lead, error) {
	args := m.Called(ctx, id, from, assignee, status, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

func (m *MockLeadService) UnassignUser(ctx context.Context, uid string) (int64, error) {
	args := m.Called(ctx, uid)
	return args.Get(0).(int64), args.Error(1)
}

type MockPropertyService struct{ mock.Mock }

func (m *MockPropertyService) Kind() models.RecordKind { return models.KindProperty }

func (m *MockPropertyService) GetRecord(ctx context.Context, id string) (models.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.Record), args.Error(1)
}

func (m *MockPropertyService) UpdateStatus(ctx context.Context, id string, from models.Status, change models.StatusChange) (models.Record, error) {
	args := m.Called(ctx, id, from, change)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.Record), args.Error(1)
}

func (m *MockPropertyService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPropertyService) Create(ctx context.Context, p *models.Property) (*models.Property, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) FindByID(ctx context.Context, id string) (*models.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) FindPublic(ctx context.Context, id string) (*models.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) List(ctx context.Context, f RecordFilter) ([]models.Property, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.Property), args.Error(1)
}

func (m *MockPropertyService) ListPublic(ctx context.Context, f RecordFilter) ([]models.Property, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.Property), args.Error(1)
}

func (m *MockPropertyService) AddImage(ctx context.Context, id, key string) (*models.Property, error) {
	args := m.Called(ctx, id, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) DeleteByOwner(ctx context.Context, ownerUID string) (int64, error) {
	args := m.Called(ctx, ownerUID)
	return args.Get(0).(int64), args.Error(1)
}

// --- collaborators ---

type MockUserService struct{ mock.Mock }

func (m *MockUserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) List(ctx context.Context, role string, limit int) ([]models.User, error) {
	args := m.Called(ctx, role, limit)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) IsActive(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserService) CreateUser(ctx context.Context, session *auth.Session, in NewUserInput) (*models.User, error) {
	args := m.Called(ctx, session, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) EnsureUser(ctx context.Context, in NewUserInput) (*models.User, bool, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

func (m *MockUserService) DeleteAccountData(ctx context.Context, session *auth.Session, userID string) error {
	return m.Called(ctx, session, userID).Error(0)
}

type MockAuditService struct{ mock.Mock }

func (m *MockAuditService) Log(ctx context.Context, session *auth.Session, action, target, targetID string, metadata map[string]interface{}) {
	m.Called(ctx, session, action, target, targetID, metadata)
}

func (m *MockAuditService) List(ctx context.Context, f AuditFilter) ([]models.AuditLog, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.AuditLog), args.Error(1)
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) Notify(ctx context.Context, event NotificationEvent, to models.Contact, data map[string]interface{}) {
	m.Called(ctx, event, to, data)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) Publish(ctx context.Context, evt events.RecordEvent) error {
	return m.Called(ctx, evt).Error(0)
}

type MockEnqueuer struct{ mock.Mock }

func (m *MockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

type MockS3Storage struct{ mock.Mock }

func (m *MockS3Storage) GeneratePresignedPutURL(ctx context.Context, ownerID, propertyID, filename, contentType string) (string, string, error) {
	args := m.Called(ctx, ownerID, propertyID, filename, contentType)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockS3Storage) GetObject(ctx context.Context, key string) ([]byte, string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

func (m *MockS3Storage) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	return m.Called(ctx, key, data, contentType).Error(0)
}
