package tasks_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"realtyhub/backend/internal/config"
	"realtyhub/backend/internal/email"
	"realtyhub/backend/internal/events"
	"realtyhub/backend/internal/models"
	"realtyhub/backend/internal/queue"
	"realtyhub/backend/internal/services"
	"realtyhub/backend/internal/storage"
	"realtyhub/backend/internal/tasks"
)

// --- Mocks ---

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, msg *email.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type MockEmailTemplateService struct {
	mock.Mock
}

func (m *MockEmailTemplateService) GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	args := m.Called(ctx, templateID, locale)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailTemplate), args.Error(1)
}

func (m *MockEmailTemplateService) Render(ctx context.Context, templateID, locale string, data map[string]interface{}) (*services.RenderedEmail, error) {
	args := m.Called(ctx, templateID, locale, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.RenderedEmail), args.Error(1)
}

func (m *MockEmailTemplateService) SaveTemplate(ctx context.Context, template *models.EmailTemplate) error {
	return m.Called(ctx, template).Error(0)
}

func (m *MockEmailTemplateService) DeleteTemplate(ctx context.Context, templateID, locale string) error {
	return m.Called(ctx, templateID, locale).Error(0)
}

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GeneratePresignedPutURL(ctx context.Context, ownerID, propertyID, filename, contentType string) (string, string, error) {
	args := m.Called(ctx, ownerID, propertyID, filename, contentType)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockStorage) GetObject(ctx context.Context, key string) ([]byte, string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

func (m *MockStorage) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	return m.Called(ctx, key, data, contentType).Error(0)
}

// MockPropertyService covers the calls the image handler makes.
type MockPropertyService struct {
	services.IPropertyService
	mock.Mock
}

func (m *MockPropertyService) FindByID(ctx context.Context, id string) (*models.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) AddImage(ctx context.Context, id, key string) (*models.Property, error) {
	args := m.Called(ctx, id, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

type recordingPublisher struct {
	events []events.RecordEvent
}

func (r *recordingPublisher) Publish(_ context.Context, evt events.RecordEvent) error {
	r.events = append(r.events, evt)
	return nil
}

// --- Email ---

func emailTask(t *testing.T, p queue.EmailPayload) *asynq.Task {
	t.Helper()
	task, err := queue.NewEmailDeliveryTask(p)
	require.NoError(t, err)
	return task
}

func TestHandleEmailDeliveryTask_Success(t *testing.T) {
	sender := new(MockEmailSender)
	templates := new(MockEmailTemplateService)
	cfg := &config.Config{EmailFromAddress: "noreply@realtyhub.example.com"}
	p := tasks.NewTaskProcessor(cfg, sender, templates, nil, nil, nil)

	data := map[string]interface{}{"Name": "Jane"}
	templates.On("Render", mock.Anything, "application_approved", "", data).
		Return(&services.RenderedEmail{Subject: "Welcome Jane", HTML: "<p>Hi Jane</p>", Text: "Hi Jane"}, nil)
	sender.On("Send", mock.Anything, mock.MatchedBy(func(msg *email.Message) bool {
		return msg.From == cfg.EmailFromAddress &&
			len(msg.To) == 1 && msg.To[0] == "jane@example.com" &&
			msg.Subject == "Welcome Jane" &&
			msg.HTML == "<p>Hi Jane</p>" &&
			msg.Tag == "application_approved"
	})).Return(nil)

	err := p.HandleEmailDeliveryTask(context.Background(), emailTask(t, queue.EmailPayload{
		To: "jane@example.com", TemplateID: "application_approved", Data: data,
	}))

	assert.NoError(t, err)
	templates.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestHandleEmailDeliveryTask_TemplateNotFound(t *testing.T) {
	sender := new(MockEmailSender)
	templates := new(MockEmailTemplateService)
	p := tasks.NewTaskProcessor(&config.Config{}, sender, templates, nil, nil, nil)

	templates.On("Render", mock.Anything, "nonexistent_template", "en-US", mock.Anything).Return(nil, services.ErrNotFound)

	err := p.HandleEmailDeliveryTask(context.Background(), emailTask(t, queue.EmailPayload{
		To: "test@example.com", TemplateID: "nonexistent_template", Locale: "en-US",
	}))

	assert.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry), "Error should be SkipRetry for template not found")
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestHandleEmailDeliveryTask_DeliveryFailureIsNotRetried(t *testing.T) {
	sender := new(MockEmailSender)
	templates := new(MockEmailTemplateService)
	p := tasks.NewTaskProcessor(&config.Config{EmailFromAddress: "a@b.c"}, sender, templates, nil, nil, nil)

	templates.On("Render", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&services.RenderedEmail{Subject: "s", Text: "t"}, nil)
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("all email providers failed"))

	err := p.HandleEmailDeliveryTask(context.Background(), emailTask(t, queue.EmailPayload{To: "x@example.com", TemplateID: "lead_received"}))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleEmailDeliveryTask_BadPayload(t *testing.T) {
	p := tasks.NewTaskProcessor(&config.Config{}, nil, nil, nil, nil, nil)
	err := p.HandleEmailDeliveryTask(context.Background(), asynq.NewTask(queue.TypeEmailDelivery, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

// --- Images ---

const (
	ownerUID   = "0000000B01"
	propertyID = "00000000P1"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func imageTask(t *testing.T, key string) *asynq.Task {
	t.Helper()
	task, err := queue.NewImageProcessTask(queue.ImagePayload{S3Key: key, PropertyID: propertyID})
	require.NoError(t, err)
	return task
}

type imageFixture struct {
	store *MockStorage
	props *MockPropertyService
	pub   *recordingPublisher
	p     *tasks.TaskProcessor
}

func newImageFixture(maxDim int) *imageFixture {
	f := &imageFixture{store: new(MockStorage), props: new(MockPropertyService), pub: &recordingPublisher{}}
	f.props.On("FindByID", mock.Anything, propertyID).Return(&models.Property{
		Base:   models.Base{ID: propertyID},
		Owner:  models.Assignee{UID: ownerUID},
		Status: models.PropertyApproved,
	}, nil)
	cfg := &config.Config{ImageMaxDimension: maxDim, ImageMaxSizeMB: 1}
	f.p = tasks.NewTaskProcessor(cfg, nil, nil, f.store, f.props, f.pub)
	return f
}

func TestHandleImageProcessTask_ResizesLargeImage(t *testing.T) {
	f := newImageFixture(32)
	key := storage.PropertyKeyPrefix(ownerUID, propertyID) + "abc_photo.png"
	f.store.On("GetObject", mock.Anything, key).Return(pngBytes(t, 128, 64), "image/png", nil)
	f.store.On("PutObject", mock.Anything, key, mock.MatchedBy(func(b []byte) bool {
		cfg, format, err := image.DecodeConfig(bytes.NewReader(b))
		return err == nil && format == "jpeg" && cfg.Width == 32 && cfg.Height == 16
	}), "image/jpeg").Return(nil)
	f.props.On("AddImage", mock.Anything, propertyID, key).Return(&models.Property{}, nil)

	require.NoError(t, f.p.HandleImageProcessTask(context.Background(), imageTask(t, key)))

	f.store.AssertExpectations(t)
	f.props.AssertExpectations(t)
	require.Len(t, f.pub.events, 1)
	assert.Equal(t, events.ActionImage, f.pub.events[0].Action)
	assert.Equal(t, models.KindProperty, f.pub.events[0].Kind)
}

func TestHandleImageProcessTask_SmallImageKept(t *testing.T) {
	f := newImageFixture(256)
	key := storage.PropertyKeyPrefix(ownerUID, propertyID) + "abc_photo.png"
	f.store.On("GetObject", mock.Anything, key).Return(pngBytes(t, 64, 64), "image/png", nil)
	f.props.On("AddImage", mock.Anything, propertyID, key).Return(&models.Property{}, nil)

	require.NoError(t, f.p.HandleImageProcessTask(context.Background(), imageTask(t, key)))
	f.store.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleImageProcessTask_Rejections(t *testing.T) {
	t.Run("foreign key", func(t *testing.T) {
		f := newImageFixture(256)
		err := f.p.HandleImageProcessTask(context.Background(), imageTask(t, "properties/0000000C01/00000000P9/x.png"))
		assert.ErrorIs(t, err, asynq.SkipRetry)
		f.store.AssertNotCalled(t, "GetObject", mock.Anything, mock.Anything)
	})

	t.Run("missing object", func(t *testing.T) {
		f := newImageFixture(256)
		key := storage.PropertyKeyPrefix(ownerUID, propertyID) + "gone.png"
		f.store.On("GetObject", mock.Anything, key).Return(nil, "", storage.ErrObjectNotFound)
		assert.ErrorIs(t, f.p.HandleImageProcessTask(context.Background(), imageTask(t, key)), asynq.SkipRetry)
	})

	t.Run("corrupt image", func(t *testing.T) {
		f := newImageFixture(256)
		key := storage.PropertyKeyPrefix(ownerUID, propertyID) + "bad.png"
		f.store.On("GetObject", mock.Anything, key).Return([]byte("not an image"), "image/png", nil)
		assert.ErrorIs(t, f.p.HandleImageProcessTask(context.Background(), imageTask(t, key)), asynq.SkipRetry)
		f.props.AssertNotCalled(t, "AddImage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("too large", func(t *testing.T) {
		f := newImageFixture(256)
		key := storage.PropertyKeyPrefix(ownerUID, propertyID) + "big.png"
		f.store.On("GetObject", mock.Anything, key).Return(make([]byte, 2*1024*1024), "image/png", nil)
		assert.ErrorIs(t, f.p.HandleImageProcessTask(context.Background(), imageTask(t, key)), asynq.SkipRetry)
	})

	t.Run("transient storage error is retried", func(t *testing.T) {
		f := newImageFixture(256)
		key := storage.PropertyKeyPrefix(ownerUID, propertyID) + "x.png"
		f.store.On("GetObject", mock.Anything, key).Return(nil, "", errors.New("timeout"))
		err := f.p.HandleImageProcessTask(context.Background(), imageTask(t, key))
		require.Error(t, err)
		assert.False(t, errors.Is(err, asynq.SkipRetry))
	})
}
