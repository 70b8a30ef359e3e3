package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"realtyhub/backend/internal/api/handlers"
	"realtyhub/backend/internal/auth"
	"realtyhub/backend/internal/models"
	"realtyhub/backend/internal/services"
)

type propertyFixture struct {
	review *MockReviewService
	props  *MockPropertyService
	media  *MockMediaService
	engine http.Handler
}

func newPropertyFixture(session *auth.Session) *propertyFixture {
	f := &propertyFixture{
		review: new(MockReviewService),
		props:  new(MockPropertyService),
		media:  new(MockMediaService),
	}
	h := handlers.NewPropertyHandler(f.review, f.props, f.media)
	r := newEngine(session)
	r.POST("/api/properties", h.Create)
	r.GET("/api/my/properties", h.Mine)
	r.POST("/api/properties/:id/upload-url", h.UploadURL)
	r.POST("/api/properties/:id/images", h.QueueImage)
	f.engine = r
	return f
}

func broker() *auth.Session {
	return sessionWith("0000000B01", auth.RoleBroker, auth.BuiltInRoles()[auth.RoleBroker]...)
}

func TestCreateProperty(t *testing.T) {
	f := newPropertyFixture(broker())
	f.review.On("CreateProperty", mock.Anything, broker(), mock.MatchedBy(func(p *models.Property) bool {
		return p.Title == "Sea view"
	})).Return(&models.Property{Base: models.Base{ID: "00000000P1"}, Title: "Sea view", Status: models.PropertyPending}, nil)

	w := doJSON(f.engine, http.MethodPost, "/api/properties", map[string]interface{}{"title": "Sea view", "status": "approved"})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p models.Property
	decodeData(t, w, &p)
	assert.Equal(t, models.PropertyPending, p.Status)
}

func TestMyProperties_ScopedToCaller(t *testing.T) {
	f := newPropertyFixture(broker())
	f.props.On("List", mock.Anything, services.RecordFilter{OwnerID: "0000000B01"}).Return([]models.Property{}, nil)

	// owner_id from the query string is overridden by the session.
	w := doJSON(f.engine, http.MethodGet, "/api/my/properties?owner_id=0000000X99", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	f.props.AssertExpectations(t)
}

func TestUploadURL(t *testing.T) {
	f := newPropertyFixture(broker())
	f.media.On("UploadURL", mock.Anything, broker(), "00000000P1", "front.jpg", "image/jpeg").
		Return(&services.UploadTarget{URL: "https://s3.example.com/signed", Key: "properties/0000000B01/00000000P1/abc.jpg"}, nil)
	f.media.On("UploadURL", mock.Anything, broker(), "00000000P1", "doc.pdf", "application/pdf").
		Return(nil, services.ErrValidation)

	w := doJSON(f.engine, http.MethodPost, "/api/properties/00000000P1/upload-url", map[string]string{
		"filename": "front.jpg", "content_type": "image/jpeg",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var target services.UploadTarget
	decodeData(t, w, &target)
	assert.Equal(t, "https://s3.example.com/signed", target.URL)

	w = doJSON(f.engine, http.MethodPost, "/api/properties/00000000P1/upload-url", map[string]string{
		"filename": "doc.pdf", "content_type": "application/pdf",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueueImage(t *testing.T) {
	f := newPropertyFixture(broker())
	key := "properties/0000000B01/00000000P1/abc.jpg"
	f.media.On("QueueImage", mock.Anything, broker(), "00000000P1", key).Return("task-1", nil)
	f.media.On("QueueImage", mock.Anything, broker(), "00000000P9", key).Return("", services.ErrForbidden)

	w := doJSON(f.engine, http.MethodPost, "/api/properties/00000000P1/images", map[string]string{"object_key": key})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var body map[string]string
	decodeData(t, w, &body)
	assert.Equal(t, "task-1", body["task_id"])
	assert.Equal(t, key, body["object_key"])

	w = doJSON(f.engine, http.MethodPost, "/api/properties/00000000P9/images", map[string]string{"object_key": key})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
