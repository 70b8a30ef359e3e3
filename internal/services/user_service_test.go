package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"realtyhub/backend/internal/auth"
	"realtyhub/backend/internal/db"
	"realtyhub/backend/internal/models"
	"realtyhub/backend/internal/utils"
)

type userFixture struct {
	svc   IUserService
	leads ILeadService
	props IPropertyService
	audit *MockAuditService
}

func newUserFixture(t *testing.T) *userFixture {
	database := utils.SetupTestDB(t, "realtyhub_test_users", db.UsersCollection, db.LeadsCollection, db.PropertiesCollection)
	require.NoError(t, db.EnsureIndexes(database, db.DefaultIndexes()))
	audit := new(MockAuditService)
	audit.On("Log", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()
	leads := NewLeadService(database, testLimits)
	props := NewPropertyService(database, testLimits)
	return &userFixture{
		svc:   NewUserService(database, leads, props, audit, testLimits),
		leads: leads,
		props: props,
		audit: audit,
	}
}

func TestCreateUser_Validation(t *testing.T) {
	svc := NewUserService(nil, nil, nil, new(MockAuditService), testLimits)

	_, err := svc.CreateUser(ctxBG(), reviewerSession(), NewUserInput{Name: "A", Email: "a@example.com", Password: "longenough"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.CreateUser(ctxBG(), adminSession(), NewUserInput{Name: "A", Email: "not-an-email", Password: "longenough"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateUser(ctxBG(), adminSession(), NewUserInput{Name: "A", Email: "a@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrValidation)

	manager := sessionWith("0000000M01", "manager", auth.PermRolesManage)
	_, err = svc.CreateUser(ctxBG(), manager, NewUserInput{Name: "A", Email: "a@example.com", Password: "longenough", Role: auth.RoleSuperAdmin})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUserService_CreateAuthenticate(t *testing.T) {
	f := newUserFixture(t)

	user, err := f.svc.CreateUser(ctxBG(), adminSession(), NewUserInput{Name: " Ana ", Email: "Ana@Example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, auth.RoleAgent, user.Role)

	_, err = f.svc.CreateUser(ctxBG(), adminSession(), NewUserInput{Name: "Dup", Email: "ana@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrEmailExists)

	got, err := f.svc.Authenticate(ctxBG(), "ANA@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = f.svc.Authenticate(ctxBG(), "ana@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Authenticate(ctxBG(), "ghost@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	agents, err := f.svc.List(ctxBG(), auth.RoleAgent, 0)
	require.NoError(t, err)
	assert.Len(t, agents, 1)
}

func TestEnsureUser_Idempotent(t *testing.T) {
	f := newUserFixture(t)
	in := NewUserInput{Name: "Root", Email: "root@example.com", Password: "bootstrap-pass", Role: auth.RoleSuperAdmin}

	first, created, err := f.svc.EnsureUser(ctxBG(), in)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := f.svc.EnsureUser(ctxBG(), in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestDeleteAccountData(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	user, _, err := f.svc.EnsureUser(ctx, NewUserInput{Name: "Bob", Email: "bob@example.com", Password: "bob-password", Role: auth.RoleBroker})
	require.NoError(t, err)
	active, err := f.svc.IsActive(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, active)

	_, err = f.props.Create(ctx, &models.Property{Owner: user.Snapshot(), Title: "Loft", City: "Lisbon"})
	require.NoError(t, err)
	lead, err := f.leads.Create(ctx, &models.Lead{Contact: models.Contact{Name: "C", Email: "c@example.com"}, Source: models.LeadSourceContactForm})
	require.NoError(t, err)
	_, err = f.leads.Assign(ctx, lead.ID, models.LeadNew, user.Snapshot(), models.LeadAssigned, lead.CreatedAt)
	require.NoError(t, err)

	stranger := sessionWith("0000000X01", auth.RoleBroker, auth.BuiltInRoles()[auth.RoleBroker]...)
	assert.ErrorIs(t, f.svc.DeleteAccountData(ctx, stranger, user.ID), ErrForbidden)

	self := sessionWith(user.ID, auth.RoleBroker, auth.BuiltInRoles()[auth.RoleBroker]...)
	require.NoError(t, f.svc.DeleteAccountData(ctx, self, user.ID))

	_, err = f.svc.FindByID(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	active, err = f.svc.IsActive(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, active, "tokens of deleted accounts stop working")
	owned, err := f.props.List(ctx, RecordFilter{OwnerID: user.ID})
	require.NoError(t, err)
	assert.Empty(t, owned)
	back, err := f.leads.FindByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Nil(t, back.AssignedTo)
	assert.Equal(t, models.LeadNew, back.Status)

	f.audit.AssertCalled(t, "Log", mock.Anything, self, "account.delete", db.UsersCollection, user.ID, mock.Anything)
}
