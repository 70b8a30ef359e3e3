package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"realtyhub/backend/internal/auth"
	"realtyhub/backend/internal/db"
	"realtyhub/backend/internal/models"
)

// NewUserInput is the payload for creating a dashboard account.
type NewUserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// IUserService defines the interface for user-related operations.
type IUserService interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, userID string) (*models.User, error)
	List(ctx context.Context, role string, limit int) ([]models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	// IsActive reports whether the account still exists and is not disabled.
	IsActive(ctx context.Context, userID string) (bool, error)
	CreateUser(ctx context.Context, session *auth.Session, in NewUserInput) (*models.User, error)
	// EnsureUser creates the account if no user has that email. Used at start-up.
	EnsureUser(ctx context.Context, in NewUserInput) (*models.User, bool, error)
	// DeleteAccountData removes the user, their properties and their lead assignments.
	DeleteAccountData(ctx context.Context, session *auth.Session, userID string) error
}

// userService implements IUserService.
type userService struct {
	db         *mongo.Database
	leads      ILeadService
	properties IPropertyService
	audit      IAuditService
	limits     ListLimits
}

// NewUserService creates a new UserService.
func NewUserService(database *mongo.Database, leads ILeadService, properties IPropertyService, audit IAuditService, limits ListLimits) IUserService {
	return &userService{db: database, leads: leads, properties: properties, audit: audit, limits: limits}
}

func (s *userService) coll() *mongo.Collection {
	return s.db.Collection(db.UsersCollection)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne[models.User](ctx, s.coll(), bson.M{"email": normalizeEmail(email)})
}

func (s *userService) FindByID(ctx context.Context, userID string) (*models.User, error) {
	id, err := normalizeID(userID)
	if err != nil {
		return nil, err
	}
	return findOne[models.User](ctx, s.coll(), bson.M{"_id": id})
}

// List returns enabled users, optionally of one role, by name.
func (s *userService) List(ctx context.Context, role string, limit int) ([]models.User, error) {
	filter := bson.M{"disabled": bson.M{"$ne": true}}
	if role != "" {
		filter["role"] = role
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}}).SetLimit(int64(s.limits.Clamp(limit)))
	return findMany[models.User](ctx, s.coll(), filter, opts)
}

func (s *userService) IsActive(ctx context.Context, userID string) (bool, error) {
	id, err := normalizeID(userID)
	if err != nil {
		return false, nil
	}
	opts := options.FindOne().SetProjection(bson.M{"disabled": 1})
	var user models.User
	if err := s.coll().FindOne(ctx, bson.M{"_id": id}, opts).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("error checking account %s: %w", id, err)
	}
	return !user.Disabled, nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			auth.CheckPasswordHash(password, "")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.Disabled || !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func validateNewUser(in *NewUserInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Role = strings.TrimSpace(in.Role)
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return fmt.Errorf("%w: invalid email", ErrValidation)
	}
	if err := auth.CheckPasswordPolicy(in.Password); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if in.Role == "" {
		in.Role = auth.RoleAgent
	}
	return nil
}

func (s *userService) insert(ctx context.Context, in NewUserInput) (*models.User, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// Retry only on _id collisions; a duplicate email is final.
	err = db.Try(func() error {
		user.GenID()
		_, insertErr := s.coll().InsertOne(ctx, user)
		if insertErr != nil && db.IsMongoDuplicateKeyError(insertErr) && strings.Contains(insertErr.Error(), "email") {
			return ErrEmailExists
		}
		return insertErr
	})
	if err != nil {
		if err == ErrEmailExists {
			return nil, err
		}
		return nil, fmt.Errorf("failed to insert user %s: %w", in.Email, err)
	}
	return user, nil
}

func (s *userService) CreateUser(ctx context.Context, session *auth.Session, in NewUserInput) (*models.User, error) {
	if !session.Can(auth.PermRolesManage) {
		return nil, ErrForbidden
	}
	if err := validateNewUser(&in); err != nil {
		return nil, err
	}
	// Only super admins hand out super_admin.
	if in.Role == auth.RoleSuperAdmin && session.Role != auth.RoleSuperAdmin {
		return nil, ErrForbidden
	}
	user, err := s.insert(ctx, in)
	if err != nil {
		return nil, err
	}
	s.audit.Log(ctx, session, "user.create", db.UsersCollection, user.ID, map[string]interface{}{"email": user.Email, "role": user.Role})
	return user, nil
}

func (s *userService) EnsureUser(ctx context.Context, in NewUserInput) (*models.User, bool, error) {
	if err := validateNewUser(&in); err != nil {
		return nil, false, err
	}
	existing, err := s.FindByEmail(ctx, in.Email)
	if err == nil {
		return existing, false, nil
	}
	if err != ErrNotFound {
		return nil, false, err
	}
	user, err := s.insert(ctx, in)
	if err == ErrEmailExists {
		existing, findErr := s.FindByEmail(ctx, in.Email)
		return existing, false, findErr
	}
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// DeleteAccountData runs one bulk operation per collection. There is no
// rollback if a later step fails; rerunning it finishes the job.
func (s *userService) DeleteAccountData(ctx context.Context, session *auth.Session, userID string) error {
	if !session.Authenticated() {
		return ErrForbidden
	}
	id, err := normalizeID(userID)
	if err != nil {
		return err
	}
	if session.UserID != id && !session.Can(auth.PermRolesManage) {
		return ErrForbidden
	}

	deletedProps, err := s.properties.DeleteByOwner(ctx, id)
	if err != nil {
		return err
	}
	unassigned, err := s.leads.UnassignUser(ctx, id)
	if err != nil {
		return err
	}
	res, err := s.coll().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("db error deleting user %s: %w", id, err)
	}

	log.Info().Str("uid", id).
		Int64("properties", deletedProps).
		Int64("leads_unassigned", unassigned).
		Int64("users", res.DeletedCount).
		Msg("Account data deleted")
	s.audit.Log(ctx, session, "account.delete", db.UsersCollection, id, map[string]interface{}{
		"properties_deleted": deletedProps,
		"leads_unassigned":   unassigned,
	})
	return nil
}
