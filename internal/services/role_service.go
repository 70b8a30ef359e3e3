package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"realtyhub/backend/internal/auth"
	"realtyhub/backend/internal/config"
	"realtyhub/backend/internal/db"
	"realtyhub/backend/internal/models"
)

const rolePermsCachePrefix = "role_perms:"

// IRoleService manages named permission sets.
type IRoleService interface {
	ListRoles(ctx context.Context) ([]models.Role, error)
	GetRole(ctx context.Context, name string) (*models.Role, error)
	UpsertRole(ctx context.Context, session *auth.Session, name string, permissions []string) (*models.Role, error)
	DeleteRole(ctx context.Context, session *auth.Session, name string) error
	// PermissionsFor returns the effective role and permissions for a token.
	PermissionsFor(ctx context.Context, role, email string) (string, []string, error)
}

type roleService struct {
	db    *mongo.Database
	rdb   *redis.Client
	cfg   *config.Config
	audit IAuditService
}

// NewRoleService creates a RoleService. rdb may be nil, which disables caching.
func NewRoleService(database *mongo.Database, rdb *redis.Client, cfg *config.Config, audit IAuditService) IRoleService {
	return &roleService{db: database, rdb: rdb, cfg: cfg, audit: audit}
}

func (s *roleService) coll() *mongo.Collection {
	return s.db.Collection(db.RolesCollection)
}

func builtInRole(name string) (*models.Role, bool) {
	perms, ok := auth.BuiltInRoles()[name]
	if !ok {
		return nil, false
	}
	return &models.Role{Name: name, Permissions: auth.Strings(perms), BuiltIn: true}, true
}

// ListRoles returns built-in roles (with stored overrides) followed by custom roles, by name.
func (s *roleService) ListRoles(ctx context.Context) ([]models.Role, error) {
	stored, err := findMany[models.Role](ctx, s.coll(), bson.M{}, options.Find())
	if err != nil {
		return nil, err
	}

	byName := make(map[string]models.Role, len(stored))
	for name := range auth.BuiltInRoles() {
		r, _ := builtInRole(name)
		byName[name] = *r
	}
	for _, r := range stored {
		if r.Name == auth.RoleSuperAdmin {
			continue
		}
		r.BuiltIn = auth.IsBuiltInRole(r.Name)
		byName[r.Name] = r
	}

	out := make([]models.Role, 0, len(byName))
	for _, r := range byName {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BuiltIn != out[j].BuiltIn {
			return out[i].BuiltIn
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *roleService) GetRole(ctx context.Context, name string) (*models.Role, error) {
	if name == auth.RoleSuperAdmin {
		r, _ := builtInRole(name)
		return r, nil
	}
	role, err := findOne[models.Role](ctx, s.coll(), bson.M{"_id": name})
	if errors.Is(err, ErrNotFound) {
		if r, ok := builtInRole(name); ok {
			return r, nil
		}
	}
	if err != nil {
		return nil, err
	}
	role.BuiltIn = auth.IsBuiltInRole(name)
	return role, nil
}

// UpsertRole replaces a role's permission list. super_admin is fixed.
func (s *roleService) UpsertRole(ctx context.Context, session *auth.Session, name string, permissions []string) (*models.Role, error) {
	if !session.Can(auth.PermRolesManage) {
		return nil, ErrForbidden
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", ErrValidation)
	}
	if name == auth.RoleSuperAdmin {
		return nil, fmt.Errorf("%w: %s cannot be edited", ErrForbidden, auth.RoleSuperAdmin)
	}

	seen := make(map[string]bool, len(permissions))
	perms := make([]string, 0, len(permissions))
	for _, p := range permissions {
		if !auth.IsKnownPermission(p) {
			return nil, fmt.Errorf("%w: unknown permission %q", ErrValidation, p)
		}
		if !seen[p] {
			seen[p] = true
			perms = append(perms, p)
		}
	}
	sort.Strings(perms)

	role := &models.Role{
		Name:        name,
		Permissions: perms,
		BuiltIn:     auth.IsBuiltInRole(name),
		UpdatedAt:   time.Now().UTC(),
	}
	_, err := s.coll().ReplaceOne(ctx, bson.M{"_id": name}, role, options.Replace().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("failed to save role %s: %w", name, err)
	}
	s.invalidate(ctx, name)
	s.audit.Log(ctx, session, "role.upsert", db.RolesCollection, name, map[string]interface{}{"permissions": perms})
	return role, nil
}

// DeleteRole removes a custom role. Built-in roles can only be edited.
func (s *roleService) DeleteRole(ctx context.Context, session *auth.Session, name string) error {
	if !session.Can(auth.PermRolesManage) {
		return ErrForbidden
	}
	if auth.IsBuiltInRole(name) {
		return fmt.Errorf("%w: built-in role %s cannot be deleted", ErrForbidden, name)
	}
	if err := deleteByID(ctx, s.coll(), name); err != nil {
		return err
	}
	s.invalidate(ctx, name)
	s.audit.Log(ctx, session, "role.delete", db.RolesCollection, name, nil)
	return nil
}

func (s *roleService) PermissionsFor(ctx context.Context, role, email string) (string, []string, error) {
	if s.cfg != nil && s.cfg.IsAdminEmail(email) {
		role = auth.RoleSuperAdmin
	}
	if role == auth.RoleSuperAdmin {
		return role, auth.Strings(auth.AllPermissions), nil
	}

	if perms, ok := s.cached(ctx, role); ok {
		return role, perms, nil
	}

	r, err := s.GetRole(ctx, role)
	if errors.Is(err, ErrNotFound) {
		// Unknown roles hold no permissions but still authenticate.
		return role, []string{}, nil
	}
	if err != nil {
		return "", nil, err
	}
	s.store(ctx, role, r.Permissions)
	return role, r.Permissions, nil
}

func (s *roleService) cached(ctx context.Context, role string) ([]string, bool) {
	if s.rdb == nil {
		return nil, false
	}
	raw, err := s.rdb.Get(ctx, rolePermsCachePrefix+role).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("role", role).Msg("Role cache read failed")
		}
		return nil, false
	}
	var perms []string
	if err := json.Unmarshal(raw, &perms); err != nil {
		return nil, false
	}
	return perms, true
}

func (s *roleService) store(ctx context.Context, role string, perms []string) {
	if s.rdb == nil || s.cfg == nil || s.cfg.RoleCacheTTL <= 0 {
		return
	}
	raw, _ := json.Marshal(perms)
	if err := s.rdb.Set(ctx, rolePermsCachePrefix+role, raw, s.cfg.RoleCacheTTL).Err(); err != nil {
		log.Warn().Err(err).Str("role", role).Msg("Role cache write failed")
	}
}

func (s *roleService) invalidate(ctx context.Context, role string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, rolePermsCachePrefix+role).Err(); err != nil {
		log.Warn().Err(err).Str("role", role).Msg("Role cache invalidation failed")
	}
}
