package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/naumangoraya/sos/auth"
	"github.com/naumangoraya/sos/httpx"
	"github.com/naumangoraya/sos/internal/models"
	"github.com/naumangoraya/sos/internal/repository"
	"github.com/naumangoraya/sos/validation"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Access resolves the current permissions of a user and drops cached ones.
type Access interface {
	IsAdmin(ctx context.Context, userID uint) (bool, error)
	Invalidate(userID uint)
}

type AuthHandler struct {
	db     *gorm.DB
	tokens *auth.Authenticator
	access Access
}

func NewAuthHandler(db *gorm.DB, tokens *auth.Authenticator, access Access) *AuthHandler {
	return &AuthHandler{db: db, tokens: tokens, access: access}
}

type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// Verify reports whether the user exists and is active.
func (h *AuthHandler) Verify(ctx context.Context, userID uint) bool {
	var user models.User
	err := h.db.WithContext(ctx).Select("id", "is_active").Take(&user, userID).Error
	return err == nil && user.IsActive
}

// callerIsAdmin checks the acting user against the database, not the role
// claim of the token: a deactivated or demoted admin is not an admin.
func (h *AuthHandler) callerIsAdmin(ctx context.Context) (bool, error) {
	uid, ok := auth.UserIDFromContext(ctx)
	if !ok || h.access == nil || !h.Verify(ctx, uid) {
		return false, nil
	}
	return h.access.IsAdmin(ctx, uid)
}

func (h *AuthHandler) session(user *models.User) (*Session, error) {
	token, exp, err := h.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, User: user}, nil
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	f := validation.FieldsFrom(r.Context())

	var user models.User
	err := h.db.WithContext(r.Context()).Where("username = ?", f.String("username")).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.Fail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		h.internal(w, r, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(f.String("password"))) != nil {
		httpx.Fail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !user.IsActive {
		httpx.Fail(w, http.StatusUnauthorized, "Account is deactivated")
		return
	}

	s, err := h.session(&user)
	if err != nil {
		h.internal(w, r, err)
		return
	}
	httpx.OK(w, s, "Login successful")
}

// Register creates an active account. Only admins may create admins; any
// other caller gets a regular user.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f := validation.FieldsFrom(ctx)

	role := models.RoleUser
	if f.String("role") == models.RoleAdmin {
		admin, err := h.callerIsAdmin(ctx)
		if err != nil {
			h.internal(w, r, err)
			return
		}
		if admin {
			role = models.RoleAdmin
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(f.String("password")), bcrypt.DefaultCost)
	if err != nil {
		h.internal(w, r, err)
		return
	}
	user := models.User{
		Username: f.String("username"),
		Email:    f.String("email"),
		Password: string(hash),
		Role:     role,
		IsActive: true,
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := repository.Exists(tx.Model(&models.User{}).
			Where("username = ? OR email = ?", user.Username, user.Email))
		if err != nil {
			return err
		}
		if taken {
			return repository.ErrDuplicateKey
		}
		return tx.Create(&user).Error
	})
	if errors.Is(err, repository.ErrDuplicateKey) || errors.Is(err, gorm.ErrDuplicatedKey) {
		httpx.Fail(w, http.StatusBadRequest, "Username or email already exists")
		return
	}
	if err != nil {
		h.internal(w, r, err)
		return
	}

	s, err := h.session(&user)
	if err != nil {
		h.internal(w, r, err)
		return
	}
	httpx.Created(w, s, "User registered successfully")
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var user models.User
	err := h.db.WithContext(r.Context()).Take(&user, uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.Fail(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.internal(w, r, err)
		return
	}
	httpx.OK(w, user, "")
}

var errWrongPassword = errors.New("current password is incorrect")

// UpdateProfile changes the acting user's email and password. Only sent
// fields change.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, _ := auth.UserIDFromContext(ctx)
	f := validation.FieldsFrom(ctx)

	var user models.User
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&user, uid).Error; err != nil {
			return err
		}
		patch := map[string]any{}
		if email := f.String("email"); f.Has("email") && email != user.Email {
			taken, err := repository.Exists(tx.Model(&models.User{}).Where("email = ? AND id <> ?", email, user.ID))
			if err != nil {
				return err
			}
			if taken {
				return repository.ErrDuplicateKey
			}
			patch["email"] = email
		}
		if f.Has("password") {
			if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(f.String("currentPassword"))) != nil {
				return errWrongPassword
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(f.String("password")), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			patch["password"] = string(hash)
		}
		if len(patch) == 0 {
			return nil
		}
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(patch).Error; err != nil {
			return err
		}
		return tx.Take(&user, uid).Error
	})
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		httpx.Fail(w, http.StatusNotFound, "User not found")
	case errors.Is(err, repository.ErrDuplicateKey), errors.Is(err, gorm.ErrDuplicatedKey):
		httpx.Fail(w, http.StatusBadRequest, "Email already exists")
	case errors.Is(err, errWrongPassword):
		httpx.Fail(w, http.StatusBadRequest, "Current password is incorrect")
	case err != nil:
		h.internal(w, r, err)
	default:
		httpx.OK(w, user, "Profile updated successfully")
	}
}

func (h *AuthHandler) Users(w http.ResponseWriter, r *http.Request) {
	users := []models.User{}
	if err := h.db.WithContext(r.Context()).Order("id ASC").Find(&users).Error; err != nil {
		h.internal(w, r, err)
		return
	}
	httpx.OK(w, users, "")
}

// UpdateUserStatus activates or deactivates an account. Admins cannot
// deactivate themselves.
func (h *AuthHandler) UpdateUserStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		httpx.Fail(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	active, _ := validation.FieldsFrom(ctx)["isActive"].(bool)
	if self, _ := auth.UserIDFromContext(ctx); uint(id) == self && !active {
		httpx.Fail(w, http.StatusBadRequest, "Cannot deactivate your own account")
		return
	}

	var user models.User
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&user, id).Error; err != nil {
			return err
		}
		return tx.Model(&user).Update("is_active", active).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.Fail(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.internal(w, r, err)
		return
	}
	if h.access != nil {
		h.access.Invalidate(user.ID)
	}
	msg := "User deactivated successfully"
	if active {
		msg = "User activated successfully"
	}
	httpx.OK(w, user, msg)
}

func (h *AuthHandler) internal(w http.ResponseWriter, r *http.Request, err error) {
	log.Ctx(r.Context()).Error().Err(err).Msg("auth request failed")
	httpx.InternalError(w)
}
