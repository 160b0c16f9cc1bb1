package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"procurement/internal/model"
	"procurement/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TokenTTL is the lifetime of issued access tokens
const TokenTTL = 24 * time.Hour

// DTOs for Request validation
type RegisterUserRequest struct {
	Username    string `json:"username" binding:"required,min=3"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	Role        string `json:"role" binding:"required,oneof=buyer_user sourcing_manager vendor"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	CompanyName string `json:"company_name"`
}

type LoginUserRequest struct {
	Login    string `json:"login" binding:"required"` // username or email
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// DTO for returning User without exposing the password hash
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	CompanyName string    `json:"company_name"`
	CreatedAt   string    `json:"created_at"`
}

// UserService registers users, issues tokens and resolves them back to actors
type UserService interface {
	Register(ctx context.Context, req RegisterUserRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	Me(ctx context.Context, actor Actor) (*UserResponse, error)
	ParseToken(token string) (Actor, error)
	IssueToken(user *model.User) (string, time.Time, error)
}

type userService struct {
	repo      repository.UserRepository
	txManager repository.TransactionManager
	auditRepo repository.AuditRepository
	secret    []byte
	now       func() time.Time
}

// NewUserService returns a new instance of UserService signing with secret
func NewUserService(repo repository.UserRepository, txManager repository.TransactionManager, auditRepo repository.AuditRepository, secret string) UserService {
	return &userService{repo: repo, txManager: txManager, auditRepo: auditRepo, secret: []byte(secret), now: time.Now}
}

func mapToUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Role:        user.Role,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		CompanyName: user.CompanyName,
		CreatedAt:   user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// Register creates a self-service account. buyer_admin accounts are only
// created by the seed command.
func (s *userService) Register(ctx context.Context, req RegisterUserRequest) (*UserResponse, error) {
	if !model.ValidRole(req.Role) {
		return nil, invalid("role", "unknown role %q", req.Role)
	}
	if req.Role == model.RoleBuyerAdmin {
		return nil, denied("buyer_admin accounts cannot self-register")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.repo.ExistsByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check user uniqueness: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("username or email already registered: %w", ErrConflict)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:    req.Username,
		Email:       req.Email,
		Password:    string(hashedPassword),
		Role:        req.Role,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		CompanyName: req.CompanyName,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, user); err != nil {
			return dbError("user", err)
		}
		self := Actor{UserID: user.ID, Role: user.Role}
		return writeAudit(txCtx, s.auditRepo, &self, model.ActionRegisterUser, user.ID.String(), user.Username,
			map[string]string{"role": user.Role})
	})
	if err != nil {
		return nil, err
	}
	return mapToUserResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByLogin(ctx, strings.TrimSpace(req.Login))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthenticated)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthenticated)
	}

	token, exp, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{Token: token, ExpiresAt: exp.Format(time.RFC3339), User: *mapToUserResponse(user)}, nil
}

func (s *userService) IssueToken(user *model.User) (string, time.Time, error) {
	exp := s.now().Add(TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"iat":  s.now().Unix(),
		"exp":  exp.Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, exp, nil
}

// ParseToken validates an HS256 token and returns the actor it names
func (s *userService) ParseToken(tokenString string) (Actor, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return Actor{}, fmt.Errorf("invalid token: %w", ErrUnauthenticated)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Actor{}, fmt.Errorf("invalid token claims: %w", ErrUnauthenticated)
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	id, err := uuid.Parse(sub)
	if err != nil || !model.ValidRole(role) {
		return Actor{}, fmt.Errorf("invalid token subject: %w", ErrUnauthenticated)
	}
	return Actor{UserID: id, Role: role}, nil
}

func (s *userService) Me(ctx context.Context, actor Actor) (*UserResponse, error) {
	if err := actor.require(); err != nil {
		return nil, err
	}
	user, err := s.repo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, dbError("user", err)
	}
	return mapToUserResponse(user), nil
}
