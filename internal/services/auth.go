package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/sparkquest-backend/internal/data/db"
	"github.com/yungbote/sparkquest-backend/internal/data/repos"
	types "github.com/yungbote/sparkquest-backend/internal/domain"
	"github.com/yungbote/sparkquest-backend/internal/platform/ctxutil"
	"github.com/yungbote/sparkquest-backend/internal/platform/dbctx"
	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
)

const minPasswordLength = 8

type JWTClaims struct {
	jwt.RegisteredClaims
}

type SignupInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*types.User, error)
	Signin(ctx context.Context, email, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Signout(ctx context.Context) error
	// SetContextFromToken verifies an access token and attaches RequestData to ctx.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	AccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	avatarService AvatarService
	jwtSecretKey  []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	avatarService AvatarService,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	return &authService{
		db:            db,
		log:           log.With("service", "AuthService"),
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		avatarService: avatarService,
		jwtSecretKey:  []byte(jwtSecretKey),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

func unauthorized(op, msg string) error {
	return types.NewError(types.CodeUnauthorized, op, msg, nil)
}

func (as *authService) Signup(ctx context.Context, in SignupInput) (*types.User, error) {
	const op = "auth.signup"
	user := &types.User{
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
	}

	var fields []types.FieldError
	if _, err := mail.ParseAddress(user.Email); err != nil || user.Email == "" {
		fields = append(fields, types.FieldError{Path: "email", Message: "a valid email is required"})
	}
	if len(in.Password) < minPasswordLength {
		fields = append(fields, types.FieldError{Path: "password", Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength)})
	}
	if user.FirstName == "" {
		fields = append(fields, types.FieldError{Path: "first_name", Message: "first_name is required"})
	}
	if user.LastName == "" {
		fields = append(fields, types.FieldError{Path: "last_name", Message: "last_name is required"})
	}
	if len(fields) > 0 {
		return nil, types.ValidationError(op, fields...)
	}

	exists, err := as.userRepo.EmailExists(dbctx.Context{Ctx: ctx}, user.Email)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	if exists {
		return nil, types.NewError(types.CodeConflict, op, "email already registered", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, types.NewError(types.CodeInternal, op, "failed to hash password", err)
	}
	user.Password = string(hash)
	user.ID = uuid.New()

	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := as.avatarService.CreateAndUploadUserAvatar(ctx, user); err != nil {
			return fmt.Errorf("create user avatar: %w", err)
		}
		if _, err := as.userRepo.Create(dbctx.Context{Ctx: ctx, Tx: tx}, []*types.User{user}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		as.log.Warn("Signup failed", "error", err)
		return nil, db.MapError(op, err)
	}
	as.log.Info("User signed up", "user_id", user.ID)
	return user, nil
}

func (as *authService) Signin(ctx context.Context, email, password string) (*TokenPair, error) {
	const op = "auth.signin"
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, types.ValidationError(op, types.FieldError{Path: "email", Message: "email and password are required"})
	}

	users, err := as.userRepo.GetByEmails(dbctx.Context{Ctx: ctx}, []string{email})
	if err != nil {
		return nil, db.MapError(op, err)
	}
	if len(users) == 0 {
		return nil, unauthorized(op, "invalid email or password")
	}
	user := users[0]
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, unauthorized(op, "invalid email or password")
	}

	pair, err := as.issueTokens(dbctx.Context{Ctx: ctx}, user.ID)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	return pair, nil
}

func (as *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	const op = "auth.refresh"
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, types.ValidationError(op, types.FieldError{Path: "refresh_token", Message: "refresh_token is required"})
	}

	var pair *TokenPair
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		found, err := as.userTokenRepo.GetByRefreshTokens(dbc, []string{refreshToken})
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return unauthorized(op, "unknown refresh token")
		}
		existing := found[0]
		if existing.ExpiresAt.Before(as.now()) {
			return errRefreshExpired
		}
		if err := as.userTokenRepo.FullDeleteByIDs(dbc, []uuid.UUID{existing.ID}); err != nil {
			return err
		}
		pair, err = as.issueTokens(dbc, existing.UserID)
		return err
	})
	if errors.Is(err, errRefreshExpired) {
		if derr := as.deleteRefreshToken(ctx, refreshToken); derr != nil {
			as.log.Warn("Failed to delete expired refresh token", "error", derr)
		}
		return nil, unauthorized(op, "refresh token expired")
	}
	if err != nil {
		return nil, db.MapError(op, err)
	}
	return pair, nil
}

var errRefreshExpired = errors.New("refresh token expired")

func (as *authService) deleteRefreshToken(ctx context.Context, refreshToken string) error {
	found, err := as.userTokenRepo.GetByRefreshTokens(dbctx.Context{Ctx: ctx}, []string{refreshToken})
	if err != nil || len(found) == 0 {
		return err
	}
	return as.userTokenRepo.FullDeleteByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{found[0].ID})
}

func (as *authService) Signout(ctx context.Context) error {
	const op = "auth.signout"
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.TokenString == "" {
		return unauthorized(op, "not signed in")
	}
	dbc := dbctx.Context{Ctx: ctx}
	found, err := as.userTokenRepo.GetByAccessTokens(dbc, []string{rd.TokenString})
	if err != nil {
		return db.MapError(op, err)
	}
	ids := make([]uuid.UUID, 0, len(found))
	for _, t := range found {
		ids = append(ids, t.ID)
	}
	if err := as.userTokenRepo.FullDeleteByIDs(dbc, ids); err != nil {
		return db.MapError(op, err)
	}
	return nil
}

func (as *authService) issueTokens(dbc dbctx.Context, userID uuid.UUID) (*TokenPair, error) {
	const op = "auth.issue_tokens"
	access, err := as.generateAccessToken(userID)
	if err != nil {
		return nil, types.NewError(types.CodeInternal, op, "sign access token", err)
	}
	row := &types.UserToken{
		UserID:       userID,
		AccessToken:  access,
		RefreshToken: uuid.NewString(),
		ExpiresAt:    as.now().Add(as.refreshTTL),
	}
	if _, err := as.userTokenRepo.Create(dbc, []*types.UserToken{row}); err != nil {
		as.log.Warn("Create user token failed", "error", err)
		return nil, db.MapError(op, err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: row.RefreshToken,
		ExpiresIn:    int64(as.accessTTL / time.Second),
	}, nil
}

func (as *authService) generateAccessToken(userID uuid.UUID) (string, error) {
	now := as.now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(as.jwtSecretKey)
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	const op = "auth.verify"
	if tokenString == "" {
		return ctx, unauthorized(op, "missing token")
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return as.jwtSecretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(as.now))
	if err != nil {
		return ctx, unauthorized(op, "invalid or expired token")
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return ctx, unauthorized(op, "invalid or expired token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, unauthorized(op, "invalid subject")
	}
	found, err := as.userTokenRepo.GetByAccessTokens(dbctx.Context{Ctx: ctx}, []string{tokenString})
	if err != nil {
		return ctx, db.MapError(op, err)
	}
	if len(found) == 0 {
		return ctx, unauthorized(op, "session revoked")
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{TokenString: tokenString, UserID: userID}), nil
}

func (as *authService) AccessTTL() time.Duration { return as.accessTTL }
