package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nextround/backend/internal/models"
	pgrepo "github.com/nextround/backend/internal/repositories/postgres"
	"github.com/nextround/backend/internal/repositories/redisrepo"
	"github.com/nextround/backend/internal/utils"
	"github.com/nextround/backend/internal/workers"
)

const (
	otpPurposeVerify = "verify"
	otpPurposeReset  = "reset"

	otpTTL        = 10 * time.Minute
	loginTokenTTL = 7 * 24 * time.Hour
	resetTokenTTL = 15 * time.Minute
)

type RegisterInput struct {
	Firstname   string
	Lastname    string
	Username    string
	Email       string
	PhoneNumber string
	Password    string
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (token string, user *models.User, err error)
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) error
	ForgotPasswordSendOTP(ctx context.Context, email string) error
	ForgotPasswordVerifyOTP(ctx context.Context, email, code string) (resetToken string, err error)
	UpdatePassword(ctx context.Context, resetToken, newPassword string) error
	UsernameAvailable(ctx context.Context, username string) (bool, error)
}

type authService struct {
	users  pgrepo.UserRepository
	otps   redisrepo.OTPRepository
	mailq  workers.MailQueue
	secret []byte
}

func NewAuthService(users pgrepo.UserRepository, otps redisrepo.OTPRepository, mailq workers.MailQueue, jwtSecret string) AuthService {
	return &authService{users: users, otps: otps, mailq: mailq, secret: []byte(jwtSecret)}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	const op = "AuthService.Register"

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	if in.Firstname == "" || in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "firstname, username, email, and password are required", nil)
	}
	if len(in.Password) < 8 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "password needs a minimum of 8 characters", nil)
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, utils.E(utils.CodeConflict, op, "email is already registered", nil)
	} else if !errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeInternal, op, "failed to check email", err)
	}
	taken, err := s.users.UsernameTaken(ctx, in.Username)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to check username", err)
	}
	if taken {
		return nil, utils.E(utils.CodeConflict, op, "username is already taken", nil)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to hash password", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Firstname:    in.Firstname,
		Lastname:     in.Lastname,
		Username:     in.Username,
		Email:        in.Email,
		PhoneNumber:  in.PhoneNumber,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create user", err)
	}

	// verification code goes out right away; failure here is not fatal to
	// the registration, the user can request a resend
	_ = s.sendCode(ctx, user.Email, otpPurposeVerify)

	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	const op = "AuthService.Login"

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, utils.E(utils.CodeInvalidArgument, op, "email and password are required", nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return "", nil, utils.E(utils.CodeUnauthorized, op, "invalid email or password", nil)
		}
		return "", nil, utils.E(utils.CodeInternal, op, "failed to load user", err)
	}
	if err := utils.CheckPassword(user.PasswordHash, password); err != nil {
		return "", nil, utils.E(utils.CodeUnauthorized, op, "invalid email or password", nil)
	}

	token, err := s.signToken(jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"verified": user.IsAccountVerified,
		"exp":      time.Now().Add(loginTokenTTL).Unix(),
		"iat":      time.Now().Unix(),
	})
	if err != nil {
		return "", nil, utils.E(utils.CodeInternal, op, "failed to sign token", err)
	}
	return token, user, nil
}

func (s *authService) SendOTP(ctx context.Context, email string) error {
	const op = "AuthService.SendOTP"
	return s.sendCodeChecked(ctx, op, email, otpPurposeVerify)
}

func (s *authService) VerifyOTP(ctx context.Context, email, code string) error {
	const op = "AuthService.VerifyOTP"

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || code == "" {
		return utils.E(utils.CodeInvalidArgument, op, "email and otp are required", nil)
	}

	ok, err := s.otps.Verify(ctx, otpPurposeVerify, email, code)
	if err != nil {
		if errors.Is(err, redisrepo.ErrTooManyAttempts) {
			return utils.E(utils.CodeInvalidArgument, op, "too many attempts, request a new code", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to verify otp", err)
	}
	if !ok {
		return utils.E(utils.CodeInvalidArgument, op, "invalid or expired otp", nil)
	}

	if err := s.users.SetVerified(ctx, email); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to mark account verified", err)
	}
	return nil
}

func (s *authService) ForgotPasswordSendOTP(ctx context.Context, email string) error {
	const op = "AuthService.ForgotPasswordSendOTP"
	return s.sendCodeChecked(ctx, op, email, otpPurposeReset)
}

func (s *authService) ForgotPasswordVerifyOTP(ctx context.Context, email, code string) (string, error) {
	const op = "AuthService.ForgotPasswordVerifyOTP"

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || code == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "email and otp are required", nil)
	}

	ok, err := s.otps.Verify(ctx, otpPurposeReset, email, code)
	if err != nil {
		if errors.Is(err, redisrepo.ErrTooManyAttempts) {
			return "", utils.E(utils.CodeInvalidArgument, op, "too many attempts, request a new code", err)
		}
		return "", utils.E(utils.CodeInternal, op, "failed to verify otp", err)
	}
	if !ok {
		return "", utils.E(utils.CodeInvalidArgument, op, "invalid or expired otp", nil)
	}

	token, err := s.signToken(jwt.MapClaims{
		"sub":     email,
		"purpose": "password_reset",
		"exp":     time.Now().Add(resetTokenTTL).Unix(),
		"iat":     time.Now().Unix(),
	})
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to sign reset token", err)
	}
	return token, nil
}

func (s *authService) UpdatePassword(ctx context.Context, resetToken, newPassword string) error {
	const op = "AuthService.UpdatePassword"

	if len(newPassword) < 8 {
		return utils.E(utils.CodeInvalidArgument, op, "password needs a minimum of 8 characters", nil)
	}

	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(resetToken, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || tok == nil || !tok.Valid {
		return utils.E(utils.CodeUnauthorized, op, "invalid or expired reset token", err)
	}
	if purpose, _ := claims["purpose"].(string); purpose != "password_reset" {
		return utils.E(utils.CodeUnauthorized, op, "invalid reset token", nil)
	}
	email, _ := claims["sub"].(string)
	if email == "" {
		return utils.E(utils.CodeUnauthorized, op, "invalid reset token", nil)
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, email, hash); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "user not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to update password", err)
	}
	return nil
}

func (s *authService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	const op = "AuthService.UsernameAvailable"

	username = strings.TrimSpace(username)
	if username == "" {
		return false, utils.E(utils.CodeInvalidArgument, op, "username is required", nil)
	}
	taken, err := s.users.UsernameTaken(ctx, username)
	if err != nil {
		return false, utils.E(utils.CodeInternal, op, "failed to check username", err)
	}
	return !taken, nil
}

func (s *authService) sendCodeChecked(ctx context.Context, op, email, purpose string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return utils.E(utils.CodeInvalidArgument, op, "email is required", nil)
	}
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "no account for this email", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to load user", err)
	}
	if err := s.sendCode(ctx, email, purpose); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to send otp", err)
	}
	return nil
}

func (s *authService) sendCode(ctx context.Context, email, purpose string) error {
	code, err := utils.GenerateOTP(6)
	if err != nil {
		return err
	}
	if err := s.otps.Save(ctx, purpose, email, code, otpTTL); err != nil {
		return err
	}

	subject := "Your NextRound verification code"
	if purpose == otpPurposeReset {
		subject = "Your NextRound password reset code"
	}
	return s.mailq.Enqueue(ctx, email, subject, otpEmailBody(code))
}

func (s *authService) signToken(claims jwt.MapClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func otpEmailBody(code string) string {
	return fmt.Sprintf(`<div style="font-family:sans-serif">
  <h2>NextRound</h2>
  <p>Your one-time code is:</p>
  <p style="font-size:28px;letter-spacing:4px"><b>%s</b></p>
  <p>The code expires in 10 minutes. If you did not request it, ignore this email.</p>
</div>`, code)
}
