package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tawk-service/internal/auth"
	"tawk-service/internal/logger"
	"tawk-service/internal/mail"
	"tawk-service/internal/models"
	"tawk-service/internal/repositories"
	"tawk-service/internal/telemetry"
)

// AuthHandler manages registration, verification and credential endpoints.
type AuthHandler struct {
	users        repositories.UserRepository
	tokens       *auth.TokenManager
	mailer       mail.Mailer
	audit        *telemetry.AuditEmitter
	log          *logger.Logger
	resetURLBase string
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(users repositories.UserRepository, tokens *auth.TokenManager, mailer mail.Mailer, audit *telemetry.AuditEmitter, log *logger.Logger, resetURLBase string) *AuthHandler {
	return &AuthHandler{
		users:        users,
		tokens:       tokens,
		mailer:       mailer,
		audit:        audit,
		log:          log,
		resetURLBase: resetURLBase,
	}
}

// Register creates (or refreshes) an unverified account and sends an OTP.
// A verified account with the same email is rejected.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		FirstName string `json:"first_name" binding:"required"`
		LastName  string `json:"last_name" binding:"required"`
		Email     string `json:"email" binding:"required,email"`
		Password  string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "could not process password"})
		return
	}

	ctx := c.Request.Context()
	var user models.User
	existing, err := h.users.GetByEmail(ctx, req.Email)
	switch {
	case err == nil && existing.Verified:
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Email is already in use, Please login."})
		return
	case err == nil:
		// Unverified re-registration refreshes the record.
		if err := h.users.UpdateRegistration(ctx, existing.ID, req.FirstName, req.LastName, passwordHash); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "could not update account"})
			return
		}
		user = existing
	case errors.Is(err, repositories.ErrUserNotFound):
		user, err = h.users.Create(ctx, req.FirstName, req.LastName, req.Email, passwordHash)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "could not create account"})
			return
		}
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "could not look up account"})
		return
	}

	if err := h.issueOTP(ctx, user.ID, req.FirstName, req.Email); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "could not send verification code"})
		return
	}

	h.emitAudit(c, "INFO", "registration started", user.ID)
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "OTP Sent Successfully!"})
}

// SendOTP regenerates and resends the verification code.
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "no account for given email"})
		return
	}
	if user.Verified {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Email is already verified"})
		return
	}

	if err := h.issueOTP(ctx, user.ID, user.FirstName, user.Email); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "could not send verification code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "OTP Sent Successfully!"})
}

// VerifyOTP checks the submitted code and unlocks the account.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
		OTP   string `json:"otp" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil || user.OTPHash == nil || user.OTPExpiresAt == nil || user.OTPExpiresAt.Before(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Email is invalid or OTP expired"})
		return
	}
	if user.Verified {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Email is already verified"})
		return
	}
	if !auth.CheckOTP(req.OTP, *user.OTPHash) {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "OTP is incorrect"})
		return
	}

	if err := h.users.MarkVerified(ctx, user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "could not verify account"})
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "could not issue token"})
		return
	}

	h.emitAudit(c, "INFO", "account verified", user.ID)
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "OTP verified successfully",
		"token":   token,
		"user_id": user.ID,
	})
}

// Login authenticates with email and password.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Both email and password are required"})
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil || user.PasswordHash == "" || !auth.CheckPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Email or password is incorrect"})
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "could not issue token"})
		return
	}

	h.emitAudit(c, "INFO", "login", user.ID)
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Logged in successfully",
		"token":   token,
		"user_id": user.ID,
	})
}

// ForgotPassword mails a reset link. The response does not reveal whether the
// address is known beyond the original behavior.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "There is no user with given email address"})
		return
	}

	token, digest, err := auth.GenerateResetToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "could not create reset token"})
		return
	}
	if err := h.users.SetResetToken(ctx, user.ID, digest, time.Now().Add(auth.ResetTokenTTL)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "could not create reset token"})
		return
	}

	resetURL := h.resetURLBase + "?code=" + token
	h.sendMailAsync(user.Email, "Reset your password", mail.ResetBody(user.FirstName, resetURL))

	h.emitAudit(c, "INFO", "password reset requested", user.ID)
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Reset password link sent to your email"})
}

// ResetPassword consumes a reset token and sets the new password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.GetByResetToken(ctx, auth.HashResetToken(req.Token))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Token is invalid or Expired"})
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "could not process password"})
		return
	}
	if err := h.users.SetPassword(ctx, user.ID, passwordHash); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "could not reset password"})
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "could not issue token"})
		return
	}

	h.emitAudit(c, "WARN", "password reset", user.ID)
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Password reset successfully",
		"token":   token,
	})
}

func (h *AuthHandler) issueOTP(ctx context.Context, userID int, firstName, email string) error {
	code, err := auth.GenerateOTP()
	if err != nil {
		return err
	}
	hash, err := auth.HashOTP(code)
	if err != nil {
		return err
	}
	if err := h.users.SetOTP(ctx, userID, hash, time.Now().Add(auth.OTPTTL)); err != nil {
		return err
	}

	h.sendMailAsync(email, "Verification OTP", mail.OTPBody(firstName, code))
	return nil
}

// sendMailAsync delivers mail without blocking the request. Failures are
// logged, never surfaced.
func (h *AuthHandler) sendMailAsync(to, subject, body string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := h.mailer.Send(ctx, to, subject, body); err != nil {
			h.log.Error("mail delivery failed", "to", to, "subject", subject, "error", err)
		}
	}()
}

func (h *AuthHandler) emitAudit(c *gin.Context, level, text string, userID int) {
	id := int64(userID)
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), &id)
}
