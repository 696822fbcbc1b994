package handlers

import (
	"encoding/base64"
	"errors"
	"log"
	"net/http"

	"github.com/andrew-kemp/EasySwanVPN/internal/api/middleware"
	"github.com/andrew-kemp/EasySwanVPN/internal/auth"
	"github.com/andrew-kemp/EasySwanVPN/internal/db/repository"
	"github.com/andrew-kemp/EasySwanVPN/internal/models"
	"github.com/andrew-kemp/EasySwanVPN/internal/session"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles login, two-factor verification and logout
type AuthHandler struct {
	machine   *auth.Machine
	manager   *session.Manager
	auditRepo *repository.AuditRepository
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(machine *auth.Machine, manager *session.Manager, auditRepo *repository.AuditRepository) *AuthHandler {
	return &AuthHandler{
		machine:   machine,
		manager:   manager,
		auditRepo: auditRepo,
	}
}

// LoginRequest represents a primary (password) login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse reports the session state after the password factor
type LoginResponse struct {
	State string `json:"state"`
}

// Login handles the password factor
// POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	sess := middleware.GetSession(c)
	clientIP := GetClientIP(c)
	userAgent := c.GetHeader("User-Agent")

	state, err := h.machine.VerifyPrimary(sess, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidState):
			RespondError(c, http.StatusConflict, "invalid_state", "Login already in progress")
		case errors.Is(err, auth.ErrInvalidCredentials):
			h.logFailure(req.Username, clientIP, userAgent, "Invalid password")
			RespondError(c, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password")
		default:
			log.Printf("Error verifying credentials: %v", err)
			RespondError(c, http.StatusInternalServerError, "internal_error", "Login failed")
		}
		return
	}

	h.logSuccess(models.ActionLogin, req.Username, clientIP, userAgent)
	RespondSuccess(c, LoginResponse{State: state.String()})
}

// MFASetupResponse carries the enrollment material for the second factor
type MFASetupResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
	QRCodePNG       string `json:"qr_code_png"` // base64
}

// MFASetup returns the TOTP secret, provisioning URI and QR code for
// a session that passed the password factor but is not enrolled yet
// GET /v1/auth/mfa-setup
func (h *AuthHandler) MFASetup(c *gin.Context) {
	sess := middleware.GetSession(c)

	secret, uri, err := h.machine.EnrollmentInfo(sess)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidState) {
			RespondError(c, http.StatusConflict, "invalid_state", "Session is not enrolling")
			return
		}
		log.Printf("Error reading enrollment info: %v", err)
		RespondError(c, http.StatusInternalServerError, "internal_error", "Failed to read enrollment info")
		return
	}

	qrPNG, err := auth.RenderQRCode(uri)
	if err != nil {
		log.Printf("Error rendering QR code: %v", err)
		RespondError(c, http.StatusInternalServerError, "internal_error", "Failed to render QR code")
		return
	}

	RespondSuccess(c, MFASetupResponse{
		Secret:          secret,
		ProvisioningURI: uri,
		QRCodePNG:       base64.StdEncoding.EncodeToString(qrPNG),
	})
}

// MFARequest carries a TOTP code
type MFARequest struct {
	Code string `json:"code" binding:"required"`
}

// MFAResponse reports the session state after the second factor
type MFAResponse struct {
	State string `json:"state"`
}

// CompleteEnrollment verifies the first TOTP code of a new enrollment
// POST /v1/auth/mfa-setup
func (h *AuthHandler) CompleteEnrollment(c *gin.Context) {
	var req MFARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	sess := middleware.GetSession(c)
	clientIP := GetClientIP(c)
	userAgent := c.GetHeader("User-Agent")

	if err := h.machine.CompleteEnrollment(sess, req.Code); err != nil {
		h.respondMFAError(c, err, sess, clientIP, userAgent)
		return
	}

	h.logSuccess(models.ActionMFAEnroll, h.sessionUsername(sess), clientIP, userAgent)
	RespondSuccess(c, MFAResponse{State: session.StateAuthenticated.String()})
}

// VerifyMFA verifies the TOTP code of an enrolled principal
// POST /v1/auth/mfa
func (h *AuthHandler) VerifyMFA(c *gin.Context) {
	var req MFARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	sess := middleware.GetSession(c)
	clientIP := GetClientIP(c)
	userAgent := c.GetHeader("User-Agent")

	if err := h.machine.VerifySecondFactor(sess, req.Code); err != nil {
		h.respondMFAError(c, err, sess, clientIP, userAgent)
		return
	}

	h.logSuccess(models.ActionMFAVerify, h.sessionUsername(sess), clientIP, userAgent)
	RespondSuccess(c, MFAResponse{State: session.StateAuthenticated.String()})
}

// Logout resets the session to anonymous
// POST /v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sess := middleware.GetSession(c)
	clientIP := GetClientIP(c)
	userAgent := c.GetHeader("User-Agent")
	username := h.sessionUsername(sess)

	h.machine.Logout(sess)
	h.manager.Delete(sess.ID)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)

	h.logSuccess(models.ActionLogout, username, clientIP, userAgent)
	RespondSuccess(c, gin.H{"state": session.StateAnonymous.String()})
}

func (h *AuthHandler) respondMFAError(c *gin.Context, err error, sess *session.Session, clientIP, userAgent string) {
	switch {
	case errors.Is(err, auth.ErrInvalidState):
		RespondError(c, http.StatusConflict, "invalid_state", "Session is not awaiting a TOTP code")
	case errors.Is(err, auth.ErrInvalidOTP):
		h.logFailure(h.sessionUsername(sess), clientIP, userAgent, "Invalid TOTP code")
		RespondError(c, http.StatusUnauthorized, "invalid_totp", "Invalid TOTP code")
	default:
		log.Printf("Error verifying TOTP: %v", err)
		RespondError(c, http.StatusInternalServerError, "internal_error", "Verification failed")
	}
}

func (h *AuthHandler) sessionUsername(sess *session.Session) string {
	sess.Lock()
	defer sess.Unlock()
	return sess.Username
}

func (h *AuthHandler) logFailure(username, clientIP, userAgent, reason string) {
	h.auditRepo.Create(&models.AuditLog{
		Action:    models.ActionAuthFailed,
		Username:  username,
		ClientIP:  clientIP,
		UserAgent: userAgent,
		Success:   false,
		ErrorMsg:  reason,
	})
}

func (h *AuthHandler) logSuccess(action, username, clientIP, userAgent string) {
	h.auditRepo.Create(&models.AuditLog{
		Action:    action,
		Username:  username,
		ClientIP:  clientIP,
		UserAgent: userAgent,
		Success:   true,
	})
}
