package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/andrew-kemp/EasySwanVPN/internal/api/middleware"
	"github.com/andrew-kemp/EasySwanVPN/internal/bundle"
	"github.com/andrew-kemp/EasySwanVPN/internal/ca"
	"github.com/andrew-kemp/EasySwanVPN/internal/config"
	"github.com/andrew-kemp/EasySwanVPN/internal/db/repository"
	"github.com/andrew-kemp/EasySwanVPN/internal/models"
	"github.com/andrew-kemp/EasySwanVPN/internal/policy"
	"github.com/gin-gonic/gin"
)

// CertHandler handles leaf certificate issuance
type CertHandler struct {
	config    *config.Config
	registry  *ca.Registry
	validator *policy.Validator
	auditRepo *repository.AuditRepository
}

// NewCertHandler creates a new certificate handler
func NewCertHandler(cfg *config.Config, registry *ca.Registry, validator *policy.Validator, auditRepo *repository.AuditRepository) *CertHandler {
	return &CertHandler{
		config:    cfg,
		registry:  registry,
		validator: validator,
		auditRepo: auditRepo,
	}
}

// IssueRequest represents a certificate issue request
type IssueRequest struct {
	CommonName   string `json:"common_name" binding:"required"`
	CertType     string `json:"cert_type"`
	ValidityDays int    `json:"validity_days"`
}

// IssueCertificate signs a leaf certificate with the session's active
// CA and returns the key, certificate and CA chain as a zip bundle
// POST /v1/certs/issue
func (h *CertHandler) IssueCertificate(c *gin.Context) {
	var req IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	certType, days, err := h.validator.ValidateIssueRequest(req.CommonName, req.CertType, req.ValidityDays)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "policy_violation", err.Error())
		return
	}

	sess := middleware.GetSession(c)
	caName, err := h.registry.ResolveActive(sess)
	if err != nil {
		if errors.Is(err, ca.ErrNoActiveCA) {
			RespondError(c, http.StatusConflict, "no_active_ca", "No CA available to sign with")
			return
		}
		log.Printf("Error resolving active CA: %v", err)
		RespondError(c, http.StatusInternalServerError, "internal_error", "Failed to resolve active CA")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.GetOpTimeout())
	defer cancel()

	issued, err := h.registry.Issue(ctx, caName, ca.IssueRequest{
		CommonName:   req.CommonName,
		Type:         certType,
		ValidityDays: days,
	})
	if err != nil {
		log.Printf("Error signing certificate: %v", err)
		RespondError(c, http.StatusInternalServerError, "signing_error", "Failed to sign certificate")
		return
	}

	archive, err := bundle.BuildClientBundle(issued)
	if err != nil {
		log.Printf("Error building bundle: %v", err)
		RespondError(c, http.StatusInternalServerError, "internal_error", "Failed to build bundle")
		return
	}

	sess.Lock()
	username := sess.Username
	sess.Unlock()
	h.logIssue(c, username, issued)

	filename := fmt.Sprintf("%s-%s.zip", issued.IssuingCA, req.CommonName)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/zip", archive)
}

func (h *CertHandler) logIssue(c *gin.Context, username string, issued *models.IssuedCertificate) {
	details := fmt.Sprintf(`{"ca":%q,"common_name":%q,"type":%q,"serial":%q}`,
		issued.IssuingCA, issued.CommonName, issued.Type, issued.Serial.Text(16))
	h.auditRepo.Create(&models.AuditLog{
		Action:    models.ActionCertIssue,
		Username:  username,
		ClientIP:  GetClientIP(c),
		UserAgent: c.GetHeader("User-Agent"),
		Success:   true,
		Details:   details,
	})
}
