package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/andrew-kemp/EasySwanVPN/internal/api/middleware"
	"github.com/andrew-kemp/EasySwanVPN/internal/ca"
	"github.com/andrew-kemp/EasySwanVPN/internal/config"
	"github.com/andrew-kemp/EasySwanVPN/internal/db/repository"
	"github.com/andrew-kemp/EasySwanVPN/internal/models"
	"github.com/andrew-kemp/EasySwanVPN/internal/policy"
	"github.com/gin-gonic/gin"
)

// CAHandler handles certificate authority management
type CAHandler struct {
	config    *config.Config
	registry  *ca.Registry
	validator *policy.Validator
	auditRepo *repository.AuditRepository
}

// NewCAHandler creates a new CA handler
func NewCAHandler(cfg *config.Config, registry *ca.Registry, validator *policy.Validator, auditRepo *repository.AuditRepository) *CAHandler {
	return &CAHandler{
		config:    cfg,
		registry:  registry,
		validator: validator,
		auditRepo: auditRepo,
	}
}

// ListResponse lists the known CAs and the session's active one
type ListResponse struct {
	CAs    []string `json:"cas"`
	Active string   `json:"active,omitempty"`
}

// ListCAs returns all certificate authorities in name order
// GET /v1/cas
func (h *CAHandler) ListCAs(c *gin.Context) {
	names, err := h.registry.List()
	if err != nil {
		log.Printf("Error listing CAs: %v", err)
		RespondError(c, http.StatusInternalServerError, "internal_error", "Failed to list CAs")
		return
	}

	sess := middleware.GetSession(c)
	active, err := h.registry.ResolveActive(sess)
	if err != nil && !errors.Is(err, ca.ErrNoActiveCA) {
		log.Printf("Error resolving active CA: %v", err)
		RespondError(c, http.StatusInternalServerError, "internal_error", "Failed to resolve active CA")
		return
	}

	RespondSuccess(c, ListResponse{CAs: names, Active: active})
}

// GenerateRequest describes a new self-signed root to create
type GenerateRequest struct {
	Name         string `json:"name" binding:"required"`
	Subject      string `json:"subject"`
	ValidityDays int    `json:"validity_days"`
}

// GenerateCA creates a new self-signed root CA
// POST /v1/cas
func (h *CAHandler) GenerateCA(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	subject := req.Subject
	if subject == "" {
		subject = req.Name
	}

	days, err := h.validator.ValidateGenerateRequest(subject, req.ValidityDays)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "policy_violation", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.GetOpTimeout())
	defer cancel()

	if _, err := h.registry.Generate(ctx, req.Name, subject, days); err != nil {
		h.respondCAError(c, err)
		return
	}

	sess := middleware.GetSession(c)
	if err := h.registry.Select(sess, req.Name); err != nil {
		log.Printf("Error selecting new CA: %v", err)
	}

	h.logAction(c, models.ActionCAGenerate, req.Name)
	c.JSON(http.StatusCreated, gin.H{"name": req.Name})
}

// ImportRequest carries PEM material for an existing CA
type ImportRequest struct {
	Name           string `json:"name" binding:"required"`
	CertificatePEM string `json:"certificate_pem" binding:"required"`
	PrivateKeyPEM  string `json:"private_key_pem" binding:"required"`
}

// ImportCA installs an externally generated CA
// POST /v1/cas/import
func (h *CAHandler) ImportCA(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if _, err := h.registry.Import(req.Name, []byte(req.CertificatePEM), []byte(req.PrivateKeyPEM)); err != nil {
		h.respondCAError(c, err)
		return
	}

	sess := middleware.GetSession(c)
	if err := h.registry.Select(sess, req.Name); err != nil {
		log.Printf("Error selecting imported CA: %v", err)
	}

	h.logAction(c, models.ActionCAImport, req.Name)
	c.JSON(http.StatusCreated, gin.H{"name": req.Name})
}

// SelectRequest names the CA to make active for this session
type SelectRequest struct {
	Name string `json:"name" binding:"required"`
}

// SelectCA makes the named CA the session's active CA
// POST /v1/cas/select
func (h *CAHandler) SelectCA(c *gin.Context) {
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	sess := middleware.GetSession(c)
	if err := h.registry.Select(sess, req.Name); err != nil {
		h.respondCAError(c, err)
		return
	}

	h.logAction(c, models.ActionCASelect, req.Name)
	RespondSuccess(c, gin.H{"active": req.Name})
}

func (h *CAHandler) respondCAError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ca.ErrInvalidName):
		RespondError(c, http.StatusBadRequest, "invalid_name", "Invalid CA name")
	case errors.Is(err, ca.ErrAlreadyExists):
		RespondError(c, http.StatusConflict, "ca_exists", "A CA with that name already exists")
	case errors.Is(err, ca.ErrNotFound):
		RespondError(c, http.StatusNotFound, "ca_not_found", "No such CA")
	case errors.Is(err, ca.ErrInvalidMaterial):
		RespondError(c, http.StatusBadRequest, "invalid_material", "CA certificate or key could not be parsed")
	default:
		log.Printf("CA operation failed: %v", err)
		RespondError(c, http.StatusInternalServerError, "generation_error", "CA operation failed")
	}
}

func (h *CAHandler) logAction(c *gin.Context, action, caName string) {
	sess := middleware.GetSession(c)
	sess.Lock()
	username := sess.Username
	sess.Unlock()

	h.auditRepo.Create(&models.AuditLog{
		Action:    action,
		Username:  username,
		ClientIP:  GetClientIP(c),
		UserAgent: c.GetHeader("User-Agent"),
		Success:   true,
		Details:   `{"ca":"` + caName + `"}`,
	})
}
