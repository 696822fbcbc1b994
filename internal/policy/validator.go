package policy

import (
	"fmt"

	"github.com/andrew-kemp/EasySwanVPN/internal/config"
	"github.com/andrew-kemp/EasySwanVPN/internal/models"
)

// maxCommonNameLen matches the X.509 ub-common-name upper bound.
const maxCommonNameLen = 64

// Validator validates issuance requests against configured policy
type Validator struct {
	config *config.Config
}

// NewValidator creates a new policy validator
func NewValidator(cfg *config.Config) *Validator {
	return &Validator{config: cfg}
}

// ValidateIssueRequest checks common name and certificate type, and
// clamps the requested validity to policy bounds. Returns the type and
// the validity in days to use.
func (v *Validator) ValidateIssueRequest(commonName, certType string, requestedDays int) (models.CertType, int, error) {
	if commonName == "" {
		return "", 0, fmt.Errorf("common name is required")
	}
	if len(commonName) > maxCommonNameLen {
		return "", 0, fmt.Errorf("common name exceeds %d characters", maxCommonNameLen)
	}

	t := models.CertType(certType)
	if certType == "" {
		t = models.CertTypeClient
	}
	if !t.Valid() {
		return "", 0, fmt.Errorf("certificate type must be 'server' or 'client'")
	}

	return t, v.adjustValidity(requestedDays), nil
}

// ValidateGenerateRequest checks a CA generation request and returns
// the validity in days to use for the root certificate.
func (v *Validator) ValidateGenerateRequest(subject string, requestedDays int) (int, error) {
	if subject == "" {
		return 0, fmt.Errorf("subject is required")
	}
	if len(subject) > maxCommonNameLen {
		return 0, fmt.Errorf("subject exceeds %d characters", maxCommonNameLen)
	}

	if requestedDays <= 0 {
		return v.config.CA.RootValidityDays, nil
	}
	return requestedDays, nil
}

// adjustValidity adjusts the requested validity to comply with policy
func (v *Validator) adjustValidity(requestedDays int) int {
	// If requested is zero or negative, use default
	if requestedDays <= 0 {
		return v.config.CA.DefaultValidityDays
	}

	// If requested exceeds max, cap at max
	if requestedDays > v.config.CA.MaxValidityDays {
		return v.config.CA.MaxValidityDays
	}

	return requestedDays
}
