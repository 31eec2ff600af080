package handlers

import (
	"context"
	"net/http"

	"assessment-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var certificatesIssued = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "assessment_certificates_issued_total",
		Help: "Total number of certificate generation requests",
	},
	[]string{"level"},
)

type CertificateHandler struct {
	Service *service.CertificateService
}

func NewCertificateHandler(s *service.CertificateService) *CertificateHandler {
	return &CertificateHandler{Service: s}
}

// GenerateCertificate issues (or returns) the certificate for a
// completed session.
func (h *CertificateHandler) GenerateCertificate(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}

	var req struct {
		SessionID string `json:"session_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	cert, err := h.Service.GenerateCertificate(context.Background(), userID, req.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	certificatesIssued.WithLabelValues(cert.CertificateLevel).Inc()
	c.JSON(http.StatusOK, gin.H{"certificate": cert})
}
