package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/garyjia/expense-reports/internal/application/service"
	"github.com/garyjia/expense-reports/internal/domain/audit"
	"github.com/garyjia/expense-reports/internal/domain/document"
	"github.com/garyjia/expense-reports/internal/domain/flatten"
	"github.com/garyjia/expense-reports/pkg/utils"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	reports        *service.ReportService
	exports        *service.ExportService
	notifications  *service.NotificationService
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	reports *service.ReportService,
	exports *service.ExportService,
	notifications *service.NotificationService,
	maxUploadBytes int64,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		reports:        reports,
		exports:        exports,
		notifications:  notifications,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status         string `json:"status"`
	Timestamp      string `json:"timestamp"`
	Version        string `json:"version"`
	DocumentLoaded bool   `json:"document_loaded"`
}

// UploadResponse is returned after a document has been processed
type UploadResponse struct {
	service.Summary
	Cached bool `json:"cached"`
}

// TableResponse represents a filtered table
type TableResponse struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Count   int        `json:"count"`
}

// ComparisonResponse represents how profiles treat one nature
type ComparisonResponse struct {
	NatureID int                     `json:"nature_id"`
	Nature   string                  `json:"nature"`
	Rows     []flatten.ComparisonRow `json:"rows"`
}

// AuditResponse represents the audit report
type AuditResponse struct {
	audit.Report
	Clean    bool     `json:"clean"`
	Messages []string `json:"messages"`
}

// NotifyResponse represents a sent audit digest
type NotifyResponse struct {
	MessageID string `json:"message_id"`
}

// ValidationErrorData locates a strict-mode schema violation
type ValidationErrorData struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	_, err := h.reports.Current()
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:         "healthy",
			Timestamp:      time.Now().Format(time.RFC3339),
			Version:        utils.Version,
			DocumentLoaded: err == nil,
		},
	})
}

// UploadDocument handles POST /api/documents. The document is read from the
// multipart field "file" or, otherwise, from the raw request body.
func (h *Handlers) UploadDocument(c *gin.Context) {
	strict := h.reports.DefaultStrict()
	if s := c.Query("strict"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{
				Success: false,
				Error:   "Invalid strict flag",
			})
			return
		}
		strict = v
	}

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	raw, err := h.readUpload(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	requestID := c.GetString("request_id")
	snap, cached, err := h.reports.Process(c.Request.Context(), raw, service.ProcessOptions{
		Strict: strict,
		Progress: func(stage service.Stage, done, total int) {
			h.logger.Debug("Processing stage completed",
				zap.String("request_id", requestID),
				zap.String("stage", string(stage)),
				zap.Int("done", done),
				zap.Int("total", total))
		},
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    UploadResponse{Summary: snap.Summary(), Cached: cached},
	})
}

func (h *Handlers) readUpload(c *gin.Context) ([]byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		header, err := c.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("failed to read multipart field %q: %w", "file", err)
		}
		f, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open uploaded file: %w", err)
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return raw, nil
}

// ResetDocument handles DELETE /api/documents
func (h *Handlers) ResetDocument(c *gin.Context) {
	h.reports.Reset()
	c.JSON(http.StatusOK, Response{Success: true})
}

// GetTable handles GET /api/tables/:name
func (h *Handlers) GetTable(c *gin.Context) {
	snap, err := h.reports.Current()
	if err != nil {
		h.writeError(c, err)
		return
	}

	t, err := snap.Query(c.Param("name"), selectionFromQuery(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: TableResponse{
			Name:    t.Name,
			Columns: t.Columns,
			Rows:    t.Rows,
			Count:   t.Len(),
		},
	})
}

// ExportTable handles GET /api/tables/:name/export
func (h *Handlers) ExportTable(c *gin.Context) {
	format, err := service.ParseFormat(c.DefaultQuery("format", string(service.FormatCSV)))
	if err != nil {
		h.writeError(c, err)
		return
	}
	snap, err := h.reports.Current()
	if err != nil {
		h.writeError(c, err)
		return
	}

	export, err := h.exports.Export(snap, service.ExportRequest{
		Table:     c.Param("name"),
		Format:    format,
		Selection: selectionFromQuery(c),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	sendFile(c, export)
}

// ExportWorkbook handles GET /api/export/workbook
func (h *Handlers) ExportWorkbook(c *gin.Context) {
	snap, err := h.reports.Current()
	if err != nil {
		h.writeError(c, err)
		return
	}
	export, err := h.exports.ExportWorkbook(snap)
	if err != nil {
		h.writeError(c, err)
		return
	}
	sendFile(c, export)
}

// ExportPDFBundle handles GET /api/export/pdf
func (h *Handlers) ExportPDFBundle(c *gin.Context) {
	snap, err := h.reports.Current()
	if err != nil {
		h.writeError(c, err)
		return
	}
	export, err := h.exports.ExportPDFBundle(snap)
	if err != nil {
		h.writeError(c, err)
		return
	}
	sendFile(c, export)
}

// GetProfile handles GET /api/profiles/:name
func (h *Handlers) GetProfile(c *gin.Context) {
	snap, err := h.reports.Current()
	if err != nil {
		h.writeError(c, err)
		return
	}
	detail, err := snap.ProfileDetail(c.Param("name"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// CompareNature handles GET /api/natures/:id/comparison
func (h *Handlers) CompareNature(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "Invalid nature ID",
		})
		return
	}
	snap, err := h.reports.Current()
	if err != nil {
		h.writeError(c, err)
		return
	}
	_, rows, err := snap.Comparison(id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: ComparisonResponse{
			NatureID: id,
			Nature:   snap.NatureName(id),
			Rows:     rows,
		},
	})
}

// GetAudit handles GET /api/audit
func (h *Handlers) GetAudit(c *gin.Context) {
	snap, err := h.reports.Current()
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: AuditResponse{
			Report:   snap.Audit,
			Clean:    snap.Audit.Clean(),
			Messages: snap.Audit.Messages(),
		},
	})
}

// NotifyAudit handles POST /api/audit/notify
func (h *Handlers) NotifyAudit(c *gin.Context) {
	snap, err := h.reports.Current()
	if err != nil {
		h.writeError(c, err)
		return
	}
	messageID, err := h.notifications.NotifyAudit(c.Request.Context(), snap)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: NotifyResponse{MessageID: messageID}})
}

func selectionFromQuery(c *gin.Context) service.Selection {
	return service.Selection{
		Search:   c.Query("q"),
		Profile:  c.Query("profile"),
		NatureID: c.Query("nature"),
	}
}

func sendFile(c *gin.Context, export *service.Export) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	c.Header("X-Row-Count", strconv.Itoa(export.Rows))
	c.Data(http.StatusOK, export.ContentType, export.Content)
}

// writeError maps service and domain errors to HTTP statuses
func (h *Handlers) writeError(c *gin.Context, err error) {
	var (
		verr     *document.ValidationError
		tooLarge *http.MaxBytesError
	)

	status := http.StatusInternalServerError
	var data interface{}
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		data = ValidationErrorData{Path: verr.Path, Reason: verr.Reason}
	case errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
	case document.IsStructural(err),
		errors.Is(err, service.ErrEmptyDocumentInput),
		errors.Is(err, service.ErrUnsupportedFormat),
		errors.Is(err, http.ErrMissingFile):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUnknownTable),
		errors.Is(err, service.ErrUnknownNature),
		errors.Is(err, service.ErrUnknownProfile):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrNoDocument):
		status = http.StatusConflict
	case errors.Is(err, service.ErrNotifierDisabled):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}

	c.JSON(status, Response{
		Success: false,
		Data:    data,
		Error:   err.Error(),
	})
}
