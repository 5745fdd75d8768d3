package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/subcon_backend/config"
	"bitbucket.org/mmdatafocus/subcon_backend/models"
	"bitbucket.org/mmdatafocus/subcon_backend/models/reports"
	"bitbucket.org/mmdatafocus/subcon_backend/utils"
)

const maxLedgerSizeBytes int64 = 20 * 1024 * 1024

type validateRequest struct {
	IssueFileBase64    string `json:"issue_file_base64" binding:"required"`
	ReceivedFileBase64 string `json:"received_file_base64" binding:"required"`
	RouteCard          string `json:"route_card"`
	Supplier           string `json:"supplier"`
}

type storeValidationRequest struct {
	IssueBlobURL    string `json:"issue_blob_url" binding:"required,ledgerurl"`
	ReceivedBlobURL string `json:"received_blob_url" binding:"required,ledgerurl"`
	RouteCard       string `json:"route_card"`
}

// transportError marks a fetch/decode failure with the failing ledger side so
// the caller knows which input to fix.
type transportError struct {
	Side string
	Err  error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("failed to load %s file: %v", e.Side, e.Err)
}

// registerLedgerURLValidator teaches gin's validator the blob URL shapes we
// accept: gs://bucket/object or plain http(s).
func registerLedgerURLValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("ledgerurl", func(fl validator.FieldLevel) bool {
		raw := strings.TrimSpace(fl.Field().String())
		if _, _, ok := utils.ParseGSURL(raw); ok {
			return true
		}
		return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
	})
}

// validateHandler serves POST /validate: two base64 xlsx ledgers in the body
// (or a multipart form), quantity-only reconciliation keyed with supplier,
// mismatch count plus bounded preview out.
func validateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		var issueFile, receivedFile []byte
		var filter reports.RowFilter

		if strings.HasPrefix(c.ContentType(), "multipart/") {
			var err error
			issueFile, receivedFile, filter, err = readMultipartLedgers(c)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		} else {
			var req validateRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
				return
			}
			var err error
			issueFile, err = base64.StdEncoding.DecodeString(req.IssueFileBase64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": (&transportError{Side: models.SideIssue, Err: errors.New("invalid base64 payload")}).Error()})
				return
			}
			receivedFile, err = base64.StdEncoding.DecodeString(req.ReceivedFileBase64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": (&transportError{Side: models.SideReceived, Err: errors.New("invalid base64 payload")}).Error()})
				return
			}
			filter = reports.RowFilter{RouteCard: req.RouteCard, Supplier: req.Supplier}
		}

		cacheKey := reports.CacheKey("preview", issueFile, receivedFile, filter)
		var cached reports.MismatchPreviewResponse
		if ok, err := reports.CacheGet(cacheKey, &cached); err == nil && ok {
			c.JSON(http.StatusOK, cached)
			return
		}

		rows, err := reconcileLedgers(issueFile, receivedFile, true)
		if err != nil {
			respondEngineError(c, logger, "validateHandler", err)
			return
		}

		resp := reports.BuildMismatchPreview(rows, filter, config.PreviewRowLimit())
		if err := reports.CacheSet(cacheKey, resp); err != nil {
			logger.WithFields(logrus.Fields{"field": "validateHandler"}).Warn("report cache write failed: " + err.Error())
		}
		c.JSON(http.StatusOK, resp)
	}
}

// storeValidationHandler serves POST /v2/validate: both ledgers fetched from
// blob URLs, full quantity+price reconciliation keyed without supplier,
// summary plus full and mismatch tables out.
func storeValidationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		req, issueFile, receivedFile, ok := fetchStoreValidationInputs(c, logger)
		if !ok {
			return
		}
		filter := reports.RowFilter{RouteCard: req.RouteCard}

		cacheKey := reports.CacheKey("store", issueFile, receivedFile, filter)
		var cached reports.StoreValidationResponse
		if ok, err := reports.CacheGet(cacheKey, &cached); err == nil && ok {
			c.JSON(http.StatusOK, cached)
			return
		}

		rows, err := reconcileLedgers(issueFile, receivedFile, false)
		if err != nil {
			respondEngineError(c, logger, "storeValidationHandler", err)
			return
		}

		resp := reports.BuildStoreValidation(rows, filter)
		if err := reports.CacheSet(cacheKey, resp); err != nil {
			logger.WithFields(logrus.Fields{"field": "storeValidationHandler"}).Warn("report cache write failed: " + err.Error())
		}
		c.JSON(http.StatusOK, resp)
	}
}

// exportValidationHandler serves POST /v2/validate/export: same inputs as
// /v2/validate, xlsx attachment out.
func exportValidationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		req, issueFile, receivedFile, ok := fetchStoreValidationInputs(c, logger)
		if !ok {
			return
		}

		rows, err := reconcileLedgers(issueFile, receivedFile, false)
		if err != nil {
			respondEngineError(c, logger, "exportValidationHandler", err)
			return
		}

		report := reports.BuildStoreValidation(rows, reports.RowFilter{RouteCard: req.RouteCard})

		var buf bytes.Buffer
		if err := reports.WriteStoreValidationXlsx(report, &buf); err != nil {
			config.LogError(logger, "handlers.go", "exportValidationHandler", "WriteStoreValidationXlsx", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build export"})
			return
		}

		filename := "store-validation-" + time.Now().UTC().Format("20060102-150405") + ".xlsx"
		c.Header("Content-Disposition", `attachment; filename=`+filename)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	}
}

func fetchStoreValidationInputs(c *gin.Context, logger *logrus.Logger) (storeValidationRequest, []byte, []byte, bool) {
	var req storeValidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return req, nil, nil, false
	}

	issueFile, err := fetchLedgerFile(c.Request.Context(), models.SideIssue, req.IssueBlobURL)
	if err != nil {
		config.LogError(logger, "handlers.go", "fetchStoreValidationInputs", "fetch issue ledger", req.IssueBlobURL, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return req, nil, nil, false
	}
	receivedFile, err := fetchLedgerFile(c.Request.Context(), models.SideReceived, req.ReceivedBlobURL)
	if err != nil {
		config.LogError(logger, "handlers.go", "fetchStoreValidationInputs", "fetch received ledger", req.ReceivedBlobURL, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return req, nil, nil, false
	}
	return req, issueFile, receivedFile, true
}

// reconcileLedgers runs the whole pipeline for one request: normalize both
// sheets, aggregate each side, outer-join and classify. withSupplier selects
// the grouping-key shape.
func reconcileLedgers(issueFile, receivedFile []byte, withSupplier bool) ([]models.ReconciledRow, error) {
	issueSheet, err := models.ReadLedgerWorkbook(bytes.NewReader(issueFile))
	if err != nil {
		return nil, &transportError{Side: models.SideIssue, Err: err}
	}
	receivedSheet, err := models.ReadLedgerWorkbook(bytes.NewReader(receivedFile))
	if err != nil {
		return nil, &transportError{Side: models.SideReceived, Err: err}
	}

	issueRecords, err := models.ParseIssueSheet(issueSheet)
	if err != nil {
		return nil, err
	}
	receivedRecords, err := models.ParseReceivedSheet(receivedSheet)
	if err != nil {
		return nil, err
	}

	issueAgg := models.AggregateLines(models.IssueLines(issueRecords, withSupplier))
	receivedAgg := models.AggregateLines(models.ReceivedLines(receivedRecords, withSupplier))
	opts := models.Options{PriceTolerance: config.PriceTolerance()}
	return models.Reconcile(issueAgg, receivedAgg, opts), nil
}

func respondEngineError(c *gin.Context, logger *logrus.Logger, funcName string, err error) {
	var schemaErr *models.SchemaError
	var fetchErr *transportError
	switch {
	case errors.As(err, &schemaErr), errors.As(err, &fetchErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		config.LogError(logger, "handlers.go", funcName, "reconcileLedgers", nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
	}
}

// fetchLedgerFile loads one workbook from a gs:// object or an http(s) URL.
func fetchLedgerFile(ctx context.Context, side, rawURL string) ([]byte, error) {
	if bucket, object, ok := utils.ParseGSURL(rawURL); ok {
		data, err := utils.DownloadFromGCS(ctx, bucket, object)
		if err != nil {
			return nil, &transportError{Side: side, Err: err}
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &transportError{Side: side, Err: err}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, &transportError{Side: side, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &transportError{Side: side, Err: fmt.Errorf("received status code %d", resp.StatusCode)}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxLedgerSizeBytes+1))
	if err != nil {
		return nil, &transportError{Side: side, Err: err}
	}
	if int64(len(data)) > maxLedgerSizeBytes {
		return nil, &transportError{Side: side, Err: errors.New("file size exceeds 20MB limit")}
	}
	return data, nil
}

func readMultipartLedgers(c *gin.Context) ([]byte, []byte, reports.RowFilter, error) {
	issueHeader, err := c.FormFile("issue_file")
	if err != nil {
		return nil, nil, reports.RowFilter{}, errors.New("issue_file is required")
	}
	receivedHeader, err := c.FormFile("received_file")
	if err != nil {
		return nil, nil, reports.RowFilter{}, errors.New("received_file is required")
	}

	issueFile, err := readFormFile(issueHeader)
	if err != nil {
		return nil, nil, reports.RowFilter{}, &transportError{Side: models.SideIssue, Err: err}
	}
	receivedFile, err := readFormFile(receivedHeader)
	if err != nil {
		return nil, nil, reports.RowFilter{}, &transportError{Side: models.SideReceived, Err: err}
	}

	filter := reports.RowFilter{
		RouteCard: c.PostForm("route_card"),
		Supplier:  c.PostForm("supplier"),
	}
	return issueFile, receivedFile, filter, nil
}

func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	if header.Size > maxLedgerSizeBytes {
		return nil, errors.New("file size exceeds 20MB limit")
	}
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
