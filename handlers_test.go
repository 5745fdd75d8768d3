package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"bitbucket.org/mmdatafocus/subcon_backend/models/reports"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	registerLedgerURLValidator()
	r := gin.New()
	r.POST("/validate", validateHandler())
	r.POST("/v2/validate", storeValidationHandler())
	r.POST("/v2/validate/export", exportValidationHandler())
	return r
}

func ledgerWorkbook(t *testing.T, header []string, rows ...[]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow("Sheet1", "A1", &headerRow); err != nil {
		t.Fatalf("SetSheetRow: %v", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			t.Fatalf("CoordinatesToCellName: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return buf.Bytes()
}

var issueHeader = []string{"RouteCard No", "GK DC No", "FG Item Code", "Supplier Name", "Transfer Qty", "Special Price"}
var receivedHeader = []string{"RouteCard No", "Subcon DC No", "FG Item Code", "Supplier Name", "Rcvd. Qty", "Special Price"}

func newMultipartLedgerBody(t *testing.T, body *bytes.Buffer, issue, received []byte) string {
	t.Helper()
	mw := multipart.NewWriter(body)
	issuePart, err := mw.CreateFormFile("issue_file", "issue.xlsx")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := issuePart.Write(issue); err != nil {
		t.Fatalf("write issue part: %v", err)
	}
	receivedPart, err := mw.CreateFormFile("received_file", "received.xlsx")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := receivedPart.Write(received); err != nil {
		t.Fatalf("write received part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return mw.FormDataContentType()
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestValidateHandler_Base64Flow(t *testing.T) {
	r := testRouter()

	issue := ledgerWorkbook(t, issueHeader,
		[]interface{}{"RC-1", "DC-1", "FG-1", "Acme", 10, 0},
		[]interface{}{"RC-2", "DC-1", "FG-2", "Acme", 5, 0},
	)
	received := ledgerWorkbook(t, receivedHeader,
		[]interface{}{"RC-1", "DC-1", "FG-1", "Acme", 10, 0},
		[]interface{}{"RC-2", "DC-1", "FG-2", "Acme", 3, 0},
	)

	w := postJSON(t, r, "/validate", gin.H{
		"issue_file_base64":    base64.StdEncoding.EncodeToString(issue),
		"received_file_base64": base64.StdEncoding.EncodeToString(received),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp reports.MismatchPreviewResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.MismatchCount != 1 {
		t.Fatalf("expected 1 mismatch, got %d", resp.MismatchCount)
	}
	if len(resp.MismatchPreview) != 1 || resp.MismatchPreview[0].RouteCardNo != "RC-2" {
		t.Fatalf("unexpected preview: %+v", resp.MismatchPreview)
	}
	if resp.MismatchPreview[0].Difference.String() != "2" {
		t.Fatalf("expected difference 2, got %s", resp.MismatchPreview[0].Difference)
	}
}

func TestValidateHandler_SupplierFilter(t *testing.T) {
	r := testRouter()

	issue := ledgerWorkbook(t, issueHeader,
		[]interface{}{"RC-1", "DC-1", "FG-1", "Acme", 10, 0},
		[]interface{}{"RC-1", "DC-1", "FG-1", "Globex", 10, 0},
	)
	received := ledgerWorkbook(t, receivedHeader)

	w := postJSON(t, r, "/validate", gin.H{
		"issue_file_base64":    base64.StdEncoding.EncodeToString(issue),
		"received_file_base64": base64.StdEncoding.EncodeToString(received),
		"supplier":             "Globex",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp reports.MismatchPreviewResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.MismatchCount != 1 {
		t.Fatalf("expected supplier filter to narrow to 1 mismatch, got %d", resp.MismatchCount)
	}
	if resp.MismatchPreview[0].SupplierName != "Globex" {
		t.Fatalf("unexpected supplier: %+v", resp.MismatchPreview[0])
	}
}

func TestValidateHandler_MissingFieldsRejected(t *testing.T) {
	r := testRouter()
	w := postJSON(t, r, "/validate", gin.H{"issue_file_base64": "aGk="})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestValidateHandler_InvalidBase64Rejected(t *testing.T) {
	r := testRouter()
	w := postJSON(t, r, "/validate", gin.H{
		"issue_file_base64":    "%%%not-base64%%%",
		"received_file_base64": "aGk=",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "issue") {
		t.Fatalf("error must name the failing side: %s", w.Body.String())
	}
}

func TestValidateHandler_SchemaErrorRejected(t *testing.T) {
	r := testRouter()

	// Issue ledger missing the quantity column.
	issue := ledgerWorkbook(t, []string{"RouteCard No", "GK DC No", "FG Item Code", "Supplier Name"},
		[]interface{}{"RC-1", "DC-1", "FG-1", "Acme"},
	)
	received := ledgerWorkbook(t, receivedHeader)

	w := postJSON(t, r, "/validate", gin.H{
		"issue_file_base64":    base64.StdEncoding.EncodeToString(issue),
		"received_file_base64": base64.StdEncoding.EncodeToString(received),
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Transfer Qty") {
		t.Fatalf("error must name the missing column: %s", w.Body.String())
	}
}

func TestValidateHandler_MultipartFlow(t *testing.T) {
	r := testRouter()

	issue := ledgerWorkbook(t, issueHeader,
		[]interface{}{"RC-1", "DC-1", "FG-1", "Acme", 4, 0},
	)
	received := ledgerWorkbook(t, receivedHeader,
		[]interface{}{"RC-1", "DC-1", "FG-1", "Acme", 4, 0},
	)

	var body bytes.Buffer
	mw := newMultipartLedgerBody(t, &body, issue, received)
	req := httptest.NewRequest(http.MethodPost, "/validate", &body)
	req.Header.Set("Content-Type", mw)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp reports.MismatchPreviewResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.MismatchCount != 0 {
		t.Fatalf("expected no mismatches, got %d", resp.MismatchCount)
	}
}

func TestStoreValidationHandler_BlobURLFlow(t *testing.T) {
	issue := ledgerWorkbook(t, issueHeader,
		[]interface{}{"RC-1", "DC-1", "FG-1", "Acme", 5, 2},
		[]interface{}{"RC-2", "DC-1", "FG-2", "Acme", 5, 2},
	)
	received := ledgerWorkbook(t, receivedHeader,
		[]interface{}{"RC-1", "DC-1", "FG-1", "Acme", 7, 2},
		[]interface{}{"RC-2", "DC-1", "FG-2", "Acme", 5, 2},
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/issue.xlsx":
			w.Write(issue)
		case "/received.xlsx":
			w.Write(received)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	r := testRouter()
	w := postJSON(t, r, "/v2/validate", gin.H{
		"issue_blob_url":    srv.URL + "/issue.xlsx",
		"received_blob_url": srv.URL + "/received.xlsx",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp reports.StoreValidationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.Summary.TotalRecords != 2 {
		t.Fatalf("expected 2 records, got %d", resp.Summary.TotalRecords)
	}
	if resp.Summary.OverReceiptCases != 1 || resp.Summary.MatchedRecords != 1 {
		t.Fatalf("unexpected summary: %+v", resp.Summary)
	}
	if len(resp.MismatchTable) != 1 || resp.MismatchTable[0].ReceiptStatus != "Over Receipt" {
		t.Fatalf("unexpected mismatch table: %+v", resp.MismatchTable)
	}
}

func TestStoreValidationHandler_RejectsBadBlobURL(t *testing.T) {
	r := testRouter()
	w := postJSON(t, r, "/v2/validate", gin.H{
		"issue_blob_url":    "ftp://bucket/issue.xlsx",
		"received_blob_url": "https://example.com/received.xlsx",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non http/gs URL, got %d", w.Code)
	}
}

func TestStoreValidationHandler_UpstreamErrorIs400(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := testRouter()
	w := postJSON(t, r, "/v2/validate", gin.H{
		"issue_blob_url":    srv.URL + "/missing.xlsx",
		"received_blob_url": srv.URL + "/missing.xlsx",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for upstream 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "issue") {
		t.Fatalf("error must name the failing side: %s", w.Body.String())
	}
}

func TestExportValidationHandler_ReturnsWorkbook(t *testing.T) {
	issue := ledgerWorkbook(t, issueHeader,
		[]interface{}{"RC-1", "DC-1", "FG-1", "Acme", 5, 0},
	)
	received := ledgerWorkbook(t, receivedHeader,
		[]interface{}{"RC-1", "DC-1", "FG-1", "Acme", 3, 0},
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/issue.xlsx" {
			w.Write(issue)
			return
		}
		w.Write(received)
	}))
	defer srv.Close()

	r := testRouter()
	w := postJSON(t, r, "/v2/validate/export", gin.H{
		"issue_blob_url":    srv.URL + "/issue.xlsx",
		"received_blob_url": srv.URL + "/received.xlsx",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Fatalf("expected attachment disposition, got %q", cd)
	}

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("response is not a workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Validation")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 data row, got %d", len(rows))
	}
	if rows[1][9] != "Under Receipt" {
		t.Fatalf("expected Under Receipt status, got %q", rows[1][9])
	}
}
