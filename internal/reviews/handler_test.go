package reviews

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T, svc *Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func multipartUpload(t *testing.T, fileName string, fileBytes []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(fileBytes); err != nil {
		t.Fatalf("write file field: %v", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &body, mw.FormDataContentType()
}

func TestCreateReviewEndpoint(t *testing.T) {
	client := &scriptedClient{
		analysisResponse: "```json\n" + fixtureAnalysis + "\n```",
		matchResponse:    `{"Issue 0": 1, "Missing 0": -1}`,
	}
	svc := newTestService(t, client)
	router := newTestRouter(t, svc)

	body, contentType := multipartUpload(t, "msa.docx", fixtureDocxBytes(t), map[string]string{
		"partyPerspective": "customer",
		"strictness":       "moderate",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ReviewID == "" || !resp.AnnotationAvailable || resp.DownloadToken == "" {
		t.Fatalf("response = %+v", resp)
	}

	// Fetch the persisted record.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/reviews/"+resp.ReviewID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get review status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"completed"`) {
		t.Errorf("review body = %s", w.Body.String())
	}

	// Download the annotated artifact.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/downloads/"+resp.DownloadToken, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("download status = %d", w.Code)
	}
	if disposition := w.Header().Get("Content-Disposition"); !strings.Contains(disposition, "reviewed_msa.docx") {
		t.Errorf("Content-Disposition = %q", disposition)
	}
}

func TestCreateReviewMissingFile(t *testing.T) {
	svc := newTestService(t, &scriptedClient{analysisResponse: fixtureAnalysis})
	router := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestCreateReviewInvalidStrictness(t *testing.T) {
	svc := newTestService(t, &scriptedClient{analysisResponse: fixtureAnalysis})
	router := newTestRouter(t, svc)

	body, contentType := multipartUpload(t, "msa.docx", fixtureDocxBytes(t), map[string]string{
		"partyPerspective": "customer",
		"strictness":       "brutal",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), ErrorCodeValidation) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestDownloadUnknownToken(t *testing.T) {
	svc := newTestService(t, &scriptedClient{})
	router := newTestRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/downloads/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGetReviewNotFound(t *testing.T) {
	svc := newTestService(t, &scriptedClient{})
	router := newTestRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/reviews/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	svc := newTestService(t, &scriptedClient{})
	router := newTestRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}
