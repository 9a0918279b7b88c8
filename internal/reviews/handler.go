package reviews

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"contract-review-backend/internal/analysis"
	"contract-review-backend/internal/shared/server/respond"
)

const (
	maxUploadBytes   = 16 << 20
	defaultListLimit = 20
	maxListLimit     = 100
)

// Handler exposes the review pipeline over HTTP.
type Handler struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{Service: service}
}

// RegisterRoutes mounts the review endpoints on a router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/reviews", h.create)
	rg.GET("/reviews", h.list)
	rg.GET("/reviews/:id", h.get)
	rg.GET("/downloads/:token", h.download)
	rg.GET("/health", h.health)
}

func (h *Handler) create(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "file is required", nil)
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, ErrorCodeValidation, "file exceeds the 16MB limit", nil)
		return
	}

	cfg := analysis.ReviewConfig{
		Party:      analysis.PartyPerspective(c.PostForm("partyPerspective")),
		Strictness: analysis.Strictness(c.PostForm("strictness")),
	}

	response, err := h.Service.Process(c.Request.Context(), ProcessInput{
		FileName: header.Filename,
		File:     file,
		Config:   cfg,
	})
	if err != nil {
		status, code, message := ClassifyFailure(err)
		respond.Error(c, status, code, message, nil)
		return
	}
	c.Set("reviewId", response.ReviewID)
	respond.OK(c, response)
}

type reviewView struct {
	ID                  string           `json:"id"`
	FileName            string           `json:"fileName"`
	PartyPerspective    string           `json:"partyPerspective"`
	Strictness          string           `json:"strictness"`
	Status              string           `json:"status"`
	Summary             string           `json:"summary,omitempty"`
	OverallRisk         string           `json:"overallRisk,omitempty"`
	Result              *analysis.Result `json:"result,omitempty"`
	AnnotationAvailable bool             `json:"annotationAvailable"`
	ErrorCode           string           `json:"errorCode,omitempty"`
	ErrorMessage        string           `json:"errorMessage,omitempty"`
	CreatedAt           time.Time        `json:"createdAt"`
	CompletedAt         *time.Time       `json:"completedAt,omitempty"`
}

func toView(r Review) reviewView {
	return reviewView{
		ID:                  r.ID,
		FileName:            r.FileName,
		PartyPerspective:    r.PartyPerspective,
		Strictness:          r.Strictness,
		Status:              r.Status,
		Summary:             r.Summary,
		OverallRisk:         r.OverallRisk,
		Result:              r.Result,
		AnnotationAvailable: r.AnnotationAvailable,
		ErrorCode:           r.ErrorCode,
		ErrorMessage:        r.ErrorMessage,
		CreatedAt:           r.CreatedAt,
		CompletedAt:         r.CompletedAt,
	}
}

func (h *Handler) get(c *gin.Context) {
	review, err := h.Service.GetReview(c.Request.Context(), c.Param("id"))
	if err != nil {
		if err == ErrNotFound {
			respond.Error(c, http.StatusNotFound, "NOT_FOUND", "review not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to load review", nil)
		return
	}
	respond.OK(c, toView(review))
}

func (h *Handler) list(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxListLimit {
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "limit must be between 1 and 100", nil)
			return
		}
		limit = n
	}
	records, err := h.Service.ListReviews(c.Request.Context(), limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to list reviews", nil)
		return
	}
	views := make([]reviewView, 0, len(records))
	for _, r := range records {
		views = append(views, toView(r))
	}
	respond.OK(c, gin.H{"reviews": views})
}

func (h *Handler) download(c *gin.Context) {
	path, fileName, ok := h.Service.Downloads.Resolve(c.Param("token"))
	if !ok {
		respond.Error(c, http.StatusNotFound, "NOT_FOUND", "download expired or unknown", nil)
		return
	}
	if _, err := os.Stat(path); err != nil {
		respond.Error(c, http.StatusGone, "GONE", "artifact no longer staged", nil)
		return
	}
	c.FileAttachment(path, fileName)
}

func (h *Handler) health(c *gin.Context) {
	respond.OK(c, gin.H{"status": "ok"})
}
