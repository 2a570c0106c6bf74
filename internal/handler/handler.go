// Package handler exposes the dashboard REST surface over the records
// store and query engine.
package handler

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"studentdesk/internal/auth"
	"studentdesk/internal/cloudinary"
	"studentdesk/internal/form"
	"studentdesk/internal/model"
	"studentdesk/internal/query"
	"studentdesk/internal/records"
)

// AuthConfig carries the staff login settings.
type AuthConfig struct {
	StaffKey   string
	Issuer     string
	SigningKey string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type Handler struct {
	store  *records.Store
	engine *query.Engine
	cloud  *cloudinary.Client // nil if Cloudinary not configured
	authc  AuthConfig
}

func New(s *records.Store, e *query.Engine, cloud *cloudinary.Client, authc AuthConfig) *Handler {
	return &Handler{store: s, engine: e, cloud: cloud, authc: authc}
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	healthy := h.store.Healthy(c.Request.Context())
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ok", "storage": healthy})
}

// ---------- Auth ----------

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Staff string `json:"staff" binding:"required"`
		Key   string `json:"key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Key != h.authc.StaffKey {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid staff key"})
		return
	}
	tokens, err := auth.Issue(req.Staff, "staff", h.authc.Issuer, h.authc.SigningKey, h.authc.AccessTTL, h.authc.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

// ---------- Students ----------

// ListStudents returns one rendered page of the filtered/sorted set.
func (h *Handler) ListStudents(c *gin.Context) {
	params := query.Params{
		Query: c.Query("q"),
		Filters: records.Filters{
			Department: c.Query("department"),
			Status:     c.Query("status"),
			Gender:     c.Query("gender"),
		},
		SortColumn:    c.DefaultQuery("sort", query.SortRollNo),
		SortDirection: c.DefaultQuery("dir", "asc"),
	}
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		params.Page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("per_page", "25")); err == nil {
		params.PerPage = v
	}

	view, err := h.engine.View(c.Request.Context(), params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if view.Items == nil {
		view.Items = []model.Student{}
	}
	resp := gin.H{"view": view}
	if view.TotalFiltered == 0 {
		if params.Query != "" {
			resp["message"] = "No students found. Try a different search term."
		} else {
			resp["message"] = "No students found"
		}
	}
	c.JSON(http.StatusOK, resp)
}

type createRequest struct {
	Name           string   `json:"name"`
	RollNumber     string   `json:"rollNumber"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	Gender         string   `json:"gender"`
	Department     string   `json:"department"`
	GPA            *float64 `json:"gpa"`
	Status         string   `json:"status"`
	EnrollmentDate string   `json:"enrollmentDate"`
	Address        string   `json:"address"`
	ProfilePhoto   string   `json:"profilePhoto"`
}

// CreateStudent validates with the same rules the wizard uses and adds the
// record. Duplicate roll numbers come back as 409.
func (h *Handler) CreateStudent(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	draft := model.FormDraft{
		Name:           req.Name,
		RollNumber:     req.RollNumber,
		Email:          req.Email,
		Phone:          req.Phone,
		Gender:         req.Gender,
		Department:     req.Department,
		Status:         req.Status,
		EnrollmentDate: req.EnrollmentDate,
		Address:        req.Address,
		ProfilePhoto:   req.ProfilePhoto,
	}
	if req.GPA != nil {
		draft.GPA = strconv.FormatFloat(*req.GPA, 'f', -1, 64)
	}
	// Uniqueness is re-checked by the store under its lock; no lookup here.
	if fields := form.ValidateRecord(draft, time.Now(), nil); len(fields) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"errors": fields})
		return
	}

	input := model.StudentInput{
		Name:           strings.TrimSpace(req.Name),
		RollNumber:     strings.TrimSpace(req.RollNumber),
		Email:          strings.TrimSpace(req.Email),
		Phone:          strings.TrimSpace(req.Phone),
		Gender:         req.Gender,
		Department:     req.Department,
		GPA:            req.GPA,
		Status:         req.Status,
		EnrollmentDate: req.EnrollmentDate,
		Address:        req.Address,
		ProfilePhoto:   req.ProfilePhoto,
	}
	st, err := h.store.Add(c.Request.Context(), input)
	if errors.Is(err, records.ErrDuplicateRoll) {
		c.JSON(http.StatusConflict, gin.H{"error": "roll number already exists"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (h *Handler) GetStudent(c *gin.Context) {
	st, err := h.store.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if st == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
		return
	}
	c.JSON(http.StatusOK, st)
}

// UpdateStudent merges a partial patch. Supplied fields are validated with
// the wizard rules before the store sees them.
func (h *Handler) UpdateStudent(c *gin.Context) {
	var patch model.StudentPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if fields := validatePatch(patch); len(fields) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"errors": fields})
		return
	}

	st, err := h.store.Update(c.Request.Context(), c.Param("id"), patch)
	if errors.Is(err, records.ErrDuplicateRoll) {
		c.JSON(http.StatusConflict, gin.H{"error": "roll number already exists"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if st == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) DeleteStudent(c *gin.Context) {
	id := c.Param("id")
	st, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if st == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
		return
	}
	if _, err := h.store.Remove(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// BulkDelete removes every listed id that exists and reports the count.
func (h *Handler) BulkDelete(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	before, err := h.store.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	after, err := h.store.RemoveMany(c.Request.Context(), req.IDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": len(before) - len(after)})
}

// ---------- Stats & activity ----------

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.store.Statistics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) Activity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	entries, err := h.store.Activities(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []model.ActivityEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"activity": entries})
}

// ---------- Draft ----------

func (h *Handler) GetDraft(c *gin.Context) {
	draft, err := h.store.Draft(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

func (h *Handler) PutDraft(c *gin.Context) {
	var draft model.FormDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.SaveDraft(c.Request.Context(), draft); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteDraft(c *gin.Context) {
	if err := h.store.ClearDraft(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// ---------- Photos ----------

// UploadPhoto accepts a multipart file or a JSON base64 data URL and
// returns the stored photo URL.
func (h *Handler) UploadPhoto(c *gin.Context) {
	if h.cloud == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
		return
	}

	var result *cloudinary.UploadResult
	var err error
	switch {
	case strings.Contains(c.ContentType(), "multipart/form-data"):
		file, header, ferr := c.Request.FormFile("file")
		if ferr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
			return
		}
		defer file.Close()
		data, ferr := io.ReadAll(file)
		if ferr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
			return
		}
		result, err = h.cloud.UploadBytes(data, header.Filename)
	default:
		var body struct {
			Data string `json:"data" binding:"required"`
		}
		if berr := c.ShouldBindJSON(&body); berr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "provide {\"data\": \"<base64 data URL>\"}"})
			return
		}
		result, err = h.cloud.UploadDataURL(body.Data)
	}
	if err != nil {
		log.Printf("photo upload failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "photo upload failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": result.SecureURL, "public_id": result.PublicID, "bytes": result.Bytes})
}

// validatePatch applies the wizard field rules to whichever fields the
// patch supplies.
func validatePatch(p model.StudentPatch) []form.FieldError {
	draft := model.FormDraft{
		// Absent fields pass vacuously; required-ness applies on create.
		Name:           "ok",
		RollNumber:     "DBU0000000",
		Email:          "ok@ok.edu",
		EnrollmentDate: "2000-01-01",
	}
	if p.Name != nil {
		draft.Name = *p.Name
	}
	if p.RollNumber != nil {
		draft.RollNumber = *p.RollNumber
	}
	if p.Email != nil {
		draft.Email = *p.Email
	}
	if p.Phone != nil {
		draft.Phone = *p.Phone
	}
	if p.GPA != nil {
		draft.GPA = strconv.FormatFloat(*p.GPA, 'f', -1, 64)
	}
	if p.EnrollmentDate != nil {
		draft.EnrollmentDate = *p.EnrollmentDate
	}
	return form.ValidateRecord(draft, time.Now(), nil)
}
