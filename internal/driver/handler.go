package driver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Handler 司机登记相关的 HTTP 接口。
type Handler struct {
	repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{repo: repo}
}

// Register 挂载路由。
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/drivers", h.registerDriver)
	rg.GET("/drivers", h.listDrivers)
	rg.GET("/drivers/:id", h.getDriver)
	rg.POST("/drivers/:id/status", h.updateStatus)
}

type registerDriverPayload struct {
	Name              string   `json:"name" binding:"required"`
	LicenseNumber     string   `json:"license_number" binding:"required"`
	LicenseExpiry     string   `json:"license_expiry" binding:"required"` // RFC3339 或 2006-01-02
	LicenseCategories []string `json:"license_categories" binding:"required"`
	SafetyScore       *int     `json:"safety_score"`
}

func (h *Handler) registerDriver(c *gin.Context) {
	var p registerDriverPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload", "detail": err.Error()})
		return
	}

	expiry, err := parseDate(p.LicenseExpiry)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid license_expiry", "detail": err.Error()})
		return
	}
	categories := CategoriesJoin(p.LicenseCategories)
	if categories == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "license_categories must be non-empty"})
		return
	}
	score := 100
	if p.SafetyScore != nil {
		score = *p.SafetyScore
		if score < 0 || score > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "safety_score must be in [0,100]"})
			return
		}
	}

	d := &Driver{
		ID:                uuid.NewString(),
		Name:              strings.TrimSpace(p.Name),
		LicenseNumber:     strings.TrimSpace(p.LicenseNumber),
		LicenseExpiry:     expiry,
		LicenseCategories: categories,
		Status:            StatusAvailable,
		SafetyScore:       score,
	}
	if err := h.repo.Create(c.Request.Context(), d); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "license_number already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *Handler) getDriver(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	d, err := h.repo.FindByID(c.Request.Context(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "driver not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) listDrivers(c *gin.Context) {
	page, size := 1, 20
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.Query("page_size")); err == nil && v > 0 && v <= 200 {
		size = v
	}
	var status Status
	if s := strings.TrimSpace(c.Query("status")); s != "" {
		status = Status(s)
	}
	ds, total, err := h.repo.List(c.Request.Context(), status, (page-1)*size, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"drivers": ds, "total": total})
}

type updateStatusPayload struct {
	Status string `json:"status" binding:"required"` // available / suspended / off_duty
}

// updateStatus 人工调整司机在岗状态。on_trip 由调度流程独占维护：
// 行程中的司机不允许人工改状态，也不允许人工置为 on_trip。
func (h *Handler) updateStatus(c *gin.Context) {
	var p updateStatusPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload", "detail": err.Error()})
		return
	}
	target := Status(strings.ToLower(strings.TrimSpace(p.Status)))
	switch target {
	case StatusAvailable, StatusSuspended, StatusOffDuty:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of available/suspended/off_duty"})
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	d, err := h.repo.FindByID(c.Request.Context(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "driver not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if d.Status == StatusOnTrip {
		c.JSON(http.StatusConflict, gin.H{"error": "driver is on an active trip"})
		return
	}

	d.Status = target
	if err := h.repo.Update(c.Request.Context(), d); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, d)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
