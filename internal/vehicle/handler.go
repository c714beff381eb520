package vehicle

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActiveTripChecker 回答“该车辆是否被未终结行程引用”。
// 由行程存储实现，避免 vehicle 包反向依赖 trip 包。
type ActiveTripChecker interface {
	HasActiveTrip(ctx context.Context, vehicleID string) (bool, error)
}

// Handler 车辆登记相关的 HTTP 接口。
type Handler struct {
	repo  *Repo
	guard ActiveTripChecker
}

func NewHandler(repo *Repo, guard ActiveTripChecker) *Handler {
	return &Handler{repo: repo, guard: guard}
}

// Register 挂载路由。
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/vehicles", h.registerVehicle)
	rg.GET("/vehicles", h.listVehicles)
	rg.GET("/vehicles/:id", h.getVehicle)
	rg.DELETE("/vehicles/:id", h.deleteVehicle)
}

type registerVehiclePayload struct {
	Name          string   `json:"name" binding:"required"`
	PlateNumber   string   `json:"plate_number" binding:"required"`
	Type          string   `json:"type" binding:"required"`
	MaxCapacityKg *float64 `json:"max_capacity_kg"`
	OdometerKm    float64  `json:"odometer_km"`
	Region        string   `json:"region"`
}

func (h *Handler) registerVehicle(c *gin.Context) {
	var p registerVehiclePayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload", "detail": err.Error()})
		return
	}

	vt, ok := ParseType(p.Type)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown vehicle type: " + p.Type})
		return
	}
	plate := NormalizePlate(p.PlateNumber)
	if plate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plate_number required"})
		return
	}
	if p.MaxCapacityKg != nil {
		kg := *p.MaxCapacityKg
		if math.IsNaN(kg) || math.IsInf(kg, 0) || kg <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_capacity_kg must be a positive number"})
			return
		}
	}
	if math.IsNaN(p.OdometerKm) || math.IsInf(p.OdometerKm, 0) || p.OdometerKm < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "odometer_km must be a non-negative number"})
		return
	}

	v := &Vehicle{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(p.Name),
		PlateNumber:   plate,
		Type:          vt,
		MaxCapacityKg: p.MaxCapacityKg,
		OdometerKm:    p.OdometerKm,
		Status:        StatusAvailable,
		Region:        strings.TrimSpace(p.Region),
	}
	if err := h.repo.Create(c.Request.Context(), v); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "plate_number already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *Handler) getVehicle(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	v, err := h.repo.FindByID(c.Request.Context(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) listVehicles(c *gin.Context) {
	page, size := pageParams(c)
	var status Status
	if s := strings.TrimSpace(c.Query("status")); s != "" {
		status = Status(s)
	}
	vs, total, err := h.repo.List(c.Request.Context(), strings.TrimSpace(c.Query("region")), status, (page-1)*size, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": vs, "total": total})
}

func (h *Handler) deleteVehicle(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := h.repo.FindByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// 被未终结行程引用的车辆不允许删除
	if h.guard != nil {
		active, err := h.guard.HasActiveTrip(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if active {
			c.JSON(http.StatusConflict, gin.H{"error": "vehicle is referenced by an active trip"})
			return
		}
	}

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func pageParams(c *gin.Context) (page, size int) {
	page, size = 1, 20
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.Query("page_size")); err == nil && v > 0 && v <= 200 {
		size = v
	}
	return page, size
}
