package fuel

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// VehicleFinder 校验加油记录挂载的车辆存在。
type VehicleFinder interface {
	Exists(ctx context.Context, vehicleID string) (bool, error)
}

// Handler 车辆加油记录的 HTTP 接口。
type Handler struct {
	repo     *Repo
	vehicles VehicleFinder
}

func NewHandler(repo *Repo, vehicles VehicleFinder) *Handler {
	return &Handler{repo: repo, vehicles: vehicles}
}

// Register 挂载路由。
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/vehicles/:id/fuel", h.recordExpense)
	rg.GET("/vehicles/:id/fuel", h.listExpenses)
}

type recordExpensePayload struct {
	Liters     float64  `json:"liters" binding:"required"`
	CostCents  int64    `json:"cost_cents" binding:"required"`
	OdometerKm *float64 `json:"odometer_km"`
	FilledAt   string   `json:"filled_at"`
}

func (h *Handler) recordExpense(c *gin.Context) {
	vehicleID := strings.TrimSpace(c.Param("id"))
	if err := h.checkVehicle(c.Request.Context(), vehicleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var p recordExpensePayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload", "detail": err.Error()})
		return
	}
	if math.IsNaN(p.Liters) || math.IsInf(p.Liters, 0) || p.Liters <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "liters must be a positive number"})
		return
	}
	if p.CostCents <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cost_cents must be positive"})
		return
	}
	if p.OdometerKm != nil {
		km := *p.OdometerKm
		if math.IsNaN(km) || math.IsInf(km, 0) || km < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "odometer_km must be a non-negative number"})
			return
		}
	}

	filledAt := time.Now()
	if s := strings.TrimSpace(p.FilledAt); s != "" {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "filled_at must be RFC3339"})
			return
		}
		filledAt = ts
	}

	e := &Expense{
		VehicleID:  vehicleID,
		Liters:     p.Liters,
		CostCents:  p.CostCents,
		OdometerKm: p.OdometerKm,
		FilledAt:   filledAt,
	}
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) listExpenses(c *gin.Context) {
	vehicleID := strings.TrimSpace(c.Param("id"))
	if err := h.checkVehicle(c.Request.Context(), vehicleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	page, size := 1, 20
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.Query("page_size")); err == nil && v > 0 && v <= 200 {
		size = v
	}

	es, total, err := h.repo.ListByVehicle(c.Request.Context(), vehicleID, (page-1)*size, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	costCents, liters, err := h.repo.TotalCostByVehicle(c.Request.Context(), vehicleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"expenses":         es,
		"total":            total,
		"total_cost_cents": costCents,
		"total_liters":     liters,
	})
}

func (h *Handler) checkVehicle(ctx context.Context, vehicleID string) error {
	if h.vehicles == nil {
		return nil
	}
	ok, err := h.vehicles.Exists(ctx, vehicleID)
	if err != nil {
		return err
	}
	if !ok {
		return gorm.ErrRecordNotFound
	}
	return nil
}
