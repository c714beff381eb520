package trip

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Handler 行程生命周期命令的 HTTP 接口。
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register 挂载路由。
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/trips", h.createTrip)
	rg.GET("/trips", h.listTrips)
	rg.GET("/trips/:id", h.getTrip)
	rg.POST("/trips/:id/dispatch", h.dispatchTrip)
	rg.POST("/trips/:id/complete", h.completeTrip)
	rg.POST("/trips/:id/cancel", h.cancelTrip)
	rg.GET("/metrics/fleet", h.fleetMetrics)
}

type createTripPayload struct {
	Destination   string  `json:"destination" binding:"required"`
	Cargo         string  `json:"cargo" binding:"required"`
	CargoWeightKg float64 `json:"cargo_weight_kg" binding:"required"`
	VehicleID     string  `json:"vehicle_id" binding:"required"`
	DriverID      string  `json:"driver_id" binding:"required"`
}

func (h *Handler) createTrip(c *gin.Context) {
	var p createTripPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload", "detail": err.Error()})
		return
	}

	t, err := h.svc.CreateTrip(c.Request.Context(), CreateTripInput{
		Destination:   p.Destination,
		Cargo:         p.Cargo,
		CargoWeightKg: p.CargoWeightKg,
		VehicleID:     p.VehicleID,
		DriverID:      p.DriverID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) getTrip(c *gin.Context) {
	t, err := h.svc.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) listTrips(c *gin.Context) {
	page, size := 1, 20
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.Query("page_size")); err == nil && v > 0 && v <= 200 {
		size = v
	}
	f := TripFilter{
		VehicleID: strings.TrimSpace(c.Query("vehicle_id")),
		DriverID:  strings.TrimSpace(c.Query("driver_id")),
		Status:    Status(strings.TrimSpace(c.Query("status"))),
		Offset:    (page - 1) * size,
		Limit:     size,
	}
	ts, total, err := h.svc.ListTrips(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trips": ts, "total": total})
}

func (h *Handler) dispatchTrip(c *gin.Context) {
	t, err := h.svc.DispatchTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type completeTripPayload struct {
	EndOdometerKm *float64 `json:"end_odometer_km" binding:"required"`
}

func (h *Handler) completeTrip(c *gin.Context) {
	var p completeTripPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload", "detail": err.Error()})
		return
	}
	t, err := h.svc.CompleteTrip(c.Request.Context(), c.Param("id"), *p.EndOdometerKm)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) cancelTrip(c *gin.Context) {
	t, err := h.svc.CancelTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) fleetMetrics(c *gin.Context) {
	m, err := h.svc.FleetMetrics(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// writeError 错误分类到 HTTP 状态码的唯一映射点。
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrIllegalState), errors.Is(err, ErrResourceUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
