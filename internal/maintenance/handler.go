package maintenance

import (
	"context"
	"errors"
	"net/http"

	"github.com/FleetOrbit/FleetOrbit/internal/vehicle"
	"github.com/gin-gonic/gin"
)

// Handler 维保工作流的 HTTP 接口。
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register 挂载路由。
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/vehicles/:id/maintenance/request", h.op(func(s *Service, ctx context.Context, id string) (*vehicle.Vehicle, error) {
		return s.RequestMaintenance(ctx, id)
	}))
	rg.POST("/vehicles/:id/maintenance/start", h.op(func(s *Service, ctx context.Context, id string) (*vehicle.Vehicle, error) {
		return s.StartShopWork(ctx, id)
	}))
	rg.POST("/vehicles/:id/maintenance/finish", h.op(func(s *Service, ctx context.Context, id string) (*vehicle.Vehicle, error) {
		return s.ReturnToService(ctx, id)
	}))
	rg.POST("/vehicles/:id/retire", h.op(func(s *Service, ctx context.Context, id string) (*vehicle.Vehicle, error) {
		return s.Retire(ctx, id)
	}))
}

func (h *Handler) op(fn func(s *Service, ctx context.Context, id string) (*vehicle.Vehicle, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := fn(h.svc, c.Request.Context(), c.Param("id"))
		if err != nil {
			switch {
			case errors.Is(err, ErrVehicleNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			case errors.Is(err, ErrVehicleOnTrip), errors.Is(err, ErrIllegalStatus):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusOK, v)
	}
}
