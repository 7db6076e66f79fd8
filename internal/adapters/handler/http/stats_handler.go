package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/services"
	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/streak"
)

type StatsHandler struct {
	svc *services.StatsService
}

func NewStatsHandler(svc *services.StatsService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

func (h *StatsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/stats/weekly", h.GetWeeklyStats)
}

// GetWeeklyStats godoc
// @Summary      Per-day completion stats
// @Description  Days are the user's local calendar days. The range defaults to the seven local days ending today and spans at most 366 days.
// @Tags         stats
// @Produce      json
// @Security     BearerAuth
// @Param        start_date  query     string  false  "YYYY-MM-DD"
// @Param        end_date    query     string  false  "YYYY-MM-DD"
// @Success      200         {object}  domain.WeeklyStats
// @Failure      400         {object}  map[string]string
// @Router       /stats/weekly [get]
func (h *StatsHandler) GetWeeklyStats(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	input := domain.StatsInput{UserID: userID}
	for _, bound := range []struct {
		param string
		dst   *time.Time
	}{
		{"start_date", &input.StartDate},
		{"end_date", &input.EndDate},
	} {
		raw := c.Query(bound.param)
		if raw == "" {
			continue
		}
		date, err := streak.ParseLocalDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + bound.param + " format, expected YYYY-MM-DD"})
			return
		}
		*bound.dst = date
	}

	stats, err := h.svc.GetWeeklyStats(c.Request.Context(), input)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
