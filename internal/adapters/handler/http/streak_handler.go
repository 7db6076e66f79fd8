package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/services"
)

type StreakHandler struct {
	svc *services.StreakService
}

func NewStreakHandler(svc *services.StreakService) *StreakHandler {
	return &StreakHandler{svc: svc}
}

func (h *StreakHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/streaks", h.Dashboard)
	r.GET("/streaks/account", h.Account)
	r.GET("/habits/:id/streak", h.Habit)
}

// Dashboard godoc
// @Summary      Streaks of every active habit plus the account streak
// @Tags         streaks
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  services.Dashboard
// @Router       /streaks [get]
func (h *StreakHandler) Dashboard(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	board, err := h.svc.Dashboard(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, board)
}

// Account godoc
// @Summary      Account streak and at-risk flag
// @Tags         streaks
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  services.AccountStatus
// @Router       /streaks/account [get]
func (h *StreakHandler) Account(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	status, err := h.svc.AccountStatus(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// Habit godoc
// @Summary      Live streak of one habit
// @Tags         streaks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Habit ID"
// @Success      200  {object}  services.HabitStreak
// @Failure      404  {object}  map[string]string
// @Router       /habits/{id}/streak [get]
func (h *StreakHandler) Habit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := h.svc.HabitStreak(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
