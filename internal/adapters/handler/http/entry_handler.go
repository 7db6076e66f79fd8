package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/services"
)

type EntryHandler struct {
	svc *services.EntryService
}

func NewEntryHandler(svc *services.EntryService) *EntryHandler {
	return &EntryHandler{
		svc: svc,
	}
}

// createEntryRequest needs at least one of completion_date (an instant) or
// local_date (a calendar date already resolved by the client).
type createEntryRequest struct {
	HabitID        string    `json:"habit_id" binding:"required"`
	CompletionDate time.Time `json:"completion_date"`
	LocalDate      string    `json:"local_date"`
	Value          int       `json:"value"`
	Notes          string    `json:"notes"`
}

const defaultEntryWindow = 30 * 24 * time.Hour

type listEntriesQuery struct {
	HabitID string    `form:"habit_id" binding:"required"`
	From    time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To      time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

type syncQuery struct {
	Since time.Time `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
}

type updateEntryRequest struct {
	Value   int    `json:"value"`
	Notes   string `json:"notes"`
	Version int    `json:"version" binding:"required"`
}

func (h *EntryHandler) RegisterRoutes(router *gin.RouterGroup) {
	entries := router.Group("/entries")
	{
		entries.POST("", h.Create)
		entries.GET("", h.ListByHabit)
		entries.GET("/sync", h.Sync)
		entries.PUT("/:id", h.Update)
		entries.DELETE("/:id", h.Delete)
	}
}

// Create godoc
// @Summary      Record a check-in
// @Description  Stores an entry and schedules a streak recalculation for its habit.
// @Tags         entries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        entry  body      createEntryRequest  true  "Entry"
// @Success      201    {object}  domain.HabitEntry
// @Failure      400    {object}  map[string]string
// @Failure      403    {object}  map[string]string
// @Router       /entries [post]
func (h *EntryHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req createEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	input := services.CreateEntryInput{
		HabitID:        req.HabitID,
		UserID:         userID,
		CompletionDate: req.CompletionDate,
		LocalDate:      req.LocalDate,
		Value:          req.Value,
		Notes:          req.Notes,
	}

	entry, err := h.svc.Create(c.Request.Context(), input)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *EntryHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req updateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	input := services.UpdateEntryInput{
		ID:      c.Param("id"),
		UserID:  userID,
		Value:   req.Value,
		Notes:   req.Notes,
		Version: req.Version,
	}

	entry, err := h.svc.Update(c.Request.Context(), input)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

func (h *EntryHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListByHabit godoc
// @Summary      List check-ins of a habit
// @Description  Window defaults to the last thirty days. Bounds are RFC3339 instants.
// @Tags         entries
// @Produce      json
// @Security     BearerAuth
// @Param        habit_id  query     string  true   "Habit ID"
// @Param        from      query     string  false  "Window start (RFC3339)"
// @Param        to        query     string  false  "Window end (RFC3339)"
// @Success      200       {array}   domain.HabitEntry
// @Failure      400       {object}  map[string]string
// @Failure      403       {object}  map[string]string
// @Router       /entries [get]
func (h *EntryHandler) ListByHabit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var q listEntriesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query", "details": err.Error()})
		return
	}
	if q.To.IsZero() {
		q.To = time.Now().UTC()
	}
	if q.From.IsZero() {
		q.From = q.To.Add(-defaultEntryWindow)
	}

	list, err := h.svc.ListByHabitID(c.Request.Context(), q.HabitID, userID, q.From, q.To)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// Sync returns every entry touched after since, deletions included, and the
// server time to use as the next cursor.
func (h *EntryHandler) Sync(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var q syncQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format (use RFC3339)"})
		return
	}

	cursor := time.Now().UTC()
	changes, err := h.svc.GetDelta(c.Request.Context(), userID, q.Since)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"changes":   changes,
		"timestamp": cursor,
	})
}
