package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmtral/aipulse/app/cfg"
	"github.com/dmtral/aipulse/app/database"
	"github.com/dmtral/aipulse/app/model"
	"github.com/dmtral/aipulse/app/tasks"
)

func NewHandler(db *database.DB, repo database.RecordRepository, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		db:        db,
		repo:      repo,
		scheduler: scheduler,
		startedAt: time.Now().Unix(),
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	status := "ok"
	code := http.StatusOK

	if err := h.db.Ping(); err != nil {
		slog.Error("Database ping failed", "error", err)
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"version":   cfg.Get().Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    (time.Duration(time.Now().Unix()-h.startedAt) * time.Second).String(),
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := gin.H{}

	for _, kind := range []model.Kind{model.KindRelease, model.KindBlog} {
		total, relevant, notified, err := h.repo.GetRecordStats(kind)
		if err != nil {
			slog.Error("Database error", "operation", "get_record_stats", "kind", string(kind), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		stats[string(kind)] = gin.H{
			"total":    total,
			"relevant": relevant,
			"notified": notified,
		}
	}

	c.JSON(http.StatusOK, stats)
}

// APITriggerCleanup enqueues an immediate retention sweep.
func (h *Handler) APITriggerCleanup(c *gin.Context) {
	task := tasks.NewCleanupTask(h.repo, cfg.Get().RetentionDays)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing cleanup task", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue cleanup task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"task": gin.H{
			"id":   task.ID,
			"type": task.Type,
		},
	})
}
