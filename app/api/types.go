package api

import (
	"github.com/dmtral/aipulse/app/database"
	"github.com/dmtral/aipulse/app/tasks"
)

type Handler struct {
	db        *database.DB
	repo      database.RecordRepository
	scheduler tasks.TaskSchedulerInterface
	startedAt int64
}
