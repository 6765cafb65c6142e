package api

import (
	"github.com/starford/diarysum/internal/diaryservice"
	"github.com/starford/diarysum/internal/models"
)

// RunRequest is the request body for triggering a folder run.
type RunRequest struct {
	Folder string `json:"folder" example:"/home/me/diary"`
	DryRun bool   `json:"dry_run" example:"false"`
}

// RunResponse is returned once a folder run completed.
type RunResponse struct {
	Status string `json:"status" example:"completed" validate:"required"`
	*models.Report
}

// RecentResponse wraps the recent diary listing.
type RecentResponse struct {
	Folder  string             `json:"folder" example:"/home/me/diary" validate:"required"`
	Diaries []models.DiaryFile `json:"diaries" validate:"required"`
}

// DiaryDetail is the full diary response type (aliased from the domain layer).
type DiaryDetail = diaryservice.DiaryDetail
