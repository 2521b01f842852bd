// Package server provides the HTTP API of the generation lab.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/job"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/project"
)

// GenerateRequest is the body of POST /api/video/generate. It arrives
// either as multipart form fields or as JSON.
type GenerateRequest struct {
	// Prompt is the text the clips are generated from.
	Prompt string `json:"prompt" validate:"required,max=4000"`
	// Provider is the provider ID from /api/providers.
	Provider string `json:"provider" validate:"required"`
	// Count is the number of clips to generate.
	Count int `json:"count" validate:"min=1,max=20"`
	// Duration is the requested clip length in seconds.
	Duration int `json:"duration" validate:"min=1,max=15"`
	// AspectRatio is the requested frame shape.
	AspectRatio string `json:"aspect_ratio" validate:"oneof=16:9 9:16 1:1"`
	// Resolution is a provider hint such as 720p.
	Resolution string `json:"resolution" validate:"omitempty,oneof=480p 540p 720p 768p 1080p"`
	// Project is the project the clips are written into.
	Project string `json:"project" validate:"omitempty,max=100"`
	// Image is an optional data URI used as the first frame.
	Image string `json:"image,omitempty" validate:"omitempty,datauri"`
}

// GenerateResponse is returned once a job has been accepted.
type GenerateResponse struct {
	JobID string `json:"job_id"`
	Count int    `json:"count"`
}

// UnitResponse is the public view of one clip in a job.
type UnitResponse struct {
	Index      int    `json:"index"`
	Status     string `json:"status"`
	ResultPath string `json:"result_path,omitempty"`
	URL        string `json:"url,omitempty"`
	Error      string `json:"error,omitempty"`
}

// JobResponse is the public view of a job.
type JobResponse struct {
	ID         string         `json:"id"`
	Prompt     string         `json:"prompt"`
	ProviderID string         `json:"provider_id"`
	Project    string         `json:"project"`
	Complete   bool           `json:"complete"`
	Counts     job.Counts     `json:"counts"`
	Units      []UnitResponse `json:"units"`
}

// CreateProjectRequest is the body of POST /api/projects.
type CreateProjectRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// ProjectResponse wraps a single project.
type ProjectResponse struct {
	Project project.Project `json:"project"`
}

// ProjectListResponse wraps the project list.
type ProjectListResponse struct {
	Projects []project.Project `json:"projects"`
}

// DeleteProjectResponse confirms a deletion.
type DeleteProjectResponse struct {
	Deleted bool   `json:"deleted"`
	Name    string `json:"name"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
	// Providers is the number of usable providers.
	Providers int `json:"providers"`
}
