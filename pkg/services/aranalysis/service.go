// Package aranalysis drives the Insurance AR Analysis workflow: the
// three-step upload wizard, the processing-status watcher and the report
// fetch. All pipeline state lives server-side; this package orchestrates
// and displays, it never computes a status transition.
package aranalysis

import (
	"context"
	"fmt"
	"io"

	"github.com/rcm-tools/rcm-atlas/pkg/client"
	"github.com/rcm-tools/rcm-atlas/pkg/models/api"
)

const basePath = "/api/RcmIntelligence/InsuranceArAnalysis"

// API is the backend surface of the AR analysis workflow.
type API interface {
	CreateSession(ctx context.Context, practiceName, intakePath string) (*api.CreateSessionResult, error)
	ReplaceIntake(ctx context.Context, sessionID, intakePath string) (*api.ArIntakeValidationResult, error)
	UploadPmReports(ctx context.Context, sessionID string, paths []string) error
	GetSession(ctx context.Context, sessionID string) (*api.ArAnalysisSession, error)
	Start(ctx context.Context, sessionID string) error
	GetStatus(ctx context.Context, sessionID string) (*api.ArAnalysisProcessingStatus, error)
	GetReport(ctx context.Context, sessionID string) (*api.ArAnalysisReport, error)
	DownloadTemplate(ctx context.Context, w io.Writer) (string, error)
	DownloadConflictFile(ctx context.Context, sessionID string, w io.Writer) (string, error)
	UploadConflictFile(ctx context.Context, sessionID, path string) error
}

type restAPI struct {
	api *client.Client
}

func NewAPI(apiClient *client.Client) API {
	return &restAPI{api: apiClient}
}

func (r *restAPI) CreateSession(ctx context.Context, practiceName, intakePath string) (*api.CreateSessionResult, error) {
	var result api.CreateSessionResult
	err := r.api.UploadMultipart(ctx, "POST", basePath,
		[]client.Upload{{Field: "intakeFile", Path: intakePath}},
		map[string]string{"practiceName": practiceName},
		&result,
	)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *restAPI) ReplaceIntake(ctx context.Context, sessionID, intakePath string) (*api.ArIntakeValidationResult, error) {
	var result api.ArIntakeValidationResult
	err := r.api.UploadMultipart(ctx, "PUT", basePath+"/"+sessionID+"/intake",
		[]client.Upload{{Field: "intakeFile", Path: intakePath}},
		nil,
		&result,
	)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *restAPI) UploadPmReports(ctx context.Context, sessionID string, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no PM report files given")
	}
	uploads := make([]client.Upload, 0, len(paths))
	for _, p := range paths {
		uploads = append(uploads, client.Upload{Field: "files", Path: p})
	}
	return r.api.UploadMultipart(ctx, "POST", basePath+"/"+sessionID+"/pm-reports", uploads, nil, nil)
}

func (r *restAPI) GetSession(ctx context.Context, sessionID string) (*api.ArAnalysisSession, error) {
	var session api.ArAnalysisSession
	if err := r.api.GetJSON(ctx, basePath+"/"+sessionID, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *restAPI) Start(ctx context.Context, sessionID string) error {
	return r.api.PostJSON(ctx, basePath+"/"+sessionID+"/start", nil, nil)
}

func (r *restAPI) GetStatus(ctx context.Context, sessionID string) (*api.ArAnalysisProcessingStatus, error) {
	var status api.ArAnalysisProcessingStatus
	if err := r.api.GetJSON(ctx, basePath+"/"+sessionID+"/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *restAPI) GetReport(ctx context.Context, sessionID string) (*api.ArAnalysisReport, error) {
	var report api.ArAnalysisReport
	if err := r.api.GetJSON(ctx, basePath+"/"+sessionID+"/report", nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *restAPI) DownloadTemplate(ctx context.Context, w io.Writer) (string, error) {
	return r.api.DownloadBlob(ctx, basePath+"/template", w)
}

func (r *restAPI) DownloadConflictFile(ctx context.Context, sessionID string, w io.Writer) (string, error) {
	return r.api.DownloadBlob(ctx, basePath+"/"+sessionID+"/conflict-file", w)
}

func (r *restAPI) UploadConflictFile(ctx context.Context, sessionID, path string) error {
	return r.api.UploadMultipart(ctx, "POST", basePath+"/"+sessionID+"/conflict-file",
		[]client.Upload{{Field: "file", Path: path}}, nil, nil)
}
