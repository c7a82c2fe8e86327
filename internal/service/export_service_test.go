package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pledgecam/pledgecam-api/internal/models"
	appErrors "github.com/pledgecam/pledgecam-api/pkg/errors"
	"github.com/pledgecam/pledgecam-api/pkg/export"
)

type fakeExportRepo struct {
	students []models.Student
}

func (f *fakeExportRepo) ListAll(_ context.Context) ([]models.Student, error) {
	return f.students, nil
}

func TestExportServiceSubmissionsReportCSV(t *testing.T) {
	celebrity := "Taylor Swift"
	url := "ava_wilson_7th.webm"
	repo := &fakeExportRepo{students: []models.Student{
		{Name: "Ava Wilson", Grade: "7th", VideoSubmitted: true, FavoriteCelebrity: &celebrity, URL: &url},
		{Name: "Liam Johnson", Grade: "8th"},
	}}
	svc := NewExportService(repo, export.NewCSVExporter(), export.NewPDFExporter(), nil)

	file, err := svc.SubmissionsReport(context.Background(), ExportFormatCSV)
	require.NoError(t, err)
	require.Equal(t, "submissions.csv", file.Filename)
	require.Equal(t, "text/csv", file.ContentType)
	require.Contains(t, string(file.Data), "Ava Wilson")
	require.Contains(t, string(file.Data), "Taylor Swift")
	require.Contains(t, string(file.Data), "false")
}

func TestExportServiceSubmissionsReportPDF(t *testing.T) {
	repo := &fakeExportRepo{students: []models.Student{
		{Name: "Ava Wilson", Grade: "7th"},
	}}
	svc := NewExportService(repo, export.NewCSVExporter(), export.NewPDFExporter(), nil)

	file, err := svc.SubmissionsReport(context.Background(), ExportFormatPDF)
	require.NoError(t, err)
	require.Equal(t, "submissions.pdf", file.Filename)
	require.Equal(t, "application/pdf", file.ContentType)
	require.NotEmpty(t, file.Data)
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(&fakeExportRepo{}, export.NewCSVExporter(), export.NewPDFExporter(), nil)

	_, err := svc.SubmissionsReport(context.Background(), ExportFormat("xlsx"))
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestParseExportFormat(t *testing.T) {
	require.Equal(t, ExportFormatPDF, ParseExportFormat("PDF"))
	require.Equal(t, ExportFormatCSV, ParseExportFormat("csv"))
	require.Equal(t, ExportFormatCSV, ParseExportFormat(""))
}
