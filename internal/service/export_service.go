package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pledgecam/pledgecam-api/internal/models"
	appErrors "github.com/pledgecam/pledgecam-api/pkg/errors"
	"github.com/pledgecam/pledgecam-api/pkg/export"
)

type exportStudentRepository interface {
	ListAll(ctx context.Context) ([]models.Student, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFormat enumerates supported report encodings.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportFile bundles rendered report bytes with transport metadata.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the submissions report consumed by staff.
type ExportService struct {
	repo   exportStudentRepository
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(repo exportStudentRepository, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{repo: repo, csv: csv, pdf: pdf, logger: logger}
}

// SubmissionsReport renders the full roster with submission state in the
// requested format.
func (s *ExportService) SubmissionsReport(ctx context.Context, format ExportFormat) (*ExportFile, error) {
	switch format {
	case ExportFormatCSV, ExportFormatPDF:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}

	students, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	dataset := export.Dataset{
		Headers: []string{"Name", "Grade", "Submitted", "Celebrity", "Video"},
		Rows:    make([]map[string]string, 0, len(students)),
	}
	for _, student := range students {
		row := map[string]string{
			"Name":      student.Name,
			"Grade":     string(student.Grade),
			"Submitted": fmt.Sprintf("%t", student.VideoSubmitted),
			"Celebrity": deref(student.FavoriteCelebrity),
			"Video":     deref(student.URL),
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	switch format {
	case ExportFormatPDF:
		data, err := s.pdf.Render(dataset, "Pledge video submissions")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{Filename: "submissions.pdf", ContentType: "application/pdf", Data: data}, nil
	default:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{Filename: "submissions.csv", ContentType: "text/csv", Data: data}, nil
	}
}

// ParseExportFormat normalises a query-string format value.
func ParseExportFormat(raw string) ExportFormat {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pdf":
		return ExportFormatPDF
	default:
		return ExportFormatCSV
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
