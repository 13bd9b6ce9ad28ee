// internal/coop/export.go
package coop

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
	"time"

	apperrors "agrimarket-notifications/internal/common/errors"
	"agrimarket-notifications/internal/models"
)

var (
	messageExportHeader      = []string{"id", "subject", "type", "priority", "sender", "status", "createdAt", "deliveredAt", "readAt", "recipients"}
	announcementExportHeader = []string{"id", "title", "type", "author", "status", "visibility", "createdAt", "updatedAt", "readCount"}
)

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// ExportMessages serializes messages to CSV with a header row. Fields
// containing delimiters or newlines are quoted per RFC 4180.
func ExportMessages(list []models.Message) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(messageExportHeader); err != nil {
		return "", apperrors.NewExportFailedError(err)
	}
	for _, m := range list {
		row := []string{
			m.ID,
			m.Subject,
			string(m.Type),
			string(m.Priority),
			m.Sender,
			string(m.Status),
			m.CreatedAt.UTC().Format(time.RFC3339),
			formatOptionalTime(m.DeliveredAt),
			formatOptionalTime(m.ReadAt),
			strings.Join(m.Recipients, ";"),
		}
		if err := w.Write(row); err != nil {
			return "", apperrors.NewExportFailedError(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", apperrors.NewExportFailedError(err)
	}
	return buf.String(), nil
}

// ExportAnnouncements serializes announcements to CSV with a header
// row.
func ExportAnnouncements(list []models.Announcement) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(announcementExportHeader); err != nil {
		return "", apperrors.NewExportFailedError(err)
	}
	for _, a := range list {
		row := []string{
			a.ID,
			a.Title,
			string(a.Type),
			a.Author,
			string(a.Status),
			string(a.Visibility),
			a.CreatedAt.UTC().Format(time.RFC3339),
			a.UpdatedAt.UTC().Format(time.RFC3339),
			strconv.Itoa(a.ReadCount),
		}
		if err := w.Write(row); err != nil {
			return "", apperrors.NewExportFailedError(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", apperrors.NewExportFailedError(err)
	}
	return buf.String(), nil
}
