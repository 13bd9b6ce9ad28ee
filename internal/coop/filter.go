// internal/coop/filter.go
package coop

import (
	"strings"

	"agrimarket-notifications/internal/models"
)

// FilterAll is the sentinel meaning "no filter applied".
const FilterAll = "all"

// MessageFilter narrows a message list. Empty or "all" fields are
// ignored. Search is a case-insensitive substring match over subject,
// content and sender.
type MessageFilter struct {
	Search   string
	Type     string
	Priority string
	Status   string
}

// AnnouncementFilter narrows an announcement list. Search matches
// title, content and author.
type AnnouncementFilter struct {
	Search     string
	Type       string
	Status     string
	Visibility string
}

func active(value string) bool {
	return value != "" && value != FilterAll
}

func matchesSearch(needle string, haystacks ...string) bool {
	needle = strings.ToLower(needle)
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

// FilterMessages returns the messages matching every active criterion.
func FilterMessages(list []models.Message, f MessageFilter) []models.Message {
	out := make([]models.Message, 0, len(list))
	for _, m := range list {
		if f.Search != "" && !matchesSearch(f.Search, m.Subject, m.Content, m.Sender) {
			continue
		}
		if active(f.Type) && string(m.Type) != f.Type {
			continue
		}
		if active(f.Priority) && string(m.Priority) != f.Priority {
			continue
		}
		if active(f.Status) && string(m.Status) != f.Status {
			continue
		}
		out = append(out, m)
	}
	return out
}

// FilterAnnouncements returns the announcements matching every active
// criterion.
func FilterAnnouncements(list []models.Announcement, f AnnouncementFilter) []models.Announcement {
	out := make([]models.Announcement, 0, len(list))
	for _, a := range list {
		if f.Search != "" && !matchesSearch(f.Search, a.Title, a.Content, a.Author) {
			continue
		}
		if active(f.Type) && string(a.Type) != f.Type {
			continue
		}
		if active(f.Status) && string(a.Status) != f.Status {
			continue
		}
		if active(f.Visibility) && string(a.Visibility) != f.Visibility {
			continue
		}
		out = append(out, a)
	}
	return out
}
