// internal/coop/stats.go
package coop

import (
	"context"
	"math"
	"time"

	"agrimarket-notifications/internal/models"
)

// Stats summarizes the current state of both registries. Rates are
// integer percentages in [0, 100]; they are 0 whenever the denominator
// is empty.
type Stats struct {
	TotalMessages       int `json:"totalMessages"`
	UnreadMessages      int `json:"unreadMessages"`
	TotalAnnouncements  int `json:"totalAnnouncements"`
	RecentAnnouncements int `json:"recentAnnouncements"` // created in the trailing 7 days
	DeliveryRate        int `json:"deliveryRate"`
	ReadRate            int `json:"readRate"`
}

// ComputeStats derives Stats from in-memory lists.
func ComputeStats(messages []models.Message, announcements []models.Announcement, now time.Time) Stats {
	stats := Stats{
		TotalMessages:      len(messages),
		TotalAnnouncements: len(announcements),
	}

	delivered, read := 0, 0
	for _, m := range messages {
		if m.Status != models.MessageRead {
			stats.UnreadMessages++
		}
		switch m.Status {
		case models.MessageDelivered, models.MessageRead:
			delivered++
			if m.Status == models.MessageRead {
				read++
			}
		}
	}

	weekAgo := now.AddDate(0, 0, -7)
	for _, a := range announcements {
		if a.CreatedAt.After(weekAgo) {
			stats.RecentAnnouncements++
		}
	}

	if stats.TotalMessages > 0 {
		stats.DeliveryRate = int(math.Round(100 * float64(delivered) / float64(stats.TotalMessages)))
	}
	if delivered > 0 {
		stats.ReadRate = int(math.Round(100 * float64(read) / float64(delivered)))
	}
	return stats
}

// StatsService loads both registries and computes a snapshot.
type StatsService struct {
	messages      *MessageRegistry
	announcements *AnnouncementRegistry
	now           func() time.Time
}

func NewStatsService(messages *MessageRegistry, announcements *AnnouncementRegistry) *StatsService {
	return &StatsService{
		messages:      messages,
		announcements: announcements,
		now:           time.Now,
	}
}

// GetStats computes statistics over the current registry contents.
func (s *StatsService) GetStats(ctx context.Context) (Stats, error) {
	messages, err := s.messages.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	announcements, err := s.announcements.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(messages, announcements, s.now()), nil
}
