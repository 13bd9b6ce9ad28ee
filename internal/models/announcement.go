// internal/models/announcement.go
package models

import "time"

// AnnouncementType classifies a cooperative-wide broadcast.
type AnnouncementType string

const (
	AnnouncementGeneral   AnnouncementType = "general"
	AnnouncementImportant AnnouncementType = "important"
	AnnouncementEmergency AnnouncementType = "emergency"
)

// AnnouncementStatus is the publication lifecycle state.
type AnnouncementStatus string

const (
	AnnouncementDraft     AnnouncementStatus = "draft"
	AnnouncementPublished AnnouncementStatus = "published"
	AnnouncementArchived  AnnouncementStatus = "archived"
)

// Visibility scopes which audience segment can see an announcement.
type Visibility string

const (
	VisibilityAll       Visibility = "all"
	VisibilityMembers   Visibility = "members"
	VisibilityCommittee Visibility = "committee"
	VisibilityStaff     Visibility = "staff"
)

// Comment is a member reply attached to an announcement.
type Comment struct {
	ID         string    `json:"id"`
	Author     string    `json:"author"`
	AuthorRole string    `json:"authorRole"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Announcement is a broadcast, org-wide post with visibility scoping,
// publish/archive lifecycle and per-member read tracking.
//
// Invariant: ReadCount == len(ReadBy), and a member appears in ReadBy at
// most once. ExpiresAt is advisory metadata only; nothing in this layer
// transitions an expired announcement.
type Announcement struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Content     string             `json:"content"`
	Type        AnnouncementType   `json:"type"`
	Author      string             `json:"author"`
	AuthorRole  string             `json:"authorRole"`
	Status      AnnouncementStatus `json:"status"`
	Visibility  Visibility         `json:"visibility"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
	ExpiresAt   *time.Time         `json:"expiresAt,omitempty"`
	Attachments []Attachment       `json:"attachments,omitempty"`
	ReadCount   int                `json:"readCount"`
	Comments    []Comment          `json:"comments,omitempty"`
	ReadBy      []ReadReceipt      `json:"readBy,omitempty"`
}
