package models

import (
	"fmt"
	"time"
)

// RequestStatus defines lifecycle states for access requests.
type RequestStatus string

const (
	// StatusPending indicates the request is awaiting review.
	StatusPending RequestStatus = "Pending"
	// StatusApproved indicates a reviewer granted the request. Terminal.
	StatusApproved RequestStatus = "Approved"
	// StatusRejected indicates a reviewer denied the request. Terminal.
	StatusRejected RequestStatus = "Rejected"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// The only legal moves are Pending -> Approved and Pending -> Rejected.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	return s == StatusPending && next.IsTerminal()
}

// ParseRequestStatus converts a wire value into a RequestStatus. Matching is case-sensitive.
func ParseRequestStatus(s string) (RequestStatus, error) {
	st := RequestStatus(s)
	if !st.Valid() {
		return "", NewValidationError(fmt.Sprintf("invalid status %q: must be one of Pending, Approved, Rejected", s))
	}
	return st, nil
}

// AccessRequest is a user's request for a level of access to a catalog entry.
// At most one Pending request may exist per (UserID, SoftwareID); the partial
// unique index enforces it at the storage layer.
type AccessRequest struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	UserID         uint          `gorm:"not null;index;uniqueIndex:ux_access_requests_pending_pair,where:status = 'Pending'" json:"userId"`
	SoftwareID     uint          `gorm:"not null;index;uniqueIndex:ux_access_requests_pending_pair,where:status = 'Pending'" json:"softwareId"`
	AccessType     AccessLevel   `gorm:"type:varchar(20);not null" json:"accessType"`
	Reason         string        `gorm:"type:text;not null" json:"reason"`
	Status         RequestStatus `gorm:"type:varchar(20);not null;default:'Pending';index" json:"status"`
	ReviewedBy     *uint         `json:"reviewedBy,omitempty"`
	ReviewedAt     *time.Time    `json:"reviewedAt,omitempty"`
	ReviewComments string        `gorm:"type:text" json:"reviewComments,omitempty"`
	CreatedAt      time.Time     `gorm:"index" json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// CanBeReviewed reports whether a reviewer may still decide the request.
func (r *AccessRequest) CanBeReviewed() bool {
	return r.Status == StatusPending
}

// CanBeDeleted reports whether the request may still be withdrawn.
func (r *AccessRequest) CanBeDeleted() bool {
	return r.Status == StatusPending
}

// ReviewDecision is the atomic write applied when a request is decided.
type ReviewDecision struct {
	Status     RequestStatus
	ReviewerID uint
	Comments   string
	ReviewedAt time.Time
}

// AccessRequestView is a request enriched with summaries of its owner,
// target software and reviewer. The summaries are copies for display only.
type AccessRequestView struct {
	AccessRequest
	User     *UserSummary     `json:"user,omitempty"`
	Software *SoftwareSummary `json:"software,omitempty"`
	Reviewer *UserSummary     `json:"reviewer,omitempty"`
}

// RequestStats holds request counts by status.
type RequestStats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

// Add counts n requests in the given status.
func (s *RequestStats) Add(status RequestStatus, n int64) {
	switch status {
	case StatusPending:
		s.Pending += n
	case StatusApproved:
		s.Approved += n
	case StatusRejected:
		s.Rejected += n
	default:
		return
	}
	s.Total += n
}

// Consistent reports whether the per-status counts add up to the total.
func (s RequestStats) Consistent() bool {
	return s.Pending+s.Approved+s.Rejected == s.Total
}
