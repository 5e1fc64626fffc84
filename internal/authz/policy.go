// Package authz decides whether an actor may perform an action on access
// requests, the software catalog or the user roster. Decisions depend only on
// the actor, the owner of the target resource and the action, so they are
// evaluated fresh on every call.
package authz

import (
	"fmt"

	"accessdesk/internal/models"
)

// Action names an operation subject to authorization.
type Action string

const (
	ActionListRequests            Action = "list-requests"
	ActionListRequestsByStatus    Action = "list-requests-by-status"
	ActionListRequestsByDateRange Action = "list-requests-by-date-range"
	ActionListUserRequests        Action = "list-user-requests"
	ActionListSoftwareRequests    Action = "list-software-requests"
	ActionListPending             Action = "list-pending"
	ActionViewRequest             Action = "view-request"
	ActionCreateRequest           Action = "create-request"
	ActionReviewRequest           Action = "review-request"
	ActionDeleteRequest           Action = "delete-request"
	ActionViewStatsGlobal         Action = "view-stats-global"
	ActionViewUserStats           Action = "view-user-stats"

	ActionViewSoftware      Action = "view-software"
	ActionViewSoftwareStats Action = "view-software-stats"
	ActionCreateSoftware    Action = "create-software"
	ActionUpdateSoftware    Action = "update-software"
	ActionDeleteSoftware    Action = "delete-software"
	ActionListUsers         Action = "list-users"
	ActionCreateUser        Action = "create-user"
	ActionViewUser          Action = "view-user"
	ActionViewFeatureFlags  Action = "view-feature-flags"
)

// Decision is the outcome of evaluating an action.
type Decision int

const (
	// Deny forbids the action.
	Deny Decision = iota
	// Allow permits the action over every matching resource.
	Allow
	// AllowScoped permits the action restricted to the actor's own records.
	AllowScoped
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case AllowScoped:
		return "allow-scoped"
	default:
		return "deny"
	}
}

var adminOnly = map[Action]bool{
	ActionCreateSoftware:   true,
	ActionUpdateSoftware:   true,
	ActionDeleteSoftware:   true,
	ActionListUsers:        true,
	ActionCreateUser:       true,
	ActionViewUser:         true,
	ActionViewFeatureFlags: true,
}

var managerialOnly = map[Action]bool{
	ActionReviewRequest:        true,
	ActionListPending:          true,
	ActionViewStatsGlobal:      true,
	ActionListSoftwareRequests: true,
	ActionViewSoftwareStats:    true,
}

// ownerBound actions on a specific user's records.
var ownerBound = map[Action]bool{
	ActionViewRequest:      true,
	ActionDeleteRequest:    true,
	ActionListUserRequests: true,
	ActionViewUserStats:    true,
}

// scoped collection reads fall back to the actor's own records.
var scoped = map[Action]bool{
	ActionListRequests:            true,
	ActionListRequestsByStatus:    true,
	ActionListRequestsByDateRange: true,
}

// Evaluate applies the rules in priority order: role gates first, then
// ownership, then scoping. ownerID is ignored for actions without an owner.
func Evaluate(actor models.Actor, ownerID uint, action Action) Decision {
	if !actor.Role.Valid() {
		return Deny
	}
	if adminOnly[action] && !actor.Role.IsAdmin() {
		return Deny
	}
	if managerialOnly[action] && !actor.Role.HasManagerialRights() {
		return Deny
	}
	if ownerBound[action] && actor.Role == models.RoleEmployee && !actor.Owns(ownerID) {
		return Deny
	}
	if scoped[action] && actor.Role == models.RoleEmployee {
		return AllowScoped
	}
	return Allow
}

// Authorize evaluates the action and converts Deny into a Forbidden error.
func Authorize(actor models.Actor, ownerID uint, action Action) (Decision, error) {
	d := Evaluate(actor, ownerID, action)
	if d == Deny {
		return Deny, models.NewForbiddenError(fmt.Sprintf("not permitted to %s", action))
	}
	return d, nil
}
