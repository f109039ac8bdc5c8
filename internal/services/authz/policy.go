// Package authz holds the declarative role policy: a table mapping
// (action, role) to allow, evaluated before an operation runs. The policy
// lives here, decoupled from the business logic that it gates.
package authz

import "errors"

// Role is a caller's role. Authentication is the deployment's concern;
// the role arrives with the request.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleStaff      Role = "staff"
)

// Action names one gated operation.
type Action string

const (
	ActionMusicianList   Action = "musician.list"
	ActionMusicianView   Action = "musician.view"
	ActionMusicianCreate Action = "musician.create"
	ActionMusicianEdit   Action = "musician.edit"
	ActionMusicianDelete Action = "musician.delete"

	ActionInstrumentList   Action = "instrument.list"
	ActionInstrumentView   Action = "instrument.view"
	ActionInstrumentCreate Action = "instrument.create"
	ActionInstrumentEdit   Action = "instrument.edit"
	ActionInstrumentDelete Action = "instrument.delete"
	ActionInstrumentImport Action = "instrument.import"

	ActionDocumentDownload  Action = "document.download"
	ActionPerformanceReport Action = "performance.report"
)

// ErrNotOwner is returned when a staff caller tries to modify a record
// someone else entered into the system.
var ErrNotOwner = errors.New("as staff, you cannot modify this record because you are not the one who entered it into the system")

var allRoles = []Role{RoleAdmin, RoleSupervisor, RoleStaff}

// policy is the allow table. Actions absent from the table are denied for
// every role.
var policy = map[Action][]Role{
	ActionMusicianList:   allRoles,
	ActionMusicianView:   allRoles,
	ActionMusicianCreate: allRoles,
	ActionMusicianEdit:   allRoles,
	ActionMusicianDelete: {RoleAdmin},

	ActionInstrumentList:   allRoles,
	ActionInstrumentView:   allRoles,
	ActionInstrumentCreate: allRoles,
	ActionInstrumentEdit:   allRoles,
	ActionInstrumentDelete: {RoleAdmin},
	ActionInstrumentImport: allRoles,

	ActionDocumentDownload:  {RoleAdmin, RoleSupervisor},
	ActionPerformanceReport: {RoleAdmin, RoleSupervisor},
}

// Actor is the caller identity attached to a request.
type Actor struct {
	Name string
	Role Role
}

// ParseRole maps a raw role string to a Role.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleAdmin, RoleSupervisor, RoleStaff:
		return Role(raw), true
	}
	return "", false
}

// Allowed reports whether the role may perform the action.
func Allowed(action Action, role Role) bool {
	for _, r := range policy[action] {
		if r == role {
			return true
		}
	}
	return false
}

// CheckOwnership enforces the staff ownership rule: staff may only modify
// records they created. Admin and supervisor are unrestricted. The caller
// must have established that the record exists before invoking this.
func CheckOwnership(actor Actor, createdBy string) error {
	if actor.Role == RoleStaff && createdBy != actor.Name {
		return ErrNotOwner
	}
	return nil
}
