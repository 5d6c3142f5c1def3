package domain

import "time"

// ActorRole enumerates operator roles.
type ActorRole string

const (
	RoleHelpdesk   ActorRole = "HD"
	RoleTechnician ActorRole = "TEKNISI"
)

// DisplayName returns the human-readable role label.
func (r ActorRole) DisplayName() string {
	switch r {
	case RoleHelpdesk:
		return "Helpdesk"
	case RoleTechnician:
		return "Teknisi"
	default:
		return string(r)
	}
}

// Valid reports whether the role is a known one.
func (r ActorRole) Valid() bool {
	return r == RoleHelpdesk || r == RoleTechnician
}

// Capability enumerates operator permissions.
type Capability string

const (
	CapCreateOrder        Capability = "create_order"
	CapAssignTechnician   Capability = "assign_technician"
	CapViewAllOrders      Capability = "view_all_orders"
	CapUpdateOrderStatus  Capability = "update_order_status"
	CapResumeOrder        Capability = "resume_order"
	CapCancelOrder        Capability = "cancel_order"
	CapGenerateReports    Capability = "generate_reports"
	CapViewAssignedOrders Capability = "view_assigned_orders"
	CapUpdateProgress     Capability = "update_progress"
	CapUploadEvidence     Capability = "upload_evidence"
	CapViewOrderDetails   Capability = "view_order_details"
)

var roleCapabilities = map[ActorRole]map[Capability]struct{}{
	RoleHelpdesk: setOf(
		CapCreateOrder,
		CapAssignTechnician,
		CapViewAllOrders,
		CapUpdateOrderStatus,
		CapResumeOrder,
		CapCancelOrder,
		CapGenerateReports,
		CapViewOrderDetails,
	),
	RoleTechnician: setOf(
		CapViewAssignedOrders,
		CapUpdateProgress,
		CapUploadEvidence,
		CapViewOrderDetails,
	),
}

func setOf(caps ...Capability) map[Capability]struct{} {
	set := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Can reports whether the role grants the capability.
func (r ActorRole) Can(cap Capability) bool {
	_, ok := roleCapabilities[r][cap]
	return ok
}

// Actor is a registered bot operator resolved from a Telegram identity.
type Actor struct {
	ID         int64
	TelegramID int64
	Username   string
	FullName   string
	Role       ActorRole
	Phone      string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Can reports whether the actor may perform the capability.
func (a *Actor) Can(cap Capability) bool {
	if a == nil || !a.Active {
		return false
	}
	return a.Role.Can(cap)
}
