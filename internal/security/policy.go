package security

import "smy-nav-backend/internal/domain"

// Action names a guarded capability
type Action string

const (
	ActionUserRegister Action = "user.register"

	ActionAgencyList   Action = "agency.list"
	ActionAgencyManage Action = "agency.manage"

	ActionParticipantList       Action = "participant.list"
	ActionParticipantCreate     Action = "participant.create"
	ActionParticipantUpdate     Action = "participant.update"
	ActionParticipantDelete     Action = "participant.delete"
	ActionParticipantSubmit     Action = "participant.submit"
	ActionParticipantSelfCreate Action = "participant.self_register"
	ActionParticipantReview     Action = "participant.review" // verify and reject
	ActionParticipantDispatch   Action = "participant.dispatch"

	ActionPaymentUpload Action = "payment.upload"
	ActionPaymentReview Action = "payment.review"

	ActionScheduleView   Action = "schedule.view"
	ActionScheduleManage Action = "schedule.manage"

	ActionBatchView   Action = "batch.view"
	ActionBatchManage Action = "batch.manage"

	ActionInvoiceView   Action = "invoice.view"
	ActionInvoiceAdmin  Action = "invoice.admin"
	ActionInvoiceUpload Action = "invoice.upload"

	ActionDashboardView Action = "dashboard.view"
)

// Policy maps each role to the actions it may perform.
type Policy map[domain.Role]map[Action]bool

func allow(actions ...Action) map[Action]bool {
	m := make(map[Action]bool, len(actions))
	for _, a := range actions {
		m[a] = true
	}
	return m
}

var adminActions = []Action{
	ActionUserRegister,
	ActionAgencyList, ActionAgencyManage,
	ActionParticipantList, ActionParticipantCreate, ActionParticipantUpdate, ActionParticipantDelete,
	ActionParticipantSubmit, ActionParticipantReview, ActionParticipantDispatch,
	ActionPaymentUpload, ActionPaymentReview,
	ActionScheduleView, ActionScheduleManage,
	ActionBatchView, ActionBatchManage,
	ActionInvoiceView, ActionInvoiceAdmin,
	ActionDashboardView,
}

// DefaultPolicy is the role table used by the HTTP layer.
var DefaultPolicy = Policy{
	domain.RoleSuperAdmin: allow(adminActions...),
	domain.RoleAdmin:      allow(adminActions...),
	domain.RoleAgent: allow(
		ActionParticipantList, ActionParticipantCreate, ActionParticipantUpdate, ActionParticipantDelete,
		ActionParticipantSubmit,
		ActionPaymentUpload,
		ActionScheduleView,
		ActionInvoiceView, ActionInvoiceUpload,
		ActionDashboardView,
	),
	domain.RoleParticipant: allow(
		ActionParticipantSelfCreate,
		ActionParticipantList,
		ActionParticipantUpdate, // own record only
		ActionPaymentUpload,
		ActionScheduleView,
	),
}

// Allows reports whether role may perform action. Unknown roles get nothing.
func (p Policy) Allows(role domain.Role, action Action) bool {
	return p[role][action]
}
