package models

// Role is a symbolic role name. Each role is bound to exactly one workspace
// level and a fixed capability set by the role capability matrix.
type Role string

const (
	RoleWorkspaceOwner    Role = "WORKSPACE_OWNER"
	RoleOperationsManager Role = "OPERATIONS_MANAGER"
	RoleFinanceController Role = "FINANCE_CONTROLLER"
	RoleEventLead         Role = "EVENT_LEAD"
	RoleMarketingLead     Role = "MARKETING_LEAD"
	RoleEventCoordinator  Role = "EVENT_COORDINATOR"
	RoleVolunteer         Role = "VOLUNTEER"
)

// Capability is a named permission granted to a role.
type Capability string

const (
	CapCreateTasks   Capability = "create_tasks"
	CapEditTasks     Capability = "edit_tasks"
	CapDeleteTasks   Capability = "delete_tasks"
	CapAssignTasks   Capability = "assign_tasks"
	CapPostMessages  Capability = "post_messages"
	CapBroadcast     Capability = "broadcast"
	CapInviteTeam    Capability = "invite_team"
	CapManageTeam    Capability = "manage_team"
	CapViewReports   Capability = "view_reports"
	CapExportReports Capability = "export_reports"
	CapEditSettings  Capability = "edit_settings"
	CapApproveBudget Capability = "approve_budget"
)
