package core

// Roles carried by the tokens of the auth service.
const (
	// Admin
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"
	RoleAdminBursar    = "admin:bursar"

	// Teacher
	RoleTeacher = "teacher:"

	// Guardian
	RoleGuardian = "guardian:"

	// Student
	RoleStudent = "student:"
)

var (
	AdminRoles = []string{RoleAdmin, RoleAdminOwner, RoleAdminPrincipal, RoleAdminBursar}

	// FeeManagerRoles may contact guardians about fees.
	FeeManagerRoles = []string{RoleAdminOwner, RoleAdminPrincipal, RoleAdminBursar}
)
