package rbac

// Default policy. Learners touch only their own progress surface; ministry
// admins get the read-only reporting surface on top of it.
var RolePermissions = map[string][]string{
	"learner": {
		"course:view",
		"course:enroll",
		"progress:update",
		"lesson:complete",
		"lesson:requirements",
		"dashboard:view",
		"deadlines:view",
		"user:change_password",
	},
	"ministry_admin": {
		"course:view",
		"dashboard:view",
		"deadlines:view",
		"ministry:stats",
		"ministry:export",
		"users:list",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
