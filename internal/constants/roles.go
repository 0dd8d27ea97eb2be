package constants

// Roles come from the identity provider's app_metadata.role claim.
const (
	Traveler   = "user"
	Admin      = "admin"
	Superadmin = "superadmin"
)

var ValidRoles = []string{Traveler, Admin, Superadmin}

func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
