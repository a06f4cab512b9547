package auth

// RoleName is a named capability as stored in the roles table and carried in
// token claims.
type RoleName = string

const (
	// RoleAdmin is the platform operator. It bypasses franchise scoping.
	RoleAdmin RoleName = "ADMIN"
	// RoleFranchiseOwner manages the users of a single franchise.
	RoleFranchiseOwner RoleName = "FRANCHISE_OWNER"
	// RoleStaff works inside a franchise.
	RoleStaff RoleName = "STAFF"
	// RoleCustomer is the default role granted on self registration.
	RoleCustomer RoleName = "CUSTOMER"
)

// roleDescriptions feeds the seed pass. Names are the source of truth, the
// descriptions are display text only.
var roleDescriptions = map[RoleName]string{
	RoleAdmin:          "Platform administrator with unrestricted access",
	RoleFranchiseOwner: "Owner of a franchise, manages its staff and customers",
	RoleStaff:          "Franchise staff member",
	RoleCustomer:       "Registered customer",
}

// AllRoles returns the predefined role names in privilege order.
func AllRoles() []RoleName {
	return []RoleName{RoleAdmin, RoleFranchiseOwner, RoleStaff, RoleCustomer}
}

// IsValidRole checks if the name is one of the predefined roles.
func IsValidRole(name string) bool {
	_, ok := roleDescriptions[name]
	return ok
}

// ParseRole safely parses a string into a RoleName.
func ParseRole(name string) (RoleName, bool) {
	return name, IsValidRole(name)
}

// HasAnyRole reports whether held contains at least one of the required
// names. An empty required list means no role constraint and always passes.
func HasAnyRole(held []string, required ...RoleName) bool {
	if len(required) == 0 {
		return true
	}
	for _, want := range required {
		for _, have := range held {
			if have == want {
				return true
			}
		}
	}
	return false
}

// CanManageFranchise decides whether a caller with the given roles and
// franchise assignment may act on the target franchise. Admins manage any
// franchise. Franchise owners manage exactly their own. Everyone else
// manages none.
func CanManageFranchise(roles []string, callerFranchise *string, target string) bool {
	if HasAnyRole(roles, RoleAdmin) {
		return true
	}
	if !HasAnyRole(roles, RoleFranchiseOwner) {
		return false
	}
	if callerFranchise == nil || *callerFranchise == "" {
		return false
	}
	return *callerFranchise == target
}

// RequireFranchiseID returns the caller's franchise or an error when the
// claim is absent. Admin callers are exempt from the requirement and get an
// empty string back.
func RequireFranchiseID(roles []string, callerFranchise *string) (string, error) {
	if HasAnyRole(roles, RoleAdmin) {
		if callerFranchise != nil {
			return *callerFranchise, nil
		}
		return "", nil
	}
	if callerFranchise == nil || *callerFranchise == "" {
		return "", ErrFranchiseRequired
	}
	return *callerFranchise, nil
}
