package roles

import "learn-and-earn/internal/models"

type Access int

const (
	AccessLoading Access = iota
	AccessForbidden
	AccessAllowed
)

func (a Access) String() string {
	switch a {
	case AccessLoading:
		return "loading"
	case AccessForbidden:
		return "forbidden"
	default:
		return "allowed"
	}
}

// AdminAccess guards admin screens. Nothing is decided while either the
// identity or the role is still loading.
func AdminAccess(identityPending bool, st State) Access {
	if identityPending || st.Loading {
		return AccessLoading
	}
	if st.Role != models.RoleAdmin {
		return AccessForbidden
	}
	return AccessAllowed
}
