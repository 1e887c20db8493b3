package rbac

// Role names for the ops API. Keep these stable; they are part of the token contract.
const (
	// RoleOperator can read store stats and recent deliveries.
	RoleOperator = "operator"
	// RoleAdmin can additionally issue tokens and clear stores.
	RoleAdmin = "admin"
)

func IsAdmin(role string) bool { return role == RoleAdmin }
