package models

// CanAccessStation answers whether actor may act on station.
// Super admins reach every station, owners the stations they own,
// managers and employees only the station they are assigned to.
func CanAccessStation(actor *User, station *Station) bool {
	if actor == nil || station == nil {
		return false
	}
	switch actor.Role {
	case UserRoleSuperAdmin:
		return true
	case UserRoleOwner:
		return station.OwnerId == actor.ID
	case UserRoleManager, UserRoleEmployee:
		return actor.AssignedTo(station.ID)
	}
	return false
}

// CanInitiateHandover: employees never create handovers.
func CanInitiateHandover(role UserRole) bool {
	switch role {
	case UserRoleManager, UserRoleOwner, UserRoleSuperAdmin:
		return true
	case UserRoleEmployee:
		return false
	}
	return false
}

// CanSettleHandover covers confirm overrides, dispute resolution and bank deposits.
func CanSettleHandover(role UserRole) bool {
	switch role {
	case UserRoleOwner, UserRoleSuperAdmin:
		return true
	case UserRoleManager, UserRoleEmployee:
		return false
	}
	return false
}
