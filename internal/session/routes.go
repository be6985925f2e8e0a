package session

import (
	"strings"

	"github.com/BradenHooton/haulgate/internal/models"
)

// Post-login destinations
const (
	RouteOperationsDashboard = "/operations/dashboard"
	RouteDashboard           = "/dashboard"
)

var operationsRoles = map[string]bool{
	models.UserTypeAdmin:         true,
	models.UserTypeSuperAdmin:    true,
	models.UserTypeOperator:      true,
	models.UserTypeProvider:      true,
	models.UserTypeBusiness:      true,
	models.UserTypeBusinessOwner: true,
	models.UserTypeStaff:         true,
}

// DestinationFor maps a user type to its landing route. Unrecognized types
// land on the standard dashboard.
func DestinationFor(userType string) string {
	if operationsRoles[strings.ToLower(strings.TrimSpace(userType))] {
		return RouteOperationsDashboard
	}
	return RouteDashboard
}
