package auth

import (
	"context"

	"github.com/Movelgroup/movel-RestAPI/internal/apperr"
	"github.com/Movelgroup/movel-RestAPI/internal/models"
)

// ChargerLookup charger ownership lookup; returns nil, nil when absent
type ChargerLookup interface {
	GetChargerData(ctx context.Context, chargerID string) (*models.ChargerData, error)
}

// Authorizer decides whether an identity may read a charger
type Authorizer struct {
	chargers  ChargerLookup
	adminRole string
}

// NewAuthorizer creates an authorizer
func NewAuthorizer(chargers ChargerLookup, adminRole string) *Authorizer {
	return &Authorizer{chargers: chargers, adminRole: adminRole}
}

// CanAccess admins see every charger, others only chargers they own or are
// associated with. A missing charger record denies.
func (a *Authorizer) CanAccess(ctx context.Context, identity *Claims, chargerID string) (bool, error) {
	if identity == nil || chargerID == "" {
		return false, nil
	}
	if identity.HasRole(a.adminRole) {
		return true, nil
	}

	data, err := a.chargers.GetChargerData(ctx, chargerID)
	if err != nil {
		return false, apperr.Dependency("look up charger", err)
	}
	if data == nil {
		return false, nil
	}
	return data.HasUser(identity.Subject), nil
}
