package domain

// TenantSettings holds per-tenant configuration. A nil NotificationTarget
// means redemption notifications are disabled for that tenant.
type TenantSettings struct {
	TenantID           string  `json:"tenant_id" db:"tenant_id"`
	NotificationTarget *string `json:"notification_target" db:"notification_target"`
}

// SetNotificationTargetRequest is the request body for configuring where a
// tenant's redemption notifications go. A null target disables them.
type SetNotificationTargetRequest struct {
	Target *string `json:"target"`
}
