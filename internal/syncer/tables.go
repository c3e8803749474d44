// Package syncer moves rows between the local store and the remote store.
//
// Push drains dirty rows (is_synced = 0) table by table in dependency order
// and upserts them remotely by id. Pull copies an organization's remote rows
// into the local store, remote values winning over local ones.
package syncer

// Table describes how one table takes part in sync.
type Table struct {
	Name string
	// Push lists the columns sent to the remote store, id first. is_synced
	// is never sent; the remote default marks rows as synced.
	Push []string
	// Pulled is false for tables that are only ever pushed.
	Pulled bool
}

var (
	Organizations = Table{
		Name:   "organizations",
		Push:   []string{"id", "name", "phone", "email", "address", "terms", "subscription_plan", "logo_url", "created_at"},
		Pulled: true,
	}
	Users = Table{
		Name: "users",
		Push: []string{"id", "organization_id", "username", "full_name", "password_hash", "role", "is_active",
			"created_at", "updated_at", "is_deleted"},
		Pulled: true,
	}
	Clients = Table{
		Name:   "clients",
		Push:   []string{"id", "organization_id", "full_name", "phone", "email", "location", "created_at", "updated_at", "is_deleted"},
		Pulled: true,
	}
	Repairs = Table{
		Name: "repairs",
		Push: []string{"id", "organization_id", "client_id", "assigned_to", "ticket_no", "device_type", "brand", "model",
			"serial_no", "accessories", "issue_description", "diagnosis", "status", "bin_location", "image_paths",
			"internal_cost", "labor_cost", "final_price", "amount_paid", "payment_method", "mpesa_code", "is_paid",
			"created_at", "updated_at", "date_fixed", "date_out", "is_deleted"},
		Pulled: true,
	}
	AuditLogs = Table{
		Name: "audit_logs",
		Push: []string{"id", "organization_id", "user_id", "action", "entity", "entity_id", "details", "timestamp"},
	}
)

// PushOrder is the dependency order of a push cycle.
var PushOrder = []Table{Organizations, Users, Clients, Repairs, AuditLogs}

// PullOrder is the order of a pull; audit logs are never pulled.
var PullOrder = []Table{Organizations, Users, Clients, Repairs}
