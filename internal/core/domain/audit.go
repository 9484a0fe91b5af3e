package domain

import "time"

type AuditSeverity string

const (
	AuditSeverityLow    AuditSeverity = "low"
	AuditSeverityMedium AuditSeverity = "medium"
	AuditSeverityHigh   AuditSeverity = "high"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

const (
	AuditActionStatusChange = "order_status_change"
	AuditActionOrderDelete  = "order_delete"
	AuditActionStockRestock = "stock_restock"
	AuditActionStockAdjust  = "stock_adjustment"
	AuditActionAlertResolve = "alert_resolve"
)

const (
	AuditTargetOrder   = "order"
	AuditTargetProduct = "product"
	AuditTargetAlert   = "alert"
)

// ActorSystem attributes mutations not triggered by an administrator.
const ActorSystem = "system"

// AuditEntry is one immutable administrative-action record. Writes are
// best-effort: a failed append is logged and never aborts the operation that
// produced it.
type AuditEntry struct {
	ID           string
	Actor        string
	Action       string
	TargetType   string
	TargetID     string
	Description  string
	BeforeJSON   string
	AfterJSON    string
	Severity     AuditSeverity
	Status       AuditStatus
	ErrorMessage string
	CreatedAt    time.Time
}
