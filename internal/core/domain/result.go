package domain

// ChangeStatusResult is the envelope returned by every ChangeStatus call.
// The orchestrator never raises past its boundary: failures are reported
// through Success=false plus a human-readable warning.
type ChangeStatusResult struct {
	Success      bool            `json:"success"`
	Deposit      *Deposit        `json:"deposit,omitempty"`
	AuditLog     *AuditLogEntry  `json:"audit_log,omitempty"`
	Reversal     *ReversalRecord `json:"reversal,omitempty"`
	WalletImpact *WalletImpact   `json:"wallet_impact,omitempty"`
	Warnings     []string        `json:"warnings"`
	TimeTakenMS  int64           `json:"time_taken_ms"`
}

// Warn appends a non-fatal issue to the envelope.
func (r *ChangeStatusResult) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// AuditHistory aggregates the two audit trails for a deposit.
type AuditHistory struct {
	StatusHistory []StatusHistoryRecord `json:"status_history"`
	AuditLogs     []AuditLogEntry       `json:"audit_logs"`
}
