package dto

// ChangeStatusRequest is the request body for a deposit status change.
// AdminID identifies the operator performing the change; authentication
// happens upstream of this service.
type ChangeStatusRequest struct {
	NewStatus  string `json:"new_status" binding:"required,safe_id"`
	AdminID    string `json:"admin_id" binding:"required,uuid"`
	AdminEmail string `json:"admin_email" binding:"omitempty,email"`
	Reason     string `json:"reason" binding:"max=500"`
	Notes      string `json:"notes" binding:"max=2000"`
}

// ReconcileRequest is the request body for a wallet reconciliation run.
type ReconcileRequest struct {
	AdminID string `json:"admin_id" binding:"required,uuid"`
}

// ReconcileResponse is the response body for a reconciliation run.
type ReconcileResponse struct {
	IsBalanced      bool    `json:"is_balanced"`
	ExpectedBalance float64 `json:"expected_balance"`
	ActualBalance   float64 `json:"actual_balance"`
	Discrepancy     float64 `json:"discrepancy"`
	EntryID         *string `json:"entry_id,omitempty"`
}
