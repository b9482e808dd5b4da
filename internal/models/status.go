package models

// Status is the closed set of loan application states. The wire strings
// match the values admins and members see in the portal.
type Status string

const (
	StatusSubmitted               Status = "Submitted"
	StatusUnderReview             Status = "Under Review"
	StatusApprovedForDisbursement Status = "Approved For Disbursement"
	StatusDisbursed               Status = "Disbursed"
	StatusCompleted               Status = "Completed"
	StatusApproved                Status = "Approved"
	StatusRejected                Status = "Rejected"
)

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusSubmitted, StatusUnderReview, StatusApprovedForDisbursement,
		StatusDisbursed, StatusCompleted, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}
