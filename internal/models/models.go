package models

import "time"

// Member is the identity record for a group member. UID is the opaque
// store-assigned id; MemberNo is the human-readable sequential number
// issued by the counter (VYG-0001, VYG-0002, ...). MemberNo and UID form
// a bijection maintained through the memberIndex path.
type Member struct {
	UID       string    `json:"uid,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	MemberNo  string    `json:"memberNo"`
	CreatedAt time.Time `json:"createdTimestamp"`
}

// ApplicationForm holds the applicant-supplied fields of a loan
// application. The json tags double as the placeholder tokens the
// document templates substitute against.
type ApplicationForm struct {
	Fullname       string `json:"fullname" validate:"required"`
	Phone          string `json:"phone" validate:"required"`
	Email          string `json:"email,omitempty" validate:"omitempty,email"`
	County         string `json:"county,omitempty"`
	Constituency   string `json:"constituency,omitempty"`
	Ward           string `json:"ward,omitempty"`
	Location       string `json:"location,omitempty"`
	Education      string `json:"education,omitempty"`
	GuarantorName  string `json:"guarantor_name,omitempty"`
	GuarantorPhone string `json:"guarantor_phone,omitempty"`
	LoanType       string `json:"loanType" validate:"required"`
	LoanAmount     string `json:"loanAmount" validate:"required"`
	LoanPurpose    string `json:"loanPurpose,omitempty"`
	LoanPeriod     string `json:"loanPeriod,omitempty"`
}

// FieldMap flattens the form for template substitution, keyed by the
// placeholder tokens used in the templates.
func (f ApplicationForm) FieldMap() map[string]string {
	return map[string]string{
		"fullname":        f.Fullname,
		"phone":           f.Phone,
		"email":           f.Email,
		"county":          f.County,
		"constituency":    f.Constituency,
		"ward":            f.Ward,
		"location":        f.Location,
		"education":       f.Education,
		"guarantor_name":  f.GuarantorName,
		"guarantor_phone": f.GuarantorPhone,
		"loanType":        f.LoanType,
		"loanAmount":      f.LoanAmount,
		"loanPurpose":     f.LoanPurpose,
		"loanPeriod":      f.LoanPeriod,
	}
}

// Attachment is a reference to an uploaded evidence file. Only the name
// is embedded into generated documents; the bytes stay in the uploads
// store.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// LoanApplication is one submission. Status only ever moves forward
// through the stage machine; PDFURL is set once the document pipeline
// succeeds.
type LoanApplication struct {
	ID          string          `json:"id"`
	MemberUID   string          `json:"memberUid,omitempty"`
	Form        ApplicationForm `json:"form"`
	Attachments []Attachment    `json:"attachments,omitempty"`
	Status      Status          `json:"status"`
	PDFURL      string          `json:"pdfUrl,omitempty"`
	CreatedAt   time.Time       `json:"createdTimestamp"`
}

// Loan is created exactly once when an application is approved.
type Loan struct {
	Serial        string    `json:"serial"`
	ApplicationID string    `json:"applicationId"`
	MemberUID     string    `json:"memberUid,omitempty"`
	Product       string    `json:"product"`
	Amount        string    `json:"amount"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdTimestamp"`
}
