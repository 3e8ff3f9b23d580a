package models

// CertificateRequest is one certificate to issue, from CLI flags, a user_data
// file or an element of a batch file.
type CertificateRequest struct {
	RecipientName string      `json:"name" validate:"required"`
	CourseName    string      `json:"course"`
	IssueDate     string      `json:"date"`
	Issuer        string      `json:"issuer"`
	Output        string      `json:"output"`
	Device        *DeviceInfo `json:"device,omitempty"`
}
