package models

type Verdict string

const (
	VerdictValid   Verdict = "VALID"
	VerdictInvalid Verdict = "INVALID"
)

type Reason string

const (
	ReasonNone              Reason = ""
	ReasonNotFound          Reason = "not found"
	ReasonAttributeMismatch Reason = "attribute mismatch"
	ReasonTokenMismatch     Reason = "token mismatch"
	ReasonChecksumMismatch  Reason = "checksum mismatch"
	ReasonMetadataMismatch  Reason = "metadata mismatch"
)

// VerificationResult is a tagged outcome. Display fields are only set on VALID.
type VerificationResult struct {
	Verdict       Verdict
	Reason        Reason
	CertificateID string
	RecipientName string
	CourseName    string
	IssueDate     string
	Issuer        string
}

func (r *VerificationResult) Valid() bool {
	return r.Verdict == VerdictValid
}

func Invalid(certificateID string, reason Reason) *VerificationResult {
	return &VerificationResult{Verdict: VerdictInvalid, Reason: reason, CertificateID: certificateID}
}

func ValidResult(c *CertificateRecord) *VerificationResult {
	return &VerificationResult{
		Verdict:       VerdictValid,
		CertificateID: c.CertificateID,
		RecipientName: c.RecipientName,
		CourseName:    c.CourseName,
		IssueDate:     c.IssueDate,
		Issuer:        c.Issuer,
	}
}
