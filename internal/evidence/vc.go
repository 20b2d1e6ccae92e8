package evidence

import "time"

// VerifiableCredential is the JSON-LD artifact issued around an Evidence
// record so downstream agents can audit provenance without re-fetching the
// original source.
type VerifiableCredential struct {
	Context           []string          `json:"@context"`
	Type              []string          `json:"type"`
	Issuer            string            `json:"issuer"`
	IssuanceDate      time.Time         `json:"issuanceDate"`
	ExpirationDate    time.Time         `json:"expirationDate"`
	CredentialSubject CredentialSubject `json:"credentialSubject"`
	Proof             Proof             `json:"proof"`
	CredentialStatus  *CredentialStatus `json:"credentialStatus,omitempty"`
}

// CredentialStatus points at the revocation list or status endpoint a
// verifier should consult, per the W3C status-list convention. It is
// optional: an issuer that never revokes credentials may omit it entirely.
type CredentialStatus struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// CredentialSubject binds the credential to the underlying Evidence.
type CredentialSubject struct {
	ID           string                 `json:"id"`
	Source       string                 `json:"source"`
	Entity       Entity                 `json:"entity"`
	Data         map[string]interface{} `json:"data"`
	EvidenceHash string                 `json:"evidence_hash"`
	EvidenceURL  string                 `json:"evidence_url"`
}

// Proof is the signature envelope. Signing itself is delegated to a
// cryptographic key holder outside this package; IssueVC populates every
// field except the signature Value.
type Proof struct {
	Type               string `json:"type"`
	Created            string `json:"created"`
	VerificationMethod string `json:"verificationMethod"`
	ProofPurpose       string `json:"proofPurpose"`
	Value              string `json:"proofValue,omitempty"`
}

const (
	axpContext = "https://agentic-commerce.org/axp/v0.1/context"
	w3cContext = "https://www.w3.org/2018/credentials/v1"
)

// IssueVC builds a VerifiableCredential around the given Evidence. now is
// injected so issuance is deterministic and testable.
func IssueVC(e Evidence, issuerID string, now time.Time) (VerifiableCredential, error) {
	hash, err := Hash(e.Data)
	if err != nil {
		return VerifiableCredential{}, err
	}

	ttl := e.TTLHours
	if ttl <= 0 {
		ttl = 1
	}

	return VerifiableCredential{
		Context:        []string{w3cContext, axpContext},
		Type:           []string{"VerifiableCredential", "ThirdPartyEvidence"},
		Issuer:         issuerID,
		IssuanceDate:   now,
		ExpirationDate: now.Add(time.Duration(ttl * float64(time.Hour))),
		CredentialSubject: CredentialSubject{
			ID:           e.SourceID,
			Source:       e.Source,
			Entity:       e.Entity,
			Data:         e.Data,
			EvidenceHash: hash,
			EvidenceURL:  e.EvidenceURL,
		},
		Proof: Proof{
			Type:               "Ed25519Signature2020",
			Created:            now.Format(time.RFC3339),
			VerificationMethod: issuerID + "#key-1",
			ProofPurpose:       "assertionMethod",
		},
	}, nil
}
