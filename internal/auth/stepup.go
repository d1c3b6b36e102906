package auth

// Claim names issuers use to signal that a second factor was presented.
// Different issuers encode the signal differently, so all shapes are checked.
const (
	claimAMR = "amr"
	claimMFA = "mfa"
	claimACR = "acr"
)

var stepUpMethods = map[string]bool{
	"mfa": true,
	"otp": true,
	"hwk": true,
}

var stepUpACRs = map[string]bool{
	"aal2": true,
	"aal3": true,
}

// HasStepUp reports whether the claim set carries any recognized step-up
// signal: an amr array containing an MFA method, a boolean mfa claim, or an
// acr level of aal2 or higher.
func HasStepUp(claims map[string]any) bool {
	if arr, ok := claims[claimAMR].([]any); ok {
		for _, m := range arr {
			if s, ok := m.(string); ok && stepUpMethods[s] {
				return true
			}
		}
	}
	if b, ok := claims[claimMFA].(bool); ok && b {
		return true
	}
	if s, ok := claims[claimACR].(string); ok && stepUpACRs[s] {
		return true
	}
	return false
}
