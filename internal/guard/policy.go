package guard

import "fmt"

// Role is a closed enumeration of tenant roles. Unknown role strings are
// rejected at the parse boundary, never compared best-effort at check time.
type Role string

const (
	RoleStaff        Role = "staff"
	RoleManager      Role = "manager"
	RoleFinanceAdmin Role = "finance_admin"
	RoleHRAdmin      Role = "hr_admin"
	RoleTenantOwner  Role = "tenant_owner"
)

var knownRoles = map[Role]bool{
	RoleStaff:        true,
	RoleManager:      true,
	RoleFinanceAdmin: true,
	RoleHRAdmin:      true,
	RoleTenantOwner:  true,
}

// ParseRole converts a stored role string to a Role, failing on anything
// outside the closed set.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !knownRoles[r] {
		return "", fmt.Errorf("guard: unknown role %q", s)
	}
	return r, nil
}

// Action is a closed enumeration of the sensitive operations a policy can
// declare.
type Action string

const (
	ActionReadBankDetails  Action = "read_bank_details"
	ActionWriteBankDetails Action = "write_bank_details"
	ActionReadTaxRecords   Action = "read_tax_records"
	ActionWriteTaxRecords  Action = "write_tax_records"
	ActionRunPayroll       Action = "run_payroll"
	ActionReadPersonal     Action = "read_personal"
	ActionWritePersonal    Action = "write_personal"
)

// Roles and actions that always demand step-up authentication, independent
// of the policy under evaluation.
var (
	stepUpRoles = map[Role]bool{
		RoleFinanceAdmin: true,
		RoleTenantOwner:  true,
	}
	stepUpActions = map[Action]bool{
		ActionWriteBankDetails: true,
		ActionReadTaxRecords:   true,
		ActionWriteTaxRecords:  true,
		ActionRunPayroll:       true,
	}
)

// Policy configures one protected operation. Immutable after construction.
type Policy struct {
	// Domain names the secret the handler will receive (finance, hr,
	// settings).
	Domain string

	// RequiredRoles is the any-of set the caller's tenant role must hit.
	RequiredRoles []Role

	// Actions declares what the handler will do with the data; used for
	// step-up decisions and recorded in the audit trail.
	Actions []Action

	// TenantField names a top-level request field holding the tenant id.
	TenantField string

	// TenantPathField names a request field holding a record path shaped
	// like "tenants/{id}/..."; used when TenantField is empty or absent.
	TenantPathField string
}

func (p Policy) roleAllowed(r Role) bool {
	for _, want := range p.RequiredRoles {
		if r == want {
			return true
		}
	}
	return false
}

func (p Policy) requiresStepUp(r Role) bool {
	if stepUpRoles[r] {
		return true
	}
	for _, a := range p.Actions {
		if stepUpActions[a] {
			return true
		}
	}
	return false
}

func (p Policy) actionNames() []string {
	out := make([]string, len(p.Actions))
	for i, a := range p.Actions {
		out[i] = string(a)
	}
	return out
}
