package fields

// Spec is the ordered set of sensitive paths for one record kind.
type Spec struct {
	Kind  string
	Paths []Path
}

// Projection is the allow-list of top-level keys a list/summary view of a
// record kind may expose. Keys outside the list never leave the boundary.
type Projection struct {
	Kind string
	Keys []string
}

// Built-in record kinds. Paths are declared once here and validated by
// ParsePath at init; a typo panics at startup rather than silently
// no-op-ing at runtime.
var (
	EmployeeSpec = Spec{
		Kind: "employee",
		Paths: []Path{
			MustParsePath("nationalInsuranceNumber"),
			MustParsePath("dateOfBirth"),
			MustParsePath("salary"),
			MustParsePath("taxCode"),
			MustParsePath("bankDetails.accountNumber"),
			MustParsePath("bankDetails.sortCode"),
			MustParsePath("contact.homePhone"),
		},
	}

	BankAccountSpec = Spec{
		Kind: "bankAccount",
		Paths: []Path{
			MustParsePath("accountNumber"),
			MustParsePath("sortCode"),
			MustParsePath("accountHolder"),
			MustParsePath("iban"),
		},
	}

	PayrollRunSpec = Spec{
		Kind: "payrollRun",
		Paths: []Path{
			MustParsePath("grossPay"),
			MustParsePath("netPay"),
			MustParsePath("taxDeducted"),
			MustParsePath("nationalInsurance.employee"),
			MustParsePath("nationalInsurance.employer"),
			MustParsePath("pension.employeeContribution"),
		},
	}

	PersonalSettingsSpec = Spec{
		Kind: "personalSettings",
		Paths: []Path{
			MustParsePath("emergencyContact.phone"),
			MustParsePath("emergencyContact.name"),
			MustParsePath("personalEmail"),
		},
	}
)

// List projections are strictly smaller than the sensitive sets: only
// non-sensitive identifying keys appear.
var (
	EmployeeProjection = Projection{
		Kind: "employee",
		Keys: []string{"id", "firstName", "lastName", "department", "startDate", "status"},
	}

	BankAccountProjection = Projection{
		Kind: "bankAccount",
		Keys: []string{"id", "bankName", "label", "currency"},
	}

	PayrollRunProjection = Projection{
		Kind: "payrollRun",
		Keys: []string{"id", "period", "runDate", "status", "employeeCount"},
	}

	PersonalSettingsProjection = Projection{
		Kind: "personalSettings",
		Keys: []string{"id", "displayName", "locale", "timezone"},
	}
)

var specsByKind = map[string]Spec{
	EmployeeSpec.Kind:         EmployeeSpec,
	BankAccountSpec.Kind:      BankAccountSpec,
	PayrollRunSpec.Kind:       PayrollRunSpec,
	PersonalSettingsSpec.Kind: PersonalSettingsSpec,
}

// SpecForKind resolves a built-in spec by record kind name.
func SpecForKind(kind string) (Spec, bool) {
	s, ok := specsByKind[kind]
	return s, ok
}
