package server

import (
	"context"
	"errors"
	"fmt"

	"fieldguard/internal/fields"
	"fieldguard/internal/guard"
	"fieldguard/internal/record"
	"fieldguard/internal/secrets"
)

// composeProtected builds every guarded operation once, at startup. The
// policies are the only place roles and actions are declared.
func (s *Server) composeProtected() {
	s.readEmployee = s.guard.Protect(guard.Policy{
		Domain:          secrets.DomainHR,
		RequiredRoles:   []guard.Role{guard.RoleHRAdmin, guard.RoleManager, guard.RoleTenantOwner},
		Actions:         []guard.Action{guard.ActionReadPersonal},
		TenantPathField: "recordPath",
	}, s.doReadRecord(fields.EmployeeSpec))

	s.writeEmployee = s.guard.Protect(guard.Policy{
		Domain:          secrets.DomainHR,
		RequiredRoles:   []guard.Role{guard.RoleHRAdmin, guard.RoleTenantOwner},
		Actions:         []guard.Action{guard.ActionWritePersonal},
		TenantPathField: "recordPath",
	}, s.doWriteRecord(fields.EmployeeSpec))

	s.listEmployees = s.guard.Protect(guard.Policy{
		Domain:        secrets.DomainHR,
		RequiredRoles: []guard.Role{guard.RoleStaff, guard.RoleManager, guard.RoleHRAdmin, guard.RoleTenantOwner},
		TenantField:   "tenantId",
	}, s.doListRecords("employees", fields.EmployeeProjection))

	s.readBank = s.guard.Protect(guard.Policy{
		Domain:          secrets.DomainFinance,
		RequiredRoles:   []guard.Role{guard.RoleFinanceAdmin, guard.RoleTenantOwner},
		Actions:         []guard.Action{guard.ActionReadBankDetails},
		TenantPathField: "recordPath",
	}, s.doReadRecord(fields.BankAccountSpec))

	s.writeBank = s.guard.Protect(guard.Policy{
		Domain:          secrets.DomainFinance,
		RequiredRoles:   []guard.Role{guard.RoleFinanceAdmin, guard.RoleTenantOwner},
		Actions:         []guard.Action{guard.ActionWriteBankDetails},
		TenantPathField: "recordPath",
	}, s.doWriteRecord(fields.BankAccountSpec))

	s.readSettings = s.guard.ProtectOwner("userId", secrets.DomainSettings,
		s.doReadRecord(fields.PersonalSettingsSpec))
	s.writeSettings = s.guard.ProtectOwner("userId", secrets.DomainSettings,
		s.doWriteRecord(fields.PersonalSettingsSpec))
}

// doReadRecord loads the record at Body["recordPath"] and decrypts its
// declared fields. A field that fails to decrypt stays as ciphertext in the
// response rather than being blanked.
func (s *Server) doReadRecord(spec fields.Spec) guard.Handler {
	return func(ctx context.Context, req guard.Request, key string) (any, error) {
		path, _ := req.Body["recordPath"].(string)
		rec, err := s.records.Get(ctx, path)
		if errors.Is(err, record.ErrNotFound) {
			return nil, errNotFound
		}
		if err != nil {
			return nil, err
		}
		dec, res := s.xform.Decrypt(rec, spec, key)
		if !res.FullyApplied() {
			s.logger.Printf("read %s: %d field(s) left encrypted", path, len(res.Failed))
		}
		return dec, nil
	}
}

// doWriteRecord encrypts the declared fields of Body["record"] and stores the
// result. A write whose encryption is not fully applied is rejected outright:
// no partially protected record reaches the store.
func (s *Server) doWriteRecord(spec fields.Spec) guard.Handler {
	return func(ctx context.Context, req guard.Request, key string) (any, error) {
		path, _ := req.Body["recordPath"].(string)
		rec, ok := req.Body["record"].(map[string]any)
		if !ok {
			return nil, errBadRecord
		}
		enc, res := s.xform.Encrypt(rec, spec, key)
		if !res.FullyApplied() {
			return nil, fmt.Errorf("write %s: %d sensitive field(s) failed to encrypt", path, len(res.Failed))
		}
		if err := s.records.Set(ctx, path, enc); err != nil {
			return nil, err
		}
		return map[string]any{"path": path, "encryptedFields": res.Applied}, nil
	}
}

// doListRecords returns whitelisted projections of every record directly
// under tenants/{tenant}/{collection}. No decryption key is needed because
// no sensitive field survives projection, but the listing is still guarded.
func (s *Server) doListRecords(collection string, proj fields.Projection) guard.Handler {
	return func(ctx context.Context, req guard.Request, _ string) (any, error) {
		tenantID, _ := req.Body["tenantId"].(string)
		prefix := "tenants/" + tenantID + "/" + collection
		paths, err := s.records.List(ctx, prefix)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(paths))
		for _, p := range paths {
			rec, err := s.records.Get(ctx, p)
			if err != nil {
				continue
			}
			out = append(out, map[string]any{
				"path":    p,
				"summary": fields.Project(rec, proj),
			})
		}
		return out, nil
	}
}

var (
	errNotFound  = errors.New("server: record not found")
	errBadRecord = errors.New("server: body must carry a record object")
)
