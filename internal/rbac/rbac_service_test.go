package rbac

import (
	"errors"
	"testing"

	"go-pointage/internal/domain"
	"go-pointage/internal/rbac/infra"

	"github.com/casbin/casbin/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =========================================
// Mock Repository
// =========================================

type mockRepo struct {
	rows []RolePermissionRow
	err  error
}

func (m *mockRepo) GetRolePermissions() ([]RolePermissionRow, error) {
	return m.rows, m.err
}

func newTestEnforcer(t *testing.T) *casbin.Enforcer {
	e, err := infra.NewEnforcer("")
	require.NoError(t, err)
	return e
}

func TestRBACService_DefaultPolicies(t *testing.T) {
	svc := NewService(&mockRepo{}, newTestEnforcer(t))
	require.NoError(t, svc.LoadPolicy())

	cases := []struct {
		role, resource, action string
		want                   bool
	}{
		{domain.RoleEmployee, "timesheet", "write", true},
		{domain.RoleEmployee, "hour_bank", "withdraw", true},
		{domain.RoleEmployee, "timesheet", "validate", false},
		{domain.RoleEmployee, "timesheet", "read_all", false},
		{domain.RoleSupervisor, "timesheet", "validate", true},
		{domain.RoleSupervisor, "timesheet", "write", true},
		{domain.RoleSupervisor, "month", "close", false},
		{domain.RoleHRAdmin, "month", "close", true},
		{domain.RoleHRAdmin, "timesheet", "validate", true},
		{domain.RoleHRAdmin, "employee", "create", true},
		{domain.RoleHRAdmin, "employee", "delete", true},
		{"hr_admin", "month", "close", true},
		{"GUEST", "timesheet", "read", false},
	}

	for _, tc := range cases {
		allowed, err := svc.Enforce(domain.EnforceRequest{Role: tc.role, Resource: tc.resource, Action: tc.action})
		assert.NoError(t, err)
		assert.Equal(t, tc.want, allowed, "%s %s:%s", tc.role, tc.resource, tc.action)
	}
}

func TestRBACService_StoredGrants(t *testing.T) {
	repo := &mockRepo{rows: []RolePermissionRow{
		{Role: domain.RoleEmployee, Resource: "hour_bank", Action: "deposit"},
	}}
	svc := NewService(repo, newTestEnforcer(t))
	require.NoError(t, svc.LoadPolicy())

	allowed, err := svc.Enforce(domain.EnforceRequest{Role: domain.RoleEmployee, Resource: "hour_bank", Action: "deposit"})
	assert.NoError(t, err)
	assert.True(t, allowed)
}

func TestRBACService_LoadPolicyError(t *testing.T) {
	svc := NewService(&mockRepo{err: errors.New("db down")}, newTestEnforcer(t))
	assert.Error(t, svc.LoadPolicy())
}
