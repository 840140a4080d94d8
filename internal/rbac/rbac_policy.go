package rbac

import "go-pointage/internal/domain"

// RoleInheritance: child inherits every grant of parent.
var RoleInheritance = [][2]string{
	{domain.RoleSupervisor, domain.RoleEmployee},
	{domain.RoleHRAdmin, domain.RoleSupervisor},
}

var DefaultPolicies = []RolePermissionRow{
	{Role: domain.RoleEmployee, Resource: "timesheet", Action: "read"},
	{Role: domain.RoleEmployee, Resource: "timesheet", Action: "write"},
	{Role: domain.RoleEmployee, Resource: "hour_bank", Action: "read"},
	{Role: domain.RoleEmployee, Resource: "hour_bank", Action: "withdraw"},

	{Role: domain.RoleSupervisor, Resource: "timesheet", Action: "read_all"},
	{Role: domain.RoleSupervisor, Resource: "timesheet", Action: "validate"},
	{Role: domain.RoleSupervisor, Resource: "hour_bank", Action: "read_all"},
	{Role: domain.RoleSupervisor, Resource: "hour_bank", Action: "deposit"},
	{Role: domain.RoleSupervisor, Resource: "employee", Action: "read"},

	{Role: domain.RoleHRAdmin, Resource: "month", Action: "close"},
	{Role: domain.RoleHRAdmin, Resource: "employee", Action: "*"},
}
