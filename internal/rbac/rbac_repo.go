package rbac

import "gorm.io/gorm"

//go:generate mockgen -source=rbac_repo.go -destination=mock/rbac_repo_mock.go -package=mock
type Repository interface {
	GetRolePermissions() ([]RolePermissionRow, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// RolePermissionRow is an extra grant on top of DefaultPolicies.
type RolePermissionRow struct {
	ID       uint   `gorm:"primaryKey"`
	Role     string `gorm:"size:50;not null;uniqueIndex:uq_role_permission"`
	Resource string `gorm:"size:50;not null;uniqueIndex:uq_role_permission"`
	Action   string `gorm:"size:50;not null;uniqueIndex:uq_role_permission"`
}

func (RolePermissionRow) TableName() string {
	return "role_permissions"
}

func (r *repository) GetRolePermissions() ([]RolePermissionRow, error) {
	var result []RolePermissionRow
	err := r.db.Order("role, resource, action").Find(&result).Error
	return result, err
}
