package models

const (
	UserRoleAgent = "agent"
	UserRoleAdmin = "admin"
)

// User is the read-only projection of an agent account.
type User struct {
	BaseModel

	Name  string `json:"name"`
	Email string `gorm:"index" json:"email,omitempty"`
	Role  string `gorm:"default:'agent'" json:"role"`
}

func (*User) TableName() string {
	return "users"
}
