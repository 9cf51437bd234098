package models

type Zone struct {
	BaseModel

	Name string `gorm:"not null" json:"name"`
}

func (*Zone) TableName() string {
	return "zones"
}
