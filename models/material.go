// models/material.go
package models

import "time"

const (
	MaterialTable = "grd_materials"
	CategoryTable = "grd_categories"
)

type Category struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Material 物资。HasSerial 在创建时确定，之后不可变：
// 有序列号的物资总数恒为 1；无序列号的按数量计。
// 不变式：QuantityAvailable + QuantityLoaned == QuantityTotal
type Material struct {
	ID                string    `gorm:"type:uuid;primaryKey" json:"id"`
	CategoryID        *string   `gorm:"type:uuid;index" json:"categoryId,omitempty"`
	Category          *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Name              string    `gorm:"size:100;index;not null" json:"name"`
	Serial            *string   `gorm:"size:50;uniqueIndex" json:"serial,omitempty"`
	HasSerial         bool      `gorm:"not null" json:"hasSerial"`
	QuantityTotal     int       `gorm:"not null" json:"quantityTotal"`
	QuantityAvailable int       `gorm:"not null" json:"quantityAvailable"`
	QuantityLoaned    int       `gorm:"not null" json:"quantityLoaned"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (Category) TableName() string { return CategoryTable }
func (Material) TableName() string { return MaterialTable }
