// models/report.go
package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	CaseTable       = "grd_cases"
	SignerTable     = "grd_signers"
	SignerRoleTable = "grd_signer_roles"
	ReportTable     = "grd_readiness_reports"
)

// Case 加封的装备箱
type Case struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	Description string    `gorm:"size:255;not null" json:"description"`
	Responsible string    `gorm:"size:100;not null" json:"responsible"`
	Seal        string    `gorm:"size:50;uniqueIndex;not null" json:"seal"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Signer struct {
	ID   string `gorm:"type:uuid;primaryKey" json:"id"`
	Name string `gorm:"size:100;not null" json:"name"`
}

type SignerRole struct {
	ID   string `gorm:"type:uuid;primaryKey" json:"id"`
	Name string `gorm:"size:100;not null" json:"name"`
}

// ReadinessReport 每日战备报告（pronto de armamento），快照以 JSON 存档
type ReadinessReport struct {
	ID     string    `gorm:"type:uuid;primaryKey" json:"id"`
	Date   time.Time `gorm:"index;not null" json:"date"`
	Number int       `gorm:"uniqueIndex;not null" json:"number"`
	Seal   string    `gorm:"size:50;not null" json:"seal"`

	Signer1ID string `gorm:"type:uuid;index;not null" json:"signer1Id"`
	Role1ID   string `gorm:"type:uuid;not null" json:"role1Id"`
	Signer2ID string `gorm:"type:uuid;index;not null" json:"signer2Id"`
	Role2ID   string `gorm:"type:uuid;not null" json:"role2Id"`
	Signer3ID string `gorm:"type:uuid;index;not null" json:"signer3Id"`
	Role3ID   string `gorm:"type:uuid;not null" json:"role3Id"`

	Signer1 *Signer     `gorm:"foreignKey:Signer1ID" json:"signer1,omitempty"`
	Role1   *SignerRole `gorm:"foreignKey:Role1ID" json:"role1,omitempty"`
	Signer2 *Signer     `gorm:"foreignKey:Signer2ID" json:"signer2,omitempty"`
	Role2   *SignerRole `gorm:"foreignKey:Role2ID" json:"role2,omitempty"`
	Signer3 *Signer     `gorm:"foreignKey:Signer3ID" json:"signer3,omitempty"`
	Role3   *SignerRole `gorm:"foreignKey:Role3ID" json:"role3,omitempty"`

	Snapshot  datatypes.JSON `json:"snapshot"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (Case) TableName() string            { return CaseTable }
func (Signer) TableName() string          { return SignerTable }
func (SignerRole) TableName() string      { return SignerRoleTable }
func (ReadinessReport) TableName() string { return ReportTable }
