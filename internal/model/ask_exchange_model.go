package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AskExchange struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ThreadId   uuid.UUID      `gorm:"type:uuid;not null;index"`
	SubjectId  uuid.UUID      `gorm:"type:uuid;not null;index"`
	Question   string         `gorm:"type:text;not null"`
	Answer     string         `gorm:"type:text"`
	Found      bool           `gorm:"default:false"`
	Confidence string         `gorm:"type:varchar(16)"`
	Citations  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
}

func (AskExchange) TableName() string {
	return "ask_exchanges"
}
