package mapper

import (
	"encoding/json"

	"crag-notes-be/internal/entity"
	"crag-notes-be/internal/model"

	"gorm.io/datatypes"
)

type AskExchangeMapper struct{}

func NewAskExchangeMapper() *AskExchangeMapper {
	return &AskExchangeMapper{}
}

func (m *AskExchangeMapper) ToEntity(e *model.AskExchange) *entity.AskExchange {
	if e == nil {
		return nil
	}

	var citations []entity.AskCitation
	if len(e.Citations) > 0 {
		_ = json.Unmarshal(e.Citations, &citations)
	}

	return &entity.AskExchange{
		Id:         e.Id,
		ThreadId:   e.ThreadId,
		SubjectId:  e.SubjectId,
		Question:   e.Question,
		Answer:     e.Answer,
		Found:      e.Found,
		Confidence: e.Confidence,
		Citations:  citations,
		CreatedAt:  e.CreatedAt,
	}
}

func (m *AskExchangeMapper) ToModel(e *entity.AskExchange) *model.AskExchange {
	if e == nil {
		return nil
	}

	citationBytes, _ := json.Marshal(e.Citations)

	return &model.AskExchange{
		Id:         e.Id,
		ThreadId:   e.ThreadId,
		SubjectId:  e.SubjectId,
		Question:   e.Question,
		Answer:     e.Answer,
		Found:      e.Found,
		Confidence: e.Confidence,
		Citations:  datatypes.JSON(citationBytes),
		CreatedAt:  e.CreatedAt,
	}
}

func (m *AskExchangeMapper) ToEntities(exchanges []*model.AskExchange) []*entity.AskExchange {
	entities := make([]*entity.AskExchange, len(exchanges))
	for i, e := range exchanges {
		entities[i] = m.ToEntity(e)
	}
	return entities
}
