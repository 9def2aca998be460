package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BySubjectID scopes a query to one retrieval namespace.
type BySubjectID struct {
	SubjectID uuid.UUID
}

func (s BySubjectID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("subject_id = ?", s.SubjectID)
}

// ByDocumentID filters chunk embeddings by their parent document.
type ByDocumentID struct {
	DocumentID uuid.UUID
}

func (s ByDocumentID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("document_id = ?", s.DocumentID)
}

// ByThreadID filters ask exchanges by conversation thread.
type ByThreadID struct {
	ThreadID uuid.UUID
}

func (s ByThreadID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("thread_id = ?", s.ThreadID)
}
