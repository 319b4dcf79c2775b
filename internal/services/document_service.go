package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/StudyCoach/internal/core"
	ingestion "github.com/markdave123-py/StudyCoach/internal/core/ingestion_engine"
	objectclient "github.com/markdave123-py/StudyCoach/internal/core/object-client"
	"github.com/markdave123-py/StudyCoach/internal/models"
)

// DocumentService records uploaded materials and archives their bytes.
// storage may be nil, in which case materials are recorded without a URL.
type DocumentService struct {
	db      core.DbClient
	storage core.ObjectClient
	bucket  string
	log     zerolog.Logger
}

func NewDocumentService(db core.DbClient, storage core.ObjectClient, bucket string, log zerolog.Logger) *DocumentService {
	return &DocumentService{db: db, storage: storage, bucket: bucket, log: log}
}

// Record archives the upload and stores a Material for the user, once per
// content hash. Failures are logged and yield nil.
func (s *DocumentService) Record(ctx context.Context, req ProcessRequest, doc *ingestion.IngestedDocument) *models.Material {
	if req.UserID == "" {
		return nil
	}
	existing, err := s.db.ListMaterialsByUser(ctx, req.UserID)
	if err != nil {
		s.log.Warn().Err(err).Msg("list materials failed")
		return nil
	}
	for i := range existing {
		if existing[i].ContentHash == doc.ContentHash {
			return &existing[i]
		}
	}

	m := &models.Material{
		UserID:      req.UserID,
		Subject:     req.Subject,
		FileName:    req.FileName,
		ContentHash: doc.ContentHash,
		PageCount:   doc.Pages,
	}
	key := objectclient.MaterialKey(doc.ContentHash, req.FileName)
	if s.archives() {
		url, err := s.storage.UploadFile(ctx, s.bucket, key, bytes.NewReader(req.Data), pdfContentType)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("archiving upload failed")
		} else {
			m.StorageURL = url
		}
	}
	if err := s.db.CreateMaterial(ctx, m); err != nil {
		s.log.Warn().Err(err).Msg("record material failed")
		if m.StorageURL != "" {
			// nothing references the archived object now
			if err := s.storage.DeleteFile(ctx, s.bucket, key); err != nil {
				s.log.Warn().Err(err).Str("key", key).Msg("removing orphaned upload failed")
			}
		}
		return nil
	}
	return m
}

// File returns a material owned by userID and its archived PDF bytes.
func (s *DocumentService) File(ctx context.Context, userID, materialID string) (*models.Material, []byte, error) {
	m, err := s.db.GetMaterialByID(ctx, materialID)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup material: %w", err)
	}
	if m == nil || m.UserID != userID {
		return nil, nil, fmt.Errorf("material %s: %w", materialID, ErrNotFound)
	}
	if !s.archives() || m.StorageURL == "" {
		return nil, nil, fmt.Errorf("file for material %s: %w", materialID, ErrNotFound)
	}
	data, err := s.storage.GetFile(ctx, s.bucket, objectclient.MaterialKey(m.ContentHash, m.FileName))
	if err != nil {
		return nil, nil, fmt.Errorf("fetch material file: %w", err)
	}
	return m, data, nil
}

func (s *DocumentService) archives() bool {
	return s.storage != nil && s.bucket != ""
}

func (s *DocumentService) ListByUser(ctx context.Context, userID string) ([]models.Material, error) {
	return s.db.ListMaterialsByUser(ctx, userID)
}
