package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/fieldsvc/fieldsvc/internal/domain/apperr"
)

// generateEvidenceID derives an id from the content hash and the time
func generateEvidenceID(content []byte, at time.Time) string {
	hash := sha256.Sum256(content)
	return fmt.Sprintf("%s-%d", hex.EncodeToString(hash[:8]), at.UnixNano())
}

func engagementDir(engagementID int64) string {
	return strconv.FormatInt(engagementID, 10)
}

func errEvidenceNotFound(evidenceID string) error {
	return apperr.New(apperr.KindNotFound, "load evidence", fmt.Sprintf("evidence %s not found", evidenceID))
}
