package dispute

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"time"

	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/apperror"
	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/objectstore"
)

var unsafeNameChars = regexp.MustCompile(`[^\w.\-]+`)

// FileRef is the reference returned by ingestion, ready to be turned into a
// file-type evidence entry.
type FileRef struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	Path     string `json:"path"`
}

// Ingestor binds uploaded blobs into evidence references. It never inspects
// blob contents and never mutates the dispute; appending the resulting
// evidence entry is a separate step.
type Ingestor struct {
	objects objectstore.Store
}

// NewIngestor creates an evidence ingestor over the given object store.
func NewIngestor(objects objectstore.Store) *Ingestor {
	return &Ingestor{objects: objects}
}

// Ingest stores the raw bytes under a collision-resistant path derived from
// the dispute id, the upload time, and the sanitized file name.
func (ing *Ingestor) Ingest(ctx context.Context, disputeID, fileName string, body io.Reader) (FileRef, error) {
	if fileName == "" {
		return FileRef{}, apperror.New(apperror.KindValidation, "file name is required")
	}
	safeName := unsafeNameChars.ReplaceAllString(fileName, "_")
	path := fmt.Sprintf("disputes/%s/evidence/%d_%s", disputeID, time.Now().UnixMilli(), safeName)
	handle, err := ing.objects.Put(ctx, path, body)
	if err != nil {
		return FileRef{}, apperror.Wrap(apperror.KindStorage, "store evidence file", err)
	}
	return FileRef{
		URL:      ing.objects.PublicURL(handle),
		FileName: fileName,
		Path:     path,
	}, nil
}
