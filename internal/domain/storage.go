package domain

import "time"

// StoredFile describes an object held by the storage backend.
type StoredFile struct {
	URL              string    `json:"url"`
	PublicID         string    `json:"public_id"`
	OriginalFilename string    `json:"original_filename"`
	Format           string    `json:"format"`
	Bytes            int64     `json:"bytes"`
	UploadedAt       time.Time `json:"uploadedAt"`
}

const (
	DocumentKTP           = "ktp"
	DocumentIjazah        = "ijazah"
	DocumentFoto          = "foto"
	DocumentSuratSehat    = "surat_sehat"
	DocumentPassport      = "passport"
	DocumentSertifikatBST = "sertifikat_bst"
	FieldPaymentProof     = "payment_proof"
)

var DocumentKinds = []string{
	DocumentKTP,
	DocumentIjazah,
	DocumentFoto,
	DocumentSuratSehat,
	DocumentPassport,
	DocumentSertifikatBST,
}

func IsDocumentKind(kind string) bool {
	for _, k := range DocumentKinds {
		if k == kind {
			return true
		}
	}
	return false
}
