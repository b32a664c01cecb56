package file

import "time"

// Record represents one physical file, either an upload or a conversion output.
type Record struct {
	ID               string    `json:"id"`
	StoragePath      string    `json:"storage_path"`
	OriginalFilename string    `json:"original_filename"`
	MediaType        string    `json:"media_type"`
	Extension        string    `json:"extension"`
	SizeBytes        int64     `json:"size_bytes"`
	SHA256Checksum   string    `json:"sha256_checksum"`
	StoredAs         string    `json:"stored_as"`
	CreatedAt        time.Time `json:"created_at"`
}

// requiredFields lists the caller-supplied columns in table order.
var requiredFields = []string{
	"id",
	"storage_path",
	"original_filename",
	"media_type",
	"extension",
	"size_bytes",
	"sha256_checksum",
	"stored_as",
}

// Validate checks that exactly the insertable field set is present.
// created_at belongs to the store and must not be supplied.
func (r Record) Validate() error {
	var verr ValidationError

	present := map[string]bool{
		"id":                r.ID != "",
		"storage_path":      r.StoragePath != "",
		"original_filename": r.OriginalFilename != "",
		"media_type":        r.MediaType != "",
		"extension":         r.Extension != "",
		"size_bytes":        r.SizeBytes >= 0,
		"sha256_checksum":   r.SHA256Checksum != "",
		"stored_as":         r.StoredAs != "",
	}
	for _, name := range requiredFields {
		if !present[name] {
			verr.Missing = append(verr.Missing, name)
		}
	}

	if !r.CreatedAt.IsZero() {
		verr.Unexpected = append(verr.Unexpected, "created_at")
	}

	if r.SHA256Checksum != "" && !isSHA256Hex(r.SHA256Checksum) {
		verr.Malformed = append(verr.Malformed, "sha256_checksum")
	}

	if verr.empty() {
		return nil
	}
	return &verr
}

func isSHA256Hex(s string) bool {
	if len(s) != 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
