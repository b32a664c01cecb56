package relation

import "errors"

// ErrMissingID is returned when either side of a relation is empty.
var ErrMissingID = errors.New("relation requires both original_file_id and converted_file_id")
