package v1

import "github.com/4thel00z/fieldvec/internal"

// Errors callers can match with errors.Is.
var (
	ErrEmptyCorpus       = internal.ErrEmptyCorpus
	ErrVocabularyGap     = internal.ErrVocabularyGap
	ErrIndexNotBuilt     = internal.ErrIndexNotBuilt
	ErrDimensionMismatch = internal.ErrDimensionMismatch
	ErrUnknownType       = internal.ErrUnknownType
	ErrUnknownColumn     = internal.ErrUnknownColumn
	ErrInvalidEncoding   = internal.ErrInvalidEncoding
	ErrInvalidToken      = internal.ErrInvalidToken
	ErrInvalidTrees      = internal.ErrInvalidTrees
	ErrCorruptCodebook   = internal.ErrCorruptCodebook
)

// Column designates a categorical column and its encoding, e.g.
// {"dstport", "word2vec_port"}.
type Column struct {
	Name     string `json:"name"`
	Encoding string `json:"encoding"`
}

// Dataset is a table of string cells.
type Dataset struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Sessions is a batch of generated sessions ready to be written out.
type Sessions struct {
	SessionFields []string     `json:"session_fields"`
	SeriesFields  []string     `json:"series_fields"`
	Attributes    [][]string   `json:"attributes"`
	Series        [][][]string `json:"series"`
	Flags         [][]float64  `json:"flags"`
}
