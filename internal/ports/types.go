package ports

import "github.com/pennyhailey/witness-protocol/internal/domain"

// Encoding names how a record value is serialized.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingCBOR Encoding = "cbor"
)

// RecordEnvelope is one raw record as read from a repository.
// The value stays encoded; decoding and validation belong to the app layer.
type RecordEnvelope struct {
	Ref      domain.RecordRef `json:"uri"`
	CID      string           `json:"cid,omitempty"`
	Value    []byte           `json:"value"`
	Encoding Encoding         `json:"encoding"`
}

// RecordPage is one page of a ListRecords call.
type RecordPage struct {
	Records []RecordEnvelope `json:"records"`
	Cursor  string           `json:"cursor,omitempty"`
}

// IndexerQuery is the query of GET /attestations on an indexer.
type IndexerQuery struct {
	Subject   domain.Identifier
	Limit     int
	Cursor    string
	Sentiment domain.Sentiment
}

// IndexedAttestation is an attestation as reported by an indexer.
// Fields stay as strings so that the validator sees exactly what the indexer sent.
type IndexedAttestation struct {
	URI       string `json:"uri"`
	WitnessID string `json:"witnessId"`
	SubjectID string `json:"subjectId"`
	Claim     string `json:"claim"`
	Sentiment string `json:"sentiment,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// IndexerPage is one page of indexer results.
type IndexerPage struct {
	Attestations []IndexedAttestation `json:"attestations"`
	Cursor       string               `json:"cursor,omitempty"`
}

// IndexerTarget identifies one indexer to query.
type IndexerTarget struct {
	BaseURL string `json:"baseUrl" yaml:"base_url"`
}

// DiscoverOptions selects the channels and sources of one discovery.
//
// Deduplicate is not defaulted: a zero DiscoverOptions requests raw output.
// Callers that want the usual behavior start from DefaultDiscoverOptions.
type DiscoverOptions struct {
	KnownWitnesses            []domain.Identifier `json:"knownWitnesses,omitempty"`
	DiscoverWitnessesSocially bool                `json:"discoverWitnessesSocially,omitempty"`
	Registries                []domain.Identifier `json:"registries,omitempty"`
	Indexers                  []IndexerTarget     `json:"indexers,omitempty"`
	Deduplicate               bool                `json:"deduplicate"`
}

// DefaultDiscoverOptions returns options with deduplication enabled and no sources.
func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{Deduplicate: true}
}

// Sources counts first-seen contributions per channel.
type Sources struct {
	Social   int `json:"social"`
	Registry int `json:"registry"`
	Indexer  int `json:"indexer"`
}

// Add increments the counter for ch
func (s *Sources) Add(ch domain.Channel) {
	switch ch {
	case domain.ChannelSocial:
		s.Social++
	case domain.ChannelRegistry:
		s.Registry++
	case domain.ChannelIndexer:
		s.Indexer++
	}
}

// Total returns the sum of all channel counters
func (s Sources) Total() int {
	return s.Social + s.Registry + s.Indexer
}

// DiscoveryResult is the aggregate output of one discovery.
// It is built fresh per invocation and never persisted by the engine.
type DiscoveryResult struct {
	Subject      domain.Identifier          `json:"subject"`
	Attestations []domain.AttestationRecord `json:"attestations"`
	Sources      Sources                    `json:"sources"`
	Warnings     []string                   `json:"warnings"`
}

// OperatorResult is the outcome of discovering and resolving a subject's operator.
type OperatorResult struct {
	Subject    domain.Identifier       `json:"subject"`
	Resolution *domain.Resolution      `json:"resolution,omitempty"`
	Records    []domain.OperatorRecord `json:"records"`
	Warnings   []string                `json:"warnings"`
}
