package domain

// Identifier names an entity (agent, operator, witness, registry, indexer)
// independently of where its repository is currently hosted.
//
// Identifiers are compared by exact string equality. Syntax validation
// (DID methods, SPIFFE IDs) belongs to the IdentifierParser port.
type Identifier string

// String returns the identifier as a plain string
func (id Identifier) String() string {
	return string(id)
}

// IsZero reports whether the identifier is empty
func (id Identifier) IsZero() bool {
	return id == ""
}

// RecordKind is the kind tag ($type) of a record, which is also the name of
// the collection it is stored in.
type RecordKind string

const (
	// KindAttestation is a witness claim about a subject
	KindAttestation RecordKind = "network.witness.attestation"

	// KindOperator is a declaration of who operates a subject
	KindOperator RecordKind = "network.witness.operator"

	// KindRegistry is a registry membership list of witnesses
	KindRegistry RecordKind = "network.witness.registry"

	// KindFollow is a social-graph follow record used to derive candidate witnesses
	KindFollow RecordKind = "app.bsky.graph.follow"
)

// String returns the kind as a collection name
func (k RecordKind) String() string {
	return string(k)
}

// Channel names a discovery channel a record was observed through.
type Channel string

const (
	ChannelSocial   Channel = "social"
	ChannelRegistry Channel = "registry"
	ChannelIndexer  Channel = "indexer"
)

// Channels lists every discovery channel in their canonical fold order.
func Channels() []Channel {
	return []Channel{ChannelSocial, ChannelRegistry, ChannelIndexer}
}
