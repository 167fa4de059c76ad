package models

// RelationshipKind classifies an inter-table relationship.
type RelationshipKind string

const (
	RelationshipOneToOne   RelationshipKind = "one_to_one"
	RelationshipOneToMany  RelationshipKind = "one_to_many"
	RelationshipManyToMany RelationshipKind = "many_to_many"
	RelationshipForeignKey RelationshipKind = "foreign_key"
	RelationshipUnknown    RelationshipKind = "unknown"
)

// NormalizeRelationshipKind maps free-form LLM kind labels onto the known
// set, defaulting to unknown.
func NormalizeRelationshipKind(s string) RelationshipKind {
	switch RelationshipKind(s) {
	case RelationshipOneToOne, RelationshipOneToMany, RelationshipManyToMany, RelationshipForeignKey:
		return RelationshipKind(s)
	}
	switch s {
	case "1:1", "one-to-one":
		return RelationshipOneToOne
	case "1:N", "1:n", "one-to-many", "has_many":
		return RelationshipOneToMany
	case "N:M", "n:m", "many-to-many":
		return RelationshipManyToMany
	case "fk", "references", "belongs_to":
		return RelationshipForeignKey
	}
	return RelationshipUnknown
}

// Relationship links two tables. Relationships are derived during analysis
// and embedded in the analysis result; they are not persisted independently.
type Relationship struct {
	FromTable string           `json:"from_table"`
	ToTable   string           `json:"to_table"`
	Kind      RelationshipKind `json:"kind"`
}
