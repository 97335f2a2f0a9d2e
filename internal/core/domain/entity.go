package domain

// Entity is a named entity known to the entity store (person, company,
// technology). AuthorityScore is a 0..1 importance weight used to re-rank
// documents that mention the entity.
type Entity struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Kind           string   `json:"kind,omitempty"`
	Aliases        []string `json:"aliases,omitempty"`
	AuthorityScore float64  `json:"authority_score"`
}

// HighAuthorityThreshold is the floor above which an entity's co-occurrence
// boosts the documents mentioning it.
const HighAuthorityThreshold = 0.8
