// Package neo4j resolves entity mentions against the knowledge graph and
// reports authority co-occurrence for retrieved documents.
package neo4j

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/davidgpt/david-gpt/internal/core/domain"
)

type Store struct {
	driver   neo4j.DriverWithContext
	database string
}

func NewStore(uri, username, password, database string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return &Store{driver: driver, database: database}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// ResolveMentions matches mention spans against entity names and aliases,
// case-insensitively. Unknown mentions are skipped, not errors.
func (s *Store) ResolveMentions(ctx context.Context, mentions []string) ([]domain.Entity, error) {
	normalized := normalizeMentions(mentions)
	if len(normalized) == 0 {
		return nil, nil
	}

	const query = `
MATCH (e:Entity)
WHERE toLower(e.name) IN $mentions
   OR any(alias IN coalesce(e.aliases, []) WHERE toLower(alias) IN $mentions)
RETURN e.id AS id, e.name AS name, e.kind AS kind,
       coalesce(e.aliases, []) AS aliases,
       coalesce(e.authority_score, 0.0) AS authority
ORDER BY authority DESC
`
	result, err := neo4j.ExecuteQuery(ctx, s.driver, query,
		map[string]any{"mentions": normalized},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, fmt.Errorf("resolve mentions: %w", err)
	}

	entities := make([]domain.Entity, 0, len(result.Records))
	for _, record := range result.Records {
		entities = append(entities, domain.Entity{
			ID:             recordString(record, "id"),
			Name:           recordString(record, "name"),
			Kind:           recordString(record, "kind"),
			Aliases:        recordStrings(record, "aliases"),
			AuthorityScore: recordFloat(record, "authority"),
		})
	}
	return entities, nil
}

// HighAuthorityDocs returns, per document, the highest authority score among
// entities mentioned in it. Documents with no entity links are omitted.
func (s *Store) HighAuthorityDocs(ctx context.Context, docIDs []string) (map[string]float64, error) {
	if len(docIDs) == 0 {
		return map[string]float64{}, nil
	}

	const query = `
MATCH (e:Entity)-[:MENTIONED_IN]->(d:Document)
WHERE d.id IN $doc_ids
RETURN d.id AS doc_id, max(coalesce(e.authority_score, 0.0)) AS authority
`
	result, err := neo4j.ExecuteQuery(ctx, s.driver, query,
		map[string]any{"doc_ids": docIDs},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, fmt.Errorf("authority lookup: %w", err)
	}

	out := make(map[string]float64, len(result.Records))
	for _, record := range result.Records {
		docID := recordString(record, "doc_id")
		if docID == "" {
			continue
		}
		out[docID] = recordFloat(record, "authority")
	}
	return out, nil
}

// LinkEntityMention upserts an entity and its mention edge to a document.
// The processing pipeline calls this for metadata actors and key terms.
func (s *Store) LinkEntityMention(ctx context.Context, entity domain.Entity, docID string) error {
	const query = `
MERGE (e:Entity {id: $id})
SET e.name = $name, e.kind = $kind, e.aliases = $aliases, e.authority_score = $authority
MERGE (d:Document {id: $doc_id})
MERGE (e)-[:MENTIONED_IN]->(d)
`
	_, err := neo4j.ExecuteQuery(ctx, s.driver, query,
		map[string]any{
			"id":        entity.ID,
			"name":      entity.Name,
			"kind":      entity.Kind,
			"aliases":   entity.Aliases,
			"authority": entity.AuthorityScore,
			"doc_id":    docID,
		},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database),
	)
	if err != nil {
		return fmt.Errorf("link entity mention: %w", err)
	}
	return nil
}

func normalizeMentions(mentions []string) []string {
	seen := make(map[string]struct{}, len(mentions))
	out := make([]string, 0, len(mentions))
	for _, m := range mentions {
		lowered := strings.ToLower(strings.TrimSpace(m))
		if lowered == "" {
			continue
		}
		if _, dup := seen[lowered]; dup {
			continue
		}
		seen[lowered] = struct{}{}
		out = append(out, lowered)
	}
	return out
}

func recordString(record *neo4j.Record, key string) string {
	v, ok := record.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func recordFloat(record *neo4j.Record, key string) float64 {
	v, ok := record.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}

func recordStrings(record *neo4j.Record, key string) []string {
	v, ok := record.Get(key)
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
