package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Document holds the schema definition for the Document entity.
// A Document is either owned by a User or, if curated into the Example set
// (see config.ExampleDocumentSet), globally readable and un-writable.
type Document struct {
	ent.Schema
}

// Fields of the Document.
func (Document) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("document_id").
			Unique().
			Immutable(),
		field.String("owner_id").
			Optional().
			Nillable().
			Comment("Nil for curated example documents"),
		field.String("title"),
		field.Text("full_text").
			Comment("Normalized text produced by the ingest collaborator"),
		field.Enum("status").
			Values("pending", "ready", "failed").
			Default("pending"),
		field.String("blob_path").
			Optional().
			Nillable().
			Comment("Opaque address in the blob store for the original file"),
		field.JSON("metadata", map[string]interface{}{}).
			Optional().
			Comment("topic_key, chunk_count, source_url"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the Document.
func (Document) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("owner", User.Type).
			Ref("documents").
			Field("owner_id").
			Unique(),
		edge.To("chunks", DocumentChunk.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("conversations", Conversation.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Document.
func (Document) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("owner_id"),
		index.Fields("status"),
	}
}
