package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Conversation holds the schema definition for the Conversation entity.
// kind=main: at most one per (document, demo-scope); origin chunk may be "0".
// kind=highlight: origin chunk is required.
type Conversation struct {
	ent.Schema
}

// Fields of the Conversation.
func (Conversation) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("conversation_id").
			Unique().
			Immutable(),
		field.String("document_id").
			Immutable(),
		field.Enum("kind").
			Values("main", "highlight").
			Immutable(),
		field.String("origin_chunk_id").
			Optional().
			Nillable().
			Comment("Sequence number as string; required for highlight"),
		field.JSON("metadata", map[string]interface{}{}).
			Optional().
			Comment("connection_id (demo), seen_chunks, highlight_range, highlight_text"),
		field.Bool("is_demo").
			Default(false),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the Conversation.
func (Conversation) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("document", Document.Type).
			Ref("conversations").
			Field("document_id").
			Unique().
			Required().
			Immutable(),
		edge.To("messages", Message.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("questions", Question.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Conversation.
func (Conversation) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("document_id", "kind"),
		index.Fields("document_id", "origin_chunk_id"),
		index.Fields("is_demo"),
	}
}
