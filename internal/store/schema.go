package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	mutationsTable = "mutations"
	progressTable  = "progress_snapshots"
	cacheTable     = "cached_contents"
)

var (
	// MutationsColumns holds the columns for the "mutations" table.
	MutationsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true, Comment: "FIFO position, from mutation_sequence"},
		{Name: "collection", Type: field.TypeString},
		{Name: "payload", Type: field.TypeString, Size: 2147483647},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "synced", Type: field.TypeBool, Default: false},
		{Name: "synced_at", Type: field.TypeTime, Nullable: true},
		{Name: "attempts", Type: field.TypeInt, Default: 0},
		{Name: "last_error", Type: field.TypeString, Nullable: true, Size: 2147483647},
		{Name: "next_attempt_at", Type: field.TypeTime, Nullable: true},
	}
	// MutationsTable holds the schema information for the "mutations" table.
	MutationsTable = &schema.Table{
		Name:       mutationsTable,
		Columns:    MutationsColumns,
		PrimaryKey: []*schema.Column{MutationsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "mutation_collection_synced_sequence",
				Unique:  false,
				Columns: []*schema.Column{MutationsColumns[2], MutationsColumns[5], MutationsColumns[1]},
			},
		},
	}

	// ProgressSnapshotsColumns holds the columns for the "progress_snapshots" table.
	ProgressSnapshotsColumns = []*schema.Column{
		{Name: "user_id", Type: field.TypeString},
		{Name: "lesson_id", Type: field.TypeString},
		{Name: "completed", Type: field.TypeBool, Default: false},
		{Name: "score", Type: field.TypeFloat64, Default: 0},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
		{Name: "synced", Type: field.TypeBool, Default: false},
	}
	// ProgressSnapshotsTable holds the schema information for the "progress_snapshots" table.
	ProgressSnapshotsTable = &schema.Table{
		Name:       progressTable,
		Columns:    ProgressSnapshotsColumns,
		PrimaryKey: []*schema.Column{ProgressSnapshotsColumns[0], ProgressSnapshotsColumns[1]},
	}

	// CachedContentsColumns holds the columns for the "cached_contents" table.
	CachedContentsColumns = []*schema.Column{
		{Name: "lesson_id", Type: field.TypeString, Unique: true},
		{Name: "content", Type: field.TypeString, Size: 2147483647},
		{Name: "cached_at", Type: field.TypeTime},
	}
	// CachedContentsTable holds the schema information for the "cached_contents" table.
	CachedContentsTable = &schema.Table{
		Name:       cacheTable,
		Columns:    CachedContentsColumns,
		PrimaryKey: []*schema.Column{CachedContentsColumns[0]},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		MutationsTable,
		ProgressSnapshotsTable,
		CachedContentsTable,
	}
)
