package querybuilder

import (
	"testing"
	"time"
)

func TestSelectToSQL(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	query, args, err := Select("*").From("matches").
		Where(
			In("status", []any{"scheduled", "tba"}),
			Gte("match_date_utc", now),
			IsNull("prediction_id"),
		).
		OrderBy("match_date_utc", "id").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select: %v", err)
	}

	want := "SELECT * FROM matches WHERE status IN ($1, $2) AND match_date_utc >= $3 AND prediction_id IS NULL ORDER BY match_date_utc, id LIMIT 10"
	if query != want {
		t.Fatalf("unexpected query:\n got=%s\nwant=%s", query, want)
	}
	if len(args) != 3 {
		t.Fatalf("unexpected arg count: got=%d want=3", len(args))
	}
}

func TestSelectToSQL_EmptyInMatchesNothing(t *testing.T) {
	query, _, err := Select("id").From("matches").
		Where(In("status", nil)).
		ToSQL()
	if err != nil {
		t.Fatalf("build select: %v", err)
	}
	if query != "SELECT id FROM matches WHERE 1=0" {
		t.Fatalf("unexpected query: %s", query)
	}
}

func TestInsertModelWithConflictSuffix(t *testing.T) {
	type row struct {
		ID   string `db:"id"`
		Name string `db:"name"`
		skip string `db:"ignored"`
	}

	query, args, err := InsertModel("teams", row{ID: "t1", Name: "Arsenal"},
		"ON CONFLICT (name) DO NOTHING")
	if err != nil {
		t.Fatalf("build insert: %v", err)
	}

	want := "INSERT INTO teams (id, name) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING"
	if query != want {
		t.Fatalf("unexpected query:\n got=%s\nwant=%s", query, want)
	}
	if len(args) != 2 || args[0] != "t1" || args[1] != "Arsenal" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestUpdateToSQL(t *testing.T) {
	query, args, err := Update("matches").
		Set("status", "finished").
		SetExpr("updated_at", "NOW()").
		Where(Eq("id", "m1"), Lt("match_date_utc", time.Unix(0, 0))).
		ToSQL()
	if err != nil {
		t.Fatalf("build update: %v", err)
	}

	want := "UPDATE matches SET status = $1, updated_at = NOW() WHERE id = $2 AND match_date_utc < $3"
	if query != want {
		t.Fatalf("unexpected query:\n got=%s\nwant=%s", query, want)
	}
	if len(args) != 3 {
		t.Fatalf("unexpected arg count: got=%d want=3", len(args))
	}
}
