package stream_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/vitrine/home"
	"github.com/jacentio/vitrine/store"
	"github.com/jacentio/vitrine/stream"
)

func newRepairer(t *testing.T) (*stream.Repairer, store.Collection) {
	t.Helper()
	sections := store.NewMemory().Collection(home.SectionsCollection)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return stream.NewRepairer(sections, logger), sections
}

func sentinelEvent(id string) events.DynamoDBEvent {
	return events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{
			{
				EventID:   "evt-1",
				EventName: "MODIFY",
				Change: events.DynamoDBStreamRecord{
					Keys: map[string]events.DynamoDBAttributeValue{
						"pk": events.NewStringAttribute(home.SectionsCollection),
						"sk": events.NewStringAttribute(id),
					},
					OldImage: map[string]events.DynamoDBAttributeValue{
						home.FieldPosition: events.NewNumberAttribute("2"),
					},
					NewImage: map[string]events.DynamoDBAttributeValue{
						home.FieldPosition: events.NewNumberAttribute("-1"),
					},
				},
			},
		},
	}
}

func seed(t *testing.T, sections store.Collection, id string, position int64) {
	t.Helper()
	_, err := sections.InsertOne(context.Background(), store.Doc{
		store.FieldID:      id,
		home.FieldPosition: position,
	})
	if err != nil {
		t.Fatalf("seed section %q: %v", id, err)
	}
}

func positionOf(t *testing.T, sections store.Collection, id string) int64 {
	t.Helper()
	doc, err := sections.FindOne(context.Background(), store.Filter{store.FieldID: id})
	if err != nil {
		t.Fatalf("read section %q: %v", id, err)
	}
	p, _ := doc.Int(home.FieldPosition)
	return p
}

func TestRepair_ReclaimsStrandedSection(t *testing.T) {
	r, sections := newRepairer(t)
	seed(t, sections, "a", 1)
	seed(t, sections, "b", 3)
	seed(t, sections, "stuck", -1)

	if err := r.HandleStream(context.Background(), sentinelEvent("stuck")); err != nil {
		t.Fatalf("HandleStream failed: %v", err)
	}

	// Reclaimed past the maximum, never onto an occupied position.
	if got := positionOf(t, sections, "stuck"); got != 4 {
		t.Errorf("expected reclaimed position 4, got %d", got)
	}
	if got := positionOf(t, sections, "a"); got != 1 {
		t.Errorf("section 'a' moved to %d", got)
	}
}

func TestRepair_IgnoresCompletedSwap(t *testing.T) {
	r, sections := newRepairer(t)
	// By the time the stream record arrives, the swap's final step has
	// already moved the section back into the valid range.
	seed(t, sections, "moved", 2)

	if err := r.HandleStream(context.Background(), sentinelEvent("moved")); err != nil {
		t.Fatalf("HandleStream failed: %v", err)
	}
	if got := positionOf(t, sections, "moved"); got != 2 {
		t.Errorf("expected position 2 untouched, got %d", got)
	}
}

func TestRepair_IgnoresDeletedSection(t *testing.T) {
	r, _ := newRepairer(t)

	if err := r.HandleStream(context.Background(), sentinelEvent("gone")); err != nil {
		t.Errorf("expected missing section to be skipped, got %v", err)
	}
}

func TestRepair_IgnoresIrrelevantRecords(t *testing.T) {
	r, sections := newRepairer(t)
	seed(t, sections, "a", 1)

	event := events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{
			{
				EventName: "INSERT",
				Change: events.DynamoDBStreamRecord{
					Keys: map[string]events.DynamoDBAttributeValue{
						"sk": events.NewStringAttribute("a"),
					},
					NewImage: map[string]events.DynamoDBAttributeValue{
						home.FieldPosition: events.NewNumberAttribute("-1"),
					},
				},
			},
			{
				EventName: "MODIFY",
				Change: events.DynamoDBStreamRecord{
					Keys: map[string]events.DynamoDBAttributeValue{
						"sk": events.NewStringAttribute("a"),
					},
					NewImage: map[string]events.DynamoDBAttributeValue{
						home.FieldPosition: events.NewNumberAttribute("2"),
					},
				},
			},
		},
	}
	if err := r.HandleStream(context.Background(), event); err != nil {
		t.Fatalf("HandleStream failed: %v", err)
	}
	if got := positionOf(t, sections, "a"); got != 1 {
		t.Errorf("expected position 1 untouched, got %d", got)
	}
}

func TestRepair_Idempotent(t *testing.T) {
	r, sections := newRepairer(t)
	seed(t, sections, "stuck", -1)

	for i := 0; i < 2; i++ {
		if err := r.HandleStream(context.Background(), sentinelEvent("stuck")); err != nil {
			t.Fatalf("replay %d failed: %v", i, err)
		}
	}
	if got := positionOf(t, sections, "stuck"); got != 1 {
		t.Errorf("expected stable position 1 across replays, got %d", got)
	}
}
