// Package stream provides the DynamoDB Streams handler that repairs
// homepage sections stranded by an interrupted position swap.
//
// A swap parks the displaced section at the sentinel position before the
// exchange completes. If the process dies between the park and the final
// move, the section stays hidden at the sentinel forever. The sections
// table streams every modification; this handler watches for sections
// arriving at the sentinel and, if they are still there by the time the
// record is processed, moves them back into the valid range.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/vitrine/home"
	"github.com/jacentio/vitrine/internal/pos"
	"github.com/jacentio/vitrine/store"
)

// Repairer reclaims sentinel-stranded sections.
type Repairer struct {
	sections store.Collection
	logger   *slog.Logger
}

// NewRepairer creates a repair handler over the sections collection.
func NewRepairer(sections store.Collection, logger *slog.Logger) *Repairer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repairer{
		sections: sections,
		logger:   logger,
	}
}

// HandleStream processes DynamoDB stream events. Designed to be used as
// an AWS Lambda handler.
func (r *Repairer) HandleStream(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := r.processRecord(ctx, record); err != nil {
			r.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord inspects a single stream record and repairs the section it
// describes when the section is still parked at the sentinel. Records are
// replayed on retry, so every path here is idempotent.
func (r *Repairer) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	// Only MODIFY events can park a section at the sentinel.
	if record.EventName != "MODIFY" {
		return nil
	}
	if getNumberAttr(record.Change.NewImage, home.FieldPosition) != pos.Sentinel {
		return nil
	}

	id := getStringAttr(record.Change.Keys, "sk")
	if id == "" {
		return nil
	}

	// Re-read before acting: in a healthy swap the section has already
	// moved on by the time the stream delivers this record.
	doc, err := r.sections.FindOne(ctx, store.Filter{store.FieldID: id})
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read section %s: %w", id, err)
	}
	if p, _ := doc.Int(home.FieldPosition); p != pos.Sentinel {
		return nil
	}

	return r.reclaim(ctx, id)
}

// reclaim moves a stranded section to a fresh maximum position. The freed
// position of the interrupted swap is not guessed at: appending past the
// maximum can never collide with a live section, and an operator or a
// later edit can move the section where it belongs.
func (r *Repairer) reclaim(ctx context.Context, id string) error {
	docs, err := r.sections.Find(ctx, store.Query{})
	if err != nil {
		return fmt.Errorf("list sections: %w", err)
	}

	var ps []int64
	for _, d := range docs {
		if p, ok := d.Int(home.FieldPosition); ok {
			ps = append(ps, p)
		}
	}
	next := pos.Next(pos.Max(ps))

	matched, err := r.sections.UpdateOne(ctx,
		store.Filter{store.FieldID: id, home.FieldPosition: pos.Sentinel},
		store.Patch{home.FieldPosition: next},
	)
	if err != nil {
		return fmt.Errorf("reclaim section %s: %w", id, err)
	}
	if matched == 0 {
		// The swap's final step won the race after our re-read.
		r.logger.Info("section already reclaimed", "section", id)
		return nil
	}

	r.logger.Warn("reclaimed stranded section",
		"section", id,
		"position", next,
	)
	return nil
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

// getNumberAttr extracts a number attribute from a DynamoDB stream image.
func getNumberAttr(image map[string]events.DynamoDBAttributeValue, key string) int64 {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeNumber {
		n, err := v.Integer()
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}
