package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/steerfolio/steerfolio/internal/engine"
	"github.com/steerfolio/steerfolio/internal/history"
)

// historyRecorder adapts the Postgres store to the engine's recorder
// interface, flattening targets to JSON and reasons to one column.
type historyRecorder struct {
	store *history.Store
}

func (h historyRecorder) Save(ctx context.Context, rec engine.HistoryRecord) error {
	targetsJSON, err := json.Marshal(rec.Targets)
	if err != nil {
		return fmt.Errorf("encode targets for record %s: %w", rec.ID, err)
	}
	return h.store.Save(ctx, history.Record{
		ID:             rec.ID,
		CreatedAt:      rec.CreatedAt,
		DecisionScore:  rec.DecisionScore,
		Confidence:     rec.Confidence,
		Regime:         rec.Regime,
		Strategy:       rec.Strategy,
		TargetsJSON:    targetsJSON,
		Valid:          rec.Valid,
		BlockedReasons: strings.Join(rec.BlockedReasons, "; "),
	})
}
