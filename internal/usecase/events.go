package usecase

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"go.ngs.io/heatflux-movie/internal/adapter/store"
	"go.ngs.io/heatflux-movie/internal/events"
)

// LoadEvents reads the event table and indexes it against the dataset's time
// axis and grid. Row-level problems are logged and never fail the call.
func LoadEvents(loader store.EventLoader, src store.FieldSource, opts events.Options, log logrus.FieldLogger) (events.Index, error) {
	records, warnings, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load event table: %w", err)
	}

	idx, lookupWarnings := events.Build(records, src.Times(), src.Axes(), opts)
	warnings = append(warnings, lookupWarnings...)
	for _, w := range warnings {
		log.WithFields(logrus.Fields{
			"row":     w.Row,
			"kind":    w.Kind.String(),
			"skipped": w.Skipped(),
		}).Warn(w.Err.Error())
	}
	log.WithFields(logrus.Fields{
		"rows":       len(records),
		"timepoints": len(idx),
		"warnings":   len(warnings),
	}).Info("event table indexed")
	return idx, nil
}
