package wol

import (
	"fmt"

	"github.com/fgeck/gowake/internal/models"
	"github.com/rs/zerolog"
)

// Pipeline stages used as the "stage" log field and in trace entries.
const (
	stageValidate  = "validate"
	stageResolve   = "resolve"
	stageSubnet    = "subnet"
	stagePacket    = "packet"
	stageTransport = "transport"
	stageWait      = "wait"
)

// tracer records the diagnostic trail of a single wake request.
type tracer struct {
	logger  zerolog.Logger
	keep    bool
	entries []models.TraceEntry
}

func newTracer(logger zerolog.Logger, keep bool) *tracer {
	return &tracer{logger: logger, keep: keep}
}

func (t *tracer) step(stage, format string, args ...any) {
	detail := fmt.Sprintf(format, args...)
	t.logger.Debug().Str("stage", stage).Msg(detail)
	if t.keep {
		t.entries = append(t.entries, models.TraceEntry{Stage: stage, Detail: detail})
	}
}
