package adapters

import (
	"context"
	"errors"
	"log/slog"

	"complyledger/internal/decision/ports"
	"complyledger/internal/policy"
	dErrors "complyledger/pkg/domain-errors"
	"complyledger/pkg/platform/circuit"
)

// GuardedEvidenceSource fails fast while the wrapped source is failing.
// Only outages count toward the breaker; coded client errors pass through
// untouched.
type GuardedEvidenceSource struct {
	next    ports.EvidenceSource
	breaker *circuit.Breaker
	logger  *slog.Logger
}

var _ ports.EvidenceSource = (*GuardedEvidenceSource)(nil)

func NewGuardedEvidenceSource(next ports.EvidenceSource, breaker *circuit.Breaker, logger *slog.Logger) *GuardedEvidenceSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &GuardedEvidenceSource{next: next, breaker: breaker, logger: logger}
}

func (g *GuardedEvidenceSource) FetchEvidence(ctx context.Context, assetID, network string) (*policy.Evidence, error) {
	if !g.breaker.Allow() {
		return nil, dErrors.New(dErrors.CodeUnavailable, "evidence source circuit open")
	}
	ev, err := g.next.FetchEvidence(ctx, assetID, network)
	if err != nil && countsAsOutage(err) {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "evidence source circuit opened",
				"breaker", g.breaker.Name(),
				"error", err,
			)
		}
		return nil, err
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "evidence source circuit closed", "breaker", g.breaker.Name())
	}
	return ev, err
}

func countsAsOutage(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if _, ok := dErrors.From(err); !ok {
		return true
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeUnavailable, dErrors.CodeTimeout, dErrors.CodeInternal:
		return true
	}
	return false
}
