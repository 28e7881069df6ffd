package adapters

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"complyledger/internal/decision/ports/mocks"
	"complyledger/internal/policy"
	dErrors "complyledger/pkg/domain-errors"
	"complyledger/pkg/platform/circuit"
)

func TestGuardedEvidenceSource(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	newGuard := func(t *testing.T) (*mocks.MockEvidenceSource, *GuardedEvidenceSource) {
		ctrl := gomock.NewController(t)
		next := mocks.NewMockEvidenceSource(ctrl)
		breaker := circuit.New("evidence",
			circuit.WithFailureThreshold(2),
			circuit.WithSuccessThreshold(1),
			circuit.WithCooldown(time.Minute),
			circuit.WithClock(func() time.Time { return now }),
		)
		return next, NewGuardedEvidenceSource(next, breaker, logger)
	}

	t.Run("opens after consecutive outages and fails fast", func(t *testing.T) {
		next, guard := newGuard(t)
		next.EXPECT().FetchEvidence(gomock.Any(), "tok", "eth").Return(nil, errors.New("dial tcp: refused")).Times(2)

		for range 2 {
			_, err := guard.FetchEvidence(ctx, "tok", "eth")
			require.Error(t, err)
		}
		_, err := guard.FetchEvidence(ctx, "tok", "eth")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("trial success after cooldown closes the circuit", func(t *testing.T) {
		next, guard := newGuard(t)
		outage := dErrors.New(dErrors.CodeTimeout, "slow provider")
		gomock.InOrder(
			next.EXPECT().FetchEvidence(gomock.Any(), "tok", "eth").Return(nil, outage).Times(2),
			next.EXPECT().FetchEvidence(gomock.Any(), "tok", "eth").Return(&policy.Evidence{KYCStatus: policy.KYCVerified}, nil).Times(2),
		)
		for range 2 {
			_, _ = guard.FetchEvidence(ctx, "tok", "eth")
		}

		now = now.Add(time.Minute)
		ev, err := guard.FetchEvidence(ctx, "tok", "eth")
		require.NoError(t, err)
		assert.Equal(t, policy.KYCVerified, ev.KYCStatus)

		_, err = guard.FetchEvidence(ctx, "tok", "eth")
		require.NoError(t, err)
	})

	t.Run("client errors do not trip the breaker", func(t *testing.T) {
		next, guard := newGuard(t)
		bad := dErrors.New(dErrors.CodeValidation, "unknown network")
		next.EXPECT().FetchEvidence(gomock.Any(), "tok", "zz").Return(nil, bad).Times(3)
		for range 3 {
			_, err := guard.FetchEvidence(ctx, "tok", "zz")
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		}
	})
}
