package seed_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ponto/internal/attendance/consent"
	"ponto/internal/attendance/identity"
	"ponto/internal/attendance/models"
	"ponto/internal/attendance/seed"
	consentstore "ponto/internal/attendance/store/consent"
	"ponto/internal/attendance/store/employee"
	"ponto/internal/attendance/store/supervisor"
	"ponto/internal/attendance/store/unit"
	"ponto/internal/platform/config"
)

func TestSeedAllIsResolvable(t *testing.T) {
	ctx := context.Background()
	units := unit.NewInMemoryStore()
	employees := employee.NewInMemoryStore()
	consents := consentstore.NewInMemoryStore()
	supervisors := supervisor.NewInMemoryStore()

	err := seed.New(units, employees, consents, supervisors, slog.New(slog.DiscardHandler)).SeedAll(ctx)
	require.NoError(t, err)

	resolver, err := identity.New(employees, units, config.DefaultUniversalCodePattern)
	require.NoError(t, err)

	t.Run("badge resolves to its unit", func(t *testing.T) {
		id, err := resolver.Resolve(ctx, "BADGE-HQ-01", "52998224725")
		require.NoError(t, err)
		assert.Equal(t, models.UnitID("unit-hq"), id.Unit.ID)
	})

	t.Run("inactive badge is refused", func(t *testing.T) {
		_, err := resolver.Resolve(ctx, "BADGE-HQ-OLD", "52998224725")
		assert.True(t, models.IsKind(err, models.KindInvalidCredential))
	})

	t.Run("legacy legal id is found and needs repair", func(t *testing.T) {
		id, err := resolver.Resolve(ctx, "KL-UNIVERSAL", "11144477735")
		require.NoError(t, err)
		assert.Len(t, id.Candidates, 2)
		assert.True(t, id.Match.NeedsRepair())
	})

	t.Run("consent on file only where seeded", func(t *testing.T) {
		gate := consent.NewGate(consents)
		assert.NoError(t, gate.Check(ctx, "emp-ana"))
		assert.True(t, models.IsKind(gate.Check(ctx, "emp-carla"), models.KindConsentRequired))
	})

	t.Run("supervisors by group", func(t *testing.T) {
		sups, err := supervisors.ListByGroup(ctx, "ops")
		require.NoError(t, err)
		assert.Len(t, sups, 1)
	})
}
