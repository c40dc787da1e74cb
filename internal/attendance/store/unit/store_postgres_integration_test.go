//go:build integration

package unit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"ponto/internal/attendance/models"
	"ponto/internal/attendance/store/unit"
	"ponto/pkg/platform/sentinel"
	"ponto/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *unit.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = unit.NewPostgres(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(context.Background()))
}

func (s *PostgresStoreSuite) TestFenceRoundTrip() {
	ctx := context.Background()
	s.Require().NoError(s.store.SaveUnit(ctx, &models.WorkUnit{
		ID: "u-a", Name: "Matriz", Fence: &models.Fence{Lat: -23.5, Lng: -46.6, RadiusMeters: 150},
	}))
	s.Require().NoError(s.store.SaveUnit(ctx, &models.WorkUnit{ID: "u-b", Name: "Depósito"}))

	withFence, err := s.store.FindByID(ctx, "u-a")
	s.Require().NoError(err)
	s.Require().NotNil(withFence.Fence)
	s.InDelta(150, withFence.Fence.RadiusMeters, 1e-9)
	s.True(withFence.HasFence())

	without, err := s.store.FindByID(ctx, "u-b")
	s.Require().NoError(err)
	s.Nil(without.Fence)

	_, err = s.store.FindByID(ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFindByIDsFollowsRequestOrder() {
	ctx := context.Background()
	for _, u := range []*models.WorkUnit{{ID: "u-a", Name: "A"}, {ID: "u-b", Name: "B"}, {ID: "u-c", Name: "C"}} {
		s.Require().NoError(s.store.SaveUnit(ctx, u))
	}

	got, err := s.store.FindByIDs(ctx, []models.UnitID{"u-c", "missing", "u-a"})
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(models.UnitID("u-c"), got[0].ID)
	s.Equal(models.UnitID("u-a"), got[1].ID)

	none, err := s.store.FindByIDs(ctx, nil)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *PostgresStoreSuite) TestFindCredential() {
	ctx := context.Background()
	s.Require().NoError(s.store.SaveUnit(ctx, &models.WorkUnit{ID: "u-a", Name: "A"}))
	s.Require().NoError(s.store.SaveCredential(ctx, &models.AccessCredential{Code: "BADGE-1", UnitID: "u-a", Active: true}))
	s.Require().NoError(s.store.SaveCredential(ctx, &models.AccessCredential{Code: "BADGE-1", UnitID: "u-a", Active: false}))

	got, err := s.store.FindCredential(ctx, "BADGE-1")
	s.Require().NoError(err)
	s.Equal(models.UnitID("u-a"), got.UnitID)
	s.False(got.Active)

	_, err = s.store.FindCredential(ctx, "BADGE-2")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
