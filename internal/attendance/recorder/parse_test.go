package recorder_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"ponto/internal/attendance/consent"
	"ponto/internal/attendance/dedup"
	"ponto/internal/attendance/evidence"
	"ponto/internal/attendance/identity"
	"ponto/internal/attendance/identity/mocks"
	"ponto/internal/attendance/models"
	"ponto/internal/attendance/recorder"
	"ponto/internal/attendance/store/clockevent"
	consentstore "ponto/internal/attendance/store/consent"
	"ponto/internal/platform/config"
	"ponto/internal/platform/objectstore"
)

// Geolocation problems are reported before any identity lookup: the mock
// stores carry no expectations, so any call fails the test.
func TestGeoRejectedBeforeAnyLookup(t *testing.T) {
	cases := []struct {
		name     string
		lat, lng string
		kind     models.Kind
	}{
		{"missing latitude", "", "-46.6", models.KindGeoRequired},
		{"missing longitude", "-23.5", "  ", models.KindGeoRequired},
		{"non numeric", "abc", "-46.6", models.KindGeoInvalid},
		{"latitude out of range", "91", "-46.6", models.KindGeoInvalid},
		{"longitude out of range", "-23.5", "181", models.KindGeoInvalid},
		{"not finite", "NaN", "-46.6", models.KindGeoInvalid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			resolver, err := identity.New(mocks.NewMockEmployeeStore(ctrl), mocks.NewMockUnitStore(ctrl),
				config.DefaultUniversalCodePattern)
			require.NoError(t, err)

			events := clockevent.NewInMemoryStore()
			objects := objectstore.NewMemory()
			rec, err := recorder.New(resolver,
				consent.NewGate(consentstore.NewInMemoryStore()),
				dedup.NewGuard(120*time.Second, brt),
				evidence.New(objects),
				events,
			)
			require.NoError(t, err)

			req := request("ENTRADA", universal, legalID, tc.lat, tc.lng)
			_, err = rec.Record(context.Background(), req)

			require.Error(t, err)
			assert.Equal(t, tc.kind, models.KindOf(err))
			assert.Equal(t, 0, events.Count())
			assert.Equal(t, 0, objects.Len())
		})
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := recorder.New(nil, nil, nil, nil, nil)
	assert.Error(t, err)
}
