// Package seed loads demo units, badges and employees into the in-memory
// stores so a development server can record clock events out of the box.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ponto/internal/attendance/models"
)

type UnitStore interface {
	SaveUnit(ctx context.Context, u *models.WorkUnit) error
	SaveCredential(ctx context.Context, c *models.AccessCredential) error
}

type EmployeeStore interface {
	Save(ctx context.Context, e *models.Employee) error
}

type ConsentStore interface {
	Save(ctx context.Context, rec models.ConsentRecord) (*models.ConsentRecord, bool, error)
}

type SupervisorStore interface {
	Save(ctx context.Context, sup models.Supervisor) error
}

// Seeder populates stores with demo data.
type Seeder struct {
	units       UnitStore
	employees   EmployeeStore
	consents    ConsentStore
	supervisors SupervisorStore
	logger      *slog.Logger
}

func New(units UnitStore, employees EmployeeStore, consents ConsentStore, supervisors SupervisorStore, logger *slog.Logger) *Seeder {
	return &Seeder{
		units:       units,
		employees:   employees,
		consents:    consents,
		supervisors: supervisors,
		logger:      logger,
	}
}

// Demo fixtures. The HQ fence sits on Avenida Paulista; the branch is ~8 km
// away; the warehouse has no fence and so rejects every clock event.
var (
	demoUnits = []models.WorkUnit{
		{ID: "unit-hq", Name: "Sede Paulista", Fence: &models.Fence{Lat: -23.5614, Lng: -46.6559, RadiusMeters: 150}},
		{ID: "unit-branch", Name: "Filial Pinheiros", Fence: &models.Fence{Lat: -23.5670, Lng: -46.7020, RadiusMeters: 120}},
		{ID: "unit-warehouse", Name: "Depósito Guarulhos"},
	}
	demoCredentials = []models.AccessCredential{
		{Code: "BADGE-HQ-01", UnitID: "unit-hq", Active: true},
		{Code: "BADGE-BR-01", UnitID: "unit-branch", Active: true},
		{Code: "BADGE-HQ-OLD", UnitID: "unit-hq", Active: false},
		{Code: "BADGE-WH-01", UnitID: "unit-warehouse", Active: true},
	}
	demoEmployees = []struct {
		employee  models.Employee
		consented bool
	}{
		{models.Employee{ID: "emp-ana", Name: "Ana Souza", LegalID: "52998224725", PrimaryUnitID: "unit-hq", GroupID: "ops"}, true},
		{models.Employee{ID: "emp-bruno", Name: "Bruno Lima", LegalID: "111.444.777-35", PrimaryUnitID: "unit-hq",
			PermittedUnitIDs: []models.UnitID{"unit-hq", "unit-branch"}, GroupID: "ops"}, true},
		{models.Employee{ID: "emp-carla", Name: "Carla Dias", LegalID: "39053344705", PrimaryUnitID: "unit-branch", GroupID: "sales"}, false},
		{models.Employee{ID: "emp-davi", Name: "Davi Rocha", LegalID: "86288366757", PrimaryUnitID: "unit-warehouse", GroupID: "logistics"}, true},
		{models.Employee{ID: "emp-eva", Name: "Eva Nunes", LegalID: "71428793860", GroupID: "sales"}, true},
	}
	demoSupervisors = []models.Supervisor{
		{GroupID: "ops", Name: "Marina Alves", Email: "marina.alves@example.com"},
		{GroupID: "sales", Name: "Paulo Reis", Email: "paulo.reis@example.com"},
	}
)

// SeedAll writes every fixture. It is not idempotent for stores that reject
// duplicates; run it once against empty stores.
func (s *Seeder) SeedAll(ctx context.Context) error {
	s.logger.Info("seeding demo data...")

	for i := range demoUnits {
		if err := s.units.SaveUnit(ctx, &demoUnits[i]); err != nil {
			return fmt.Errorf("failed to seed unit %s: %w", demoUnits[i].ID, err)
		}
	}
	for i := range demoCredentials {
		if err := s.units.SaveCredential(ctx, &demoCredentials[i]); err != nil {
			return fmt.Errorf("failed to seed credential %s: %w", demoCredentials[i].Code, err)
		}
	}

	now := time.Now().UTC()
	consented := 0
	for i := range demoEmployees {
		e := demoEmployees[i].employee
		if err := s.employees.Save(ctx, &e); err != nil {
			return fmt.Errorf("failed to seed employee %s: %w", e.ID, err)
		}
		if !demoEmployees[i].consented {
			continue
		}
		if _, _, err := s.consents.Save(ctx, models.ConsentRecord{EmployeeID: e.ID, AcknowledgedAt: now}); err != nil {
			return fmt.Errorf("failed to seed consent for %s: %w", e.ID, err)
		}
		consented++
	}

	for _, sup := range demoSupervisors {
		if err := s.supervisors.Save(ctx, sup); err != nil {
			return fmt.Errorf("failed to seed supervisor %s: %w", sup.Email, err)
		}
	}

	s.logger.Info("demo data seeded successfully",
		"units", len(demoUnits),
		"employees", len(demoEmployees),
		"consents", consented,
	)
	return nil
}
