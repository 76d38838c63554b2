package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/grandstand-travel/backoffice/internal/models"
)

// AvailabilityChecker compares the quantities frozen in a quote against current inventory.
// It never mutates inventory.
type AvailabilityChecker struct {
	inventory InventoryStore
	logger    *logrus.Logger
}

// NewAvailabilityChecker creates a new AvailabilityChecker
func NewAvailabilityChecker(inventory InventoryStore, logger *logrus.Logger) *AvailabilityChecker {
	return &AvailabilityChecker{inventory: inventory, logger: logger}
}

// Check returns a verdict per component. A missing source record is reported as zero
// availability, not as an error. Repeated lines for the same component are summed.
func (c *AvailabilityChecker) Check(ctx context.Context, components models.SelectedComponents) (*models.AvailabilityReport, error) {
	report := &models.AvailabilityReport{
		AllAvailable: true,
		Components:   models.AvailabilityMap{},
		Unavailable:  []string{},
	}

	for _, component := range components.Merged() {
		verdict, err := c.checkComponent(ctx, component)
		if err != nil {
			return nil, err
		}

		key := component.Key()
		report.Components[key] = verdict
		if !verdict.Available {
			report.AllAvailable = false
			report.Unavailable = append(report.Unavailable,
				models.DescribeShortfall(component.Type, verdict.ComponentName, verdict.Requested, verdict.AvailableQuantity))
		}
	}

	return report, nil
}

func (c *AvailabilityChecker) checkComponent(ctx context.Context, component models.SelectedComponent) (models.ComponentAvailability, error) {
	requested := component.Quantity
	verdict := models.ComponentAvailability{
		Requested:     requested,
		ComponentName: component.DisplayName(),
	}

	if !component.Type.IsValid() {
		c.logger.WithFields(logrus.Fields{
			"component_type": component.Type,
			"component_id":   component.ID,
		}).Warn("Quote references an unsupported component type")
		return verdict, nil
	}

	record, err := c.inventory.GetRecord(ctx, component.Type, component.ID)
	if err != nil {
		return verdict, fmt.Errorf("failed to check availability for %s: %w", component.Key(), err)
	}
	if record == nil {
		c.logger.WithFields(logrus.Fields{
			"component_type": component.Type,
			"component_id":   component.ID,
		}).Warn("Quoted component no longer exists in inventory")
		return verdict, nil
	}

	if component.Name == "" && record.Name != "" {
		verdict.ComponentName = record.Name
	}

	if !record.Bounded {
		if record.Active {
			verdict.Available = true
			verdict.AvailableQuantity = requested
		}
		return verdict, nil
	}

	if record.Remaining > 0 {
		verdict.AvailableQuantity = record.Remaining
	}
	verdict.Available = record.Remaining >= requested

	return verdict, nil
}
