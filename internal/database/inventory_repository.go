package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/grandstand-travel/backoffice/internal/models"
)

// inventorySource holds the per-type SQL. Bounded sources consume capacity with a
// conditional UPDATE; gated sources (flights, lounge passes) only lock an active row.
type inventorySource struct {
	lookup  string
	reserve string
	release string
	gated   bool
}

var inventorySources = map[models.ComponentType]inventorySource{
	models.ComponentTicket: {
		lookup: `SELECT id, event_id, ticket_name, ticket_type, quantity_available, price, currency, updated_at
			FROM tickets WHERE id = $1`,
		reserve: `UPDATE tickets SET quantity_available = quantity_available - $1, updated_at = NOW()
			WHERE id = $2 AND quantity_available >= $1`,
		release: `UPDATE tickets SET quantity_available = quantity_available + $1, updated_at = NOW()
			WHERE id = $2`,
	},
	models.ComponentHotelRoom: {
		lookup: `SELECT id, hotel_id, hotel_name, room_type, check_in, check_out, quantity_available, price_per_night, currency
			FROM hotel_rooms WHERE id = $1`,
		reserve: `UPDATE hotel_rooms SET quantity_available = quantity_available - $1
			WHERE id = $2 AND quantity_available >= $1`,
		release: `UPDATE hotel_rooms SET quantity_available = quantity_available + $1
			WHERE id = $2`,
	},
	models.ComponentCircuitTransfer: {
		lookup: `SELECT id, event_id, transfer_name, coach_capacity, used, price, currency
			FROM circuit_transfers WHERE id = $1`,
		reserve: `UPDATE circuit_transfers SET used = used + $1
			WHERE id = $2 AND coach_capacity - used >= $1`,
		release: `UPDATE circuit_transfers SET used = GREATEST(used - $1, 0)
			WHERE id = $2`,
	},
	models.ComponentAirportTransfer: {
		lookup: `SELECT id, transfer_name, transport_type, max_capacity, used, price, currency
			FROM airport_transfers WHERE id = $1`,
		reserve: `UPDATE airport_transfers SET used = used + $1
			WHERE id = $2 AND max_capacity - used >= $1`,
		release: `UPDATE airport_transfers SET used = GREATEST(used - $1, 0)
			WHERE id = $2`,
	},
	models.ComponentFlight: {
		lookup: `SELECT id, airline, flight_number, departure_airport, arrival_airport, departure_time, price, currency, active
			FROM flights WHERE id = $1`,
		reserve: `SELECT id FROM flights WHERE id = $1 AND active FOR SHARE`,
		gated:   true,
	},
	models.ComponentLoungePass: {
		lookup: `SELECT id, lounge_name, airport, price, currency, is_active
			FROM lounge_passes WHERE id = $1`,
		reserve: `SELECT id FROM lounge_passes WHERE id = $1 AND is_active FOR SHARE`,
		gated:   true,
	},
}

// InventoryRepository reads and (inside booking transactions) consumes component inventory
type InventoryRepository struct {
	db *sqlx.DB
}

// NewInventoryRepository creates a new InventoryRepository
func NewInventoryRepository(db *sqlx.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// validComponentID guards the UUID columns; an id that cannot be parsed can never match a row
func validComponentID(componentID string) bool {
	_, err := uuid.Parse(componentID)
	return err == nil
}

// GetRecord returns the current source record, or nil when it no longer exists
func (r *InventoryRepository) GetRecord(ctx context.Context, componentType models.ComponentType, componentID string) (*models.InventoryRecord, error) {
	return r.getRecord(ctx, r.db, componentType, componentID)
}

func (r *InventoryRepository) getRecord(ctx context.Context, q sqlx.QueryerContext, componentType models.ComponentType, componentID string) (*models.InventoryRecord, error) {
	source, ok := inventorySources[componentType]
	if !ok {
		return nil, fmt.Errorf("unsupported component type: %s", componentType)
	}
	if !validComponentID(componentID) {
		return nil, nil
	}

	var (
		record *models.InventoryRecord
		err    error
	)

	switch componentType {
	case models.ComponentTicket:
		var row models.Ticket
		if err = sqlx.GetContext(ctx, q, &row, source.lookup, componentID); err == nil {
			record = row.Record()
		}
	case models.ComponentHotelRoom:
		var row models.HotelRoom
		if err = sqlx.GetContext(ctx, q, &row, source.lookup, componentID); err == nil {
			record = row.Record()
		}
	case models.ComponentCircuitTransfer:
		var row models.CircuitTransfer
		if err = sqlx.GetContext(ctx, q, &row, source.lookup, componentID); err == nil {
			record = row.Record()
		}
	case models.ComponentAirportTransfer:
		var row models.AirportTransfer
		if err = sqlx.GetContext(ctx, q, &row, source.lookup, componentID); err == nil {
			record = row.Record()
		}
	case models.ComponentFlight:
		var row models.Flight
		if err = sqlx.GetContext(ctx, q, &row, source.lookup, componentID); err == nil {
			record = row.Record()
		}
	case models.ComponentLoungePass:
		var row models.LoungePass
		if err = sqlx.GetContext(ctx, q, &row, source.lookup, componentID); err == nil {
			record = row.Record()
		}
	}

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s %s: %w", componentType, componentID, err)
	}

	return record, nil
}

// ReserveTx consumes the requested quantity within the transaction.
// Returns false when the source no longer has enough capacity (or is inactive).
func (r *InventoryRepository) ReserveTx(ctx context.Context, tx *sqlx.Tx, component models.SelectedComponent) (bool, error) {
	source, ok := inventorySources[component.Type]
	if !ok {
		return false, fmt.Errorf("unsupported component type: %s", component.Type)
	}
	if !validComponentID(component.ID) {
		return false, nil
	}

	if source.gated {
		var id string
		err := tx.QueryRowxContext(ctx, source.reserve, component.ID).Scan(&id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return false, nil
			}
			return false, fmt.Errorf("failed to lock %s %s: %w", component.Type, component.ID, err)
		}
		return true, nil
	}

	result, err := tx.ExecContext(ctx, source.reserve, component.Quantity, component.ID)
	if err != nil {
		return false, fmt.Errorf("failed to reserve %s %s: %w", component.Type, component.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows == 1, nil
}

// ReleaseTx returns previously consumed capacity. Gated sources hold nothing to release.
func (r *InventoryRepository) ReleaseTx(ctx context.Context, tx *sqlx.Tx, componentType models.ComponentType, componentID string, quantity int) error {
	source, ok := inventorySources[componentType]
	if !ok {
		return fmt.Errorf("unsupported component type: %s", componentType)
	}
	if source.gated || !validComponentID(componentID) {
		return nil
	}

	if _, err := tx.ExecContext(ctx, source.release, quantity, componentID); err != nil {
		return fmt.Errorf("failed to release %s %s: %w", componentType, componentID, err)
	}

	return nil
}

// ShortfallTx re-reads the source inside the transaction and describes why the component
// could not be reserved, naming it the same way the availability checker does
func (r *InventoryRepository) ShortfallTx(ctx context.Context, tx *sqlx.Tx, component models.SelectedComponent) (string, error) {
	record, err := r.getRecord(ctx, tx, component.Type, component.ID)
	if err != nil {
		return "", err
	}

	name := component.DisplayName()
	remaining := 0
	if record != nil {
		if component.Name == "" && record.Name != "" {
			name = record.Name
		}
		if record.Active && record.Bounded && record.Remaining > 0 {
			remaining = record.Remaining
		}
	}

	return models.DescribeShortfall(component.Type, name, component.Quantity, remaining), nil
}
