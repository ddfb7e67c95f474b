package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/example/lab-scheduler/internal/gateway"
)

// EquipmentStore captures the catalog reads the equipment service needs.
type EquipmentStore interface {
	ListEquipment(ctx context.Context, filter gateway.EquipmentFilter) ([]gateway.Equipment, error)
	GetEquipment(ctx context.Context, id string) (gateway.Equipment, error)
	ListCategories(ctx context.Context) ([]gateway.EquipmentCategory, error)
}

// EquipmentFilter narrows a catalog listing. Category, Status and Location
// are forwarded to the store; Search is additionally re-applied locally so
// results stay consistent when the store's search is broader than ours.
type EquipmentFilter struct {
	Category string
	Status   EquipmentStatus
	Location string
	Search   string
}

// EquipmentService answers catalog queries.
type EquipmentService struct {
	store  EquipmentStore
	logger *slog.Logger
}

// NewEquipmentService wires the service.
func NewEquipmentService(store EquipmentStore, logger *slog.Logger) *EquipmentService {
	return &EquipmentService{store: store, logger: defaultLogger(logger)}
}

// List returns catalog entries matching the filter, ordered by name.
func (s *EquipmentService) List(ctx context.Context, filter EquipmentFilter) ([]Equipment, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("equipment store not configured")
	}
	logger := serviceLogger(ctx, s.logger, "EquipmentService", "List")

	wire, err := s.store.ListEquipment(ctx, gateway.EquipmentFilter{
		Category: filter.Category,
		Status:   string(filter.Status),
		Location: filter.Location,
		Search:   filter.Search,
		Ordering: "name",
	})
	if err != nil {
		logger.ErrorContext(ctx, "catalog listing failed", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	equipment := make([]Equipment, 0, len(wire))
	for _, w := range wire {
		e := fromWireEquipment(w)
		if filter.Search != "" && !matchesSearch(e, filter.Search) {
			continue
		}
		equipment = append(equipment, e)
	}
	sort.Slice(equipment, func(i, j int) bool { return equipment[i].Name < equipment[j].Name })

	logger.DebugContext(ctx, "catalog listed", "count", len(equipment))
	return equipment, nil
}

// Get returns a single catalog entry.
func (s *EquipmentService) Get(ctx context.Context, id string) (Equipment, error) {
	if s == nil || s.store == nil {
		return Equipment{}, fmt.Errorf("equipment store not configured")
	}
	wire, err := s.store.GetEquipment(ctx, id)
	if err != nil {
		return Equipment{}, mapStoreError(err)
	}
	return fromWireEquipment(wire), nil
}

// Categories returns the catalog's category list, ordered by name.
func (s *EquipmentService) Categories(ctx context.Context) ([]EquipmentCategory, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("equipment store not configured")
	}
	wire, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	categories := make([]EquipmentCategory, 0, len(wire))
	for _, w := range wire {
		categories = append(categories, EquipmentCategory{ID: w.ID, Name: w.Name, Description: w.Description})
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func matchesSearch(e Equipment, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(e.Name), q) ||
		strings.Contains(strings.ToLower(e.Description), q) ||
		strings.Contains(strings.ToLower(e.Location), q)
}
