package vendors

import (
	"fmt"

	"github.com/glucolink/cgm/readings"
)

// Registry resolves the adapter registered for a vendor.
type Registry interface {
	Adapter(vendor readings.Vendor) (Adapter, error)
	Adapters() []Adapter
}

type registry struct {
	adapters map[readings.Vendor]Adapter
	order    []readings.Vendor
}

var _ Registry = &registry{}

func NewRegistry(adapters ...Adapter) (Registry, error) {
	byVendor := make(map[readings.Vendor]Adapter, len(adapters))
	order := make([]readings.Vendor, 0, len(adapters))
	for _, adapter := range adapters {
		vendor := adapter.Vendor()
		if _, ok := byVendor[vendor]; ok {
			return nil, fmt.Errorf("duplicate adapter for vendor %q", vendor)
		}
		byVendor[vendor] = adapter
		order = append(order, vendor)
	}

	return &registry{adapters: byVendor, order: order}, nil
}

func (r *registry) Adapter(vendor readings.Vendor) (Adapter, error) {
	adapter, ok := r.adapters[vendor]
	if !ok {
		return nil, fmt.Errorf("unsupported vendor %q", vendor)
	}
	return adapter, nil
}

// Adapters returns the registered adapters in registration order.
func (r *registry) Adapters() []Adapter {
	adapters := make([]Adapter, 0, len(r.order))
	for _, vendor := range r.order {
		adapters = append(adapters, r.adapters[vendor])
	}
	return adapters
}
