package session

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/cardengine/table-client/internal/catalog"
)

// Registry maps server-assigned instance ids to runtime card instances.
// Instances are never removed; cards that leave play stay addressable by id.
type Registry struct {
	logger    *zap.Logger
	catalog   *catalog.Catalog
	instances map[string]*CardInstance
	// seen buffers reveals that arrived before the instance was created.
	seen map[string]string
}

// NewRegistry creates an empty registry resolving names against cat.
func NewRegistry(cat *catalog.Catalog, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger:    logger,
		catalog:   cat,
		instances: make(map[string]*CardInstance),
		seen:      make(map[string]string),
	}
}

// Create registers a new instance. If id is already registered the existing instance is
// returned unchanged together with false.
func (r *Registry) Create(id, owner string, location Location) (*CardInstance, bool) {
	if existing, ok := r.instances[id]; ok {
		return existing, false
	}

	inst := &CardInstance{
		ID:       id,
		Owner:    owner,
		Location: location,
		Slot:     NoSlot,
	}
	if name, ok := r.seen[id]; ok {
		delete(r.seen, id)
		r.applyName(inst, name)
	}
	r.instances[id] = inst
	return inst, true
}

// Reveal sets the name of an instance and copies its abilities from the catalog.
// Reveals for unknown ids are buffered until Create and reported as ErrUnknownInstance.
func (r *Registry) Reveal(id, name string) error {
	inst, ok := r.instances[id]
	if !ok {
		r.seen[id] = name
		return fmt.Errorf("reveal %s as %q: %w", id, name, ErrUnknownInstance)
	}
	r.applyName(inst, name)
	return nil
}

func (r *Registry) applyName(inst *CardInstance, name string) {
	inst.Name = name
	inst.Abilities = nil
	if r.catalog == nil {
		return
	}
	if def, ok := r.catalog.Resolve(name); ok {
		inst.Abilities = append([]string(nil), def.Activated...)
	} else {
		r.logger.Debug("revealed card has no definition yet",
			zap.String("instance_id", inst.ID),
			zap.String("card_name", name),
		)
	}
}

// RefreshAbilities re-copies abilities for every revealed instance. Called after the
// catalog receives new definitions.
func (r *Registry) RefreshAbilities() {
	if r.catalog == nil {
		return
	}
	for _, inst := range r.instances {
		if !inst.Revealed() {
			continue
		}
		if def, ok := r.catalog.Resolve(inst.Name); ok {
			inst.Abilities = append([]string(nil), def.Activated...)
		}
	}
}

// Get returns the instance registered under id.
func (r *Registry) Get(id string) (*CardInstance, bool) {
	inst, ok := r.instances[id]
	return inst, ok
}

// IDs returns every registered id in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.instances))
	for id := range r.instances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered instances.
func (r *Registry) Len() int {
	return len(r.instances)
}

// Pending returns the number of buffered reveals.
func (r *Registry) Pending() int {
	return len(r.seen)
}
