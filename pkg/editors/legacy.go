package editors

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Legacy editor ids. Content created before editors were keyed by alias
// stores these ids instead.
var (
	LegacyTextboxID       = uuid.MustParse("ec15c1e5-9d90-422a-aa52-4f7622c63bea")
	LegacyTextareaID      = uuid.MustParse("67db8357-ef57-493e-91ac-936d305e0f2a")
	LegacyRichTextID      = uuid.MustParse("5e9b75ae-face-41c8-b47e-5f4b0fd82f83")
	LegacyBooleanID       = uuid.MustParse("38b352c1-e9f8-4fd8-9324-9a2eab06d97a")
	LegacyIntegerID       = uuid.MustParse("1413afcb-d19a-4173-8e9a-68288d2a73b8")
	LegacyDateID          = uuid.MustParse("23e93522-3200-44e2-9f29-e61a6fcbb79a")
	LegacyDateTimeID      = uuid.MustParse("b6fb1622-afa5-4bbf-a3cc-d9672a442222")
	LegacyColorPickerID   = uuid.MustParse("f8d60f68-ec59-4974-b43b-c46eb5677985")
	LegacyContentPickerID = uuid.MustParse("158aa029-24ed-4948-939e-c3da209e5fba")
	LegacyMediaPickerID   = uuid.MustParse("ead69342-f06d-4253-83ac-28000225583b")
	LegacyDropdownID      = uuid.MustParse("a74ea9c9-8e18-4d2a-8cf6-73c6206c5da6")
	LegacyTagsID          = uuid.MustParse("4023e540-92f5-11dd-ad8b-0800200c9a66")
	LegacyUploadID        = uuid.MustParse("5032a6e6-69e3-491d-bb28-cd31cd11086c")
)

var coreLegacy = map[uuid.UUID]string{
	LegacyTextboxID:       TextboxAlias,
	LegacyTextareaID:      TextareaAlias,
	LegacyRichTextID:      RichTextAlias,
	LegacyBooleanID:       BooleanAlias,
	LegacyIntegerID:       IntegerAlias,
	LegacyDateID:          DateAlias,
	LegacyDateTimeID:      DateTimeAlias,
	LegacyColorPickerID:   ColorPickerAlias,
	LegacyContentPickerID: ContentPickerAlias,
	LegacyMediaPickerID:   MediaPickerAlias,
	LegacyDropdownID:      DropdownAlias,
	LegacyTagsID:          TagsAlias,
	LegacyUploadID:        UploadAlias,
}

// LegacyMap maps legacy editor ids to aliases.
type LegacyMap struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]string
	byAlias map[string]uuid.UUID
}

// NewLegacyMap returns an empty table.
func NewLegacyMap() *LegacyMap {
	return &LegacyMap{byID: make(map[uuid.UUID]string), byAlias: make(map[string]uuid.UUID)}
}

// CreateMappingsForCoreEditors adds the core editor ids. Ids already present
// with the same alias are left alone.
func (m *LegacyMap) CreateMappingsForCoreEditors() error {
	ids := make([]uuid.UUID, 0, len(coreLegacy))
	for id := range coreLegacy {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	for _, id := range ids {
		if alias, ok := m.Alias(id); ok && alias == coreLegacy[id] {
			continue
		}
		if err := m.Add(id, coreLegacy[id]); err != nil {
			return err
		}
	}
	return nil
}

// Add maps id to alias. An id can only be mapped once.
func (m *LegacyMap) Add(id uuid.UUID, alias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byID[id]; ok {
		return fmt.Errorf("legacy editor %s already mapped to %s", id, existing)
	}
	m.byID[id] = alias
	m.byAlias[alias] = id
	return nil
}

// Alias returns the alias mapped to id.
func (m *LegacyMap) Alias(id uuid.UUID) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.byID[id]
	return a, ok
}

// ID returns the legacy id mapped to alias.
func (m *LegacyMap) ID(alias string) (uuid.UUID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byAlias[alias]
	return id, ok
}

// Len returns the number of mappings.
func (m *LegacyMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// Reset removes every mapping.
func (m *LegacyMap) Reset() {
	m.mu.Lock()
	m.byID = make(map[uuid.UUID]string)
	m.byAlias = make(map[string]uuid.UUID)
	m.mu.Unlock()
}

// ResolveAlias accepts either an alias or a legacy id string and returns
// the alias.
func (m *LegacyMap) ResolveAlias(aliasOrID string) string {
	id, err := uuid.Parse(aliasOrID)
	if err != nil {
		return aliasOrID
	}
	if alias, ok := m.Alias(id); ok {
		return alias
	}
	return aliasOrID
}
