package workorder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedDetail(id, code string) *Detail {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	return &Detail{
		ID:        id,
		Code:      code,
		Title:     "测试工单",
		Priority:  PriorityMedium,
		Status:    StatusPlanned,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestStore_SaveAndFind(t *testing.T) {
	s := NewStore()
	assert.True(t, s.IsEmpty())

	s.Save(storedDetail("a", "WO-1"))
	assert.False(t, s.IsEmpty())

	found := s.FindByID("a")
	require.NotNil(t, found)
	assert.Equal(t, "WO-1", found.Code)
	assert.Nil(t, s.FindByID("missing"))
}

func TestStore_FindAll_InsertionOrder(t *testing.T) {
	s := NewStore()
	s.Save(storedDetail("c", "WO-3"))
	s.Save(storedDetail("a", "WO-1"))
	s.Save(storedDetail("b", "WO-2"))

	all := s.FindAll()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{all[0].ID, all[1].ID, all[2].ID})

	// re-saving keeps the original position
	s.Save(storedDetail("a", "WO-1b"))
	all = s.FindAll()
	assert.Equal(t, "a", all[1].ID)
	assert.Equal(t, "WO-1b", all[1].Code)
}

func TestStore_Remove(t *testing.T) {
	s := NewStore()
	s.Save(storedDetail("a", "WO-1"))
	s.Save(storedDetail("b", "WO-2"))

	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))

	all := s.FindAll()
	require.Len(t, all, 1)
	assert.Equal(t, "b", all[0].ID)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := NewStore()
	detail := storedDetail("a", "WO-1")
	detail.Steps = []Step{{StepCode: "step-1", ExpectedQuantity: 10}}
	s.Save(detail)

	// mutating the saved pointer does not affect the store
	detail.Code = "tampered"
	detail.Steps[0].ExpectedQuantity = 999

	stored := s.FindByID("a")
	assert.Equal(t, "WO-1", stored.Code)
	assert.Equal(t, 10, stored.Steps[0].ExpectedQuantity)

	// mutating a returned copy does not affect the store either
	stored.Steps[0].CompletedQuantity = 5
	assert.Equal(t, 0, s.FindByID("a").Steps[0].CompletedQuantity)
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	s.Save(storedDetail("a", "WO-1"))
	s.Clear()
	assert.True(t, s.IsEmpty())
	assert.Empty(t, s.FindAll())
}
